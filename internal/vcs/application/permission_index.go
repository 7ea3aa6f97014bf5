package application

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/vellum/internal/log"
	"github.com/zjrosen/vellum/internal/vcs/domain"
)

// PermissionIndex answers per-branch access questions. Absence of a row
// means no access; there is no implicit public branch and no inheritance
// from project-level roles. Reads go through a short TTL cache, writes
// invalidate it.
type PermissionIndex struct {
	store PermissionStore
	cache *gocache.Cache
}

// NewPermissionIndex creates a PermissionIndex over store.
func NewPermissionIndex(store PermissionStore) *PermissionIndex {
	return &PermissionIndex{
		store: store,
		cache: gocache.New(30*time.Second, time.Minute),
	}
}

func permCacheKey(branchID, userID string) string {
	return branchID + "\x00" + userID
}

// Get returns the effective flags for (branch, user). A missing row yields
// zero flags, not an error.
func (p *PermissionIndex) Get(branchID, userID string) (domain.PermissionFlags, error) {
	key := permCacheKey(branchID, userID)
	if cached, ok := p.cache.Get(key); ok {
		return cached.(domain.PermissionFlags), nil
	}

	row, err := p.store.Get(branchID, userID)
	if err != nil {
		return domain.PermissionFlags{}, fmt.Errorf("failed to read branch permission: %w", err)
	}
	flags := domain.PermissionFlags{}
	if row != nil {
		flags = row.Flags
	}
	p.cache.SetDefault(key, flags)
	return flags, nil
}

// Grant upserts the flags for (branch, user), last writer wins. The grant
// is idempotent.
func (p *PermissionIndex) Grant(branchID, userID string, flags domain.PermissionFlags, grantedBy string) error {
	perm := &domain.BranchPermission{
		BranchID:  branchID,
		UserID:    userID,
		Flags:     flags,
		GrantedBy: grantedBy,
		UpdatedAt: time.Now(),
	}
	if err := p.store.Upsert(perm); err != nil {
		return fmt.Errorf("failed to grant branch permission: %w", err)
	}
	p.cache.Delete(permCacheKey(branchID, userID))
	log.Debug(log.CatDB, "granted branch permission",
		"branch", branchID, "user", userID,
		"read", flags.CanRead, "write", flags.CanWrite, "admin", flags.CanAdmin)
	return nil
}

// Invalidate drops any cached flags for (branch, user).
func (p *PermissionIndex) Invalidate(branchID, userID string) {
	p.cache.Delete(permCacheKey(branchID, userID))
}

// InvalidateAll empties the read cache. Used by the repository watcher
// when refs change underneath the engine.
func (p *PermissionIndex) InvalidateAll() {
	p.cache.Flush()
}

// RequireRead returns PermissionDeniedError unless the user can read.
func (p *PermissionIndex) RequireRead(branchID, userID string) error {
	flags, err := p.Get(branchID, userID)
	if err != nil {
		return err
	}
	if !flags.CanRead {
		return &domain.PermissionDeniedError{BranchID: branchID, UserID: userID, Need: "read"}
	}
	return nil
}

// RequireWrite returns PermissionDeniedError unless the user can write.
func (p *PermissionIndex) RequireWrite(branchID, userID string) error {
	flags, err := p.Get(branchID, userID)
	if err != nil {
		return err
	}
	if !flags.CanWrite {
		return &domain.PermissionDeniedError{BranchID: branchID, UserID: userID, Need: "write"}
	}
	return nil
}

// RequireAdmin returns PermissionDeniedError unless the user is an admin.
func (p *PermissionIndex) RequireAdmin(branchID, userID string) error {
	flags, err := p.Get(branchID, userID)
	if err != nil {
		return err
	}
	if !flags.CanAdmin {
		return &domain.PermissionDeniedError{BranchID: branchID, UserID: userID, Need: "admin"}
	}
	return nil
}
