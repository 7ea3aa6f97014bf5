package application

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vellum/internal/vcs/domain"
)

// memPermStore is an in-memory PermissionStore that counts reads, for
// verifying cache behavior.
type memPermStore struct {
	rows  map[string]*domain.BranchPermission
	reads int
}

func newMemPermStore() *memPermStore {
	return &memPermStore{rows: make(map[string]*domain.BranchPermission)}
}

func (s *memPermStore) Get(branchID, userID string) (*domain.BranchPermission, error) {
	s.reads++
	return s.rows[branchID+"/"+userID], nil
}

func (s *memPermStore) Upsert(perm *domain.BranchPermission) error {
	copied := *perm
	s.rows[perm.BranchID+"/"+perm.UserID] = &copied
	return nil
}

func TestPermissionIndex_AbsenceMeansNoAccess(t *testing.T) {
	idx := NewPermissionIndex(newMemPermStore())

	flags, err := idx.Get("b-1", "u-1")
	require.NoError(t, err)
	assert.True(t, flags.None())

	err = idx.RequireRead("b-1", "u-1")
	var denied *domain.PermissionDeniedError
	require.True(t, errors.As(err, &denied))
}

func TestPermissionIndex_GrantThenRequire(t *testing.T) {
	idx := NewPermissionIndex(newMemPermStore())

	require.NoError(t, idx.Grant("b-1", "u-1", domain.PermissionFlags{CanRead: true, CanWrite: true}, "u-0"))

	require.NoError(t, idx.RequireRead("b-1", "u-1"))
	require.NoError(t, idx.RequireWrite("b-1", "u-1"))

	err := idx.RequireAdmin("b-1", "u-1")
	var denied *domain.PermissionDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "admin", denied.Need)
}

func TestPermissionIndex_CachesReads(t *testing.T) {
	store := newMemPermStore()
	idx := NewPermissionIndex(store)

	for range 5 {
		_, err := idx.Get("b-1", "u-1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.reads, "repeated lookups should hit the cache")
}

func TestPermissionIndex_GrantInvalidatesCache(t *testing.T) {
	store := newMemPermStore()
	idx := NewPermissionIndex(store)

	flags, err := idx.Get("b-1", "u-1")
	require.NoError(t, err)
	assert.True(t, flags.None())

	require.NoError(t, idx.Grant("b-1", "u-1", domain.FullAccess(), "u-0"))

	flags, err = idx.Get("b-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, domain.FullAccess(), flags, "grant must be visible immediately, not after cache expiry")
}

func TestPermissionIndex_GrantIsIdempotent(t *testing.T) {
	store := newMemPermStore()
	idx := NewPermissionIndex(store)

	flags := domain.PermissionFlags{CanRead: true}
	require.NoError(t, idx.Grant("b-1", "u-1", flags, "u-0"))
	require.NoError(t, idx.Grant("b-1", "u-1", flags, "u-0"))

	got, err := idx.Get("b-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, flags, got)
}
