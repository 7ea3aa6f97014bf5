// Package application wires the version-control engine's services over
// ports (interfaces) for git execution and index persistence. The concrete
// implementations live in internal/vcs/gitexec and
// internal/infrastructure/sqlite.
package application

import (
	"context"

	"github.com/zjrosen/vellum/internal/vcs/domain"
)

// GitExecutor is the subprocess boundary of the engine. Every method is a
// blocking git invocation; implementations must be safe for concurrent use
// across repositories but offer no serialization within one working tree.
type GitExecutor interface {
	Init(ctx context.Context, dir, defaultBranch string) error
	IsRepo(ctx context.Context, dir string) bool
	Checkout(ctx context.Context, dir, branch string) error
	CreateBranch(ctx context.Context, dir, name string) error
	HeadCommit(ctx context.Context, dir string) (string, error)
	RefCommit(ctx context.Context, dir, ref string) (string, error)
	Add(ctx context.Context, dir, pathspec string, force bool) error
	StagedPaths(ctx context.Context, dir, pathspec string) ([]string, error)
	Commit(ctx context.Context, dir, message string, author domain.Actor) (string, error)
	LsFiles(ctx context.Context, dir string) ([]string, error)
	Show(ctx context.Context, dir, rev, path string) (string, error)
}

// RepositoryIndex persists repository rows.
type RepositoryIndex interface {
	Save(repo *domain.Repository) error
	FindByProject(projectID string) (*domain.Repository, error)
	Delete(id string) error
}

// BranchIndex persists branch rows and the cached head hashes.
type BranchIndex interface {
	Save(branch *domain.Branch) error
	FindByID(id string) (*domain.Branch, error)
	FindByName(projectID, name string) (*domain.Branch, error)
	ListByProject(projectID string, offset, limit int) ([]domain.Branch, int, error)
	UpdateHead(branchID, headCommit string) error
	Delete(id string) error
}

// FileIndex persists file metadata rows.
type FileIndex interface {
	Upsert(record *domain.FileRecord) error
	FindByPath(branchID, path string) (*domain.FileRecord, error)
	ListByBranch(branchID string) ([]domain.FileRecord, error)
	CountByBranch(projectID string) (map[string]int, error)
}

// PermissionStore persists per-branch permission rows. Get returns
// (nil, nil) when no row exists.
type PermissionStore interface {
	Get(branchID, userID string) (*domain.BranchPermission, error)
	Upsert(perm *domain.BranchPermission) error
}

// BranchLocker serializes mutations on one branch. The engine itself does
// not lock: concurrent writers to the same branch race on one working tree
// (accepted lost-update hazard). Callers needing strict per-branch
// serialization inject a real implementation; the default is NoopLocker.
type BranchLocker interface {
	// Lock acquires the lock for branchID and returns the release func.
	Lock(branchID string) (release func())
}
