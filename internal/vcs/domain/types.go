// Package domain provides the entities of the version-control engine.
//
// Rows in the SQLite index mirror Git state on disk: bytes live in Git
// objects, ownership and audit metadata live here. The engine is the sole
// mutator of either, and always mutates git before the index.
package domain

import "time"

// Actor identifies the user performing an operation. Name and Email are
// used as the commit author identity for that operation only.
type Actor struct {
	ID    string
	Name  string
	Email string
}

// BranchStatus is the lifecycle state of a branch row.
type BranchStatus string

const (
	BranchActive   BranchStatus = "active"
	BranchMerged   BranchStatus = "merged"
	BranchArchived BranchStatus = "archived"
	BranchDeleted  BranchStatus = "deleted"
)

// Repository is the index row for a project's Git working directory.
// One repository per project; created once, never auto-deleted.
type Repository struct {
	ID              string
	ProjectID       string
	Name            string
	Path            string
	DefaultBranchID string
	Initialized     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Branch mirrors a Git ref as a queryable row. HeadCommit caches the
// actual HEAD of the ref; after any successful write the two are equal.
type Branch struct {
	ID          string
	ProjectID   string
	Name        string
	HeadCommit  string
	IsDefault   bool
	IsProtected bool
	Status      BranchStatus
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FileRecord is metadata for a file tracked on a branch. The bytes live in
// Git; Size equals the blob length at HEAD absent an in-flight write.
type FileRecord struct {
	ID             string
	ProjectID      string
	BranchID       string
	Path           string
	Name           string
	FileType       string
	Size           int64
	Encoding       string
	CreatedBy      string
	LastModifiedBy string
	DeletedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PermissionFlags are the per-branch access flags for one user.
type PermissionFlags struct {
	CanRead  bool
	CanWrite bool
	CanAdmin bool
}

// FullAccess returns flags granting read, write and admin.
func FullAccess() PermissionFlags {
	return PermissionFlags{CanRead: true, CanWrite: true, CanAdmin: true}
}

// None reports whether no flag is set. An absent permission row behaves
// identically to None: there is no implicit public access.
func (f PermissionFlags) None() bool {
	return !f.CanRead && !f.CanWrite && !f.CanAdmin
}

// BranchPermission is the (branch, user) permission row.
type BranchPermission struct {
	BranchID  string
	UserID    string
	Flags     PermissionFlags
	GrantedBy string
	UpdatedAt time.Time
}

// InitResult is returned by repository initialization.
type InitResult struct {
	RepoPath     string
	MainBranchID string
}

// BranchListing is a branch row merged with its file count and the
// caller's effective permission flags.
type BranchListing struct {
	Branch
	FileCount   int
	Permissions PermissionFlags
}

// FileListing is one entry of a branch file listing: the union of what Git
// tracks and what the index records. Tracked files missing from the index
// are listed with zero ownership fields.
type FileListing struct {
	Path           string
	Name           string
	Size           int64
	CreatedBy      string
	LastModifiedBy string
	Indexed        bool
}
