package domain

import "fmt"

// RepositoryNotFoundError indicates no repository row exists for a project.
type RepositoryNotFoundError struct {
	ProjectID string
}

// Error implements the error interface.
func (e *RepositoryNotFoundError) Error() string {
	return fmt.Sprintf("repository not found: project=%q", e.ProjectID)
}

// BranchNotFoundError indicates a branch row could not be found.
type BranchNotFoundError struct {
	BranchID  string
	ProjectID string
	Name      string
}

// Error implements the error interface.
func (e *BranchNotFoundError) Error() string {
	if e.BranchID != "" {
		return fmt.Sprintf("branch not found: id=%q", e.BranchID)
	}
	return fmt.Sprintf("branch not found: project=%q name=%q", e.ProjectID, e.Name)
}

// FileNotFoundError indicates a file is absent from a branch working tree.
type FileNotFoundError struct {
	BranchID string
	Path     string
}

// Error implements the error interface.
func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: branch=%q path=%q", e.BranchID, e.Path)
}

// PermissionDeniedError indicates the actor lacks the required flag on a
// branch. Never retried, always surfaced verbatim.
type PermissionDeniedError struct {
	BranchID string
	UserID   string
	Need     string // "read", "write" or "admin"
}

// Error implements the error interface.
func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: branch=%q user=%q need=%s", e.BranchID, e.UserID, e.Need)
}

// BranchExistsError indicates a branch name is already taken among the
// project's non-deleted branches. No git mutation was attempted.
type BranchExistsError struct {
	ProjectID string
	Name      string
}

// Error implements the error interface.
func (e *BranchExistsError) Error() string {
	return fmt.Sprintf("branch already exists: project=%q name=%q", e.ProjectID, e.Name)
}

// PathConflictError indicates a write path collides with an existing
// directory entry of the same name. Distinct from generic I/O failures.
type PathConflictError struct {
	BranchID string
	Path     string
}

// Error implements the error interface.
func (e *PathConflictError) Error() string {
	return fmt.Sprintf("path conflicts with existing directory entry: branch=%q path=%q", e.BranchID, e.Path)
}

// StagingConflictError indicates staging could not be verified after the
// full escalation budget was spent.
type StagingConflictError struct {
	BranchID string
	Path     string
	Attempts int
}

// Error implements the error interface.
func (e *StagingConflictError) Error() string {
	return fmt.Sprintf("failed to stage after %d attempts: branch=%q path=%q", e.Attempts, e.BranchID, e.Path)
}

// ValidationError indicates malformed operation input (empty path, bad
// identifier, unsupported format).
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GitCommandError indicates a git subprocess exited non-zero or could not
// be started. Prior successful git commands in the same operation are not
// rolled back.
type GitCommandError struct {
	Args   []string
	Output string
	Err    error
}

// Error implements the error interface.
func (e *GitCommandError) Error() string {
	return fmt.Sprintf("git %v failed: %s: %v", e.Args, e.Output, e.Err)
}

// Unwrap returns the underlying process error.
func (e *GitCommandError) Unwrap() error {
	return e.Err
}
