package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/vellum/internal/log"
	"github.com/zjrosen/vellum/internal/paths"
	"github.com/zjrosen/vellum/internal/vcs/domain"
)

// emptyFilePlaceholder replaces empty content so a write never produces a
// zero-byte file that reads ambiguously as "missing or empty".
const emptyFilePlaceholder = "% placeholder\n"

// stagingAttempts is the fixed escalation budget for staging one path.
const stagingAttempts = 3

// defaultCommitMessage is used when the caller passes no message.
const defaultCommitMessage = "Update file"

// FileStore reads and writes file content through Git commits, keeping
// the file index in step. Bytes live only in Git objects; the index rows
// carry ownership and audit metadata.
type FileStore struct {
	git      GitExecutor
	repos    RepositoryIndex
	branches BranchIndex
	files    FileIndex
	perms    *PermissionIndex
	repoMgr  *RepositoryManager
	locker   BranchLocker
}

// NewFileStore creates a FileStore. locker may be nil, which leaves
// per-branch serialization entirely to the caller (NoopLocker).
func NewFileStore(git GitExecutor, repos RepositoryIndex, branches BranchIndex, files FileIndex, perms *PermissionIndex, repoMgr *RepositoryManager, locker BranchLocker) *FileStore {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &FileStore{git: git, repos: repos, branches: branches, files: files, perms: perms, repoMgr: repoMgr, locker: locker}
}

// checkoutBranch resolves branch and repository rows, self-heals a
// missing working tree, and checks out the branch ref.
func (s *FileStore) checkoutBranch(ctx context.Context, branchID string, actor domain.Actor) (*domain.Branch, *domain.Repository, error) {
	branch, err := s.branches.FindByID(branchID)
	if err != nil {
		return nil, nil, err
	}
	repo, err := s.repos.FindByProject(branch.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	repo, err = s.repoMgr.EnsureWorkingTree(ctx, repo, actor)
	if err != nil {
		return nil, nil, err
	}
	if err := s.git.Checkout(ctx, repo.Path, branch.Name); err != nil {
		return nil, nil, err
	}
	return branch, repo, nil
}

// WriteFile writes content to path on the branch as a new commit authored
// by the actor, and returns the commit hash. Empty content is replaced by
// a placeholder. The git mutation completes before the index update; if
// the index update then fails, the hash is still returned and git remains
// authoritative (the next read reconciles).
func (s *FileStore) WriteFile(ctx context.Context, branchID, path string, content []byte, message string, actor domain.Actor) (string, error) {
	if err := s.perms.RequireWrite(branchID, actor.ID); err != nil {
		return "", err
	}

	relPath := paths.NormalizeRepoRelative(path)
	if relPath == "" {
		return "", &domain.ValidationError{Field: "path", Reason: "must be a non-empty path inside the repository"}
	}

	release := s.locker.Lock(branchID)
	defer release()

	branch, repo, err := s.checkoutBranch(ctx, branchID, actor)
	if err != nil {
		return "", err
	}

	absPath := filepath.Join(repo.Path, filepath.FromSlash(relPath))
	if err := checkPathCollision(repo.Path, branchID, relPath, absPath); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o750); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %w", err)
	}

	if len(content) == 0 {
		content = []byte(emptyFilePlaceholder)
	}
	if err := os.WriteFile(absPath, content, 0o640); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if err := s.stageWithEscalation(ctx, repo.Path, relPath, absPath, branchID); err != nil {
		return "", err
	}

	if message == "" {
		message = defaultCommitMessage
	}
	hash, err := s.git.Commit(ctx, repo.Path, message, actor)
	if err != nil {
		return "", err
	}

	// Index update after the commit. Failure here is logged, not
	// surfaced: git already has the truth.
	if err := s.branches.UpdateHead(branchID, hash); err != nil {
		log.ErrorErr(log.CatDB, "commit succeeded but head cache update failed", err,
			"branch", branchID, "commit", hash)
		return hash, nil
	}
	if err := s.upsertRecord(branch, relPath, int64(len(content)), actor); err != nil {
		log.ErrorErr(log.CatDB, "commit succeeded but file record update failed", err,
			"branch", branchID, "path", relPath, "commit", hash)
	}

	log.Debug(log.CatGit, "file written", "branch", branch.Name, "path", relPath, "commit", hash)
	return hash, nil
}

// stageWithEscalation stages relPath, verifying against the git index
// after each attempt. Under concurrent activity on the same tree an add
// is not guaranteed to land synchronously, so the strategies escalate:
// relative add, absolute-path add, forced add. Intermediate failures are
// silent; only exhaustion surfaces, as StagingConflictError.
func (s *FileStore) stageWithEscalation(ctx context.Context, repoPath, relPath, absPath, branchID string) error {
	strategies := []struct {
		pathspec string
		force    bool
	}{
		{relPath, false},
		{absPath, false},
		{relPath, true},
	}

	for attempt := 0; attempt < stagingAttempts; attempt++ {
		st := strategies[attempt]
		if err := s.git.Add(ctx, repoPath, st.pathspec, st.force); err != nil {
			log.Debug(log.CatGit, "staging attempt failed",
				"attempt", attempt+1, "pathspec", st.pathspec, "force", st.force, "error", err)
			continue
		}
		staged, err := s.git.StagedPaths(ctx, repoPath, relPath)
		if err != nil {
			log.Debug(log.CatGit, "staging verification failed", "attempt", attempt+1, "error", err)
			continue
		}
		for _, p := range staged {
			if p == relPath {
				return nil
			}
		}
		log.Debug(log.CatGit, "path not staged after add", "attempt", attempt+1, "path", relPath)
	}
	return &domain.StagingConflictError{BranchID: branchID, Path: relPath, Attempts: stagingAttempts}
}

// checkPathCollision rejects writes whose path collides with an existing
// directory entry: the target itself being a directory, or a parent
// component existing as a regular file. Both are PathConflictError,
// distinct from generic I/O failures.
func checkPathCollision(repoPath, branchID, relPath, absPath string) error {
	if info, err := os.Stat(absPath); err == nil && info.IsDir() {
		return &domain.PathConflictError{BranchID: branchID, Path: relPath}
	}

	parts := strings.Split(relPath, "/")
	probe := repoPath
	for _, part := range parts[:len(parts)-1] {
		probe = filepath.Join(probe, part)
		if info, err := os.Stat(probe); err == nil && !info.IsDir() {
			return &domain.PathConflictError{BranchID: branchID, Path: relPath}
		}
	}
	return nil
}

func (s *FileStore) upsertRecord(branch *domain.Branch, relPath string, size int64, actor domain.Actor) error {
	now := time.Now()
	return s.files.Upsert(&domain.FileRecord{
		ID:             uuid.NewString(),
		ProjectID:      branch.ProjectID,
		BranchID:       branch.ID,
		Path:           relPath,
		Name:           filepath.Base(relPath),
		FileType:       strings.TrimPrefix(filepath.Ext(relPath), "."),
		Size:           size,
		Encoding:       "utf-8",
		CreatedBy:      actor.ID,
		LastModifiedBy: actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// ReadFile returns the literal working-tree blob at path on the branch,
// not an arbitrary historical revision.
func (s *FileStore) ReadFile(ctx context.Context, branchID, path string, actor domain.Actor) ([]byte, error) {
	if err := s.perms.RequireRead(branchID, actor.ID); err != nil {
		return nil, err
	}
	relPath := paths.NormalizeRepoRelative(path)
	if relPath == "" {
		return nil, &domain.ValidationError{Field: "path", Reason: "must be a non-empty path inside the repository"}
	}

	_, repo, err := s.checkoutBranch(ctx, branchID, actor)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filepath.Join(repo.Path, filepath.FromSlash(relPath)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &domain.FileNotFoundError{BranchID: branchID, Path: relPath}
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// ListFiles lists the branch's files as the union of what Git tracks
// (existence ground truth) and what the index records (ownership ground
// truth). Files tracked by Git but missing from the index are listed with
// empty ownership fields, never omitted.
func (s *FileStore) ListFiles(ctx context.Context, branchID string, actor domain.Actor) ([]domain.FileListing, error) {
	if err := s.perms.RequireRead(branchID, actor.ID); err != nil {
		return nil, err
	}

	_, repo, err := s.checkoutBranch(ctx, branchID, actor)
	if err != nil {
		return nil, err
	}

	tracked, err := s.git.LsFiles(ctx, repo.Path)
	if err != nil {
		return nil, err
	}
	records, err := s.files.ListByBranch(branchID)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]domain.FileRecord, len(records))
	for _, rec := range records {
		byPath[rec.Path] = rec
	}

	listings := make([]domain.FileListing, 0, len(tracked))
	seen := make(map[string]bool, len(tracked))
	for _, path := range tracked {
		seen[path] = true
		entry := domain.FileListing{Path: path, Name: filepath.Base(path)}
		if rec, ok := byPath[path]; ok {
			entry.Size = rec.Size
			entry.CreatedBy = rec.CreatedBy
			entry.LastModifiedBy = rec.LastModifiedBy
			entry.Indexed = true
		} else if info, statErr := os.Stat(filepath.Join(repo.Path, filepath.FromSlash(path))); statErr == nil {
			entry.Size = info.Size()
		}
		listings = append(listings, entry)
	}
	// Index rows for paths git no longer tracks still surface; the
	// caller sees the discrepancy instead of a silent repair.
	for _, rec := range records {
		if !seen[rec.Path] {
			listings = append(listings, domain.FileListing{
				Path:           rec.Path,
				Name:           rec.Name,
				Size:           rec.Size,
				CreatedBy:      rec.CreatedBy,
				LastModifiedBy: rec.LastModifiedBy,
				Indexed:        true,
			})
		}
	}
	return listings, nil
}

// DiffFile returns a unified diff of the working-tree blob at path
// against the blob at rev (default HEAD). An empty diff means the
// contents are identical.
func (s *FileStore) DiffFile(ctx context.Context, branchID, path, rev string, actor domain.Actor) (string, error) {
	if err := s.perms.RequireRead(branchID, actor.ID); err != nil {
		return "", err
	}
	relPath := paths.NormalizeRepoRelative(path)
	if relPath == "" {
		return "", &domain.ValidationError{Field: "path", Reason: "must be a non-empty path inside the repository"}
	}
	if rev == "" {
		rev = "HEAD"
	}

	_, repo, err := s.checkoutBranch(ctx, branchID, actor)
	if err != nil {
		return "", err
	}

	current, err := os.ReadFile(filepath.Join(repo.Path, filepath.FromSlash(relPath)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &domain.FileNotFoundError{BranchID: branchID, Path: relPath}
		}
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	base, err := s.git.Show(ctx, repo.Path, rev, relPath)
	if err != nil {
		// A path absent at rev diffs against nothing.
		base = ""
	}

	dmp := diffmatchpatch.New()
	patches := dmp.PatchMake(base, string(current))
	return dmp.PatchToText(patches), nil
}
