package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/vellum/internal/log"
	"github.com/zjrosen/vellum/internal/vcs/domain"
)

// BranchManager creates and lists branches: real Git refs mirrored as
// indexed rows with cached head hashes.
type BranchManager struct {
	git      GitExecutor
	repos    RepositoryIndex
	branches BranchIndex
	files    FileIndex
	perms    *PermissionIndex
}

// NewBranchManager creates a BranchManager.
func NewBranchManager(git GitExecutor, repos RepositoryIndex, branches BranchIndex, files FileIndex, perms *PermissionIndex) *BranchManager {
	return &BranchManager{git: git, repos: repos, branches: branches, files: files, perms: perms}
}

// CreateBranch creates a new branch off sourceBranch (default "main").
// The actor needs write-or-higher on the source branch. A name already
// used by a non-deleted branch yields BranchExistsError before any git
// mutation is attempted. The creator immediately holds full access on the
// new branch.
func (m *BranchManager) CreateBranch(ctx context.Context, projectID, name, sourceBranch string, actor domain.Actor) (*domain.Branch, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if sourceBranch == "" {
		sourceBranch = DefaultBranchName
	}

	source, err := m.branches.FindByName(projectID, sourceBranch)
	if err != nil {
		return nil, err
	}
	if err := m.perms.RequireWrite(source.ID, actor.ID); err != nil {
		return nil, err
	}

	// Duplicate check before touching git at all.
	if _, err := m.branches.FindByName(projectID, name); err == nil {
		return nil, &domain.BranchExistsError{ProjectID: projectID, Name: name}
	} else {
		var notFound *domain.BranchNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	repo, err := m.repos.FindByProject(projectID)
	if err != nil {
		return nil, err
	}

	if err := m.git.Checkout(ctx, repo.Path, source.Name); err != nil {
		return nil, err
	}
	if err := m.git.CreateBranch(ctx, repo.Path, name); err != nil {
		return nil, err
	}
	head, err := m.git.HeadCommit(ctx, repo.Path)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	branch := &domain.Branch{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Name:       name,
		HeadCommit: head,
		Status:     domain.BranchActive,
		CreatedBy:  actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.branches.Save(branch); err != nil {
		return nil, err
	}
	if err := m.perms.Grant(branch.ID, actor.ID, domain.FullAccess(), actor.ID); err != nil {
		return nil, err
	}

	log.Info(log.CatRepo, "branch created",
		"project", projectID, "branch", name, "source", sourceBranch, "head", head)
	return branch, nil
}

// ListBranches returns one page of the project's non-deleted branches,
// merged with per-branch file counts and the caller's effective
// permission flags. page is 1-based; perPage falls back to 20.
func (m *BranchManager) ListBranches(ctx context.Context, projectID, userID string, page, perPage int) ([]domain.BranchListing, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	branches, total, err := m.branches.ListByProject(projectID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, err
	}
	counts, err := m.files.CountByBranch(projectID)
	if err != nil {
		return nil, 0, err
	}

	listings := make([]domain.BranchListing, 0, len(branches))
	for _, b := range branches {
		flags, err := m.perms.Get(b.ID, userID)
		if err != nil {
			return nil, 0, err
		}
		listings = append(listings, domain.BranchListing{
			Branch:      b,
			FileCount:   counts[b.ID],
			Permissions: flags,
		})
	}
	return listings, total, nil
}
