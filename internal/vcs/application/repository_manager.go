package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/vellum/internal/log"
	"github.com/zjrosen/vellum/internal/paths"
	"github.com/zjrosen/vellum/internal/vcs/domain"
)

// DefaultBranchName is forced for every new repository regardless of the
// host git's init.defaultBranch setting.
const DefaultBranchName = "main"

const initialGitignore = `*.aux
*.bbl
*.blg
*.fdb_latexmk
*.fls
*.log
*.out
*.synctex.gz
*.toc
compilations/
`

// RepositoryManager owns one Git working directory per project and the
// repository rows mirroring them.
type RepositoryManager struct {
	root     string
	git      GitExecutor
	repos    RepositoryIndex
	branches BranchIndex
	perms    *PermissionIndex
}

// NewRepositoryManager creates a RepositoryManager storing repositories
// under root.
func NewRepositoryManager(root string, git GitExecutor, repos RepositoryIndex, branches BranchIndex, perms *PermissionIndex) *RepositoryManager {
	return &RepositoryManager{root: root, git: git, repos: repos, branches: branches, perms: perms}
}

// Initialize sets up the project's repository: directory, git init, seed
// files, initial commit, "main" branch row, and full permission for the
// actor. Idempotent: an existing initialized repository short-circuits to
// its stored values. If the row claims initialization but the directory is
// gone, setup runs again against the existing rows (self-healing).
//
// Setup is all-or-nothing: any failure removes the partially created
// directory and, for a first-time call, deletes the freshly inserted rows.
func (m *RepositoryManager) Initialize(ctx context.Context, projectID, projectName string, actor domain.Actor) (domain.InitResult, error) {
	repo, err := m.repos.FindByProject(projectID)
	if err != nil {
		var notFound *domain.RepositoryNotFoundError
		if !errors.As(err, &notFound) {
			return domain.InitResult{}, err
		}
		repo = nil
	}

	if repo != nil {
		if dirExists(repo.Path) {
			return domain.InitResult{RepoPath: repo.Path, MainBranchID: repo.DefaultBranchID}, nil
		}
		log.Warn(log.CatRepo, "repository row exists but directory is missing, re-initializing",
			"project", projectID, "path", repo.Path)
		return m.setUp(ctx, repo, actor, false)
	}

	now := time.Now()
	repo = &domain.Repository{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      projectName,
		Path:      paths.RepoPath(m.root, projectName, projectID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return m.setUp(ctx, repo, actor, true)
}

// setUp performs the filesystem and git side of initialization, then the
// index side, honoring the git-before-index ordering. firstTime controls
// whether rows are rolled back on failure.
func (m *RepositoryManager) setUp(ctx context.Context, repo *domain.Repository, actor domain.Actor, firstTime bool) (result domain.InitResult, err error) {
	defer func() {
		if err != nil {
			m.undo(repo, firstTime)
		}
	}()

	if err = os.MkdirAll(repo.Path, 0o750); err != nil {
		return domain.InitResult{}, fmt.Errorf("failed to create repository directory: %w", err)
	}
	if err = m.git.Init(ctx, repo.Path, DefaultBranchName); err != nil {
		return domain.InitResult{}, err
	}
	if err = os.WriteFile(filepath.Join(repo.Path, ".gitignore"), []byte(initialGitignore), 0o640); err != nil {
		return domain.InitResult{}, fmt.Errorf("failed to write .gitignore: %w", err)
	}
	readme := fmt.Sprintf("# %s\n", repo.Name)
	if err = os.WriteFile(filepath.Join(repo.Path, "README.md"), []byte(readme), 0o640); err != nil {
		return domain.InitResult{}, fmt.Errorf("failed to write README: %w", err)
	}
	if err = m.git.Add(ctx, repo.Path, ".", false); err != nil {
		return domain.InitResult{}, err
	}

	var head string
	head, err = m.git.Commit(ctx, repo.Path, "Initialize repository", actor)
	if err != nil {
		return domain.InitResult{}, err
	}

	// Git is settled; now the index. Reuse the existing main branch row
	// when re-initializing so branch ids stay stable across self-heals.
	now := time.Now()
	mainID := repo.DefaultBranchID
	if mainID == "" {
		mainID = uuid.NewString()
	}
	branch := &domain.Branch{
		ID:         mainID,
		ProjectID:  repo.ProjectID,
		Name:       DefaultBranchName,
		HeadCommit: head,
		IsDefault:  true,
		Status:     domain.BranchActive,
		CreatedBy:  actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err = m.branches.Save(branch); err != nil {
		return domain.InitResult{}, err
	}

	repo.DefaultBranchID = mainID
	repo.Initialized = true
	repo.UpdatedAt = now
	if err = m.repos.Save(repo); err != nil {
		return domain.InitResult{}, err
	}

	// No window without access: the creator holds full permission the
	// moment initialization returns.
	if err = m.perms.Grant(mainID, actor.ID, domain.FullAccess(), actor.ID); err != nil {
		return domain.InitResult{}, err
	}

	log.Info(log.CatRepo, "repository initialized",
		"project", repo.ProjectID, "path", repo.Path, "head", head)
	return domain.InitResult{RepoPath: repo.Path, MainBranchID: mainID}, nil
}

// undo removes the partially created directory, and for first-time setup
// the inserted rows, leaving no trace of a failed initialization.
// DefaultBranchID is non-empty only once the main branch row was saved,
// so it doubles as the marker for what needs rolling back.
func (m *RepositoryManager) undo(repo *domain.Repository, firstTime bool) {
	if rmErr := os.RemoveAll(repo.Path); rmErr != nil {
		log.ErrorErr(log.CatRepo, "failed to remove partial repository directory", rmErr, "path", repo.Path)
	}
	if !firstTime {
		return
	}
	if repo.DefaultBranchID != "" {
		if delErr := m.branches.Delete(repo.DefaultBranchID); delErr != nil {
			log.ErrorErr(log.CatRepo, "failed to roll back branch row", delErr, "id", repo.DefaultBranchID)
		}
	}
	if delErr := m.repos.Delete(repo.ID); delErr != nil {
		log.ErrorErr(log.CatRepo, "failed to roll back repository row", delErr, "id", repo.ID)
	}
}

// EnsureWorkingTree re-runs initialization when the index claims the
// repository is initialized but the directory has vanished. Returns the
// repository row, re-reading it if self-healing ran.
func (m *RepositoryManager) EnsureWorkingTree(ctx context.Context, repo *domain.Repository, actor domain.Actor) (*domain.Repository, error) {
	if !repo.Initialized || dirExists(repo.Path) {
		return repo, nil
	}
	log.Warn(log.CatRepo, "working tree missing, self-healing",
		"project", repo.ProjectID, "path", repo.Path)
	if _, err := m.setUp(ctx, repo, actor, false); err != nil {
		return nil, fmt.Errorf("self-healing re-initialization failed: %w", err)
	}
	return m.repos.FindByProject(repo.ProjectID)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
