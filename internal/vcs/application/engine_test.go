package application_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vellum/internal/infrastructure/sqlite"
	"github.com/zjrosen/vellum/internal/vcs/application"
	"github.com/zjrosen/vellum/internal/vcs/domain"
	"github.com/zjrosen/vellum/internal/vcs/gitexec"
)

var (
	alice = domain.Actor{ID: "u-alice", Name: "Alice", Email: "alice@example.com"}
	bob   = domain.Actor{ID: "u-bob", Name: "Bob", Email: "bob@example.com"}
)

func newTestEngine(t *testing.T) *application.Engine {
	t.Helper()
	git := gitexec.New("")
	if err := git.LookPath(); err != nil {
		t.Skip("git binary not available")
	}

	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return application.NewEngine(application.Deps{
		Root:     t.TempDir(),
		Git:      git,
		Repos:    db.Repositories(),
		Branches: db.Branches(),
		Files:    db.Files(),
		Perms:    db.Permissions(),
		Locker:   application.NewKeyedLocker(),
	})
}

func TestInitialize_LayoutAndCreatorAccess(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Repositories.Initialize(ctx, "0123abcdef", "Thesis", alice)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`thesis_0123abcd$`), result.RepoPath)
	assert.DirExists(t, filepath.Join(result.RepoPath, ".git"))
	assert.FileExists(t, filepath.Join(result.RepoPath, ".gitignore"))
	assert.FileExists(t, filepath.Join(result.RepoPath, "README.md"))

	// The creator holds full access on main the moment Initialize returns.
	flags, err := engine.Permissions.Get(result.MainBranchID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FullAccess(), flags)
}

// brokenPermStore fails every write, standing in for an index that dies
// mid-initialization.
type brokenPermStore struct {
	application.PermissionStore
}

func (brokenPermStore) Upsert(perm *domain.BranchPermission) error {
	return errors.New("permission store unavailable")
}

func TestInitialize_FailureLeavesNoRows(t *testing.T) {
	git := gitexec.New("")
	if err := git.LookPath(); err != nil {
		t.Skip("git binary not available")
	}
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	root := t.TempDir()

	deps := application.Deps{
		Root:     root,
		Git:      git,
		Repos:    db.Repositories(),
		Branches: db.Branches(),
		Files:    db.Files(),
		Perms:    brokenPermStore{db.Permissions()},
		Locker:   application.NewKeyedLocker(),
	}
	broken := application.NewEngine(deps)
	ctx := context.Background()

	_, err = broken.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.Error(t, err)

	// All-or-nothing: no repository row, no orphaned "main" branch row,
	// no directory.
	_, err = db.Repositories().FindByProject("p-1")
	var rnf *domain.RepositoryNotFoundError
	require.ErrorAs(t, err, &rnf)
	_, err = db.Branches().FindByName("p-1", "main")
	var bnf *domain.BranchNotFoundError
	require.ErrorAs(t, err, &bnf)
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A retry against a healthy store starts clean: exactly one "main" row.
	deps.Perms = db.Permissions()
	healthy := application.NewEngine(deps)
	result, err := healthy.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)

	branch, err := db.Branches().FindByName("p-1", "main")
	require.NoError(t, err)
	assert.Equal(t, result.MainBranchID, branch.ID)
	listings, total, err := healthy.Branches.ListBranches(ctx, "p-1", alice.ID, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, listings, 1)
}

func TestInitialize_Idempotent(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)
	second, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// No duplicate "main" branch row.
	listings, total, err := engine.Branches.ListBranches(ctx, "p-1", alice.ID, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, listings, 1)
	assert.Equal(t, "main", listings[0].Name)
}

func TestWriteFile_RoundTrip(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)
	main := result.MainBranchID

	h1, err := engine.Files.WriteFile(ctx, main, "intro.tex", []byte("Hello"), "", alice)
	require.NoError(t, err)
	require.Len(t, h1, 40)

	content, err := engine.Files.ReadFile(ctx, main, "intro.tex", alice)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(content))

	h2, err := engine.Files.WriteFile(ctx, main, "intro.tex", []byte("Hello world"), "expand greeting", alice)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	content, err = engine.Files.ReadFile(ctx, main, "intro.tex", alice)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", string(content))

	// FileRecord size tracks the written byte length.
	listings, err := engine.Files.ListFiles(ctx, main, alice)
	require.NoError(t, err)
	var found bool
	for _, entry := range listings {
		if entry.Path == "intro.tex" {
			found = true
			assert.EqualValues(t, len("Hello world"), entry.Size)
			assert.Equal(t, alice.ID, entry.LastModifiedBy)
		}
	}
	assert.True(t, found, "intro.tex should be listed")
}

func TestWriteFile_EmptyContentGetsPlaceholder(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)

	_, err = engine.Files.WriteFile(ctx, result.MainBranchID, "empty.tex", nil, "", alice)
	require.NoError(t, err)

	content, err := engine.Files.ReadFile(ctx, result.MainBranchID, "empty.tex", alice)
	require.NoError(t, err)
	assert.NotEmpty(t, content, "empty writes must never produce a zero-byte file")
}

func TestWriteFile_HeadCacheMatchesGit(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	git := gitexec.New("")

	result, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)

	hash, err := engine.Files.WriteFile(ctx, result.MainBranchID, "intro.tex", []byte("Hello"), "", alice)
	require.NoError(t, err)

	actual, err := git.RefCommit(ctx, result.RepoPath, "main")
	require.NoError(t, err)
	assert.Equal(t, hash, actual, "returned hash must equal the ref's actual HEAD")

	listings, _, err := engine.Branches.ListBranches(ctx, "p-1", alice.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, hash, listings[0].HeadCommit, "cached head must equal the actual HEAD")
}

func TestWriteFile_DirectoryCollisionIsConflict(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)
	main := result.MainBranchID

	_, err = engine.Files.WriteFile(ctx, main, "docs/intro.tex", []byte("x"), "", alice)
	require.NoError(t, err)

	// "docs" exists as a directory now; writing a file named "docs" must
	// be a path conflict, not a generic I/O error.
	_, err = engine.Files.WriteFile(ctx, main, "docs", []byte("y"), "", alice)
	var conflict *domain.PathConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)

	// And the reverse: a parent component that is a regular file.
	_, err = engine.Files.WriteFile(ctx, main, "intro.tex", []byte("z"), "", alice)
	require.NoError(t, err)
	_, err = engine.Files.WriteFile(ctx, main, "intro.tex/sub.tex", []byte("w"), "", alice)
	require.True(t, errors.As(err, &conflict), "got %v", err)
}

func TestCreateBranch_IsolationFromMain(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	git := gitexec.New("")

	result, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)
	_, err = engine.Files.WriteFile(ctx, result.MainBranchID, "intro.tex", []byte("Hello"), "", alice)
	require.NoError(t, err)

	mainHead, err := git.RefCommit(ctx, result.RepoPath, "main")
	require.NoError(t, err)

	draft, err := engine.Branches.CreateBranch(ctx, "p-1", "draft", "", alice)
	require.NoError(t, err)
	assert.Equal(t, mainHead, draft.HeadCommit, "new branch starts at source HEAD")

	_, err = engine.Files.WriteFile(ctx, draft.ID, "intro.tex", []byte("Draft edit"), "", alice)
	require.NoError(t, err)

	// Writes on draft never move main.
	got, err := git.RefCommit(ctx, result.RepoPath, "main")
	require.NoError(t, err)
	assert.Equal(t, mainHead, got)
}

func TestCreateBranch_DuplicateNameIsConflict(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)

	_, err = engine.Branches.CreateBranch(ctx, "p-1", "draft", "", alice)
	require.NoError(t, err)

	_, err = engine.Branches.CreateBranch(ctx, "p-1", "draft", "", alice)
	var exists *domain.BranchExistsError
	require.True(t, errors.As(err, &exists))
}

func TestCreateBranch_GrantsCreatorFullAccess(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)

	// Bob gets write on main, then creates his own branch.
	require.NoError(t, engine.Permissions.Grant(result.MainBranchID, bob.ID,
		domain.PermissionFlags{CanRead: true, CanWrite: true}, alice.ID))

	branch, err := engine.Branches.CreateBranch(ctx, "p-1", "bobs-draft", "", bob)
	require.NoError(t, err)

	flags, err := engine.Permissions.Get(branch.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FullAccess(), flags)
}

func TestPermissions_DeniedWithoutGrant(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)
	main := result.MainBranchID

	var denied *domain.PermissionDeniedError

	_, err = engine.Files.WriteFile(ctx, main, "intro.tex", []byte("x"), "", bob)
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "write", denied.Need)

	_, err = engine.Files.ReadFile(ctx, main, "intro.tex", bob)
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "read", denied.Need)

	_, err = engine.Branches.CreateBranch(ctx, "p-1", "draft", "", bob)
	require.True(t, errors.As(err, &denied))
}

func TestListFiles_IncludesTrackedButUnindexed(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)
	main := result.MainBranchID

	_, err = engine.Files.WriteFile(ctx, main, "intro.tex", []byte("Hello"), "", alice)
	require.NoError(t, err)

	listings, err := engine.Files.ListFiles(ctx, main, alice)
	require.NoError(t, err)

	byPath := make(map[string]domain.FileListing)
	for _, entry := range listings {
		byPath[entry.Path] = entry
	}

	// README.md is tracked by git but was committed during initialization,
	// so it has no index row. It must still be listed, ownership empty.
	readme, ok := byPath["README.md"]
	require.True(t, ok, "tracked-but-unindexed file must not be omitted")
	assert.False(t, readme.Indexed)
	assert.Empty(t, readme.CreatedBy)

	intro, ok := byPath["intro.tex"]
	require.True(t, ok)
	assert.True(t, intro.Indexed)
	assert.Equal(t, alice.ID, intro.CreatedBy)
}

func TestWriteFile_SelfHealsMissingWorkingTree(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)
	main := result.MainBranchID

	// Simulate the inconsistent state: index says initialized, directory gone.
	require.NoError(t, os.RemoveAll(result.RepoPath))

	hash, err := engine.Files.WriteFile(ctx, main, "intro.tex", []byte("recovered"), "", alice)
	require.NoError(t, err, "write should self-heal the missing working tree")
	require.Len(t, hash, 40)

	content, err := engine.Files.ReadFile(ctx, main, "intro.tex", alice)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(content))
}

func TestDiffFile_AgainstPreviousRevision(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)
	main := result.MainBranchID

	h1, err := engine.Files.WriteFile(ctx, main, "intro.tex", []byte("Hello"), "", alice)
	require.NoError(t, err)
	_, err = engine.Files.WriteFile(ctx, main, "intro.tex", []byte("Hello world"), "", alice)
	require.NoError(t, err)

	patch, err := engine.Files.DiffFile(ctx, main, "intro.tex", h1, alice)
	require.NoError(t, err)
	assert.NotEmpty(t, patch)

	// Diffing against the current HEAD is empty: working tree == HEAD.
	patch, err = engine.Files.DiffFile(ctx, main, "intro.tex", "", alice)
	require.NoError(t, err)
	assert.Empty(t, patch)
}

func TestReadFile_MissingIsNotFound(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Repositories.Initialize(ctx, "p-1", "Thesis", alice)
	require.NoError(t, err)

	_, err = engine.Files.ReadFile(ctx, result.MainBranchID, "nope.tex", alice)
	var notFound *domain.FileNotFoundError
	require.True(t, errors.As(err, &notFound))
}
