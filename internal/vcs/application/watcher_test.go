package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoWatcher(t *testing.T) {
	repoPath := t.TempDir()
	refsDir := filepath.Join(repoPath, ".git", "refs", "heads")
	require.NoError(t, os.MkdirAll(refsDir, 0o750))

	changes := make(chan string, 8)
	w, err := NewRepoWatcher(func(p string) { changes <- p })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Watch(repoPath))
	require.NoError(t, w.Watch(repoPath), "second watch of same repo is a no-op")

	require.NoError(t, os.WriteFile(filepath.Join(refsDir, "main"), []byte("abc123\n"), 0o640))

	select {
	case got := <-changes:
		assert.Equal(t, repoPath, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event delivered")
	}
}

func TestRepoWatcherMissingRefs(t *testing.T) {
	w, err := NewRepoWatcher(nil)
	require.NoError(t, err)
	defer w.Close()

	err = w.Watch(filepath.Join(t.TempDir(), "not-a-repo"))
	require.Error(t, err)
}

func TestRepoPathFromRef(t *testing.T) {
	repo := filepath.Join(string(filepath.Separator)+"data", "thesis_abcd1234")
	ref := filepath.Join(repo, ".git", "refs", "heads", "main")
	assert.Equal(t, repo, repoPathFromRef(ref))
	assert.Equal(t, "", repoPathFromRef(filepath.Join(string(filepath.Separator)+"tmp", "unrelated")))
}
