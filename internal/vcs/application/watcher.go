package application

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/vellum/internal/log"
)

// RepoWatcher observes repository ref directories for mutations made by
// processes other than the engine. The engine assumes exclusive ownership
// of its repositories; when that assumption is violated the watcher fires
// the onChange callback so callers can drop caches that may now be stale.
type RepoWatcher struct {
	fs       *fsnotify.Watcher
	onChange func(repoPath string)

	mu      sync.Mutex
	watched map[string]bool
	closed  chan struct{}
}

// NewRepoWatcher starts a watcher delivering repository paths to onChange.
// Callers must Close it to release the underlying inotify resources.
func NewRepoWatcher(onChange func(repoPath string)) (*RepoWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create repository watcher: %w", err)
	}
	w := &RepoWatcher{
		fs:       fsw,
		onChange: onChange,
		watched:  make(map[string]bool),
		closed:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Watch registers a repository's branch refs for observation. Watching
// the same repository twice is a no-op.
func (w *RepoWatcher) Watch(repoPath string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[repoPath] {
		return nil
	}
	refsDir := filepath.Join(repoPath, ".git", "refs", "heads")
	if err := w.fs.Add(refsDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", refsDir, err)
	}
	w.watched[repoPath] = true
	log.Debug(log.CatRepo, "watching repository refs", "path", repoPath)
	return nil
}

// Close stops the watcher and its event loop.
func (w *RepoWatcher) Close() error {
	select {
	case <-w.closed:
		return nil
	default:
	}
	close(w.closed)
	return w.fs.Close()
}

func (w *RepoWatcher) loop() {
	for {
		select {
		case <-w.closed:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			repoPath := repoPathFromRef(event.Name)
			if repoPath == "" {
				continue
			}
			log.Warn(log.CatRepo, "refs changed outside the engine",
				"path", event.Name, "op", event.Op.String())
			if w.onChange != nil {
				w.onChange(repoPath)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatRepo, "repository watcher error", err)
		}
	}
}

// repoPathFromRef maps an event under <repo>/.git/refs/heads back to the
// repository root.
func repoPathFromRef(eventPath string) string {
	marker := filepath.Join(".git", "refs", "heads")
	idx := strings.Index(eventPath, string(filepath.Separator)+marker)
	if idx < 0 {
		return ""
	}
	return eventPath[:idx]
}
