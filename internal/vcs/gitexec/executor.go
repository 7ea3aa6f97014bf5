// Package gitexec runs git as a subprocess against project working trees.
//
// Every call shells out to the git binary; there is no libgit binding and
// no in-process object store. Calls block for the duration of the
// subprocess, so callers run them off their event loop.
package gitexec

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/zjrosen/vellum/internal/log"
	"github.com/zjrosen/vellum/internal/vcs/domain"
)

// Executor invokes the git binary. The zero value is not usable; construct
// with New.
type Executor struct {
	bin string
}

// New creates an Executor using the given git binary, or "git" resolved
// from PATH when empty.
func New(bin string) *Executor {
	if bin == "" {
		bin = "git"
	}
	return &Executor{bin: bin}
}

// run executes git with args in dir and returns combined output. Non-zero
// exit or spawn failure is wrapped as GitCommandError.
func (e *Executor) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.bin, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Debug(log.CatGit, "git command failed", "args", strings.Join(args, " "), "dir", dir, "output", strings.TrimSpace(string(output)))
		return "", &domain.GitCommandError{Args: args, Output: strings.TrimSpace(string(output)), Err: err}
	}
	return strings.TrimSpace(string(output)), nil
}

// Init initializes a repository at dir with the given default branch name.
func (e *Executor) Init(ctx context.Context, dir, defaultBranch string) error {
	_, err := e.run(ctx, dir, "init", "-b", defaultBranch)
	return err
}

// IsRepo reports whether dir contains a git repository.
func (e *Executor) IsRepo(ctx context.Context, dir string) bool {
	_, err := e.run(ctx, dir, "rev-parse", "--git-dir")
	return err == nil
}

// Checkout switches the working tree to an existing branch.
func (e *Executor) Checkout(ctx context.Context, dir, branch string) error {
	_, err := e.run(ctx, dir, "checkout", branch)
	return err
}

// CreateBranch creates a new branch off the current HEAD and switches to it.
func (e *Executor) CreateBranch(ctx context.Context, dir, name string) error {
	_, err := e.run(ctx, dir, "checkout", "-b", name)
	return err
}

// HeadCommit returns the full hash the current HEAD points to.
func (e *Executor) HeadCommit(ctx context.Context, dir string) (string, error) {
	return e.run(ctx, dir, "rev-parse", "HEAD")
}

// RefCommit returns the full hash a ref points to.
func (e *Executor) RefCommit(ctx context.Context, dir, ref string) (string, error) {
	return e.run(ctx, dir, "rev-parse", ref)
}

// Add stages pathspec. With force set, ignore rules are bypassed.
func (e *Executor) Add(ctx context.Context, dir, pathspec string, force bool) error {
	args := []string{"add"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, "--", pathspec)
	_, err := e.run(ctx, dir, args...)
	return err
}

// StagedPaths returns the repo-relative paths currently staged under
// pathspec, for verifying that an add actually reached the git index.
func (e *Executor) StagedPaths(ctx context.Context, dir, pathspec string) ([]string, error) {
	out, err := e.run(ctx, dir, "diff", "--cached", "--name-only", "--", pathspec)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// Commit records the staged changes with the actor as the commit author
// for this commit only (identity is passed with -c, never written to git
// config). Returns the new commit hash.
func (e *Executor) Commit(ctx context.Context, dir, message string, author domain.Actor) (string, error) {
	args := []string{
		"-c", "user.name=" + author.Name,
		"-c", "user.email=" + author.Email,
		"commit", "-m", message,
	}
	if _, err := e.run(ctx, dir, args...); err != nil {
		return "", err
	}
	return e.HeadCommit(ctx, dir)
}

// LsFiles returns every path git tracks in the working tree. This is the
// existence ground truth for file listings.
func (e *Executor) LsFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := e.run(ctx, dir, "ls-files")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// Show returns the blob content of path at rev.
func (e *Executor) Show(ctx context.Context, dir, rev, path string) (string, error) {
	// Combined output would mingle stderr into the blob, so run directly.
	cmd := exec.CommandContext(ctx, e.bin, "show", rev+":"+filepath.ToSlash(path))
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", &domain.GitCommandError{
			Args:   []string{"show", rev + ":" + path},
			Output: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return string(out), nil
}

func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// LookPath reports whether the configured git binary can be resolved.
// A missing binary is an infrastructure failure, not an operation error.
func (e *Executor) LookPath() error {
	_, err := exec.LookPath(e.bin)
	return err
}
