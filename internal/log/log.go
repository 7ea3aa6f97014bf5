// Package log provides category-tagged structured logging for Vellum.
//
// It is a thin façade over log/slog: every call carries a Category so log
// output can be filtered per subsystem (git plumbing, index, compiler, ...).
// By default output goes to stderr; Init can additionally direct logs to a
// file under the data directory.
//
// Usage:
//
//	log.Debug(log.CatGit, "staging file", "path", relPath, "attempt", n)
//	log.ErrorErr(log.CatDB, "failed to update head cache", err, "branch", id)
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category identifies the subsystem emitting a log record.
type Category string

// Log categories, one per engine subsystem.
const (
	CatDB      Category = "db"
	CatGit     Category = "git"
	CatRepo    Category = "repo"
	CatCompile Category = "compile"
	CatConfig  Category = "config"
)

// Config controls logger initialization.
type Config struct {
	// Level is the minimum level to emit. Defaults to slog.LevelInfo.
	Level slog.Level

	// LogDir, when set, enables file logging alongside stderr. The file is
	// named vellum_YYYY-MM-DD.log inside LogDir.
	LogDir string
}

var (
	mu      sync.RWMutex
	logger  = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logFile *os.File
)

// Init configures the package logger. Safe to call more than once; the
// previous log file, if any, is closed.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var w io.Writer = os.Stderr
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o700); err != nil {
			return fmt.Errorf("failed to create log directory %s: %w", cfg.LogDir, err)
		}
		name := fmt.Sprintf("vellum_%s.log", time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(cfg.LogDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		w = io.MultiWriter(os.Stderr, f)
	}

	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level}))
	return nil
}

// Close flushes and closes the log file, if one was opened.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// SetOutput redirects all log output to w. Intended for tests.
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs at debug level with the given category.
func Debug(cat Category, msg string, args ...any) {
	current().Debug(msg, append([]any{"cat", string(cat)}, args...)...)
}

// Info logs at info level with the given category.
func Info(cat Category, msg string, args ...any) {
	current().Info(msg, append([]any{"cat", string(cat)}, args...)...)
}

// Warn logs at warn level with the given category.
func Warn(cat Category, msg string, args ...any) {
	current().Warn(msg, append([]any{"cat", string(cat)}, args...)...)
}

// Error logs at error level with the given category.
func Error(cat Category, msg string, args ...any) {
	current().Error(msg, append([]any{"cat", string(cat)}, args...)...)
}

// ErrorErr logs an error value at error level with the given category.
func ErrorErr(cat Category, msg string, err error, args ...any) {
	current().Error(msg, append([]any{"cat", string(cat), "error", err}, args...)...)
}
