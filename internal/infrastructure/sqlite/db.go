// Package sqlite provides the SQLite index for the version-control engine.
// It handles connection lifecycle, migrations, and store implementations.
//
// The index is a queryable mirror of Git state, never the source of truth
// for file bytes. On every dual-write the git mutation happens first, so a
// crash between the two leaves the index stale, never ahead.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zjrosen/vellum/internal/infrastructure/migrations"
	"github.com/zjrosen/vellum/internal/log"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB manages the SQLite connection for the engine index.
type DB struct {
	conn *sql.DB
	path string
}

// NewDB opens a database connection, configures pragmas, and runs
// migrations. Creates the parent directory if it doesn't exist.
func NewDB(path string) (*DB, error) {
	log.Debug(log.CatDB, "Opening database", "path", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.ErrorErr(log.CatDB, "Failed to create database directory", err, "path", dir)
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to open database", err, "path", path)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		log.ErrorErr(log.CatDB, "Failed to ping database", err, "path", path)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL for concurrent readers alongside the single writer.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			log.ErrorErr(log.CatDB, "Failed to configure database", err, "pragma", pragma)
			return nil, fmt.Errorf("failed to exec %q: %w", pragma, err)
		}
	}

	if err := migrations.Run(conn); err != nil {
		_ = conn.Close()
		log.ErrorErr(log.CatDB, "Failed to run migrations", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info(log.CatDB, "Database initialized", "path", path)
	return &DB{conn: conn, path: path}, nil
}

// Close releases database resources.
func (db *DB) Close() error {
	if db.conn != nil {
		log.Debug(log.CatDB, "Closing database", "path", db.path)
		return db.conn.Close()
	}
	return nil
}

// Repositories returns the repository store backed by this connection.
func (db *DB) Repositories() *RepositoryStore {
	return &RepositoryStore{db: db.conn}
}

// Branches returns the branch store backed by this connection.
func (db *DB) Branches() *BranchStore {
	return &BranchStore{db: db.conn}
}

// Files returns the file record store backed by this connection.
func (db *DB) Files() *FileRecordStore {
	return &FileRecordStore{db: db.conn}
}

// Permissions returns the permission store backed by this connection.
func (db *DB) Permissions() *PermissionStore {
	return &PermissionStore{db: db.conn}
}

// Connection returns the underlying *sql.DB for testing purposes.
func (db *DB) Connection() *sql.DB {
	return db.conn
}
