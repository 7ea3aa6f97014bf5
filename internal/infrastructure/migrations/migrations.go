// Package migrations applies the engine's SQLite schema.
//
// It embeds the SQL migration files and runs them through golang-migrate
// using a driver compatible with ncruces/go-sqlite3 (CGO-free). The stock
// golang-migrate sqlite3 driver imports mattn/go-sqlite3, which collides
// with the ncruces driver registration, so a small driver of our own is
// used instead (driver.go).
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var embeddedFS embed.FS

// FS returns the embedded migration files.
func FS() fs.FS {
	return embeddedFS
}

// Run applies all pending migrations to db. A fully migrated database is
// not an error (migrate.ErrNoChange is swallowed).
func Run(db *sql.DB) error {
	source, err := iofs.New(embeddedFS, ".")
	if err != nil {
		return err
	}

	driver, err := newDriver(db, defaultMigrationsTable)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
