package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4/database"
)

const defaultMigrationsTable = "schema_migrations"

// sqliteDriver is a golang-migrate database.Driver over a pre-opened
// *sql.DB. It carries no driver registration of its own, so it works with
// connections opened via ncruces/go-sqlite3.
type sqliteDriver struct {
	db       *sql.DB
	table    string
	isLocked atomic.Bool
}

func newDriver(db *sql.DB, table string) (database.Driver, error) {
	if err := db.Ping(); err != nil {
		return nil, err
	}
	d := &sqliteDriver{db: db, table: table}
	if err := d.ensureVersionTable(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *sqliteDriver) ensureVersionTable() (err error) {
	if err = d.Lock(); err != nil {
		return err
	}
	defer func() {
		if e := d.Unlock(); e != nil {
			err = errors.Join(err, e)
		}
	}()

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (version uint64, dirty bool);
	CREATE UNIQUE INDEX IF NOT EXISTS version_unique ON %s (version);
	`, d.table, d.table)
	_, err = d.db.Exec(query)
	return err
}

// Open is unsupported; the driver only works with pre-opened connections.
func (d *sqliteDriver) Open(_ string) (database.Driver, error) {
	return nil, errors.New("Open not supported; construct with an existing *sql.DB")
}

// Close closes the underlying connection.
func (d *sqliteDriver) Close() error {
	return d.db.Close()
}

// Lock acquires an in-process lock for migration operations.
func (d *sqliteDriver) Lock() error {
	if !d.isLocked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

// Unlock releases the in-process lock.
func (d *sqliteDriver) Unlock() error {
	if !d.isLocked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

// Run executes one migration inside a transaction.
func (d *sqliteDriver) Run(migration io.Reader) error {
	raw, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	return d.inTx(string(raw))
}

func (d *sqliteDriver) inTx(query string, args ...any) error {
	tx, err := d.db.Begin()
	if err != nil {
		return &database.Error{OrigErr: err, Err: "transaction start failed"}
	}
	if _, err := tx.Exec(query, args...); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		return &database.Error{OrigErr: err, Query: []byte(query)}
	}
	if err := tx.Commit(); err != nil {
		return &database.Error{OrigErr: err, Err: "transaction commit failed"}
	}
	return nil
}

// SetVersion records the current migration version.
func (d *sqliteDriver) SetVersion(version int, dirty bool) error {
	tx, err := d.db.Begin()
	if err != nil {
		return &database.Error{OrigErr: err, Err: "transaction start failed"}
	}

	if _, err := tx.Exec("DELETE FROM " + d.table); err != nil { //nolint:gosec // table name from trusted constant
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		return &database.Error{OrigErr: err}
	}

	// Keep a row even for a dirty nil version so a failed first down
	// migration doesn't leave the table empty.
	// See https://github.com/golang-migrate/migrate/issues/330
	if version >= 0 || (version == database.NilVersion && dirty) {
		query := fmt.Sprintf("INSERT INTO %s (version, dirty) VALUES (?, ?)", d.table) //nolint:gosec // table name from trusted constant
		if _, err := tx.Exec(query, version, dirty); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			return &database.Error{OrigErr: err, Query: []byte(query)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &database.Error{OrigErr: err, Err: "transaction commit failed"}
	}
	return nil
}

// Version returns the recorded migration version.
func (d *sqliteDriver) Version() (version int, dirty bool, err error) {
	query := "SELECT version, dirty FROM " + d.table + " LIMIT 1"
	if err := d.db.QueryRow(query).Scan(&version, &dirty); err != nil {
		return database.NilVersion, false, nil
	}
	return version, dirty, nil
}

// Drop removes every table in the database.
func (d *sqliteDriver) Drop() (err error) {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return &database.Error{OrigErr: err}
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name != "" {
			tables = append(tables, name)
		}
	}
	if err := rows.Err(); err != nil {
		return &database.Error{OrigErr: err}
	}

	for _, table := range tables {
		if err := d.inTx("DROP TABLE " + table); err != nil {
			return err
		}
	}
	if len(tables) > 0 {
		if _, err := d.db.Exec("VACUUM"); err != nil {
			return &database.Error{OrigErr: err}
		}
	}
	return nil
}
