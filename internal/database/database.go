package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// storePragmas are applied by the driver to every connection it opens.
// WAL lets the web UI read runs while a scheduled run is being saved, and
// foreign keys tie model parameters, customer results and segment summaries
// to their run.
var storePragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

// DB is the local store of imported transaction lines and scoring runs.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens the store at dbPath, creating its directory, and brings the
// schema up to date. Writes go through a single connection, so a run is
// saved as one transaction without contending with itself.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", storeDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening store %s: %w", dbPath, err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// storeDSN returns a file URI carrying the store pragmas.
func storeDSN(dbPath string) string {
	q := url.Values{}
	for _, p := range storePragmas {
		q.Add("_pragma", p)
	}
	return "file:" + dbPath + "?" + q.Encode()
}

// Close closes the store.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the store's file path.
func (db *DB) Path() string {
	return db.path
}
