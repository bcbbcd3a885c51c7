// Package store archives scan runs in SQLite so values can be looked up later.
package store

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Store is the run archive database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the archive at path and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, eris.Wrap(err, "store: create dir")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: open %s", path)
	}
	// A single connection keeps ":memory:" databases alive and serialises writers
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000", Schema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, eris.Wrap(err, "store: apply schema")
		}
	}

	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
