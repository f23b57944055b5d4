// Package db keeps the shc-extract run history in SQLite.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultDBName is used beside the executable when no path is given.
const DefaultDBName = "shc-extract.db"

type DB struct {
	*sql.DB
	path string
}

// Open opens the history database at dbPath and creates its tables on first
// use. ":memory:" gives a private in-memory database.
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate executable: %w", err)
		}
		dbPath = filepath.Join(filepath.Dir(execPath), DefaultDBName)
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	// PRAGMAs and :memory: contents belong to a single connection.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB, path: dbPath}
	if err := db.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate() error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'extractions'").Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to check schema: %w", err)
	default:
		return nil
	}
}

func (db *DB) Path() string {
	return db.path
}
