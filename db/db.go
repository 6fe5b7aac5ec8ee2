// Package db opens the embedded SQLite database used by the sqlite storage
// backend. It handles creating the database file, tuning the connection pool for
// a single local writer, and making sure the schema exists.
package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	// `_ "github.com/mattn/go-sqlite3"` registers the "sqlite3" driver with database/sql.
	_ "github.com/mattn/go-sqlite3"

	"github.com/user/blogdesk-go/apperror"
)

// FileName is the database file created inside the storage directory.
const FileName = "session.db"

// schema is applied on every Open; every statement must be idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}

// Open creates (if needed) and connects to the database in dir.
// The returned handle is safe for concurrent use; callers must Close it.
func Open(dir string) (*sqlx.DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, apperror.NewStorageError(fmt.Sprintf("failed to create storage directory %s", dir), err)
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", filepath.Join(dir, FileName))

	database, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperror.NewStorageError("error opening session database", err)
	}
	// SQLite serialises writers anyway; one connection avoids "database is locked".
	database.SetMaxOpenConns(1)
	database.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, apperror.NewStorageError("error connecting to the session database", err)
	}

	if err := EnsureSchema(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// EnsureSchema creates the tables the storage backend needs.
func EnsureSchema(ctx context.Context, database *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := database.ExecContext(ctx, stmt); err != nil {
			return apperror.NewStorageError("failed to create session schema", err)
		}
	}
	return nil
}
