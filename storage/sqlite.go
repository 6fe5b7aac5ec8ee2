package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/user/blogdesk-go/apperror"
)

// SQLiteStore keeps keys in the kv table created by db.Open.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore wraps an open database. The store owns it from then on.
func NewSQLiteStore(database *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperror.NewStorageError("failed to read session", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Put(values map[string]string) (err error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return apperror.NewStorageError("failed to begin session write", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = apperror.NewStorageError("failed to commit session write", commitErr)
		}
	}()

	now := time.Now().Unix()
	for k, v := range values {
		_, err = tx.Exec(`
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			k, v, now)
		if err != nil {
			return apperror.NewStorageError("failed to write session", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM kv WHERE key IN (?)`, keys)
	if err != nil {
		return apperror.NewStorageError("failed to build session delete", err)
	}
	if _, err := s.db.Exec(s.db.Rebind(query), args...); err != nil {
		return apperror.NewStorageError("failed to clear session", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
