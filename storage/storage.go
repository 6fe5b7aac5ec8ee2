// Package storage is the client's durable key/value storage. The session store
// keeps exactly two keys in it, the bearer token and a serialized user
// snapshot, and always writes or clears them together. Three backends exist: an
// in-memory one for tests and throwaway runs, a JSON file (the default), and an
// embedded SQLite database.
package storage

import (
	"fmt"

	"github.com/user/blogdesk-go/config"
	"github.com/user/blogdesk-go/db"
)

// Keys used by the session store.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Store is durable string storage.
// Put and Delete apply all their keys in one step: either every key is written
// (removed) or none is.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Put(values map[string]string) error
	Delete(keys ...string) error
	Close() error
}

// Open returns the backend selected by cfg.
func Open(cfg *config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return NewMemoryStore(), nil
	case config.StorageFile, "":
		return NewFileStore(cfg.Path)
	case config.StorageSQLite:
		database, err := db.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(database), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
