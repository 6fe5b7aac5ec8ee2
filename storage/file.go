package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/user/blogdesk-go/apperror"
)

// sessionFile is the file name FileStore writes inside its directory.
const sessionFile = "session.json"

// FileStore keeps all keys in one JSON object on disk. Each write replaces the
// file through a rename, so a crash leaves either the old or the new content.
// The file is re-read on every Get so that another process (a second CLI
// invocation) sees the latest login or logout.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates the directory if needed and returns a store writing to
// dir/session.json.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, apperror.NewStorageError("failed to create storage directory", err)
	}
	return &FileStore{path: filepath.Join(dir, sessionFile)}, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *FileStore) Put(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.load()
	if err != nil {
		// A corrupt file is replaced rather than blocking every future login.
		current = make(map[string]string)
	}
	for k, v := range values {
		current[k] = v
	}
	return s.save(current)
}

func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.load()
	if err != nil {
		// Clearing a corrupt file means removing it.
		if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return apperror.NewStorageError("failed to remove session file", rmErr)
		}
		return nil
	}
	for _, k := range keys {
		delete(current, k)
	}
	if len(current) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return apperror.NewStorageError("failed to remove session file", err)
		}
		return nil
	}
	return s.save(current)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, apperror.NewStorageError("failed to read session file", err)
	}
	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, apperror.NewStorageError("session file is corrupt", err)
	}
	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return apperror.NewStorageError("failed to encode session", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), sessionFile+".*")
	if err != nil {
		return apperror.NewStorageError("failed to write session file", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return apperror.NewStorageError("failed to write session file", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperror.NewStorageError("failed to write session file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperror.NewStorageError("failed to write session file", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return apperror.NewStorageError("failed to write session file", err)
	}
	return nil
}
