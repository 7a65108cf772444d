package dashboard

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the cache entry as a JSON file, the server-side analog
// of the browser's localStorage slot.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore stores the entry at path, creating parent directories on the
// first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store. A missing file is not an error, just an empty cache.
func (s *FileStore) Load() (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Save implements Store.
func (s *FileStore) Save(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryStore keeps the entry in memory, for tests and single-process use.
type MemoryStore struct {
	mu    sync.Mutex
	entry *Entry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (s *MemoryStore) Load() (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == nil {
		return nil, nil
	}
	copied := *s.entry
	return &copied, nil
}

// Save implements Store.
func (s *MemoryStore) Save(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	s.entry = &copied
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = nil
	return nil
}
