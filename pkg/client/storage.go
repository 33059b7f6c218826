package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Storage persists a session across client restarts.
type Storage interface {
	Load() (Session, bool, error)
	Save(session Session) error
	Clear() error
}

// FileStorage keeps the session as a JSON file, the client-side analogue of
// browser local storage.
type FileStorage struct {
	path string
}

// NewFileStorage builds storage at the given path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) Load() (Session, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		// Corrupt state is treated as logged out rather than an error.
		return Session{}, false, nil
	}
	return session, true, nil
}

func (f *FileStorage) Save(session Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(f.path, data, 0o600)
}

func (f *FileStorage) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStorage holds the session in process memory only.
type MemoryStorage struct {
	mu      sync.Mutex
	session Session
	set     bool
}

// NewMemoryStorage builds empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load() (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.set, nil
}

func (m *MemoryStorage) Save(session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
	m.set = true
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{}
	m.set = false
	return nil
}
