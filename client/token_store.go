package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/planora/planora/auth"
)

// TokenStore persists the token pair between process runs so the client
// can re-authenticate silently on startup.
type TokenStore interface {
	Load() (auth.TokenPair, error)
	Save(pair auth.TokenPair) error
	Clear() error
}

// MemoryTokenStore keeps tokens for the lifetime of the process.
type MemoryTokenStore struct {
	mu   sync.Mutex
	pair auth.TokenPair
	set  bool
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load() (auth.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return auth.TokenPair{}, os.ErrNotExist
	}
	return s.pair, nil
}

func (s *MemoryTokenStore) Save(pair auth.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	s.set = true
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = auth.TokenPair{}
	s.set = false
	return nil
}

// FileTokenStore persists tokens as JSON, owner-readable only.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Load() (auth.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair := auth.TokenPair{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return pair, err
	}

	if err := json.Unmarshal(data, &pair); err != nil {
		return auth.TokenPair{}, err
	}

	return pair, nil
}

func (s *FileTokenStore) Save(pair auth.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(pair)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
