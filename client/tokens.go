package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Scope selects which token pair authenticates a request.
type Scope string

const (
	ScopeUser  Scope = "user"
	ScopeAdmin Scope = "admin"
)

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenStore keeps one token pair per scope.
type TokenStore interface {
	Get(scope Scope) (Tokens, error)
	Set(scope Scope, tokens Tokens) error
	Clear(scope Scope) error
}

type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[Scope]Tokens
}

var _ TokenStore = (*MemoryTokenStore)(nil)

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[Scope]Tokens)}
}

func (s *MemoryTokenStore) Get(scope Scope) (Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[scope], nil
}

func (s *MemoryTokenStore) Set(scope Scope, tokens Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[scope] = tokens
	return nil
}

func (s *MemoryTokenStore) Clear(scope Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, scope)
	return nil
}

// FileTokenStore persists the tokens of every scope in a JSON file readable only by its owner.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

var _ TokenStore = (*FileTokenStore)(nil)

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) load() (map[Scope]Tokens, error) {
	all := make(map[Scope]Tokens)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return all, nil
		}
		return nil, errors.Wrap(err, "reading token file")
	}
	if len(data) == 0 {
		return all, nil
	}
	if err = json.Unmarshal(data, &all); err != nil {
		return nil, errors.Wrap(err, "decoding token file")
	}
	return all, nil
}

func (s *FileTokenStore) save(all map[Scope]Tokens) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding tokens")
	}
	if err = os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "creating token dir")
	}
	// write then rename, so a crash never leaves a truncated file
	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "writing token file")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "replacing token file")
}

func (s *FileTokenStore) Get(scope Scope) (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return Tokens{}, err
	}
	return all[scope], nil
}

func (s *FileTokenStore) Set(scope Scope, tokens Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return err
	}
	all[scope] = tokens
	return s.save(all)
}

func (s *FileTokenStore) Clear(scope Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := all[scope]; !ok {
		return nil
	}
	delete(all, scope)
	return s.save(all)
}
