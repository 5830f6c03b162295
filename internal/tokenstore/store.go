package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenPair holds the raw credential strings returned by the token endpoint.
// Both are opaque to this package; the refresh token is persisted but the
// client never exchanges it.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// StoredUser is the identity cached alongside the tokens so callers don't
// have to re-decode the access token on every read.
type StoredUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type state struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         StoredUser `json:"user"`
}

// Store persists the token pair and cached user as a single JSON file.
// Save/Load/Clear are atomic with respect to each other: writes go to a
// temp file first and are renamed into place, and a mutex serializes
// in-process access, so Load never observes a half-written state.
type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Save(tokens TokenPair, user StoredUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         user,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist credentials: %w", err)
	}
	return nil
}

// Load reads the persisted tokens and user. The boolean reports whether a
// complete credential set was present; a missing file or a file with either
// the access token or the user absent reads as empty.
func (s *Store) Load() (TokenPair, StoredUser, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return TokenPair{}, StoredUser{}, false, nil
	}
	if err != nil {
		return TokenPair{}, StoredUser{}, false, fmt.Errorf("read credentials: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return TokenPair{}, StoredUser{}, false, fmt.Errorf("parse credentials: %w", err)
	}
	if st.AccessToken == "" || st.User.ID == 0 {
		// Partially populated state is treated as no state at all.
		return TokenPair{}, StoredUser{}, false, nil
	}
	return TokenPair{AccessToken: st.AccessToken, RefreshToken: st.RefreshToken}, st.User, true, nil
}

// Clear removes the persisted credentials. Clearing an already-empty store
// is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
