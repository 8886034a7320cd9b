package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// TokenStore persists the refresh token between process runs so a session
// can be restored on start. The file lives in the client's state directory
// and is readable only by the owner.
type TokenStore struct {
	path string
}

// NewTokenStore constructs a store writing to dir/session.json.
func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{path: filepath.Join(dir, "session.json")}
}

type storedSession struct {
	UserID       string `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

// Save writes the refresh token for userID, replacing any previous one.
func (s *TokenStore) Save(userID, refreshToken string) error {
	b, err := json.Marshal(storedSession{UserID: userID, RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Load returns the persisted user id and refresh token. When nothing has
// been saved, both values are empty with a nil error.
func (s *TokenStore) Load() (userID, refreshToken string, err error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", nil
		}
		return "", "", fmt.Errorf("read session file: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(b, &stored); err != nil {
		return "", "", fmt.Errorf("parse session file: %w", err)
	}
	return stored.UserID, stored.RefreshToken, nil
}

// Clear removes the persisted session, if any.
func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
