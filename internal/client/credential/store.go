// Package credential persists the single bearer credential that proves an
// authenticated session to the CardScope backend.
package credential

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// document is the on-disk shape. Exactly one credential exists per client,
// stored under one fixed key.
type document struct {
	AccessToken string `json:"access_token"`
}

// Store reads and writes the credential file. The zero value is not usable;
// construct with NewStore.
type Store struct {
	path string
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the stored credential, or the empty string when none is
// stored. A missing file is the valid "absent" case, not an error.
func (s *Store) Load() (string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("open credential file: %w", err)
	}
	defer f.Close()

	var doc document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode credential file: %w", err)
	}
	return doc.AccessToken, nil
}

// Save writes the credential, replacing any previous value. Parent
// directories are created as needed.
func (s *Store) Save(token string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create credential dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create credential file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(document{AccessToken: token})
}

// Clear removes the stored credential. Clearing an absent credential is a
// no-op, not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
