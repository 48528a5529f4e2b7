package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Preference is the persisted network selection: the chosen network name and
// whether the user has ever made an explicit choice.
type Preference struct {
	Network string `json:"network"`
	Chosen  bool   `json:"chosen"`
}

// PreferenceStore persists the network selection across restarts.
type PreferenceStore interface {
	Load() (Preference, error)
	Save(Preference) error
}

// FileStore is a PreferenceStore backed by a small JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed preference store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted preference. A missing file yields the zero
// Preference, meaning no explicit choice has been made yet.
func (s *FileStore) Load() (Preference, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Preference{}, nil
	}
	if err != nil {
		return Preference{}, fmt.Errorf("read preference file: %w", err)
	}

	var pref Preference
	if err := json.Unmarshal(raw, &pref); err != nil {
		return Preference{}, fmt.Errorf("parse preference file: %w", err)
	}
	return pref, nil
}

// Save writes the preference atomically (write to temp file, then rename).
func (s *FileStore) Save(pref Preference) error {
	raw, err := json.Marshal(pref)
	if err != nil {
		return fmt.Errorf("encode preference: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preference dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write preference file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace preference file: %w", err)
	}
	return nil
}

// Select resolves a persisted preference to a network config, falling back
// to the registry default when nothing valid has been saved.
func Select(store PreferenceStore) (Config, Preference, error) {
	pref, err := store.Load()
	if err != nil {
		return Default(), Preference{}, err
	}
	if pref.Network == "" {
		return Default(), pref, nil
	}
	cfg, ok := Resolve(pref.Network)
	if !ok {
		return Default(), pref, nil
	}
	return cfg, pref, nil
}
