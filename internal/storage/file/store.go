// Package file provides a JSON-file roster backend for single-table
// deployments that do not want to run PostgreSQL.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rwpulley/charkeep/internal/game/sheet"
)

// rosterFile is the on-disk envelope: one versioned document per character.
type rosterFile struct {
	Characters []json.RawMessage `json:"characters"`
}

// Store persists a roster as a single JSON file. Writes go through a
// temporary file and an atomic rename so a crash never leaves a truncated
// roster behind.
//
// Store implements roster.Store.
type Store struct {
	path string
}

// NewStore creates a Store writing to path. The parent directory is created
// if missing; the file itself is created on first Save.
//
// Precondition: path must be non-empty.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("file: store path must be non-empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating roster directory %q: %w", dir, err)
		}
	}
	return &Store{path: path}, nil
}

// Load reads every stored character. A missing file is an empty roster, not
// an error.
func (s *Store) Load(_ context.Context) ([]sheet.Character, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading roster file %q: %w", s.path, err)
	}

	var rf rosterFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing roster file %q: %w", s.path, err)
	}

	characters := make([]sheet.Character, 0, len(rf.Characters))
	for i, doc := range rf.Characters {
		c, err := sheet.Decode(doc)
		if err != nil {
			return nil, fmt.Errorf("decoding roster entry %d: %w", i, err)
		}
		characters = append(characters, c)
	}
	return characters, nil
}

// Save replaces the entire stored roster.
//
// Postcondition: on success the file holds exactly characters; on failure
// the previous file contents are untouched.
func (s *Store) Save(_ context.Context, characters []sheet.Character) error {
	rf := rosterFile{Characters: make([]json.RawMessage, 0, len(characters))}
	for _, c := range characters {
		doc, err := sheet.Encode(c)
		if err != nil {
			return fmt.Errorf("encoding roster entry %q: %w", c.ID, err)
		}
		rf.Characters = append(rf.Characters, doc)
	}

	data, err := json.MarshalIndent(rf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding roster file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".roster-*.json")
	if err != nil {
		return fmt.Errorf("creating temp roster file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp roster file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp roster file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp roster file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing roster file %q: %w", s.path, err)
	}
	return nil
}

// Path returns the roster file path.
func (s *Store) Path() string {
	return s.path
}
