// Package exchange reads and writes portable roster archives: a versioned
// JSON envelope of whole character documents, used for backup and for
// moving characters between tables.
package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rwpulley/charkeep/internal/game/sheet"
)

// ArchiveVersion is the envelope version written by Export.
const ArchiveVersion = 1

// ErrUnsupportedArchive is returned when an archive's version is newer than
// this build understands.
var ErrUnsupportedArchive = errors.New("unsupported archive version")

// archive is the on-wire envelope. Each entry is a full versioned character
// document, so the sheet codec's migrations apply on import.
type archive struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Characters []json.RawMessage `json:"characters"`
}

// Export serialises characters into an archive.
//
// Postcondition: the output imports to engine-equivalent characters.
func Export(characters []sheet.Character, now time.Time) ([]byte, error) {
	a := archive{
		Version:    ArchiveVersion,
		ExportedAt: now.UTC(),
		Characters: make([]json.RawMessage, 0, len(characters)),
	}
	for _, c := range characters {
		doc, err := sheet.Encode(c)
		if err != nil {
			return nil, fmt.Errorf("exporting character %q: %w", c.ID, err)
		}
		a.Characters = append(a.Characters, doc)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding archive: %w", err)
	}
	return data, nil
}

// Import parses an archive and returns its characters, migrated and
// normalized.
//
// Postcondition: archives newer than ArchiveVersion are rejected with
// ErrUnsupportedArchive.
func Import(data []byte) ([]sheet.Character, error) {
	var a archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing archive: %w", err)
	}
	if a.Version > ArchiveVersion {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrUnsupportedArchive, a.Version, ArchiveVersion)
	}

	characters := make([]sheet.Character, 0, len(a.Characters))
	for i, doc := range a.Characters {
		c, err := sheet.Decode(doc)
		if err != nil {
			return nil, fmt.Errorf("decoding archive entry %d: %w", i, err)
		}
		characters = append(characters, c)
	}
	return characters, nil
}

// MergeResult summarises what a Merge changed.
type MergeResult struct {
	// Added counts incoming characters whose ID was not present.
	Added int
	// Updated counts existing characters replaced by an incoming record.
	Updated int
}

// Merge folds incoming characters into existing by ID: a matching ID
// replaces the existing record whole, a new ID is appended. Existing
// characters absent from the archive are kept.
//
// Postcondition: existing and incoming are unchanged; the returned slice
// preserves existing order with additions appended in archive order.
func Merge(existing, incoming []sheet.Character) ([]sheet.Character, MergeResult) {
	index := make(map[string]int, len(existing))
	merged := make([]sheet.Character, len(existing))
	for i, c := range existing {
		index[c.ID] = i
		merged[i] = c.Clone()
	}

	var result MergeResult
	for _, c := range incoming {
		if i, ok := index[c.ID]; ok {
			merged[i] = c.Clone()
			result.Updated++
			continue
		}
		index[c.ID] = len(merged)
		merged = append(merged, c.Clone())
		result.Added++
	}
	return merged, result
}
