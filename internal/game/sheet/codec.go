package sheet

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CurrentVersion is the document version written by Encode.
//
// History:
//
//	v1 — original flat document, single maxHp field, no wallet.
//	v2 — adds wallet.
//	v3 — replaces flat maxHp with hpByLevel.
const CurrentVersion = 3

// ErrUnsupportedVersion is returned when a document's version is newer than
// this build understands.
var ErrUnsupportedVersion = errors.New("unsupported document version")

// document is the versioned on-disk envelope for one Character.
type document struct {
	Version   int       `json:"version"`
	Character Character `json:"character"`
}

// legacyFields carries fields dropped by later document versions, decoded
// alongside the Character so migrations can consume them.
type legacyFields struct {
	Character struct {
		MaxHP int `json:"maxHp"`
	} `json:"character"`
}

// Encode serialises a Character as a versioned JSON document.
//
// Postcondition: the output decodes to an engine-equivalent Character.
func Encode(c Character) ([]byte, error) {
	data, err := json.MarshalIndent(document{Version: CurrentVersion, Character: c}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding character %q: %w", c.Name, err)
	}
	return data, nil
}

// Decode parses a versioned JSON document, applies migrations for older
// versions, and returns the normalized Character.
//
// Postcondition: returns a normalized Character or a non-nil error; documents
// newer than CurrentVersion are rejected with ErrUnsupportedVersion.
func Decode(data []byte) (Character, error) {
	var envelope struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Character{}, fmt.Errorf("decoding document envelope: %w", err)
	}
	if envelope.Version > CurrentVersion {
		return Character{}, fmt.Errorf("%w: %d (max %d)", ErrUnsupportedVersion, envelope.Version, CurrentVersion)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Character{}, fmt.Errorf("decoding character document: %w", err)
	}
	var legacy legacyFields
	if err := json.Unmarshal(data, &legacy); err != nil {
		return Character{}, fmt.Errorf("decoding legacy fields: %w", err)
	}

	c := migrate(doc.Version, doc.Character, legacy)
	return Normalize(c), nil
}

// migrate upgrades a decoded Character from the given version to
// CurrentVersion. Versions at or below zero are treated as v1.
func migrate(version int, c Character, legacy legacyFields) Character {
	if version <= 0 {
		version = 1
	}
	if version < 2 {
		// v1 → v2: wallet did not exist; start empty.
		c.Wallet = Wallet{}
	}
	if version < 3 {
		// v2 → v3: a flat max HP becomes a single-entry hpByLevel so the
		// computed maximum matches the legacy value.
		if len(c.HPByLevel) == 0 && legacy.Character.MaxHP > 0 {
			c.HPByLevel = []int{legacy.Character.MaxHP - c.HPBonus}
		}
	}
	return c
}
