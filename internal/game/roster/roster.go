// Package roster mediates access to a stored collection of character
// sheets. A Manager enforces single-writer checkout so two sessions cannot
// edit the same character at once, and commits whole records back to the
// backing Store.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rwpulley/charkeep/internal/game/sheet"
)

// Sentinel errors for roster operations.
var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrCheckedOut        = errors.New("character is checked out by another session")
	ErrNotCheckedOut     = errors.New("character is not checked out by this session")
	ErrDuplicateName     = errors.New("a character with that name already exists")
)

// Store persists a roster of characters. Implementations replace whole
// records; there are no partial updates.
type Store interface {
	// Load returns every stored character.
	Load(ctx context.Context) ([]sheet.Character, error)
	// Save replaces the entire stored roster.
	Save(ctx context.Context, characters []sheet.Character) error
}

// Manager owns the in-memory roster and its checkout ledger.
// All methods are safe for concurrent use.
type Manager struct {
	store Store

	mu         sync.RWMutex
	characters map[string]sheet.Character // character ID → record
	checkouts  map[string]string          // character ID → session ID
}

// NewManager creates a Manager and loads the roster from store.
//
// Precondition: store must be non-nil.
func NewManager(ctx context.Context, store Store) (*Manager, error) {
	characters, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}
	m := &Manager{
		store:      store,
		characters: make(map[string]sheet.Character, len(characters)),
		checkouts:  make(map[string]string),
	}
	for _, c := range characters {
		m.characters[c.ID] = sheet.Normalize(c)
	}
	return m, nil
}

// List returns a snapshot of every character, unordered.
func (m *Manager) List() []sheet.Character {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]sheet.Character, 0, len(m.characters))
	for _, c := range m.characters {
		out = append(out, c.Clone())
	}
	return out
}

// Get returns a copy of one character by ID.
func (m *Manager) Get(characterID string) (sheet.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.characters[characterID]
	if !ok {
		return sheet.Character{}, fmt.Errorf("%w: %q", ErrCharacterNotFound, characterID)
	}
	return c.Clone(), nil
}

// FindByName returns a copy of the character with the given name,
// case-insensitively.
func (m *Manager) FindByName(name string) (sheet.Character, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.characters {
		if strings.EqualFold(c.Name, name) {
			return c.Clone(), true
		}
	}
	return sheet.Character{}, false
}

// Create adds a new character to the roster and persists it.
//
// Postcondition: rejected with ErrDuplicateName when a character with the
// same name (case-insensitive) already exists.
func (m *Manager) Create(ctx context.Context, c sheet.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.characters {
		if strings.EqualFold(existing.Name, c.Name) {
			return fmt.Errorf("%w: %q", ErrDuplicateName, c.Name)
		}
	}
	m.characters[c.ID] = sheet.Normalize(c)
	return m.persistLocked(ctx)
}

// Checkout grants sessionID exclusive write access to a character.
//
// Postcondition: Returns a working copy, or ErrCheckedOut when another
// session already holds the character.
func (m *Manager) Checkout(characterID, sessionID string) (sheet.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.characters[characterID]
	if !ok {
		return sheet.Character{}, fmt.Errorf("%w: %q", ErrCharacterNotFound, characterID)
	}
	if holder, held := m.checkouts[characterID]; held && holder != sessionID {
		return sheet.Character{}, fmt.Errorf("%w: %q", ErrCheckedOut, characterID)
	}
	m.checkouts[characterID] = sessionID
	return c.Clone(), nil
}

// Checkin releases a checkout without committing changes.
func (m *Manager) Checkin(characterID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.checkouts[characterID] != sessionID {
		return fmt.Errorf("%w: %q", ErrNotCheckedOut, characterID)
	}
	delete(m.checkouts, characterID)
	return nil
}

// Commit replaces the stored record with c and persists the roster. The
// checkout is retained so the session can keep editing.
//
// Precondition: sessionID must hold the checkout for c.ID.
func (m *Manager) Commit(ctx context.Context, c sheet.Character, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.checkouts[c.ID] != sessionID {
		return fmt.Errorf("%w: %q", ErrNotCheckedOut, c.ID)
	}
	if _, ok := m.characters[c.ID]; !ok {
		return fmt.Errorf("%w: %q", ErrCharacterNotFound, c.ID)
	}
	m.characters[c.ID] = sheet.Normalize(c)
	return m.persistLocked(ctx)
}

// Delete removes a character from the roster and persists.
//
// Postcondition: rejected with ErrCheckedOut when any session holds the
// character.
func (m *Manager) Delete(ctx context.Context, characterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.characters[characterID]; !ok {
		return fmt.Errorf("%w: %q", ErrCharacterNotFound, characterID)
	}
	if holder, held := m.checkouts[characterID]; held {
		return fmt.Errorf("%w: held by %q", ErrCheckedOut, holder)
	}
	delete(m.characters, characterID)
	return m.persistLocked(ctx)
}

// ReleaseSession drops every checkout held by sessionID. Used when a
// connection closes without checking in.
func (m *Manager) ReleaseSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, holder := range m.checkouts {
		if holder == sessionID {
			delete(m.checkouts, id)
		}
	}
}

// Count returns the number of characters in the roster.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.characters)
}

func (m *Manager) persistLocked(ctx context.Context) error {
	characters := make([]sheet.Character, 0, len(m.characters))
	for _, c := range m.characters {
		characters = append(characters, c)
	}
	if err := m.store.Save(ctx, characters); err != nil {
		return fmt.Errorf("saving roster: %w", err)
	}
	return nil
}
