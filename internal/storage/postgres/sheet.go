package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwpulley/charkeep/internal/game/roster"
	"github.com/rwpulley/charkeep/internal/game/sheet"
)

// ErrSheetNotFound is returned when a sheet lookup yields no results.
var ErrSheetNotFound = errors.New("sheet not found")

// SheetRepository persists character sheets as versioned JSONB documents.
// Writes replace the whole document; there are no partial updates.
type SheetRepository struct {
	db *pgxpool.Pool
}

// NewSheetRepository creates a SheetRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSheetRepository(db *pgxpool.Pool) *SheetRepository {
	return &SheetRepository{db: db}
}

// Upsert writes one character's document, replacing any existing row.
//
// Precondition: accountID must reference an existing account; c.ID must be non-empty.
func (r *SheetRepository) Upsert(ctx context.Context, accountID int64, c sheet.Character) error {
	doc, err := sheet.Encode(c)
	if err != nil {
		return fmt.Errorf("encoding sheet %q: %w", c.ID, err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO sheets (account_id, character_id, doc)
		VALUES ($1, $2, $3)
		ON CONFLICT (character_id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		accountID, c.ID, doc,
	)
	if err != nil {
		return fmt.Errorf("upserting sheet %q: %w", c.ID, err)
	}
	return nil
}

// GetByID retrieves one character's document.
//
// Postcondition: Returns the decoded, normalized character or ErrSheetNotFound.
func (r *SheetRepository) GetByID(ctx context.Context, characterID string) (sheet.Character, error) {
	var doc []byte
	err := r.db.QueryRow(ctx,
		`SELECT doc FROM sheets WHERE character_id = $1`,
		characterID,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sheet.Character{}, ErrSheetNotFound
		}
		return sheet.Character{}, fmt.Errorf("querying sheet %q: %w", characterID, err)
	}
	c, err := sheet.Decode(doc)
	if err != nil {
		return sheet.Character{}, fmt.Errorf("decoding sheet %q: %w", characterID, err)
	}
	return c, nil
}

// ListByAccount returns all of an account's characters, ordered by creation.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *SheetRepository) ListByAccount(ctx context.Context, accountID int64) ([]sheet.Character, error) {
	rows, err := r.db.Query(ctx,
		`SELECT doc FROM sheets WHERE account_id = $1 ORDER BY created_at ASC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sheets: %w", err)
	}
	defer rows.Close()

	characters := make([]sheet.Character, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning sheet row: %w", err)
		}
		c, err := sheet.Decode(doc)
		if err != nil {
			return nil, fmt.Errorf("decoding sheet row: %w", err)
		}
		characters = append(characters, c)
	}
	return characters, rows.Err()
}

// Delete removes one character's document.
//
// Postcondition: Returns nil on success, ErrSheetNotFound if no row deleted.
func (r *SheetRepository) Delete(ctx context.Context, characterID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM sheets WHERE character_id = $1`,
		characterID,
	)
	if err != nil {
		return fmt.Errorf("deleting sheet %q: %w", characterID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSheetNotFound
	}
	return nil
}

// ReplaceAccount atomically replaces all of an account's documents with
// characters.
func (r *SheetRepository) ReplaceAccount(ctx context.Context, accountID int64, characters []sheet.Character) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM sheets WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("clearing account sheets: %w", err)
	}
	for _, c := range characters {
		doc, err := sheet.Encode(c)
		if err != nil {
			return fmt.Errorf("encoding sheet %q: %w", c.ID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO sheets (account_id, character_id, doc)
			VALUES ($1, $2, $3)`,
			accountID, c.ID, doc,
		); err != nil {
			return fmt.Errorf("inserting sheet %q: %w", c.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing sheets: %w", err)
	}
	return nil
}

// accountStore adapts SheetRepository to roster.Store for one account.
type accountStore struct {
	repo      *SheetRepository
	accountID int64
}

// AccountStore returns a roster.Store scoped to one account's characters.
func (r *SheetRepository) AccountStore(accountID int64) roster.Store {
	return &accountStore{repo: r, accountID: accountID}
}

func (s *accountStore) Load(ctx context.Context) ([]sheet.Character, error) {
	return s.repo.ListByAccount(ctx, s.accountID)
}

func (s *accountStore) Save(ctx context.Context, characters []sheet.Character) error {
	return s.repo.ReplaceAccount(ctx, s.accountID, characters)
}
