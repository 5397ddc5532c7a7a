package spellcraft

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rwpulley/charkeep/internal/game/sheet"
)

// Sentinel errors for magic-item rejections.
var (
	ErrMagicItemNotFound = errors.New("magic item not found")
	ErrItemFull          = errors.New("magic item has no remaining capacity")
	ErrSpellNotInItem    = errors.New("spell not stored in item")
)

// Remaining returns how many more entries the item can hold.
func Remaining(m sheet.MagicItem) int {
	return m.Capacity - len(m.Spells)
}

// AddMagicItem appends a new magic item with the given charge capacity.
func AddMagicItem(c sheet.Character, name string, capacity int) sheet.Character {
	out := c.Clone()
	out.MagicItems = append(out.MagicItems, sheet.MagicItem{
		ID:       uuid.New().String(),
		Name:     name,
		Capacity: capacity,
	})
	return out
}

// RemoveMagicItem deletes a magic item and all of its stored charges.
func RemoveMagicItem(c sheet.Character, magicItemID string) (sheet.Character, error) {
	if _, ok := c.MagicItemByID(magicItemID); !ok {
		return c, fmt.Errorf("%w: %q", ErrMagicItemNotFound, magicItemID)
	}
	out := c.Clone()
	kept := out.MagicItems[:0]
	for _, m := range out.MagicItems {
		if m.ID != magicItemID {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	out.MagicItems = kept
	return out, nil
}

// AddSpellToItem stores up to n copies of a spell in a magic item and
// returns how many were actually stored.
//
// Postcondition: a full item is rejected with ErrItemFull and the input is
// unchanged; otherwise added = min(remaining, n).
func AddSpellToItem(c sheet.Character, magicItemID, spellName string, n int, permanent bool, numDice int) (sheet.Character, int, error) {
	m, ok := c.MagicItemByID(magicItemID)
	if !ok {
		return c, 0, fmt.Errorf("%w: %q", ErrMagicItemNotFound, magicItemID)
	}
	if n <= 0 {
		return c, 0, nil
	}

	remaining := Remaining(m)
	if remaining <= 0 {
		return c, 0, fmt.Errorf("%w: %q holds %d of %d", ErrItemFull, m.Name, len(m.Spells), m.Capacity)
	}
	added := n
	if added > remaining {
		added = remaining
	}

	out := c.Clone()
	for i := range out.MagicItems {
		if out.MagicItems[i].ID != magicItemID {
			continue
		}
		for k := 0; k < added; k++ {
			out.MagicItems[i].Spells = append(out.MagicItems[i].Spells, sheet.MagicItemSpell{
				Spell:     spellName,
				Permanent: permanent,
				NumDice:   numDice,
			})
		}
	}
	return out, added, nil
}

// CastFromItem casts a stored charge by spell name. An unused permanent
// entry is marked used for today; otherwise one consumable entry is removed.
// When every matching entry is a permanent one already used today, nothing
// changes and CastAlreadyUsed is reported.
func CastFromItem(c sheet.Character, magicItemID, spellName string) (sheet.Character, CastResult, error) {
	m, ok := c.MagicItemByID(magicItemID)
	if !ok {
		return c, 0, fmt.Errorf("%w: %q", ErrMagicItemNotFound, magicItemID)
	}

	permIdx, consumableIdx, usedSeen := -1, -1, false
	for i, s := range m.Spells {
		if !strings.EqualFold(s.Spell, spellName) {
			continue
		}
		switch {
		case s.Permanent && !s.UsedToday && permIdx < 0:
			permIdx = i
		case s.Permanent && s.UsedToday:
			usedSeen = true
		case !s.Permanent && consumableIdx < 0:
			consumableIdx = i
		}
	}

	switch {
	case permIdx >= 0:
		out := c.Clone()
		for i := range out.MagicItems {
			if out.MagicItems[i].ID == magicItemID {
				out.MagicItems[i].Spells[permIdx].UsedToday = true
			}
		}
		return out, CastExpended, nil
	case consumableIdx >= 0:
		out := c.Clone()
		for i := range out.MagicItems {
			if out.MagicItems[i].ID != magicItemID {
				continue
			}
			spells := append([]sheet.MagicItemSpell(nil), out.MagicItems[i].Spells[:consumableIdx]...)
			spells = append(spells, out.MagicItems[i].Spells[consumableIdx+1:]...)
			if len(spells) == 0 {
				spells = nil
			}
			out.MagicItems[i].Spells = spells
		}
		return out, CastConsumed, nil
	case usedSeen:
		return c, CastAlreadyUsed, nil
	default:
		return c, 0, fmt.Errorf("%w: %q in %q", ErrSpellNotInItem, spellName, m.Name)
	}
}

// ResetItem clears the used-today flag on every permanent entry in one item.
func ResetItem(c sheet.Character, magicItemID string) (sheet.Character, error) {
	if _, ok := c.MagicItemByID(magicItemID); !ok {
		return c, fmt.Errorf("%w: %q", ErrMagicItemNotFound, magicItemID)
	}
	out := c.Clone()
	for i := range out.MagicItems {
		if out.MagicItems[i].ID != magicItemID {
			continue
		}
		for j := range out.MagicItems[i].Spells {
			if out.MagicItems[i].Spells[j].Permanent {
				out.MagicItems[i].Spells[j].UsedToday = false
			}
		}
	}
	return out, nil
}
