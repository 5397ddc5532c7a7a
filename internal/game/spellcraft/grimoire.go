// Package spellcraft manages the two finite spell-resource ledgers: grimoire
// point budgets and magic-item charges. Every operation takes and returns a
// whole Character; rejections are typed errors that leave the input untouched.
package spellcraft

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rwpulley/charkeep/internal/game/derive"
	"github.com/rwpulley/charkeep/internal/game/sheet"
)

// Sentinel errors for ledger rejections.
var (
	ErrGrimoireNotFound   = errors.New("grimoire not found")
	ErrEntryNotFound      = errors.New("grimoire entry not found")
	ErrInsufficientPoints = errors.New("insufficient grimoire points")
	ErrPermanentLimit     = errors.New("permanent spell limit reached")
	ErrAlreadyPermanent   = errors.New("entry is already permanent")
)

// CastResult describes what a cast did to the ledger.
type CastResult int

const (
	// CastConsumed: a consumable entry was removed.
	CastConsumed CastResult = iota
	// CastExpended: a permanent entry was marked used for today.
	CastExpended
	// CastAlreadyUsed: the permanent entry was already used today; the
	// ledger is unchanged. Not an error.
	CastAlreadyUsed
)

// arcaneThiefClass marks the class whose levels drive the permanent-spell
// limit directly.
const arcaneThiefClass = "arcane thief"

// PointCost returns the grimoire point cost for a spell level: 1 for levels
// at or below 1, otherwise the level itself.
func PointCost(level int) int {
	if level <= 1 {
		return 1
	}
	return level
}

// PointsUsed sums the point cost of every entry in g, resolving spell
// levels through the character's learned-spell list. Entries whose spell
// cannot be resolved cost the minimum 1 point.
func PointsUsed(c sheet.Character, g sheet.Grimoire) int {
	used := 0
	for _, e := range g.Entries {
		level := 0
		if s, ok := c.SpellByID(e.SpellID); ok {
			level = s.Level
		}
		used += PointCost(level)
	}
	return used
}

// PointsLeft returns the remaining point budget of g.
func PointsLeft(c sheet.Character, g sheet.Grimoire) int {
	return g.Capacity - PointsUsed(c, g)
}

// PermanentLimit returns how many permanent entries a single grimoire may
// hold. Arcane thieves scribe one per class level: a primary arcane thief
// uses the XP-derived level, a secondary one uses the stored class2 level.
// Everyone else gets max(1, current level).
func PermanentLimit(c sheet.Character) int {
	level := derive.ResolveProgression(c).CurrentLevel
	if strings.Contains(strings.ToLower(c.Class1), arcaneThiefClass) {
		return level
	}
	if strings.Contains(strings.ToLower(c.Class2), arcaneThiefClass) {
		return c.Class2Level
	}
	if level < 1 {
		return 1
	}
	return level
}

// AddGrimoire appends a new grimoire with the default capacity.
func AddGrimoire(c sheet.Character, name string) sheet.Character {
	out := c.Clone()
	out.Grimoires = append(out.Grimoires, sheet.Grimoire{
		ID:       uuid.New().String(),
		Name:     name,
		Capacity: sheet.DefaultGrimoireCapacity,
	})
	return out
}

// RemoveGrimoire deletes a grimoire and all of its entries.
func RemoveGrimoire(c sheet.Character, grimoireID string) (sheet.Character, error) {
	if _, ok := c.GrimoireByID(grimoireID); !ok {
		return c, fmt.Errorf("%w: %q", ErrGrimoireNotFound, grimoireID)
	}
	out := c.Clone()
	kept := out.Grimoires[:0]
	for _, g := range out.Grimoires {
		if g.ID != grimoireID {
			kept = append(kept, g)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	out.Grimoires = kept
	return out, nil
}

// AddSpellToGrimoire scribes a learned spell into a grimoire.
//
// Postcondition: rejected with ErrInsufficientPoints when the spell's point
// cost exceeds the remaining budget, or ErrPermanentLimit when scribing as
// permanent would exceed the per-grimoire permanent limit; the input is
// unchanged on rejection.
func AddSpellToGrimoire(c sheet.Character, grimoireID, spellID string, permanent bool) (sheet.Character, error) {
	g, ok := c.GrimoireByID(grimoireID)
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrGrimoireNotFound, grimoireID)
	}
	spell, ok := c.SpellByID(spellID)
	if !ok {
		return c, fmt.Errorf("%w: %q", sheet.ErrSpellNotFound, spellID)
	}

	cost := PointCost(spell.Level)
	if left := PointsLeft(c, g); cost > left {
		return c, fmt.Errorf("%w: %q costs %d, %d left in %q", ErrInsufficientPoints, spell.Name, cost, left, g.Name)
	}
	if permanent {
		if limit := PermanentLimit(c); permanentCount(g) >= limit {
			return c, fmt.Errorf("%w: %d permanent spells allowed in %q", ErrPermanentLimit, limit, g.Name)
		}
	}

	out := c.Clone()
	for i := range out.Grimoires {
		if out.Grimoires[i].ID == grimoireID {
			out.Grimoires[i].Entries = append(out.Grimoires[i].Entries, sheet.GrimoireEntry{
				InstanceID: uuid.New().String(),
				SpellID:    spellID,
				Permanent:  permanent,
				NumDice:    spell.NumDice,
			})
			break
		}
	}
	return out, nil
}

// CastFromGrimoire casts a scribed entry. A consumable entry is removed; a
// permanent entry is marked used for today. Casting a permanent entry that
// was already used today changes nothing and reports CastAlreadyUsed.
func CastFromGrimoire(c sheet.Character, grimoireID, instanceID string) (sheet.Character, CastResult, error) {
	g, ok := c.GrimoireByID(grimoireID)
	if !ok {
		return c, 0, fmt.Errorf("%w: %q", ErrGrimoireNotFound, grimoireID)
	}
	entry, found := entryByInstance(g, instanceID)
	if !found {
		return c, 0, fmt.Errorf("%w: %q", ErrEntryNotFound, instanceID)
	}

	if entry.Permanent && entry.UsedToday {
		return c, CastAlreadyUsed, nil
	}

	out := c.Clone()
	for i := range out.Grimoires {
		if out.Grimoires[i].ID != grimoireID {
			continue
		}
		if entry.Permanent {
			for j := range out.Grimoires[i].Entries {
				if out.Grimoires[i].Entries[j].InstanceID == instanceID {
					out.Grimoires[i].Entries[j].UsedToday = true
				}
			}
			return out, CastExpended, nil
		}
		kept := out.Grimoires[i].Entries[:0]
		for _, e := range out.Grimoires[i].Entries {
			if e.InstanceID != instanceID {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			kept = nil
		}
		out.Grimoires[i].Entries = kept
		return out, CastConsumed, nil
	}
	return c, 0, fmt.Errorf("%w: %q", ErrGrimoireNotFound, grimoireID)
}

// PromoteEntry converts a consumable entry to permanent, subject to the
// per-grimoire permanent limit.
func PromoteEntry(c sheet.Character, grimoireID, instanceID string) (sheet.Character, error) {
	g, ok := c.GrimoireByID(grimoireID)
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrGrimoireNotFound, grimoireID)
	}
	entry, found := entryByInstance(g, instanceID)
	if !found {
		return c, fmt.Errorf("%w: %q", ErrEntryNotFound, instanceID)
	}
	if entry.Permanent {
		return c, ErrAlreadyPermanent
	}
	if limit := PermanentLimit(c); permanentCount(g) >= limit {
		return c, fmt.Errorf("%w: %d permanent spells allowed in %q", ErrPermanentLimit, limit, g.Name)
	}

	out := c.Clone()
	for i := range out.Grimoires {
		if out.Grimoires[i].ID != grimoireID {
			continue
		}
		for j := range out.Grimoires[i].Entries {
			if out.Grimoires[i].Entries[j].InstanceID == instanceID {
				out.Grimoires[i].Entries[j].Permanent = true
			}
		}
	}
	return out, nil
}

func permanentCount(g sheet.Grimoire) int {
	n := 0
	for _, e := range g.Entries {
		if e.Permanent {
			n++
		}
	}
	return n
}

func entryByInstance(g sheet.Grimoire, instanceID string) (sheet.GrimoireEntry, bool) {
	for _, e := range g.Entries {
		if e.InstanceID == instanceID {
			return e, true
		}
	}
	return sheet.GrimoireEntry{}, false
}
