package spellcraft

import "github.com/rwpulley/charkeep/internal/game/sheet"

// NewDay clears the used-today flag on every permanent entry across all
// grimoires and magic items. Consumable entries are unaffected.
//
// Postcondition: NewDay is idempotent.
func NewDay(c sheet.Character) sheet.Character {
	out := c.Clone()
	for i := range out.Grimoires {
		for j := range out.Grimoires[i].Entries {
			if out.Grimoires[i].Entries[j].Permanent {
				out.Grimoires[i].Entries[j].UsedToday = false
			}
		}
	}
	for i := range out.MagicItems {
		for j := range out.MagicItems[i].Spells {
			if out.MagicItems[i].Spells[j].Permanent {
				out.MagicItems[i].Spells[j].UsedToday = false
			}
		}
	}
	return out
}
