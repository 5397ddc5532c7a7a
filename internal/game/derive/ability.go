// Package derive computes every secondary statistic on the sheet: ability
// totals, encumbrance and speed, armor class, per-attack bonuses, and level
// progression. Every resolver is a pure function of the Character; the
// Engine runs them in dependency order and returns one consistent Snapshot.
package derive

import (
	"strings"

	"github.com/rwpulley/charkeep/internal/game/sheet"
)

// AbilityMod returns the modifier for an ability score total.
//
// The low end is non-linear (1 is -4, 2-3 is -3, 4-5 is -2, 6-8 is -1,
// 9-11 is 0); from 12 upward the modifier is (score-10)/2, capped at +10.
// Scores outside [1, 30] clamp to the nearest endpoint; this function
// never fails.
func AbilityMod(score int) int {
	switch {
	case score <= 1:
		return -4
	case score <= 3:
		return -3
	case score <= 5:
		return -2
	case score <= 8:
		return -1
	case score <= 11:
		return 0
	case score >= 30:
		return 10
	default:
		return (score - 10) / 2
	}
}

// AttributeTotal computes the total for one ability:
// rolled score + race bonus + manual bonus + equipped item bonuses.
//
// An absent attribute record contributes the default rolled score of 10.
// Item bonuses count only while the item exists in inventory, is flagged as
// carrying an attribute bonus, and its ID is in the equipped set for key;
// each counts value x quantity.
func AttributeTotal(c sheet.Character, key string) int {
	attr := c.Attribute(key)
	total := attr.RolledScore + attr.BonusMod + raceBonus(c, key)

	equipped := c.EquippedAttrBonuses[key]
	if len(equipped) == 0 {
		return total
	}
	worn := make(map[string]bool, len(equipped))
	for _, id := range equipped {
		worn[id] = true
	}
	for _, item := range c.Inventory {
		if !item.HasAttrBonus || !worn[item.ID] {
			continue
		}
		for _, b := range item.AttrBonuses {
			if strings.EqualFold(b.Attr, key) {
				total += b.Value * item.Quantity
			}
		}
	}
	return total
}

// raceBonus sums every race modifier entry matching key, case-insensitively.
func raceBonus(c sheet.Character, key string) int {
	total := 0
	for _, m := range c.RaceAttributeMods {
		if strings.EqualFold(m.Attr, key) {
			total += m.Value
		}
	}
	return total
}

// AttributeTotals computes all six ability totals.
func AttributeTotals(c sheet.Character) map[string]int {
	totals := make(map[string]int, 6)
	for _, key := range sheet.AbilityKeys() {
		totals[key] = AttributeTotal(c, key)
	}
	return totals
}
