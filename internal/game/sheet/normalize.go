package sheet

import "strings"

// Normalize repairs a Character at the data-model boundary: after decode,
// import, or template instantiation. Resolvers may assume a normalized
// record and never re-derive these fixes ad hoc.
//
// Normalize folds legacy single attr-bonus fields into the AttrBonuses
// array, lowercases ability keys, drops items with non-positive quantity,
// purges dangling item/spell references from every equipped set and ledger,
// bumps a non-monotonic XP table, and clamps current HP to [0, MaxHP].
//
// Postcondition: Normalize is idempotent; the input is not modified.
func Normalize(c Character) Character {
	out := c.Clone()

	out.Attributes = normalizeAttributes(out.Attributes)

	for i, m := range out.RaceAttributeMods {
		out.RaceAttributeMods[i].Attr = strings.ToLower(m.Attr)
	}

	// Fold legacy single-bonus fields and drop removed items.
	items := out.Inventory[:0]
	for _, it := range out.Inventory {
		if it.Quantity <= 0 {
			continue
		}
		if it.AttrBonusAttr != "" {
			it.AttrBonuses = append(it.AttrBonuses, AttrBonus{
				Attr:  strings.ToLower(it.AttrBonusAttr),
				Value: it.AttrBonusValue,
			})
			it.AttrBonusAttr = ""
			it.AttrBonusValue = 0
			it.HasAttrBonus = true
		}
		for j, b := range it.AttrBonuses {
			it.AttrBonuses[j].Attr = strings.ToLower(b.Attr)
		}
		items = append(items, it)
	}
	out.Inventory = items

	out = purgeDanglingRefs(out)

	// Canonicalize empty collections to nil so normalized records compare
	// equal across an encode/decode round trip.
	if len(out.Inventory) == 0 {
		out.Inventory = nil
	}
	if len(out.Attacks) == 0 {
		out.Attacks = nil
	}
	if len(out.Spells) == 0 {
		out.Spells = nil
	}
	if len(out.RaceAttributeMods) == 0 {
		out.RaceAttributeMods = nil
	}
	if len(out.EquippedAttrBonuses) == 0 {
		out.EquippedAttrBonuses = nil
	}

	out.XPTable = FixXPTable(out.XPTable)

	if out.CurrentXP < 0 {
		out.CurrentXP = 0
	}
	out.HP = clampHP(out.HP, out.MaxHP())

	return out
}

// normalizeAttributes lowercases keys, discards unknown ones, and fills in
// the six ability records with the default rolled score of 10.
func normalizeAttributes(attrs map[string]Attribute) map[string]Attribute {
	norm := make(map[string]Attribute, 6)
	for k, v := range attrs {
		key := strings.ToLower(k)
		if ValidAbility(key) {
			norm[key] = v
		}
	}
	for _, key := range AbilityKeys() {
		if _, ok := norm[key]; !ok {
			norm[key] = Attribute{RolledScore: 10}
		}
	}
	return norm
}

// purgeDanglingRefs removes every reference to items and spells that no
// longer exist: equipped-id sets, attack weapon bindings and effect
// selections, item-linked grimoires and magic items, and grimoire entries
// whose spell was forgotten.
func purgeDanglingRefs(c Character) Character {
	itemIDs := make(map[string]bool, len(c.Inventory))
	for _, it := range c.Inventory {
		itemIDs[it.ID] = true
	}
	spellIDs := make(map[string]bool, len(c.Spells))
	for _, s := range c.Spells {
		spellIDs[s.ID] = true
	}

	keep := func(ids []string) []string {
		out := ids[:0]
		for _, id := range ids {
			if itemIDs[id] {
				out = append(out, id)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	for key, ids := range c.EquippedAttrBonuses {
		kept := keep(ids)
		if kept == nil {
			delete(c.EquippedAttrBonuses, key)
		} else {
			c.EquippedAttrBonuses[key] = kept
		}
	}
	c.EquippedArmorIDs = keep(c.EquippedArmorIDs)
	c.EquippedSpeedItemIDs = keep(c.EquippedSpeedItemIDs)
	c.EquippedEffectItemIDs.Attack = keep(c.EquippedEffectItemIDs.Attack)
	c.EquippedEffectItemIDs.AC = keep(c.EquippedEffectItemIDs.AC)
	if c.EquippedShieldID != "" && !itemIDs[c.EquippedShieldID] {
		c.EquippedShieldID = ""
	}

	for i, a := range c.Attacks {
		if a.WeaponID != "" && !itemIDs[a.WeaponID] {
			c.Attacks[i].WeaponID = ""
		}
		c.Attacks[i].AppliedEffectItemIDs = keep(a.AppliedEffectItemIDs)
	}

	grimoires := c.Grimoires[:0]
	for _, g := range c.Grimoires {
		if g.ItemID != "" && !itemIDs[g.ItemID] {
			continue
		}
		if g.Capacity <= 0 {
			g.Capacity = DefaultGrimoireCapacity
		}
		entries := g.Entries[:0]
		for _, e := range g.Entries {
			if spellIDs[e.SpellID] {
				entries = append(entries, e)
			}
		}
		if len(entries) == 0 {
			entries = nil
		}
		g.Entries = entries
		grimoires = append(grimoires, g)
	}
	if len(grimoires) == 0 {
		grimoires = nil
	}
	c.Grimoires = grimoires

	magicItems := c.MagicItems[:0]
	for _, m := range c.MagicItems {
		if m.ItemID != "" && !itemIDs[m.ItemID] {
			continue
		}
		magicItems = append(magicItems, m)
	}
	if len(magicItems) == 0 {
		magicItems = nil
	}
	c.MagicItems = magicItems

	return c
}

// FixXPTable returns a strictly increasing copy of table. Any entry that is
// not greater than its predecessor is bumped to predecessor + 1.
//
// Postcondition: out[i] > out[i-1] for all i >= 1; the input is not modified.
func FixXPTable(table []int) []int {
	if len(table) == 0 {
		return nil
	}
	out := append([]int(nil), table...)
	for i := 1; i < len(out); i++ {
		if out[i] <= out[i-1] {
			out[i] = out[i-1] + 1
		}
	}
	return out
}

func clampHP(hp, maxHP int) int {
	if hp < 0 {
		return 0
	}
	if hp > maxHP {
		return maxHP
	}
	return hp
}
