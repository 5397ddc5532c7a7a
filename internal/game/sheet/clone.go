package sheet

// Clone returns a deep copy of the Character. Reducers clone before editing
// so the input record is never observed mid-mutation.
//
// Postcondition: the returned value shares no slice or map storage with c.
func (c Character) Clone() Character {
	out := c

	if c.Attributes != nil {
		out.Attributes = make(map[string]Attribute, len(c.Attributes))
		for k, v := range c.Attributes {
			out.Attributes[k] = v
		}
	}

	out.RaceAttributeMods = append([]RaceAttributeMod(nil), c.RaceAttributeMods...)

	if c.Inventory != nil {
		out.Inventory = make([]InventoryItem, len(c.Inventory))
		for i, it := range c.Inventory {
			cp := it
			cp.AttrBonuses = append([]AttrBonus(nil), it.AttrBonuses...)
			cp.Effects = append([]ItemEffect(nil), it.Effects...)
			out.Inventory[i] = cp
		}
	}

	if c.EquippedAttrBonuses != nil {
		out.EquippedAttrBonuses = make(map[string][]string, len(c.EquippedAttrBonuses))
		for k, ids := range c.EquippedAttrBonuses {
			out.EquippedAttrBonuses[k] = append([]string(nil), ids...)
		}
	}
	out.EquippedArmorIDs = append([]string(nil), c.EquippedArmorIDs...)
	out.EquippedSpeedItemIDs = append([]string(nil), c.EquippedSpeedItemIDs...)
	out.EquippedEffectItemIDs = EquippedEffects{
		Attack: append([]string(nil), c.EquippedEffectItemIDs.Attack...),
		AC:     append([]string(nil), c.EquippedEffectItemIDs.AC...),
	}

	out.HPByLevel = append([]int(nil), c.HPByLevel...)
	out.XPTable = append([]int(nil), c.XPTable...)

	if c.Attacks != nil {
		out.Attacks = make([]Attack, len(c.Attacks))
		for i, a := range c.Attacks {
			cp := a
			cp.AppliedEffectItemIDs = append([]string(nil), a.AppliedEffectItemIDs...)
			out.Attacks[i] = cp
		}
	}

	out.Spells = append([]Spell(nil), c.Spells...)

	if c.Grimoires != nil {
		out.Grimoires = make([]Grimoire, len(c.Grimoires))
		for i, g := range c.Grimoires {
			cp := g
			cp.Entries = append([]GrimoireEntry(nil), g.Entries...)
			out.Grimoires[i] = cp
		}
	}

	if c.MagicItems != nil {
		out.MagicItems = make([]MagicItem, len(c.MagicItems))
		for i, m := range c.MagicItems {
			cp := m
			cp.Spells = append([]MagicItemSpell(nil), m.Spells...)
			out.MagicItems[i] = cp
		}
	}

	return out
}
