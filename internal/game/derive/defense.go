package derive

import "github.com/rwpulley/charkeep/internal/game/sheet"

// ArmorClass computes total AC:
// base + equipped armor + shield + dex term + magic + misc + race AC
// bonus + manual bonus + worn AC-effect contributions.
//
// The dexterity term follows the acModAuto switch: when on, it is the DEX
// modifier, forced to zero while overburdened; when off, the manual acMod
// is used verbatim. Merely burdened characters keep their full dex term.
func ArmorClass(c sheet.Character, enc Encumbrance) int {
	ac := c.ACBase + c.ACMagic + c.ACMisc + c.ACBonus

	for _, id := range c.EquippedArmorIDs {
		if item, ok := c.ItemByID(id); ok && item.IsArmor {
			ac += item.ACBonus
		}
	}
	if shield, ok := c.ItemByID(c.EquippedShieldID); ok && shield.IsShield {
		ac += shield.ACBonus
	}

	ac += dexTerm(c, enc)
	ac += raceBonus(c, sheet.RaceModAC)
	ac += acEffectBonus(c)

	return ac
}

func dexTerm(c sheet.Character, enc Encumbrance) int {
	if !c.ACModAuto {
		return c.ACMod
	}
	if enc.Status == Overburdened {
		return 0
	}
	return AbilityMod(AttributeTotal(c, sheet.AbilityDex))
}

// acEffectBonus sums the ac field of every AC-kind effect whose owning item
// is in the worn AC-effect set.
func acEffectBonus(c sheet.Character) int {
	total := 0
	for _, id := range c.EquippedEffectItemIDs.AC {
		item, ok := c.ItemByID(id)
		if !ok {
			continue
		}
		for _, e := range item.Effects {
			if e.Kind == sheet.EffectAC {
				total += e.AC
			}
		}
	}
	return total
}
