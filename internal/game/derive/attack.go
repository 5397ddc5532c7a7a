package derive

import "github.com/rwpulley/charkeep/internal/game/sheet"

// AttackTotals holds the resolved static bonuses for one attack line. No
// dice are rolled here; randomness belongs to the dice collaborator.
type AttackTotals struct {
	ToHit       int `json:"toHit"`
	DamageBonus int `json:"damageBonus"`
	// NumDice and DieType are the damage dice, falling back to the bound
	// weapon's dice when the attack leaves them unset.
	NumDice int `json:"numDice"`
	DieType int `json:"dieType"`
}

// ResolveAttack computes the to-hit and damage-bonus totals for one attack,
// merging the bound weapon, per-attack manual modifiers, applied attack
// effects, and the character's global attack/damage bonuses.
//
// With autoMods on, the ability modifier is computed from STR (melee) or
// DEX (ranged) and the stored attrMod becomes an extra on top; melee damage
// also gains the STR modifier. Ranged damage stays manual, since thrown
// weapons add STR and fired ones do not. Unknown weapon modes are manual.
func ResolveAttack(c sheet.Character, atk sheet.Attack) AttackTotals {
	var weapon sheet.InventoryItem
	if atk.WeaponID != "" {
		weapon, _ = c.ItemByID(atk.WeaponID)
	}

	attrMod := atk.AttrMod
	damageAbilityMod := 0
	if atk.AutoMods {
		switch atk.WeaponMode {
		case sheet.WeaponModeMelee:
			strMod := AbilityMod(AttributeTotal(c, sheet.AbilityStr))
			attrMod = strMod + atk.AttrMod
			damageAbilityMod = strMod
		case sheet.WeaponModeRanged:
			attrMod = AbilityMod(AttributeTotal(c, sheet.AbilityDex)) + atk.AttrMod
		}
	}

	effToHitMisc, effToHitMagic, effDmgMisc, effDmgMagic := attackEffectBonuses(c, atk)

	toHit := c.BaseBTH + atk.BthBonus + attrMod + atk.Magic + atk.Misc +
		weapon.WeaponToHitMagic + weapon.WeaponToHitMisc +
		c.AttackBonus + effToHitMisc + effToHitMagic

	damage := damageAbilityMod + atk.DamageMod + atk.DamageMagic + atk.DamageMisc +
		weapon.WeaponDamageMagic + weapon.WeaponDamageMisc +
		c.DamageBonus + effDmgMisc + effDmgMagic

	numDice, dieType := atk.NumDice, atk.DieType
	if numDice <= 0 && weapon.WeaponDamageNumDice > 0 {
		numDice = weapon.WeaponDamageNumDice
		dieType = weapon.WeaponDamageDieType
	}

	return AttackTotals{
		ToHit:       toHit,
		DamageBonus: damage,
		NumDice:     numDice,
		DieType:     dieType,
	}
}

// attackEffectBonuses sums contributions of every attack-kind effect whose
// owning item is in this attack's applied-effect list.
func attackEffectBonuses(c sheet.Character, atk sheet.Attack) (miscToHit, magicToHit, miscDamage, magicDamage int) {
	for _, id := range atk.AppliedEffectItemIDs {
		item, ok := c.ItemByID(id)
		if !ok {
			continue
		}
		for _, e := range item.Effects {
			if e.Kind != sheet.EffectAttack {
				continue
			}
			miscToHit += e.MiscToHit
			magicToHit += e.MagicToHit
			miscDamage += e.MiscDamage
			magicDamage += e.MagicDamage
		}
	}
	return miscToHit, magicToHit, miscDamage, magicDamage
}

// ResolveAttacks computes totals for every attack, keyed by attack ID.
func ResolveAttacks(c sheet.Character) map[string]AttackTotals {
	if len(c.Attacks) == 0 {
		return nil
	}
	totals := make(map[string]AttackTotals, len(c.Attacks))
	for _, atk := range c.Attacks {
		totals[atk.ID] = ResolveAttack(c, atk)
	}
	return totals
}
