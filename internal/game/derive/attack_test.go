package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwpulley/charkeep/internal/game/sheet"
)

func combatFixture() sheet.Character {
	return sheet.Normalize(sheet.Character{
		BaseBTH: 3,
		Attributes: map[string]sheet.Attribute{
			"str": {RolledScore: 18}, // +4
			"dex": {RolledScore: 14}, // +2
		},
		Inventory: []sheet.InventoryItem{
			{
				ID: "longsword", Name: "Longsword +1", Quantity: 1, IsWeapon: true,
				WeaponToHitMagic: 1, WeaponDamageMagic: 1,
				WeaponDamageNumDice: 1, WeaponDamageDieType: 8,
			},
			{
				ID: "bracers", Name: "Bracers of Striking", Quantity: 1,
				Effects: []sheet.ItemEffect{
					{ID: "fx", Kind: sheet.EffectAttack, MiscToHit: 1, MagicDamage: 2},
				},
			},
		},
	})
}

func TestResolveAttackMeleeAutoMods(t *testing.T) {
	c := combatFixture()
	totals := ResolveAttack(c, sheet.Attack{
		ID: "a1", WeaponID: "longsword", WeaponMode: sheet.WeaponModeMelee, AutoMods: true,
	})

	// To hit: 3 BTH + 4 STR + 1 weapon magic.
	assert.Equal(t, 8, totals.ToHit)
	// Damage: 4 STR + 1 weapon magic.
	assert.Equal(t, 5, totals.DamageBonus)
	// Dice fall back to the bound weapon.
	assert.Equal(t, 1, totals.NumDice)
	assert.Equal(t, 8, totals.DieType)
}

func TestResolveAttackAttrModBecomesExtraUnderAutoMods(t *testing.T) {
	c := combatFixture()
	totals := ResolveAttack(c, sheet.Attack{
		ID: "a1", WeaponMode: sheet.WeaponModeMelee, AutoMods: true, AttrMod: 2,
	})

	// 3 BTH + (4 STR + 2 extra).
	assert.Equal(t, 9, totals.ToHit)
}

func TestResolveAttackRangedUsesDexAndManualDamage(t *testing.T) {
	c := combatFixture()
	totals := ResolveAttack(c, sheet.Attack{
		ID: "a1", WeaponMode: sheet.WeaponModeRanged, AutoMods: true, DamageMod: 1,
	})

	// To hit: 3 BTH + 2 DEX.
	assert.Equal(t, 5, totals.ToHit)
	// Ranged damage stays manual: no STR.
	assert.Equal(t, 1, totals.DamageBonus)
}

func TestResolveAttackManualMode(t *testing.T) {
	c := combatFixture()
	totals := ResolveAttack(c, sheet.Attack{
		ID: "a1", WeaponMode: "breath", AutoMods: true, AttrMod: 3,
	})

	// Unknown mode: stored attrMod used as-is, no ability substitution.
	assert.Equal(t, 6, totals.ToHit)
	assert.Zero(t, totals.DamageBonus)
}

func TestResolveAttackAppliedEffects(t *testing.T) {
	c := combatFixture()
	totals := ResolveAttack(c, sheet.Attack{
		ID: "a1", WeaponMode: sheet.WeaponModeMelee, AutoMods: true,
		AppliedEffectItemIDs: []string{"bracers"},
	})

	// 3 BTH + 4 STR + 1 effect misc to-hit.
	assert.Equal(t, 8, totals.ToHit)
	// 4 STR + 2 effect magic damage.
	assert.Equal(t, 6, totals.DamageBonus)
}

func TestResolveAttackEffectsAreAttackLevel(t *testing.T) {
	c := combatFixture()
	// Worn AC-effect set must not leak into attack resolution.
	c.EquippedEffectItemIDs.Attack = []string{"bracers"}
	totals := ResolveAttack(c, sheet.Attack{
		ID: "a1", WeaponMode: sheet.WeaponModeMelee, AutoMods: true,
	})

	assert.Equal(t, 7, totals.ToHit, "effect applies only via the attack's own list")
}

func TestResolveAttackGlobalBonuses(t *testing.T) {
	c := combatFixture()
	c.AttackBonus = 2
	c.DamageBonus = 1
	totals := ResolveAttack(c, sheet.Attack{
		ID: "a1", WeaponMode: sheet.WeaponModeMelee, AutoMods: true,
		Magic: 1, Misc: 1, BthBonus: 1, DamageMagic: 1, DamageMisc: 1,
	})

	// 3 BTH + 1 bth bonus + 4 STR + 1 magic + 1 misc + 2 global.
	assert.Equal(t, 12, totals.ToHit)
	// 4 STR + 1 magic + 1 misc + 1 global.
	assert.Equal(t, 7, totals.DamageBonus)
}

func TestResolveAttacksKeyedByID(t *testing.T) {
	c := combatFixture()
	c.Attacks = []sheet.Attack{
		{ID: "a1", WeaponMode: sheet.WeaponModeMelee, AutoMods: true},
		{ID: "a2", WeaponMode: sheet.WeaponModeRanged, AutoMods: true},
	}

	totals := ResolveAttacks(c)
	require.Len(t, totals, 2)
	assert.Equal(t, 7, totals["a1"].ToHit)
	assert.Equal(t, 5, totals["a2"].ToHit)
}
