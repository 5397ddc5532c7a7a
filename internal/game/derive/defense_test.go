package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rwpulley/charkeep/internal/game/sheet"
)

func defenseFixture() sheet.Character {
	return sheet.Normalize(sheet.Character{
		ACBase:    10,
		ACModAuto: true,
		Attributes: map[string]sheet.Attribute{
			"dex": {RolledScore: 14},
		},
		Inventory: []sheet.InventoryItem{
			{ID: "mail", Name: "Chain Mail", Quantity: 1, IsArmor: true, ACBonus: 4},
			{ID: "shield", Name: "Shield", Quantity: 1, IsShield: true, ACBonus: 2},
		},
		EquippedArmorIDs: []string{"mail"},
		EquippedShieldID: "shield",
	})
}

func TestArmorClassBaseline(t *testing.T) {
	c := defenseFixture()
	enc := ResolveEncumbrance(c)

	// 10 base + 4 armor + 2 shield + 2 dex (DEX 14).
	assert.Equal(t, 18, ArmorClass(c, enc))
}

func TestArmorClassOverburdenedZeroesDexTerm(t *testing.T) {
	c := defenseFixture()
	assert.Equal(t, 16, ArmorClass(c, Encumbrance{Status: Overburdened}))
}

func TestArmorClassBurdenedKeepsDexTerm(t *testing.T) {
	// Only overburdened suppresses the dex term; burdened does not.
	c := defenseFixture()
	assert.Equal(t, 18, ArmorClass(c, Encumbrance{Status: Burdened}))
}

func TestArmorClassManualDexTerm(t *testing.T) {
	c := defenseFixture()
	c.ACModAuto = false
	c.ACMod = 7

	// Manual acMod is used verbatim, even while overburdened.
	assert.Equal(t, 23, ArmorClass(c, Encumbrance{Status: Overburdened}))
}

func TestArmorClassUnequippedArmorDoesNotCount(t *testing.T) {
	c := defenseFixture()
	c.EquippedArmorIDs = nil
	c.EquippedShieldID = ""
	enc := ResolveEncumbrance(c)

	assert.Equal(t, 12, ArmorClass(c, enc))
}

func TestArmorClassRaceAndManualBonuses(t *testing.T) {
	c := defenseFixture()
	c.RaceAttributeMods = []sheet.RaceAttributeMod{
		{Attr: "AC", Value: 1, Description: "small stature"},
		{Attr: "str", Value: 2},
	}
	c.ACMagic = 1
	c.ACMisc = 2
	c.ACBonus = 3
	enc := ResolveEncumbrance(c)

	// 18 baseline + 1 race AC + 1 magic + 2 misc + 3 bonus; the STR race
	// mod never touches AC.
	assert.Equal(t, 25, ArmorClass(c, enc))
}

func TestArmorClassEquippedACEffects(t *testing.T) {
	c := defenseFixture()
	c.Inventory = append(c.Inventory, sheet.InventoryItem{
		ID: "cloak", Name: "Cloak of Protection", Quantity: 1,
		Effects: []sheet.ItemEffect{
			{ID: "e1", Kind: sheet.EffectAC, AC: 2},
			{ID: "e2", Kind: sheet.EffectAttack, MagicToHit: 1}, // wrong kind, ignored
		},
	})
	c.EquippedEffectItemIDs.AC = []string{"cloak"}
	enc := ResolveEncumbrance(c)

	assert.Equal(t, 20, ArmorClass(c, enc))
}
