package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwpulley/charkeep/internal/frontend/telnet"
	"github.com/rwpulley/charkeep/internal/game/derive"
	"github.com/rwpulley/charkeep/internal/game/dice"
	"github.com/rwpulley/charkeep/internal/game/sheet"
	"github.com/rwpulley/charkeep/internal/game/spellcraft"
)

func renderFixture(t *testing.T) sheet.Character {
	t.Helper()
	c := sheet.New("Bryn")
	var err error
	c, err = sheet.SetAttribute(c, sheet.AbilityStr, sheet.Attribute{RolledScore: 16, IsPrime: true})
	require.NoError(t, err)
	c = sheet.SetXPTable(c, []int{0, 2000, 4000})
	c = sheet.SetXP(c, 1000)
	c = sheet.SetHPByLevel(c, []int{8})
	c = sheet.SetHP(c, 5)
	c.ACBase = 10
	return c
}

func TestRenderSheet(t *testing.T) {
	c := renderFixture(t)
	snap := derive.NewEngine().Snapshot(c)

	out := telnet.StripANSI(RenderSheet(c, snap))
	assert.Contains(t, out, "=== Bryn ===")
	assert.Contains(t, out, "Level 1   XP 1000 (next at 2000)")
	assert.Contains(t, out, "HP 5/8")
}

func TestRenderStats(t *testing.T) {
	c := renderFixture(t)
	snap := derive.NewEngine().Snapshot(c)

	out := telnet.StripANSI(RenderStats(c, snap))
	assert.Contains(t, out, "STR *  16  mod +2")
	assert.Contains(t, out, "DEX    10  mod +0")
	assert.Contains(t, out, "unburdened")
}

func TestRenderInventory(t *testing.T) {
	c := renderFixture(t)
	c = sheet.AddItem(c, sheet.InventoryItem{ID: "mail", Name: "Chain mail", Quantity: 1, EV: 4, IsArmor: true, ACBonus: 4})
	var err error
	c, err = sheet.EquipArmor(c, "mail")
	require.NoError(t, err)
	enc := derive.ResolveEncumbrance(c)

	out := telnet.StripANSI(RenderInventory(c, enc))
	assert.Contains(t, out, "Chain mail [armor, worn]  EV 4")
	assert.Contains(t, out, "EV 4 / rating")
}

func TestRenderInventoryEmpty(t *testing.T) {
	c := sheet.New("Bryn")
	out := telnet.StripANSI(RenderInventory(c, derive.ResolveEncumbrance(c)))
	assert.Contains(t, out, "Nothing carried")
}

func TestRenderAttacks(t *testing.T) {
	c := renderFixture(t)
	c = sheet.AddAttack(c, sheet.Attack{ID: "a1", Name: "Longsword", WeaponMode: sheet.WeaponModeMelee, NumDice: 1, DieType: 8})
	snap := derive.NewEngine().Snapshot(c)

	out := telnet.StripANSI(RenderAttacks(c, snap))
	assert.Contains(t, out, "Longsword")
	assert.Contains(t, out, "melee")
	assert.Contains(t, out, "to-hit +2") // STR 16 under auto mods
	assert.Contains(t, out, "1d8+2")
}

func TestRenderSpellsAndGrimoires(t *testing.T) {
	c := renderFixture(t)
	c = sheet.AddSpell(c, sheet.Spell{ID: "s1", Name: "Fireball", Level: 5})
	c = spellcraft.AddGrimoire(c, "Tome")
	var err error
	c, err = spellcraft.AddSpellToGrimoire(c, c.Grimoires[0].ID, "s1", false)
	require.NoError(t, err)

	spells := telnet.StripANSI(RenderSpells(c))
	assert.Contains(t, spells, "Fireball")
	assert.Contains(t, spells, "level 5  cost 5")

	grims := telnet.StripANSI(RenderGrimoires(c))
	assert.Contains(t, grims, "Tome (5/39 points)")
	assert.Contains(t, grims, "consumable")
	assert.Contains(t, grims, "Permanent: 0/1")
}

func TestRenderGrimoiresEmpty(t *testing.T) {
	out := telnet.StripANSI(RenderGrimoires(sheet.New("Bryn")))
	assert.Contains(t, out, "No grimoires or magic items")
}

func TestRenderLevel(t *testing.T) {
	c := renderFixture(t)
	info := derive.ResolveProgression(c)

	out := telnet.StripANSI(RenderLevel(c, info))
	assert.Contains(t, out, "Level 1")
	assert.Contains(t, out, "XP 1000, next level at 2000")
	assert.Contains(t, out, "50%")
}

func TestRenderRolls(t *testing.T) {
	results := []dice.RollResult{
		{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3},
	}
	out := RenderRolls(results)
	assert.Contains(t, out, "2d6+3")
	assert.Contains(t, out, "= 12")

	empty := telnet.StripANSI(RenderRolls(nil))
	assert.Contains(t, empty, "No rolls yet")
}
