package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/rwpulley/charkeep/internal/game/sheet"
)

func TestAbilityMod(t *testing.T) {
	tests := []struct {
		score int
		want  int
	}{
		{1, -4},
		{2, -3},
		{3, -3},
		{4, -2},
		{5, -2},
		{6, -1},
		{8, -1},
		{9, 0},
		{10, 0},
		{11, 0},
		{12, 1},
		{13, 1},
		{14, 2},
		{15, 2},
		{16, 3},
		{18, 4},
		{19, 4},
		{20, 5},
		{25, 7},
		{29, 9},
		{30, 10},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AbilityMod(tt.score), "score %d", tt.score)
	}
}

func TestAbilityModClampsOutOfRange(t *testing.T) {
	assert.Equal(t, -4, AbilityMod(0))
	assert.Equal(t, -4, AbilityMod(-17))
	assert.Equal(t, 10, AbilityMod(31))
	assert.Equal(t, 10, AbilityMod(1000))
}

func TestAbilityModMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(-10, 40).Draw(t, "a")
		b := rapid.IntRange(-10, 40).Draw(t, "b")
		if a <= b {
			assert.LessOrEqual(t, AbilityMod(a), AbilityMod(b))
		}
	})
}

func TestAttributeTotalDefaults(t *testing.T) {
	// No attribute record at all: rolled score defaults to 10.
	c := sheet.Character{}
	assert.Equal(t, 10, AttributeTotal(c, sheet.AbilityStr))
}

func TestAttributeTotalSumsAllSources(t *testing.T) {
	c := sheet.Normalize(sheet.Character{
		Attributes: map[string]sheet.Attribute{
			"str": {RolledScore: 15, BonusMod: 1},
		},
		RaceAttributeMods: []sheet.RaceAttributeMod{
			{Attr: "STR", Value: 2, Description: "dwarven vigor"},
			{Attr: "dex", Value: -1},
		},
		Inventory: []sheet.InventoryItem{
			{
				ID: "belt", Name: "Belt", Quantity: 2, HasAttrBonus: true,
				AttrBonuses: []sheet.AttrBonus{{Attr: "str", Value: 2}},
			},
			{
				ID: "ring", Name: "Ring", Quantity: 1, HasAttrBonus: true,
				AttrBonuses: []sheet.AttrBonus{{Attr: "str", Value: 3}},
			},
		},
		EquippedAttrBonuses: map[string][]string{"str": {"belt"}},
	})

	// 15 rolled + 1 manual + 2 race + 2x2 equipped belt; the ring is not equipped.
	assert.Equal(t, 22, AttributeTotal(c, sheet.AbilityStr))
	// Race penalty applies to dex on top of the default 10.
	assert.Equal(t, 9, AttributeTotal(c, sheet.AbilityDex))
}

func TestAttributeTotalIgnoresUnequippedAndMissingItems(t *testing.T) {
	c := sheet.Character{
		Attributes: map[string]sheet.Attribute{"con": {RolledScore: 12}},
		EquippedAttrBonuses: map[string][]string{
			"con": {"gone"},
		},
	}
	assert.Equal(t, 12, AttributeTotal(c, sheet.AbilityCon))
}
