package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalizeFillsDefaultAttributes(t *testing.T) {
	c := Normalize(Character{Name: "Bryn"})

	require.Len(t, c.Attributes, 6)
	for _, key := range AbilityKeys() {
		assert.Equal(t, 10, c.Attributes[key].RolledScore, key)
	}
}

func TestNormalizeLowercasesAttributeKeys(t *testing.T) {
	c := Normalize(Character{
		Attributes: map[string]Attribute{
			"STR": {RolledScore: 17},
			"Dex": {RolledScore: 14},
		},
	})

	assert.Equal(t, 17, c.Attributes["str"].RolledScore)
	assert.Equal(t, 14, c.Attributes["dex"].RolledScore)
}

func TestNormalizeFoldsLegacyAttrBonus(t *testing.T) {
	c := Normalize(Character{
		Inventory: []InventoryItem{{
			ID:             "belt",
			Name:           "Belt of Ogre Power",
			Quantity:       1,
			AttrBonusAttr:  "STR",
			AttrBonusValue: 4,
		}},
	})

	require.Len(t, c.Inventory, 1)
	item := c.Inventory[0]
	assert.True(t, item.HasAttrBonus)
	require.Len(t, item.AttrBonuses, 1)
	assert.Equal(t, AttrBonus{Attr: "str", Value: 4}, item.AttrBonuses[0])
	assert.Empty(t, item.AttrBonusAttr)
	assert.Zero(t, item.AttrBonusValue)
}

func TestNormalizeDropsZeroQuantityItemsAndPurgesRefs(t *testing.T) {
	c := Normalize(Character{
		Inventory: []InventoryItem{
			{ID: "sword", Name: "Sword", Quantity: 0, IsWeapon: true},
			{ID: "ring", Name: "Ring", Quantity: 1},
		},
		EquippedAttrBonuses:  map[string][]string{"str": {"sword"}},
		EquippedArmorIDs:     []string{"sword"},
		EquippedShieldID:     "sword",
		EquippedSpeedItemIDs: []string{"sword", "ring"},
		EquippedEffectItemIDs: EquippedEffects{
			Attack: []string{"sword"},
			AC:     []string{"sword"},
		},
		Attacks: []Attack{{
			ID:                   "a1",
			WeaponID:             "sword",
			AppliedEffectItemIDs: []string{"sword", "ring"},
		}},
		MagicItems: []MagicItem{
			{ID: "m1", ItemID: "sword", Capacity: 5},
			{ID: "m2", Capacity: 5},
		},
		Grimoires: []Grimoire{
			{ID: "g1", ItemID: "sword", Capacity: 39},
		},
	})

	require.Len(t, c.Inventory, 1)
	assert.Empty(t, c.EquippedAttrBonuses)
	assert.Empty(t, c.EquippedArmorIDs)
	assert.Empty(t, c.EquippedShieldID)
	assert.Equal(t, []string{"ring"}, c.EquippedSpeedItemIDs)
	assert.Empty(t, c.EquippedEffectItemIDs.Attack)
	assert.Empty(t, c.EquippedEffectItemIDs.AC)

	require.Len(t, c.Attacks, 1)
	assert.Empty(t, c.Attacks[0].WeaponID)
	assert.Equal(t, []string{"ring"}, c.Attacks[0].AppliedEffectItemIDs)

	require.Len(t, c.MagicItems, 1)
	assert.Equal(t, "m2", c.MagicItems[0].ID)
	assert.Empty(t, c.Grimoires)
}

func TestNormalizePurgesGrimoireEntriesForForgottenSpells(t *testing.T) {
	c := Normalize(Character{
		Spells: []Spell{{ID: "s1", Name: "Light", Level: 0}},
		Grimoires: []Grimoire{{
			ID:       "g1",
			Capacity: 39,
			Entries: []GrimoireEntry{
				{InstanceID: "e1", SpellID: "s1"},
				{InstanceID: "e2", SpellID: "gone"},
			},
		}},
	})

	require.Len(t, c.Grimoires, 1)
	require.Len(t, c.Grimoires[0].Entries, 1)
	assert.Equal(t, "s1", c.Grimoires[0].Entries[0].SpellID)
}

func TestNormalizeDefaultsGrimoireCapacity(t *testing.T) {
	c := Normalize(Character{Grimoires: []Grimoire{{ID: "g1"}}})
	require.Len(t, c.Grimoires, 1)
	assert.Equal(t, DefaultGrimoireCapacity, c.Grimoires[0].Capacity)
}

func TestNormalizeClampsHP(t *testing.T) {
	c := Normalize(Character{HPByLevel: []int{8, 6}, HPBonus: 2, HP: 99})
	assert.Equal(t, 16, c.HP)

	c = Normalize(Character{HPByLevel: []int{8}, HP: -3})
	assert.Equal(t, 0, c.HP)
}

func TestFixXPTable(t *testing.T) {
	tests := []struct {
		name  string
		table []int
		want  []int
	}{
		{"empty", nil, nil},
		{"already increasing", []int{0, 100, 200}, []int{0, 100, 200}},
		{"duplicate bumped", []int{0, 100, 100, 300}, []int{0, 100, 101, 300}},
		{"decreasing run bumped", []int{0, 500, 200, 201}, []int{0, 500, 501, 502}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FixXPTable(tt.table))
		})
	}
}

func TestFixXPTableAlwaysStrictlyIncreasing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		table := rapid.SliceOfN(rapid.IntRange(-1000, 1000000), 1, 25).Draw(t, "table")
		fixed := FixXPTable(table)
		require.Len(t, fixed, len(table))
		for i := 1; i < len(fixed); i++ {
			require.Greater(t, fixed[i], fixed[i-1])
		}
	})
}

func TestNormalizeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := genCharacter().Draw(t, "character")
		once := Normalize(c)
		twice := Normalize(once)
		require.Equal(t, once, twice)
	})
}

// genCharacter generates loosely-structured Characters, including dangling
// references and legacy fields, to exercise normalization.
func genCharacter() *rapid.Generator[Character] {
	return rapid.Custom(func(t *rapid.T) Character {
		itemIDs := rapid.SliceOfN(rapid.StringMatching(`item-[a-f0-9]{4}`), 0, 5).Draw(t, "itemIDs")
		items := make([]InventoryItem, len(itemIDs))
		for i, id := range itemIDs {
			items[i] = InventoryItem{
				ID:             id,
				Name:           id,
				Quantity:       rapid.IntRange(0, 3).Draw(t, "qty"),
				EV:             rapid.IntRange(0, 10).Draw(t, "ev"),
				AttrBonusAttr:  rapid.SampledFrom([]string{"", "STR", "dex"}).Draw(t, "legacyAttr"),
				AttrBonusValue: rapid.IntRange(-2, 4).Draw(t, "legacyVal"),
			}
		}

		ref := rapid.SampledFrom(append(append([]string(nil), itemIDs...), "dangling"))
		var equippedArmor []string
		if len(itemIDs) > 0 && rapid.Bool().Draw(t, "hasArmor") {
			equippedArmor = []string{ref.Draw(t, "armorRef")}
		}

		return Character{
			ID:        "char-1",
			Name:      "Prop",
			Inventory: items,
			Attributes: map[string]Attribute{
				"STR": {RolledScore: rapid.IntRange(1, 20).Draw(t, "str")},
			},
			EquippedArmorIDs: equippedArmor,
			XPTable:          rapid.SliceOfN(rapid.IntRange(0, 100000), 0, 25).Draw(t, "xp"),
			HPByLevel:        rapid.SliceOfN(rapid.IntRange(1, 10), 0, 5).Draw(t, "hp"),
			HP:               rapid.IntRange(-5, 60).Draw(t, "curHP"),
			CurrentXP:        rapid.IntRange(-10, 100000).Draw(t, "curXP"),
		}
	})
}
