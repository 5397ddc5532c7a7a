package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rwpulley/charkeep/internal/game/sheet"
)

// charWithRating builds a character whose encumbrance rating is exactly
// rating (STR rolled score, no primes) carrying a single stack of totalEV.
func charWithRating(rating, totalEV int) sheet.Character {
	return sheet.Character{
		Attributes: map[string]sheet.Attribute{
			"str": {RolledScore: rating},
		},
		Inventory: []sheet.InventoryItem{
			{ID: "sack", Name: "Sack", Quantity: 1, EV: totalEV},
		},
		Speed: 30,
	}
}

func TestEncumbranceStatusBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		totalEV int
		want    string
	}{
		{"at rating", 14, Unburdened},
		{"one over rating", 15, Burdened},
		{"at triple rating", 42, Burdened},
		{"over triple rating", 43, Overburdened},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := ResolveEncumbrance(charWithRating(14, tt.totalEV))
			assert.Equal(t, 14, enc.Rating)
			assert.Equal(t, tt.totalEV, enc.TotalEV)
			assert.Equal(t, tt.want, enc.Status)
		})
	}
}

func TestEncumbrancePrimeBonuses(t *testing.T) {
	c := sheet.Character{
		Attributes: map[string]sheet.Attribute{
			"str": {RolledScore: 14, IsPrime: true},
			"con": {RolledScore: 10, IsPrime: true},
		},
	}
	enc := ResolveEncumbrance(c)
	assert.Equal(t, 20, enc.Rating, "each prime flag adds 3")
}

func TestEncumbranceNonPositiveRatingAlwaysUnburdened(t *testing.T) {
	c := charWithRating(0, 500)
	enc := ResolveEncumbrance(c)
	assert.Equal(t, Unburdened, enc.Status)
	assert.Zero(t, enc.SpeedPenalty)
	assert.Equal(t, 30, enc.FinalSpeed)
}

func TestEncumbranceSpeedPenalty(t *testing.T) {
	tests := []struct {
		name        string
		totalEV     int
		speed       int
		wantPenalty int
		wantFinal   int
	}{
		{"unburdened keeps speed", 10, 30, 0, 30},
		{"burdened capped at 10", 20, 30, 10, 20},
		{"burdened slow walker", 20, 12, 7, 5},
		{"overburdened uncapped", 50, 30, 25, 5},
		{"overburdened floor at 5", 50, 8, 3, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := charWithRating(14, tt.totalEV)
			c.Speed = tt.speed
			enc := ResolveEncumbrance(c)
			assert.Equal(t, tt.wantPenalty, enc.SpeedPenalty)
			assert.Equal(t, tt.wantFinal, enc.FinalSpeed)
		})
	}
}

func TestEncumbranceSpeedItems(t *testing.T) {
	c := charWithRating(14, 10)
	c.Speed = 25
	c.SpeedBonus = 5
	c.Inventory = append(c.Inventory,
		sheet.InventoryItem{ID: "boots", Name: "Boots of Striding", Quantity: 2, SpeedBonus: 10},
	)
	c.EquippedSpeedItemIDs = []string{"boots"}

	enc := ResolveEncumbrance(c)
	// 25 + 5 + 10: per equipped item, not per quantity.
	assert.Equal(t, 40, enc.FinalSpeed)
}

func TestEncumbranceTotalEVMultipliesQuantity(t *testing.T) {
	c := sheet.Character{
		Attributes: map[string]sheet.Attribute{"str": {RolledScore: 14}},
		Inventory: []sheet.InventoryItem{
			{ID: "a", Quantity: 3, EV: 4},
			{ID: "b", Quantity: 1, EV: 2},
		},
	}
	enc := ResolveEncumbrance(c)
	assert.Equal(t, 14, enc.TotalEV)
	assert.Equal(t, Unburdened, enc.Status)
}
