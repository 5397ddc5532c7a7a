package derive

import "github.com/rwpulley/charkeep/internal/game/sheet"

// Encumbrance status tiers.
const (
	Unburdened   = "unburdened"
	Burdened     = "burdened"
	Overburdened = "overburdened"
)

// burdenedPenaltyCap caps the speed penalty while merely burdened;
// overburdened characters take the full penalty.
const burdenedPenaltyCap = 10

// minEncumberedSpeed is the floor for final speed once any burden applies.
const minEncumberedSpeed = 5

// Encumbrance holds the carried-load resolution: the capacity rating, the
// total carried EV, the three-tier status, and the resulting speed.
type Encumbrance struct {
	Rating       int    `json:"rating"`
	TotalEV      int    `json:"totalEv"`
	Status       string `json:"status"`
	SpeedPenalty int    `json:"speedPenalty"`
	FinalSpeed   int    `json:"finalSpeed"`
}

// ResolveEncumbrance computes the encumbrance rating, status, and speed.
//
// rating = STR total + 3 per prime flag on STR and CON. A non-positive
// rating always resolves to unburdened. Status boundaries are inclusive:
// totalEV <= rating is unburdened, totalEV <= 3*rating is burdened, and
// anything above is overburdened.
func ResolveEncumbrance(c sheet.Character) Encumbrance {
	rating := AttributeTotal(c, sheet.AbilityStr)
	if c.Attribute(sheet.AbilityStr).IsPrime {
		rating += 3
	}
	if c.Attribute(sheet.AbilityCon).IsPrime {
		rating += 3
	}

	totalEV := 0
	for _, item := range c.Inventory {
		totalEV += item.EV * item.Quantity
	}

	status := Unburdened
	if rating > 0 {
		switch {
		case totalEV <= rating:
			status = Unburdened
		case totalEV <= 3*rating:
			status = Burdened
		default:
			status = Overburdened
		}
	}

	pre := preEncumbranceSpeed(c)
	penalty := 0
	switch status {
	case Burdened:
		penalty = pre - minEncumberedSpeed
		if penalty < 0 {
			penalty = 0
		}
		if penalty > burdenedPenaltyCap {
			penalty = burdenedPenaltyCap
		}
	case Overburdened:
		penalty = pre - minEncumberedSpeed
		if penalty < 0 {
			penalty = 0
		}
	}

	final := pre
	if status != Unburdened {
		final = pre - penalty
		if final < minEncumberedSpeed {
			final = minEncumberedSpeed
		}
	}

	return Encumbrance{
		Rating:       rating,
		TotalEV:      totalEV,
		Status:       status,
		SpeedPenalty: penalty,
		FinalSpeed:   final,
	}
}

// preEncumbranceSpeed is base speed + manual bonus + one SpeedBonus per
// equipped speed item (not multiplied by quantity).
func preEncumbranceSpeed(c sheet.Character) int {
	speed := c.Speed + c.SpeedBonus
	for _, id := range c.EquippedSpeedItemIDs {
		if item, ok := c.ItemByID(id); ok {
			speed += item.SpeedBonus
		}
	}
	return speed
}
