package derive

import "github.com/rwpulley/charkeep/internal/game/sheet"

// Snapshot is one consistent view of every derived value, produced by a
// single recomputation pass over an unchanged Character.
type Snapshot struct {
	AttributeTotals map[string]int          `json:"attributeTotals"`
	AC              int                     `json:"ac"`
	Encumbrance     Encumbrance             `json:"encumbrance"`
	LevelInfo       LevelInfo               `json:"levelInfo"`
	PerAttackTotals map[string]AttackTotals `json:"perAttackTotals,omitempty"`
	MaxHP           int                     `json:"maxHp"`
}

// Adjustment is a flat set of house-rule deltas applied on top of a
// computed Snapshot.
type Adjustment struct {
	AC     int
	ToHit  int
	Damage int
	Speed  int
}

// AdjustFunc lets a house-rule hook contribute flat adjustments to a
// snapshot. It must be deterministic.
type AdjustFunc func(c sheet.Character, snap Snapshot) Adjustment

// Engine runs the resolvers in dependency order and memoizes each by a
// fingerprint of the exact record slice it depends on. The memo is purely
// an optimization; a fresh Engine produces identical snapshots.
//
// Engine is not safe for concurrent use: the record has a single logical
// writer and recomputation happens on the same goroutine as the mutation.
type Engine struct {
	adjust AdjustFunc

	attrs       memo[map[string]int]
	enc         memo[Encumbrance]
	ac          memo[int]
	attacks     memo[map[string]AttackTotals]
	progression memo[LevelInfo]
}

// Option configures an Engine.
type Option func(*Engine)

// WithAdjustment installs a house-rule adjustment hook.
func WithAdjustment(fn AdjustFunc) Option {
	return func(e *Engine) { e.adjust = fn }
}

// NewEngine creates an Engine with empty memos.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot recomputes every derived value for c.
//
// Postcondition: calling Snapshot twice with an unchanged Character returns
// identical results.
func (e *Engine) Snapshot(c sheet.Character) Snapshot {
	attrs := e.attrs.resolve(
		fingerprint(c.Attributes, c.RaceAttributeMods, c.EquippedAttrBonuses, c.Inventory),
		func() map[string]int { return AttributeTotals(c) },
	)
	enc := e.enc.resolve(
		fingerprint(c.Attributes, c.RaceAttributeMods, c.EquippedAttrBonuses, c.Inventory,
			c.EquippedSpeedItemIDs, c.Speed, c.SpeedBonus),
		func() Encumbrance { return ResolveEncumbrance(c) },
	)
	ac := e.ac.resolve(
		fingerprint(c.Attributes, c.RaceAttributeMods, c.EquippedAttrBonuses, c.Inventory,
			c.EquippedArmorIDs, c.EquippedShieldID, c.EquippedEffectItemIDs,
			c.EquippedSpeedItemIDs, c.Speed, c.SpeedBonus,
			c.ACBase, c.ACMod, c.ACModAuto, c.ACMagic, c.ACMisc, c.ACBonus),
		func() int { return ArmorClass(c, enc) },
	)
	attacks := e.attacks.resolve(
		fingerprint(c.Attributes, c.RaceAttributeMods, c.EquippedAttrBonuses, c.Inventory,
			c.Attacks, c.BaseBTH, c.AttackBonus, c.DamageBonus),
		func() map[string]AttackTotals { return ResolveAttacks(c) },
	)
	level := e.progression.resolve(
		fingerprint(c.XPTable, c.CurrentXP),
		func() LevelInfo { return ResolveProgression(c) },
	)

	snap := Snapshot{
		AttributeTotals: attrs,
		AC:              ac,
		Encumbrance:     enc,
		LevelInfo:       level,
		PerAttackTotals: attacks,
		MaxHP:           c.MaxHP(),
	}

	if e.adjust != nil {
		snap = applyAdjustment(snap, e.adjust(c, snap))
	}
	return snap
}

func applyAdjustment(snap Snapshot, adj Adjustment) Snapshot {
	snap.AC += adj.AC
	if adj.Speed != 0 {
		snap.Encumbrance.FinalSpeed += adj.Speed
		if snap.Encumbrance.FinalSpeed < 0 {
			snap.Encumbrance.FinalSpeed = 0
		}
	}
	if adj.ToHit != 0 || adj.Damage != 0 {
		adjusted := make(map[string]AttackTotals, len(snap.PerAttackTotals))
		for id, totals := range snap.PerAttackTotals {
			totals.ToHit += adj.ToHit
			totals.DamageBonus += adj.Damage
			adjusted[id] = totals
		}
		snap.PerAttackTotals = adjusted
	}
	return snap
}
