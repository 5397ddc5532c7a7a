// Package sheet defines the character aggregate root and the pure reducers
// that mutate it. A Character is only ever replaced wholesale: every reducer
// deep-copies its input and returns a new value, so derived-stat resolvers
// never observe a half-updated record.
package sheet

// Ability score keys. All engine lookups use these lowercase keys;
// race modifier entries are matched case-insensitively.
const (
	AbilityStr = "str"
	AbilityDex = "dex"
	AbilityCon = "con"
	AbilityInt = "int"
	AbilityWis = "wis"
	AbilityCha = "cha"
)

// AbilityKeys returns the six ability keys in display order.
func AbilityKeys() []string {
	return []string{AbilityStr, AbilityDex, AbilityCon, AbilityInt, AbilityWis, AbilityCha}
}

// ValidAbility reports whether key is one of the six ability keys.
func ValidAbility(key string) bool {
	switch key {
	case AbilityStr, AbilityDex, AbilityCon, AbilityInt, AbilityWis, AbilityCha:
		return true
	}
	return false
}

// RaceModAC is the pseudo-attribute key a race modifier may target to
// contribute to armor class instead of an ability score.
const RaceModAC = "ac"

// DefaultGrimoireCapacity is the point budget a new grimoire receives when
// none is specified.
const DefaultGrimoireCapacity = 39

// Attribute holds the raw, user-entered state of one ability score.
type Attribute struct {
	// RolledScore is the base score before any modifiers.
	RolledScore int `json:"rolledScore"`
	// BonusMod is a manual adjustment applied on top of the rolled score.
	BonusMod int `json:"bonusMod"`
	// IsPrime marks this ability as a class prime attribute.
	IsPrime bool `json:"isPrime"`
	// SaveModifier is a manual adjustment to saves based on this ability.
	SaveModifier int `json:"saveModifier"`
}

// RaceAttributeMod is one racial modifier entry. Attr is an ability key or
// RaceModAC.
type RaceAttributeMod struct {
	Attr        string `json:"attr"`
	Value       int    `json:"value"`
	Description string `json:"description,omitempty"`
}

// AttrBonus is a single attribute bonus granted by an inventory item.
type AttrBonus struct {
	Attr  string `json:"attr"`
	Value int    `json:"value"`
}

// Effect kinds for ItemEffect.Kind.
const (
	EffectAttack = "attack"
	EffectAC     = "ac"
)

// ItemEffect is an effect attached to an inventory item. It contributes to
// derived values only while the owning item's ID is present in the relevant
// equipped-effect set (AC) or an attack's applied-effect list (attack).
type ItemEffect struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Kind        string `json:"kind"`
	MiscToHit   int    `json:"miscToHit"`
	MiscDamage  int    `json:"miscDamage"`
	MagicToHit  int    `json:"magicToHit"`
	MagicDamage int    `json:"magicDamage"`
	AC          int    `json:"ac"`
}

// InventoryItem is one owned item. All game content is user-entered; there
// is no item catalog.
type InventoryItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	// WeightPer is the per-unit weight in pounds, informational only.
	WeightPer float64 `json:"weightPer"`
	// EV is the per-unit encumbrance value used by the burden system.
	EV int `json:"ev"`

	ACBonus  int  `json:"acBonus"`
	IsArmor  bool `json:"isArmor"`
	IsShield bool `json:"isShield"`
	IsWeapon bool `json:"isWeapon"`

	HasAttrBonus bool        `json:"hasAttrBonus"`
	AttrBonuses  []AttrBonus `json:"attrBonuses,omitempty"`

	// Legacy single-bonus fields. Older documents carry one bonus here
	// instead of the AttrBonuses array; Normalize folds them in.
	AttrBonusAttr  string `json:"attrBonusAttr,omitempty"`
	AttrBonusValue int    `json:"attrBonusValue,omitempty"`

	WeaponToHitMagic    int `json:"weaponToHitMagic"`
	WeaponToHitMisc     int `json:"weaponToHitMisc"`
	WeaponDamageMagic   int `json:"weaponDamageMagic"`
	WeaponDamageMisc    int `json:"weaponDamageMisc"`
	WeaponDamageNumDice int `json:"weaponDamageNumDice"`
	WeaponDamageDieType int `json:"weaponDamageDieType"`

	// SpeedBonus is the per-item speed contribution while the item's ID is
	// in the equipped speed-item set. Not multiplied by quantity.
	SpeedBonus int `json:"speedBonus"`

	Effects []ItemEffect `json:"effects,omitempty"`
	Notes   string       `json:"notes,omitempty"`
}

// EffectByID returns the effect with the given ID and whether it exists.
func (i InventoryItem) EffectByID(effectID string) (ItemEffect, bool) {
	for _, e := range i.Effects {
		if e.ID == effectID {
			return e, true
		}
	}
	return ItemEffect{}, false
}

// Weapon modes for Attack.WeaponMode. Any other string is treated as a
// manual attack: no automatic ability-modifier substitution.
const (
	WeaponModeMelee  = "melee"
	WeaponModeRanged = "ranged"
)

// Attack is one attack line on the sheet. WeaponID optionally binds the
// attack to an inventory item; dangling bindings are purged when the item
// is removed.
type Attack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	WeaponID   string `json:"weaponId,omitempty"`
	WeaponMode string `json:"weaponMode"`

	NumDice int `json:"numDice"`
	DieType int `json:"dieType"`

	// AttrMod is the stored ability modifier. When AutoMods is on it is
	// treated as an extra on top of the computed STR/DEX modifier.
	AttrMod  int `json:"attrMod"`
	BthBonus int `json:"bthBonus"`
	Magic    int `json:"magic"`
	Misc     int `json:"misc"`

	DamageMod   int `json:"damageMod"`
	DamageMagic int `json:"damageMagic"`
	DamageMisc  int `json:"damageMisc"`

	// AppliedEffectItemIDs selects which attack-effect items apply to this
	// attack. This is attack-level selection, distinct from the equipped
	// AC-effect set.
	AppliedEffectItemIDs []string `json:"appliedEffectItemIds,omitempty"`

	AutoMods bool `json:"autoMods"`
}

// Spell is one learned spell. Grimoire entries reference spells by ID;
// magic-item charges carry the spell name directly.
type Spell struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Level   int    `json:"level"`
	NumDice int    `json:"numDice"`
	DieType int    `json:"dieType"`
	Notes   string `json:"notes,omitempty"`
}

// GrimoireEntry is one scribed spell in a grimoire. Permanent entries are
// castable once per day; consumable entries are removed on cast.
type GrimoireEntry struct {
	InstanceID string `json:"instanceId"`
	SpellID    string `json:"spellId"`
	Permanent  bool   `json:"permanent"`
	UsedToday  bool   `json:"usedToday"`
	NumDice    int    `json:"numDice"`
}

// Grimoire is a capacity-limited spellbook with a shared point budget.
// ItemID optionally links the grimoire to the physical book in inventory;
// removing that item removes the grimoire.
type Grimoire struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	ItemID   string          `json:"itemId,omitempty"`
	Capacity int             `json:"capacity"`
	Entries  []GrimoireEntry `json:"entries,omitempty"`
}

// MagicItemSpell is one stored charge in a magic item.
type MagicItemSpell struct {
	Spell     string `json:"spell"`
	Permanent bool   `json:"permanent"`
	UsedToday bool   `json:"usedToday"`
	NumDice   int    `json:"numDice"`
}

// MagicItem is a charge-bearing magic item with a bounded number of stored
// spell entries. ItemID optionally links it to the inventory item.
type MagicItem struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	ItemID   string           `json:"itemId,omitempty"`
	Capacity int              `json:"capacity"`
	Spells   []MagicItemSpell `json:"spells,omitempty"`
}

// EquippedEffects tracks which items' attached effects are currently worn,
// split by effect kind.
type EquippedEffects struct {
	Attack []string `json:"attack,omitempty"`
	AC     []string `json:"ac,omitempty"`
}

// Character is the aggregate root. It is exclusively owned by the
// application and mutated only by whole-record replacement.
type Character struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Race string `json:"race,omitempty"`

	Class1      string `json:"class1,omitempty"`
	Class2      string `json:"class2,omitempty"`
	Class1Level int    `json:"class1Level"`
	Class2Level int    `json:"class2Level"`

	Attributes        map[string]Attribute `json:"attributes,omitempty"`
	RaceAttributeMods []RaceAttributeMod   `json:"raceAttributeMods,omitempty"`

	Inventory []InventoryItem `json:"inventory,omitempty"`

	EquippedAttrBonuses   map[string][]string `json:"equippedAttrBonuses,omitempty"`
	EquippedArmorIDs      []string            `json:"equippedArmorIds,omitempty"`
	EquippedShieldID      string              `json:"equippedShieldId,omitempty"`
	EquippedSpeedItemIDs  []string            `json:"equippedSpeedItemIds,omitempty"`
	EquippedEffectItemIDs EquippedEffects     `json:"equippedEffectItemIds"`

	ACBase    int  `json:"acBase"`
	ACMod     int  `json:"acMod"`
	ACModAuto bool `json:"acModAuto"`
	ACMagic   int  `json:"acMagic"`
	ACMisc    int  `json:"acMisc"`
	ACBonus   int  `json:"acBonus"`

	Speed      int `json:"speed"`
	SpeedBonus int `json:"speedBonus"`

	HPByLevel []int `json:"hpByLevel,omitempty"`
	HPBonus   int   `json:"hpBonus"`
	HP        int   `json:"hp"`

	XPTable   []int `json:"xpTable,omitempty"`
	CurrentXP int   `json:"currentXp"`

	BaseBTH        int `json:"baseBth"`
	AttackBonus    int `json:"attackBonus"`
	DamageBonus    int `json:"damageBonus"`
	SaveBonus      int `json:"saveBonus"`
	PrimeSaveBonus int `json:"primeSaveBonus"`

	Attacks    []Attack    `json:"attacks,omitempty"`
	Spells     []Spell     `json:"spells,omitempty"`
	Grimoires  []Grimoire  `json:"grimoires,omitempty"`
	MagicItems []MagicItem `json:"magicItems,omitempty"`

	Wallet Wallet `json:"wallet"`

	Notes string `json:"notes,omitempty"`
}

// MaxHP returns the computed hit point maximum: sum of per-level rolls plus
// the flat bonus. Never negative.
func (c Character) MaxHP() int {
	total := c.HPBonus
	for _, hp := range c.HPByLevel {
		total += hp
	}
	if total < 0 {
		return 0
	}
	return total
}

// ItemByID returns the inventory item with the given ID and whether it exists.
func (c Character) ItemByID(itemID string) (InventoryItem, bool) {
	for _, it := range c.Inventory {
		if it.ID == itemID {
			return it, true
		}
	}
	return InventoryItem{}, false
}

// SpellByID returns the learned spell with the given ID and whether it exists.
func (c Character) SpellByID(spellID string) (Spell, bool) {
	for _, s := range c.Spells {
		if s.ID == spellID {
			return s, true
		}
	}
	return Spell{}, false
}

// AttackByID returns the attack with the given ID and whether it exists.
func (c Character) AttackByID(attackID string) (Attack, bool) {
	for _, a := range c.Attacks {
		if a.ID == attackID {
			return a, true
		}
	}
	return Attack{}, false
}

// GrimoireByID returns the grimoire with the given ID and whether it exists.
func (c Character) GrimoireByID(grimoireID string) (Grimoire, bool) {
	for _, g := range c.Grimoires {
		if g.ID == grimoireID {
			return g, true
		}
	}
	return Grimoire{}, false
}

// MagicItemByID returns the magic item with the given ID and whether it exists.
func (c Character) MagicItemByID(magicItemID string) (MagicItem, bool) {
	for _, m := range c.MagicItems {
		if m.ID == magicItemID {
			return m, true
		}
	}
	return MagicItem{}, false
}

// Attribute returns the attribute record for key, or a zero-value record
// with the default rolled score of 10 when the key is absent.
func (c Character) Attribute(key string) Attribute {
	if a, ok := c.Attributes[key]; ok {
		return a
	}
	return Attribute{RolledScore: 10}
}
