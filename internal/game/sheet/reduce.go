package sheet

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for reducer rejections. Every rejection leaves the input
// Character unchanged.
var (
	ErrItemNotFound   = errors.New("item not found")
	ErrAttackNotFound = errors.New("attack not found")
	ErrSpellNotFound  = errors.New("spell not found")
	ErrUnknownAbility = errors.New("unknown ability")
	ErrNotArmor       = errors.New("item is not armor")
	ErrNotShield      = errors.New("item is not a shield")
)

// New creates a blank Character with the given name, the six attributes at
// the default rolled score, and a fresh ID.
//
// Postcondition: the returned Character is normalized.
func New(name string) Character {
	return Normalize(Character{
		ID:        uuid.New().String(),
		Name:      name,
		ACModAuto: true,
	})
}

// AddItem appends item to the inventory, assigning an ID when absent and
// defaulting quantity to 1.
func AddItem(c Character, item InventoryItem) Character {
	out := c.Clone()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	out.Inventory = append(out.Inventory, item)
	return Normalize(out)
}

// UpdateItem replaces the inventory item with item.ID. Setting quantity to
// zero or below removes the item with full cascade purge.
func UpdateItem(c Character, item InventoryItem) (Character, error) {
	if _, ok := c.ItemByID(item.ID); !ok {
		return c, fmt.Errorf("%w: %q", ErrItemNotFound, item.ID)
	}
	if item.Quantity <= 0 {
		return RemoveItem(c, item.ID)
	}
	out := c.Clone()
	for i := range out.Inventory {
		if out.Inventory[i].ID == item.ID {
			out.Inventory[i] = item
			break
		}
	}
	return Normalize(out), nil
}

// RemoveItem deletes the item and cascade-purges its ID from every equipped
// set, attack binding, effect selection, and linked grimoire or magic item.
func RemoveItem(c Character, itemID string) (Character, error) {
	if _, ok := c.ItemByID(itemID); !ok {
		return c, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	out := c.Clone()
	items := out.Inventory[:0]
	for _, it := range out.Inventory {
		if it.ID != itemID {
			items = append(items, it)
		}
	}
	out.Inventory = items
	// Normalize purges every dangling reference to the removed ID.
	return Normalize(out), nil
}

// EquipAttrBonus marks itemID's attribute bonus for key as worn.
//
// Precondition: the item must exist and carry an attribute bonus.
func EquipAttrBonus(c Character, key, itemID string) (Character, error) {
	if !ValidAbility(key) {
		return c, fmt.Errorf("%w: %q", ErrUnknownAbility, key)
	}
	item, ok := c.ItemByID(itemID)
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	if !item.HasAttrBonus {
		return c, fmt.Errorf("item %q has no attribute bonus", item.Name)
	}
	out := c.Clone()
	if out.EquippedAttrBonuses == nil {
		out.EquippedAttrBonuses = make(map[string][]string)
	}
	out.EquippedAttrBonuses[key] = addID(out.EquippedAttrBonuses[key], itemID)
	return out, nil
}

// UnequipAttrBonus removes itemID from the equipped attribute-bonus set for
// key. A key with nothing equipped is a no-op; Normalize keeps the map nil
// in that state, so never write through an absent key.
func UnequipAttrBonus(c Character, key, itemID string) (Character, error) {
	if !ValidAbility(key) {
		return c, fmt.Errorf("%w: %q", ErrUnknownAbility, key)
	}
	out := c.Clone()
	if len(out.EquippedAttrBonuses[key]) == 0 {
		return out, nil
	}
	out.EquippedAttrBonuses[key] = removeID(out.EquippedAttrBonuses[key], itemID)
	if len(out.EquippedAttrBonuses[key]) == 0 {
		delete(out.EquippedAttrBonuses, key)
	}
	return out, nil
}

// EquipArmor adds itemID to the worn-armor set.
//
// Precondition: the item must exist and be flagged as armor.
func EquipArmor(c Character, itemID string) (Character, error) {
	item, ok := c.ItemByID(itemID)
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	if !item.IsArmor {
		return c, fmt.Errorf("%w: %q", ErrNotArmor, item.Name)
	}
	out := c.Clone()
	out.EquippedArmorIDs = addID(out.EquippedArmorIDs, itemID)
	return out, nil
}

// UnequipArmor removes itemID from the worn-armor set.
func UnequipArmor(c Character, itemID string) Character {
	out := c.Clone()
	out.EquippedArmorIDs = removeID(out.EquippedArmorIDs, itemID)
	return out
}

// SetShield makes itemID the equipped shield, replacing any previous one.
//
// Precondition: the item must exist and be flagged as a shield.
func SetShield(c Character, itemID string) (Character, error) {
	item, ok := c.ItemByID(itemID)
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	if !item.IsShield {
		return c, fmt.Errorf("%w: %q", ErrNotShield, item.Name)
	}
	out := c.Clone()
	out.EquippedShieldID = itemID
	return out, nil
}

// ClearShield unequips the shield.
func ClearShield(c Character) Character {
	out := c.Clone()
	out.EquippedShieldID = ""
	return out
}

// EquipSpeedItem adds itemID to the equipped speed-item set.
func EquipSpeedItem(c Character, itemID string) (Character, error) {
	if _, ok := c.ItemByID(itemID); !ok {
		return c, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	out := c.Clone()
	out.EquippedSpeedItemIDs = addID(out.EquippedSpeedItemIDs, itemID)
	return out, nil
}

// UnequipSpeedItem removes itemID from the equipped speed-item set.
func UnequipSpeedItem(c Character, itemID string) Character {
	out := c.Clone()
	out.EquippedSpeedItemIDs = removeID(out.EquippedSpeedItemIDs, itemID)
	return out
}

// EquipEffect marks the item's attached effects of the given kind as worn.
//
// Precondition: kind must be EffectAttack or EffectAC; the item must exist.
func EquipEffect(c Character, kind, itemID string) (Character, error) {
	if _, ok := c.ItemByID(itemID); !ok {
		return c, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	out := c.Clone()
	switch kind {
	case EffectAttack:
		out.EquippedEffectItemIDs.Attack = addID(out.EquippedEffectItemIDs.Attack, itemID)
	case EffectAC:
		out.EquippedEffectItemIDs.AC = addID(out.EquippedEffectItemIDs.AC, itemID)
	default:
		return c, fmt.Errorf("unknown effect kind %q", kind)
	}
	return out, nil
}

// UnequipEffect removes the item from the worn-effect set of the given kind.
func UnequipEffect(c Character, kind, itemID string) (Character, error) {
	out := c.Clone()
	switch kind {
	case EffectAttack:
		out.EquippedEffectItemIDs.Attack = removeID(out.EquippedEffectItemIDs.Attack, itemID)
	case EffectAC:
		out.EquippedEffectItemIDs.AC = removeID(out.EquippedEffectItemIDs.AC, itemID)
	default:
		return c, fmt.Errorf("unknown effect kind %q", kind)
	}
	return out, nil
}

// SetAttribute replaces the attribute record for key.
func SetAttribute(c Character, key string, attr Attribute) (Character, error) {
	if !ValidAbility(key) {
		return c, fmt.Errorf("%w: %q", ErrUnknownAbility, key)
	}
	out := c.Clone()
	out.Attributes[key] = attr
	return out, nil
}

// AddAttack appends an attack, assigning an ID when absent. Weapon-bound
// and melee/ranged attacks default to automatic ability modifiers.
func AddAttack(c Character, atk Attack) Character {
	out := c.Clone()
	if atk.ID == "" {
		atk.ID = uuid.New().String()
	}
	if atk.WeaponID != "" || atk.WeaponMode == WeaponModeMelee || atk.WeaponMode == WeaponModeRanged {
		atk.AutoMods = true
	}
	out.Attacks = append(out.Attacks, atk)
	return Normalize(out)
}

// UpdateAttack replaces the attack with atk.ID.
func UpdateAttack(c Character, atk Attack) (Character, error) {
	if _, ok := c.AttackByID(atk.ID); !ok {
		return c, fmt.Errorf("%w: %q", ErrAttackNotFound, atk.ID)
	}
	out := c.Clone()
	for i := range out.Attacks {
		if out.Attacks[i].ID == atk.ID {
			out.Attacks[i] = atk
			break
		}
	}
	return Normalize(out), nil
}

// RemoveAttack deletes the attack with the given ID.
func RemoveAttack(c Character, attackID string) (Character, error) {
	if _, ok := c.AttackByID(attackID); !ok {
		return c, fmt.Errorf("%w: %q", ErrAttackNotFound, attackID)
	}
	out := c.Clone()
	attacks := out.Attacks[:0]
	for _, a := range out.Attacks {
		if a.ID != attackID {
			attacks = append(attacks, a)
		}
	}
	if len(attacks) == 0 {
		attacks = nil
	}
	out.Attacks = attacks
	return out, nil
}

// AddSpell appends a learned spell, assigning an ID when absent.
func AddSpell(c Character, s Spell) Character {
	out := c.Clone()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Level < 0 {
		s.Level = 0
	}
	out.Spells = append(out.Spells, s)
	return out
}

// RemoveSpell forgets a spell and purges every grimoire entry scribed from it.
func RemoveSpell(c Character, spellID string) (Character, error) {
	if _, ok := c.SpellByID(spellID); !ok {
		return c, fmt.Errorf("%w: %q", ErrSpellNotFound, spellID)
	}
	out := c.Clone()
	spells := out.Spells[:0]
	for _, s := range out.Spells {
		if s.ID != spellID {
			spells = append(spells, s)
		}
	}
	if len(spells) == 0 {
		spells = nil
	}
	out.Spells = spells
	return Normalize(out), nil
}

// SetXP sets the current experience total. Negative values clamp to zero.
func SetXP(c Character, xp int) Character {
	out := c.Clone()
	if xp < 0 {
		xp = 0
	}
	out.CurrentXP = xp
	return out
}

// SetXPTable replaces the level threshold table. A non-monotonic table is
// auto-corrected, never rejected: each offending entry becomes previous + 1.
func SetXPTable(c Character, table []int) Character {
	out := c.Clone()
	out.XPTable = FixXPTable(table)
	return out
}

// SetHP sets current hit points, clamped to [0, MaxHP].
func SetHP(c Character, hp int) Character {
	out := c.Clone()
	out.HP = clampHP(hp, out.MaxHP())
	return out
}

// SetHPByLevel replaces the per-level hit point rolls and re-clamps current HP.
func SetHPByLevel(c Character, rolls []int) Character {
	out := c.Clone()
	out.HPByLevel = append([]int(nil), rolls...)
	out.HP = clampHP(out.HP, out.MaxHP())
	return out
}

// SetHPBonus sets the flat hit point bonus and re-clamps current HP.
func SetHPBonus(c Character, bonus int) Character {
	out := c.Clone()
	out.HPBonus = bonus
	out.HP = clampHP(out.HP, out.MaxHP())
	return out
}

// addID appends id if not already present.
func addID(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// removeID removes all occurrences of id.
func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
