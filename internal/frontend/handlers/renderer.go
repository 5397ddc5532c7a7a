package handlers

import (
	"fmt"
	"strings"

	"github.com/rwpulley/charkeep/internal/frontend/telnet"
	"github.com/rwpulley/charkeep/internal/game/derive"
	"github.com/rwpulley/charkeep/internal/game/dice"
	"github.com/rwpulley/charkeep/internal/game/sheet"
	"github.com/rwpulley/charkeep/internal/game/spellcraft"
)

// RenderSheet formats the whole character sheet with its derived snapshot.
//
// Precondition: snap was computed from c.
// Postcondition: Returns a non-empty ANSI-colored multiline string.
func RenderSheet(c sheet.Character, snap derive.Snapshot) string {
	var b strings.Builder

	b.WriteString("\r\n")
	b.WriteString(telnet.Colorize(telnet.Bold+telnet.BrightYellow, "=== "+c.Name+" ==="))
	b.WriteString("\r\n")
	if c.Race != "" || c.Class1 != "" {
		class := c.Class1
		if c.Class2 != "" {
			class += "/" + c.Class2
		}
		b.WriteString(fmt.Sprintf("  %s %s\r\n", c.Race, class))
	}
	b.WriteString(fmt.Sprintf("  Level %d   XP %d (next at %d)\r\n",
		snap.LevelInfo.CurrentLevel, c.CurrentXP, snap.LevelInfo.NextLevelXP))
	b.WriteString(fmt.Sprintf("  HP %s   AC %s   Speed %d (%s)\r\n",
		telnet.Colorf(telnet.BrightGreen, "%d/%d", c.HP, snap.MaxHP),
		telnet.Colorf(telnet.BrightCyan, "%d", snap.AC),
		snap.Encumbrance.FinalSpeed, snap.Encumbrance.Status))
	b.WriteString("\r\n")
	b.WriteString(renderAttributeRows(c, snap))
	if c.Wallet != (sheet.Wallet{}) {
		b.WriteString(fmt.Sprintf("  Purse: %s\r\n", telnet.Colorize(telnet.BrightYellow, c.Wallet.String())))
	}
	if len(c.Inventory) > 0 {
		b.WriteString(fmt.Sprintf("  Carrying %d item(s), EV %d/%d\r\n",
			len(c.Inventory), snap.Encumbrance.TotalEV, snap.Encumbrance.Rating))
	}
	if len(c.Spells) > 0 || len(c.Grimoires) > 0 || len(c.MagicItems) > 0 {
		b.WriteString(fmt.Sprintf("  Spells known: %d   Grimoires: %d   Magic items: %d\r\n",
			len(c.Spells), len(c.Grimoires), len(c.MagicItems)))
	}
	if c.Notes != "" {
		b.WriteString(fmt.Sprintf("  %s\r\n", telnet.Colorize(telnet.Dim, c.Notes)))
	}
	return b.String()
}

// RenderStats formats the attribute block plus the headline derived values.
func RenderStats(c sheet.Character, snap derive.Snapshot) string {
	var b strings.Builder
	b.WriteString("\r\n")
	b.WriteString(renderAttributeRows(c, snap))
	b.WriteString(fmt.Sprintf("  AC %d   Max HP %d   Speed %d\r\n",
		snap.AC, snap.MaxHP, snap.Encumbrance.FinalSpeed))
	b.WriteString(fmt.Sprintf("  Encumbrance: EV %d against rating %d — %s",
		snap.Encumbrance.TotalEV, snap.Encumbrance.Rating,
		encumbranceColor(snap.Encumbrance.Status)))
	if snap.Encumbrance.SpeedPenalty != 0 {
		b.WriteString(fmt.Sprintf(" (speed %+d)", -snap.Encumbrance.SpeedPenalty))
	}
	b.WriteString("\r\n")
	return b.String()
}

func renderAttributeRows(c sheet.Character, snap derive.Snapshot) string {
	var b strings.Builder
	for _, key := range sheet.AbilityKeys() {
		attr := c.Attribute(key)
		total := snap.AttributeTotals[key]
		prime := "   "
		if attr.IsPrime {
			prime = telnet.Colorize(telnet.BrightYellow, " * ")
		}
		b.WriteString(fmt.Sprintf("  %s%s %2d  mod %+d\r\n",
			telnet.Colorize(telnet.BrightWhite, strings.ToUpper(key)), prime,
			total, derive.AbilityMod(total)))
	}
	return b.String()
}

func encumbranceColor(status string) string {
	switch status {
	case derive.Overburdened:
		return telnet.Colorize(telnet.BrightRed, status)
	case derive.Burdened:
		return telnet.Colorize(telnet.Yellow, status)
	default:
		return telnet.Colorize(telnet.Green, status)
	}
}

// RenderInventory formats the carried-item list with encumbrance totals.
func RenderInventory(c sheet.Character, enc derive.Encumbrance) string {
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightWhite, "=== Inventory ==="))
	b.WriteString("\r\n")
	if len(c.Inventory) == 0 {
		b.WriteString(telnet.Colorize(telnet.Dim, "  Nothing carried."))
		b.WriteString("\r\n")
	}
	for _, item := range c.Inventory {
		qty := ""
		if item.Quantity > 1 {
			qty = fmt.Sprintf(" (x%d)", item.Quantity)
		}
		var tags []string
		if item.IsArmor {
			tags = append(tags, "armor")
		}
		if item.IsShield {
			tags = append(tags, "shield")
		}
		if item.IsWeapon {
			tags = append(tags, "weapon")
		}
		if worn := wornMarkers(c, item); worn != "" {
			tags = append(tags, worn)
		}
		tagStr := ""
		if len(tags) > 0 {
			tagStr = " [" + strings.Join(tags, ", ") + "]"
		}
		b.WriteString(fmt.Sprintf("  %s%s%s%s  EV %d\r\n",
			telnet.BrightWhite, item.Name, telnet.Reset, qty+tagStr,
			item.EV*item.Quantity))
	}
	b.WriteString(fmt.Sprintf("  EV %d / rating %d — %s", enc.TotalEV, enc.Rating, encumbranceColor(enc.Status)))
	b.WriteString("\r\n")
	return b.String()
}

// wornMarkers reports which equipped sets reference the item.
func wornMarkers(c sheet.Character, item sheet.InventoryItem) string {
	if c.EquippedShieldID == item.ID {
		return "readied"
	}
	for _, id := range c.EquippedArmorIDs {
		if id == item.ID {
			return "worn"
		}
	}
	for _, ids := range c.EquippedAttrBonuses {
		for _, id := range ids {
			if id == item.ID {
				return "worn"
			}
		}
	}
	for _, id := range c.EquippedSpeedItemIDs {
		if id == item.ID {
			return "worn"
		}
	}
	for _, id := range c.EquippedEffectItemIDs.AC {
		if id == item.ID {
			return "worn"
		}
	}
	return ""
}

// RenderAttacks formats every attack line with its resolved totals.
func RenderAttacks(c sheet.Character, snap derive.Snapshot) string {
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightWhite, "=== Attacks ==="))
	b.WriteString("\r\n")
	if len(c.Attacks) == 0 {
		b.WriteString(telnet.Colorize(telnet.Dim, "  No attacks defined."))
		b.WriteString("\r\n")
		return b.String()
	}
	for _, atk := range c.Attacks {
		totals := snap.PerAttackTotals[atk.ID]
		damage := "—"
		if totals.NumDice > 0 && totals.DieType > 0 {
			damage = fmt.Sprintf("%dd%d%+d", totals.NumDice, totals.DieType, totals.DamageBonus)
		}
		mode := atk.WeaponMode
		if mode == "" {
			mode = "manual"
		}
		b.WriteString(fmt.Sprintf("  %s%-20s%s %s  to-hit %s  damage %s\r\n",
			telnet.BrightCyan, atk.Name, telnet.Reset, mode,
			telnet.Colorf(telnet.BrightWhite, "%+d", totals.ToHit),
			telnet.Colorize(telnet.BrightRed, damage)))
	}
	return b.String()
}

// RenderSpells formats the learned-spell list.
func RenderSpells(c sheet.Character) string {
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightWhite, "=== Spells known ==="))
	b.WriteString("\r\n")
	if len(c.Spells) == 0 {
		b.WriteString(telnet.Colorize(telnet.Dim, "  None. Use 'learn <name> <level>'."))
		b.WriteString("\r\n")
		return b.String()
	}
	for _, sp := range c.Spells {
		dice := ""
		if sp.NumDice > 0 && sp.DieType > 0 {
			dice = fmt.Sprintf("  %dd%d", sp.NumDice, sp.DieType)
		}
		b.WriteString(fmt.Sprintf("  %s%-20s%s level %d  cost %d%s\r\n",
			telnet.BrightMagenta, sp.Name, telnet.Reset,
			sp.Level, spellcraft.PointCost(sp.Level), dice))
	}
	return b.String()
}

// RenderGrimoires formats every grimoire with its point budget and entries,
// and every magic item with its stored charges.
func RenderGrimoires(c sheet.Character) string {
	var b strings.Builder
	if len(c.Grimoires) == 0 && len(c.MagicItems) == 0 {
		b.WriteString(telnet.Colorize(telnet.Dim, "No grimoires or magic items. Use 'grimoire add <name>'."))
		b.WriteString("\r\n")
		return b.String()
	}
	for _, g := range c.Grimoires {
		used := spellcraft.PointsUsed(c, g)
		b.WriteString(telnet.Colorf(telnet.BrightWhite, "=== %s (%d/%d points) ===", g.Name, used, g.Capacity))
		b.WriteString("\r\n")
		if len(g.Entries) == 0 {
			b.WriteString(telnet.Colorize(telnet.Dim, "  Empty."))
			b.WriteString("\r\n")
			continue
		}
		limit := spellcraft.PermanentLimit(c)
		perms := 0
		for _, e := range g.Entries {
			name := e.SpellID
			level := 0
			if sp, ok := c.SpellByID(e.SpellID); ok {
				name, level = sp.Name, sp.Level
			}
			state := "consumable"
			if e.Permanent {
				perms++
				state = "permanent"
				if e.UsedToday {
					state = telnet.Colorize(telnet.Dim, "permanent, used today")
				}
			}
			b.WriteString(fmt.Sprintf("  %s%-20s%s level %d  cost %d  %s\r\n",
				telnet.BrightMagenta, name, telnet.Reset,
				level, spellcraft.PointCost(level), state))
		}
		b.WriteString(fmt.Sprintf("  Permanent: %d/%d\r\n", perms, limit))
	}
	for _, m := range c.MagicItems {
		b.WriteString(telnet.Colorf(telnet.BrightWhite, "=== %s (%d/%d charges) ===", m.Name, len(m.Spells), m.Capacity))
		b.WriteString("\r\n")
		for _, sp := range m.Spells {
			state := "consumable"
			if sp.Permanent {
				state = "permanent"
				if sp.UsedToday {
					state = telnet.Colorize(telnet.Dim, "permanent, used today")
				}
			}
			b.WriteString(fmt.Sprintf("  %s%-20s%s %s\r\n",
				telnet.BrightMagenta, sp.Spell, telnet.Reset, state))
		}
	}
	return b.String()
}

// RenderLevel formats the progression view for the level command.
func RenderLevel(c sheet.Character, info derive.LevelInfo) string {
	var b strings.Builder
	b.WriteString(telnet.Colorf(telnet.BrightWhite, "Level %d", info.CurrentLevel))
	b.WriteString("\r\n")
	b.WriteString(fmt.Sprintf("  XP %d, next level at %d\r\n", c.CurrentXP, info.NextLevelXP))

	filled := int(info.Progress / 10)
	if filled > 10 {
		filled = 10
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
	b.WriteString(fmt.Sprintf("  [%s] %.0f%%\r\n", telnet.Colorize(telnet.BrightGreen, bar), info.Progress))
	if info.CanLevelUp {
		b.WriteString(telnet.Colorize(telnet.BrightYellow, "  Ready to level up!"))
		b.WriteString("\r\n")
	}
	return b.String()
}

// RenderRolls formats recent dice results, newest first.
func RenderRolls(results []dice.RollResult) string {
	if len(results) == 0 {
		return telnet.Colorize(telnet.Dim, "No rolls yet. Try 'roll 2d6+3'.") + "\r\n"
	}
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightWhite, "Recent rolls:"))
	b.WriteString("\r\n")
	for _, r := range results {
		b.WriteString("  " + r.String() + "\r\n")
	}
	return b.String()
}
