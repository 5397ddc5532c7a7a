package handlers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rwpulley/charkeep/internal/exchange"
	"github.com/rwpulley/charkeep/internal/frontend/telnet"
	"github.com/rwpulley/charkeep/internal/game/command"
	"github.com/rwpulley/charkeep/internal/game/derive"
	"github.com/rwpulley/charkeep/internal/game/dice"
	"github.com/rwpulley/charkeep/internal/game/roster"
	"github.com/rwpulley/charkeep/internal/game/sheet"
	"github.com/rwpulley/charkeep/internal/game/spellcraft"
	"github.com/rwpulley/charkeep/internal/storage/postgres"
)

// session is the per-connection state of one sheet-editing loop. All edits
// flow through the open Character by whole-record replacement; the derive
// engine recomputes one snapshot after every successful mutation.
type session struct {
	h       *AuthHandler
	conn    *telnet.Conn
	acct    postgres.Account
	id      string
	roster  *roster.Manager
	engine  *derive.Engine
	history *dice.History

	char sheet.Character
	open bool
}

// sheetSession runs the command loop for an authenticated account.
//
// Postcondition: all checkouts held by this session are released on return.
func (h *AuthHandler) sheetSession(ctx context.Context, conn *telnet.Conn, acct postgres.Account) error {
	mgr, err := h.rosterFor(ctx, acct.ID)
	if err != nil {
		h.logger.Error("opening roster", zap.String("username", acct.Username), zap.Error(err))
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Could not open your roster. Please try again later."))
		return err
	}

	s := &session{
		h:       h,
		conn:    conn,
		acct:    acct,
		id:      uuid.New().String(),
		roster:  mgr,
		engine:  derive.NewEngine(h.engineOptions()...),
		history: dice.NewHistory(h.historySize),
	}
	h.trackPresence(s.id, acct.Username)
	defer func() {
		mgr.ReleaseSession(s.id)
		h.dropPresence(s.id)
	}()

	_ = conn.WriteLine(telnet.Colorf(telnet.Cyan,
		"Roster loaded: %d character(s). Type 'help' for commands.", mgr.Count()))

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Server shutting down. Goodbye!"))
			return ctx.Err()
		default:
		}

		if err := conn.WritePrompt(s.prompt()); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}
		line, err := conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		parsed := command.Parse(line)
		if parsed.Command == "" {
			continue
		}
		cmd, ok := h.registry.Resolve(parsed.Command)
		if !ok {
			_ = conn.WriteLine(telnet.Colorf(telnet.Red, "Unknown command: %s. Type 'help' for commands.", parsed.Command))
			continue
		}
		if cmd.NeedsSheet && !s.open {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "No character open. Use 'open <name>' or 'create <name>' first."))
			continue
		}

		if cmd.Handler == command.HandlerQuit {
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
			h.logger.Info("session ended",
				zap.String("username", acct.Username),
				zap.Duration("session_duration", time.Since(start)),
			)
			return nil
		}
		if err := s.dispatch(ctx, cmd, parsed); err != nil {
			return err
		}
	}
}

// engineOptions wires the house-rule adjustment hook when a Lua rules
// script is loaded.
func (h *AuthHandler) engineOptions() []derive.Option {
	if h.scripts == nil || !h.scripts.HasRules(h.rulesID) {
		return nil
	}
	adjust := func(c sheet.Character, snap derive.Snapshot) derive.Adjustment {
		values := map[string]int{
			"ac":     snap.AC,
			"speed":  snap.Encumbrance.FinalSpeed,
			"level":  snap.LevelInfo.CurrentLevel,
			"max_hp": snap.MaxHP,
		}
		out, err := h.scripts.SnapshotAdjust(h.rulesID, values)
		if err != nil {
			return derive.Adjustment{}
		}
		return derive.Adjustment{
			AC:     out["ac"],
			ToHit:  out["to_hit"],
			Damage: out["damage"],
			Speed:  out["speed"],
		}
	}
	return []derive.Option{derive.WithAdjustment(adjust)}
}

func (s *session) prompt() string {
	if s.open {
		return telnet.Colorf(telnet.BrightCyan, "%s> ", s.char.Name)
	}
	return telnet.Colorize(telnet.BrightWhite, "vault> ")
}

// say writes a plain informational line; fail/ok add the usual coloring.
func (s *session) say(format string, args ...any) {
	_ = s.conn.WriteLine(fmt.Sprintf(format, args...))
}

func (s *session) ok(format string, args ...any) {
	_ = s.conn.WriteLine(telnet.Colorf(telnet.Green, format, args...))
}

func (s *session) fail(format string, args ...any) {
	_ = s.conn.WriteLine(telnet.Colorf(telnet.Red, format, args...))
}

// apply replaces the open character and commits it to the roster. On a
// commit failure the in-memory edit is kept so the user can retry.
func (s *session) apply(ctx context.Context, c sheet.Character) {
	s.char = c
	if err := s.roster.Commit(ctx, c, s.id); err != nil {
		s.h.logger.Error("committing character",
			zap.String("character_id", c.ID),
			zap.String("username", s.acct.Username),
			zap.Error(err),
		)
		s.fail("Saving failed: %v", err)
	}
}

func (s *session) dispatch(ctx context.Context, cmd *command.Command, parsed command.ParseResult) error {
	args := parsed.Args
	switch cmd.Handler {
	case command.HandlerShow:
		_ = s.conn.Write([]byte(RenderSheet(s.char, s.engine.Snapshot(s.char))))
	case command.HandlerStats:
		_ = s.conn.Write([]byte(RenderStats(s.char, s.engine.Snapshot(s.char))))
	case command.HandlerSetAttr:
		s.cmdSetAttr(ctx, args)
	case command.HandlerPrime:
		s.cmdPrime(ctx, args)
	case command.HandlerXP:
		s.cmdXP(ctx, args)
	case command.HandlerHP:
		s.cmdHP(ctx, args)
	case command.HandlerLevel:
		info := s.engine.Snapshot(s.char).LevelInfo
		_ = s.conn.Write([]byte(RenderLevel(s.char, info)))
	case command.HandlerInventory:
		_ = s.conn.Write([]byte(RenderInventory(s.char, s.engine.Snapshot(s.char).Encumbrance)))
	case command.HandlerAddItem:
		s.cmdAddItem(ctx, args)
	case command.HandlerDrop:
		s.cmdDrop(ctx, parsed.RawArgs)
	case command.HandlerEquip:
		s.cmdEquip(ctx, parsed.RawArgs)
	case command.HandlerUnequip:
		s.cmdUnequip(ctx, parsed.RawArgs)
	case command.HandlerShield:
		s.cmdShield(ctx, parsed.RawArgs)
	case command.HandlerAttacks:
		_ = s.conn.Write([]byte(RenderAttacks(s.char, s.engine.Snapshot(s.char))))
	case command.HandlerWallet:
		s.say("Purse: %s", telnet.Colorize(telnet.BrightYellow, s.char.Wallet.String()))
	case command.HandlerSpend:
		s.cmdWallet(ctx, args, true)
	case command.HandlerDeposit:
		s.cmdWallet(ctx, args, false)
	case command.HandlerSpells:
		_ = s.conn.Write([]byte(RenderSpells(s.char)))
	case command.HandlerLearn:
		s.cmdLearn(ctx, args)
	case command.HandlerForget:
		s.cmdForget(ctx, parsed.RawArgs)
	case command.HandlerGrimoire:
		s.cmdGrimoire(ctx, args)
	case command.HandlerScribe:
		s.cmdScribe(ctx, args)
	case command.HandlerPromote:
		s.cmdPromote(ctx, parsed.RawArgs)
	case command.HandlerCast:
		s.cmdCast(ctx, parsed.RawArgs)
	case command.HandlerMagicItem:
		s.cmdMagicItem(ctx, args)
	case command.HandlerStore:
		s.cmdStore(ctx, args)
	case command.HandlerReset:
		s.cmdReset(ctx, parsed.RawArgs)
	case command.HandlerNewDay:
		s.apply(ctx, spellcraft.NewDay(s.char))
		s.ok("A new day dawns. Daily spell uses restored.")
	case command.HandlerRoll:
		s.cmdRoll(parsed.RawArgs)
	case command.HandlerHistory:
		_ = s.conn.Write([]byte(RenderRolls(s.history.Recent(10))))
	case command.HandlerRoster:
		s.cmdRoster()
	case command.HandlerOpen:
		s.cmdOpen(parsed.RawArgs)
	case command.HandlerClose:
		s.cmdClose()
	case command.HandlerCreate:
		s.cmdCreate(ctx, args)
	case command.HandlerDelete:
		s.cmdDelete(ctx, parsed.RawArgs)
	case command.HandlerExport:
		s.cmdExport()
	case command.HandlerImport:
		return s.cmdImport(ctx)
	case command.HandlerWho:
		s.cmdWho()
	case command.HandlerHelp:
		s.cmdHelp()
	case command.HandlerSetRole:
		s.cmdSetRole(ctx, args)
	default:
		s.fail("Command %q is not wired to a handler.", cmd.Name)
	}
	return nil
}

func (s *session) cmdSetAttr(ctx context.Context, args []string) {
	if len(args) < 2 {
		s.fail("Usage: set <ability> <score>")
		return
	}
	key := strings.ToLower(args[0])
	score, err := strconv.Atoi(args[1])
	if err != nil {
		s.fail("Score must be a number.")
		return
	}
	attr := s.char.Attribute(key)
	attr.RolledScore = score
	out, err := sheet.SetAttribute(s.char, key, attr)
	if err != nil {
		s.fail("%v", err)
		return
	}
	s.apply(ctx, out)
	total := s.engine.Snapshot(s.char).AttributeTotals[key]
	s.ok("%s set to %d (total %d, mod %+d).", strings.ToUpper(key), score, total, derive.AbilityMod(total))
}

func (s *session) cmdPrime(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.fail("Usage: prime <ability>")
		return
	}
	key := strings.ToLower(args[0])
	attr := s.char.Attribute(key)
	attr.IsPrime = !attr.IsPrime
	out, err := sheet.SetAttribute(s.char, key, attr)
	if err != nil {
		s.fail("%v", err)
		return
	}
	s.apply(ctx, out)
	state := "no longer"
	if attr.IsPrime {
		state = "now"
	}
	s.ok("%s is %s a prime attribute.", strings.ToUpper(key), state)
}

func (s *session) cmdXP(ctx context.Context, args []string) {
	if len(args) == 0 {
		info := s.engine.Snapshot(s.char).LevelInfo
		s.say("XP: %d  Level: %d  Next: %d (%.0f%%)",
			s.char.CurrentXP, info.CurrentLevel, info.NextLevelXP, info.Progress)
		return
	}
	xp, err := strconv.Atoi(args[0])
	if err != nil {
		s.fail("XP must be a number.")
		return
	}
	before := s.engine.Snapshot(s.char).LevelInfo.CurrentLevel
	s.apply(ctx, sheet.SetXP(s.char, xp))
	info := s.engine.Snapshot(s.char).LevelInfo
	s.ok("XP set to %d (level %d).", s.char.CurrentXP, info.CurrentLevel)
	if info.CurrentLevel > before {
		_ = s.conn.WriteLine(telnet.Colorf(telnet.BrightYellow, "*** %s advances to level %d! ***", s.char.Name, info.CurrentLevel))
	}
}

func (s *session) cmdHP(ctx context.Context, args []string) {
	if len(args) == 0 {
		s.say("HP: %d/%d", s.char.HP, s.char.MaxHP())
		return
	}
	hp, err := strconv.Atoi(args[0])
	if err != nil {
		s.fail("HP must be a number.")
		return
	}
	s.apply(ctx, sheet.SetHP(s.char, hp))
	s.ok("HP set to %d/%d.", s.char.HP, s.char.MaxHP())
}

func (s *session) cmdAddItem(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.fail("Usage: additem <name> [qty] [ev]")
		return
	}
	name := args[0]
	qty, ev := 1, 1
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			s.fail("Quantity must be a positive number.")
			return
		}
		qty = n
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n < 0 {
			s.fail("EV must be a non-negative number.")
			return
		}
		ev = n
	}
	s.apply(ctx, sheet.AddItem(s.char, sheet.InventoryItem{Name: name, Quantity: qty, EV: ev}))
	enc := s.engine.Snapshot(s.char).Encumbrance
	s.ok("Added %s x%d. Carried EV %d/%d (%s).", name, qty, enc.TotalEV, enc.Rating, enc.Status)
}

func (s *session) cmdDrop(ctx context.Context, name string) {
	if name == "" {
		s.fail("Usage: drop <item>")
		return
	}
	item, ok := s.findItem(name)
	if !ok {
		s.fail("You are not carrying %q.", name)
		return
	}
	out, err := sheet.RemoveItem(s.char, item.ID)
	if err != nil {
		s.fail("%v", err)
		return
	}
	s.apply(ctx, out)
	s.ok("Dropped %s.", item.Name)
}

// cmdEquip wears every facet the item offers: armor, attribute bonuses,
// speed bonus, and attached AC/attack effects. A shield needs the
// dedicated shield slot, so 'equip' points there instead.
func (s *session) cmdEquip(ctx context.Context, name string) {
	if name == "" {
		s.fail("Usage: equip <item>")
		return
	}
	item, ok := s.findItem(name)
	if !ok {
		s.fail("You are not carrying %q.", name)
		return
	}
	if item.IsShield {
		s.fail("%s is a shield. Use 'shield %s' to ready it.", item.Name, item.Name)
		return
	}

	out := s.char
	equipped := false
	if item.IsArmor {
		next, err := sheet.EquipArmor(out, item.ID)
		if err != nil {
			s.fail("%v", err)
			return
		}
		out, equipped = next, true
	}
	if item.HasAttrBonus {
		for _, b := range item.AttrBonuses {
			next, err := sheet.EquipAttrBonus(out, strings.ToLower(b.Attr), item.ID)
			if err != nil {
				s.fail("%v", err)
				return
			}
			out, equipped = next, true
		}
	}
	if item.SpeedBonus != 0 {
		next, err := sheet.EquipSpeedItem(out, item.ID)
		if err != nil {
			s.fail("%v", err)
			return
		}
		out, equipped = next, true
	}
	for _, e := range item.Effects {
		next, err := sheet.EquipEffect(out, e.Kind, item.ID)
		if err != nil {
			s.fail("%v", err)
			return
		}
		out, equipped = next, true
	}
	if !equipped {
		s.fail("%s has nothing to equip.", item.Name)
		return
	}
	s.apply(ctx, out)
	snap := s.engine.Snapshot(s.char)
	s.ok("Equipped %s. AC %d, speed %d.", item.Name, snap.AC, snap.Encumbrance.FinalSpeed)
}

func (s *session) cmdUnequip(ctx context.Context, name string) {
	if name == "" {
		s.fail("Usage: unequip <item>")
		return
	}
	item, ok := s.findItem(name)
	if !ok {
		s.fail("You are not carrying %q.", name)
		return
	}

	out := sheet.UnequipArmor(s.char, item.ID)
	if out.EquippedShieldID == item.ID {
		out = sheet.ClearShield(out)
	}
	for _, key := range sheet.AbilityKeys() {
		next, err := sheet.UnequipAttrBonus(out, key, item.ID)
		if err == nil {
			out = next
		}
	}
	out = sheet.UnequipSpeedItem(out, item.ID)
	for _, kind := range []string{sheet.EffectAC, sheet.EffectAttack} {
		next, err := sheet.UnequipEffect(out, kind, item.ID)
		if err == nil {
			out = next
		}
	}
	s.apply(ctx, out)
	snap := s.engine.Snapshot(s.char)
	s.ok("Unequipped %s. AC %d, speed %d.", item.Name, snap.AC, snap.Encumbrance.FinalSpeed)
}

func (s *session) cmdShield(ctx context.Context, name string) {
	if name == "" {
		if s.char.EquippedShieldID == "" {
			s.say("No shield readied.")
			return
		}
		item, _ := s.char.ItemByID(s.char.EquippedShieldID)
		s.apply(ctx, sheet.ClearShield(s.char))
		s.ok("Stowed %s.", item.Name)
		return
	}
	item, ok := s.findItem(name)
	if !ok {
		s.fail("You are not carrying %q.", name)
		return
	}
	out, err := sheet.SetShield(s.char, item.ID)
	if err != nil {
		s.fail("%v", err)
		return
	}
	s.apply(ctx, out)
	s.ok("Readied %s. AC %d.", item.Name, s.engine.Snapshot(s.char).AC)
}

func (s *session) cmdWallet(ctx context.Context, args []string, spend bool) {
	verb := "deposit"
	if spend {
		verb = "spend"
	}
	if len(args) < 2 {
		s.fail("Usage: %s <amount> <denomination>", verb)
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		s.fail("Amount must be a non-negative number.")
		return
	}
	amount, ok := walletAmount(n, args[1])
	if !ok {
		s.fail("Unknown denomination %q. Use platinum/gold/electrum/silver/copper.", args[1])
		return
	}
	if spend {
		out, err := sheet.Spend(s.char, amount)
		if err != nil {
			s.fail("%v", err)
			return
		}
		s.apply(ctx, out)
	} else {
		s.apply(ctx, sheet.Deposit(s.char, amount))
	}
	s.ok("Purse: %s", s.char.Wallet.String())
}

// walletAmount builds a single-denomination Wallet from a count and a
// denomination word or its one-letter abbreviation.
func walletAmount(n int, denom string) (sheet.Wallet, bool) {
	switch strings.ToLower(denom) {
	case "p", "plat", "platinum":
		return sheet.Wallet{Platinum: n}, true
	case "g", "gold":
		return sheet.Wallet{Gold: n}, true
	case "e", "electrum":
		return sheet.Wallet{Electrum: n}, true
	case "s", "silver":
		return sheet.Wallet{Silver: n}, true
	case "c", "copper":
		return sheet.Wallet{Copper: n}, true
	}
	return sheet.Wallet{}, false
}

func (s *session) cmdLearn(ctx context.Context, args []string) {
	if len(args) < 2 {
		s.fail("Usage: learn <name> <level>")
		return
	}
	level, err := strconv.Atoi(args[1])
	if err != nil || level < 0 {
		s.fail("Spell level must be a non-negative number.")
		return
	}
	name := args[0]
	if _, ok := s.findSpell(name); ok {
		s.fail("You already know %q.", name)
		return
	}
	s.apply(ctx, sheet.AddSpell(s.char, sheet.Spell{Name: name, Level: level}))
	s.ok("Learned %s (level %d, %d grimoire point(s) to scribe).", name, level, spellcraft.PointCost(level))
}

func (s *session) cmdForget(ctx context.Context, name string) {
	if name == "" {
		s.fail("Usage: forget <name>")
		return
	}
	spell, ok := s.findSpell(name)
	if !ok {
		s.fail("You do not know %q.", name)
		return
	}
	out, err := sheet.RemoveSpell(s.char, spell.ID)
	if err != nil {
		s.fail("%v", err)
		return
	}
	s.apply(ctx, out)
	s.ok("Forgot %s. Scribed copies crumble from your grimoires.", spell.Name)
}

func (s *session) cmdGrimoire(ctx context.Context, args []string) {
	if len(args) == 0 {
		_ = s.conn.Write([]byte(RenderGrimoires(s.char)))
		return
	}
	switch strings.ToLower(args[0]) {
	case "add":
		name := "Grimoire"
		if len(args) > 1 {
			name = strings.Join(args[1:], " ")
		}
		s.apply(ctx, spellcraft.AddGrimoire(s.char, name))
		s.ok("Bound a new grimoire: %s (%d points).", name, sheet.DefaultGrimoireCapacity)
	case "remove":
		if len(args) < 2 {
			s.fail("Usage: grimoire remove <name>")
			return
		}
		name := strings.Join(args[1:], " ")
		g, ok := s.findGrimoire(name)
		if !ok {
			s.fail("No grimoire named %q.", name)
			return
		}
		out, err := spellcraft.RemoveGrimoire(s.char, g.ID)
		if err != nil {
			s.fail("%v", err)
			return
		}
		s.apply(ctx, out)
		s.ok("Discarded %s.", g.Name)
	default:
		s.fail("Usage: grimoire [add <name> | remove <name>]")
	}
}

func (s *session) cmdScribe(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.fail("Usage: scribe <spell> [permanent]")
		return
	}
	permanent := false
	if last := strings.ToLower(args[len(args)-1]); last == "permanent" || last == "perm" {
		permanent = true
		args = args[:len(args)-1]
	}
	if len(args) < 1 {
		s.fail("Usage: scribe <spell> [permanent]")
		return
	}
	name := strings.Join(args, " ")
	spell, ok := s.findSpell(name)
	if !ok {
		s.fail("You do not know %q. Use 'learn <name> <level>' first.", name)
		return
	}
	if len(s.char.Grimoires) == 0 {
		s.fail("You have no grimoire. Use 'grimoire add <name>' first.")
		return
	}
	g := s.char.Grimoires[0]
	out, err := spellcraft.AddSpellToGrimoire(s.char, g.ID, spell.ID, permanent)
	if err != nil {
		s.fail("%v", err)
		return
	}
	s.apply(ctx, out)
	g, _ = s.char.GrimoireByID(g.ID)
	kind := "consumable"
	if permanent {
		kind = "permanent"
	}
	s.ok("Scribed %s (%s) into %s. %d point(s) left.",
		spell.Name, kind, g.Name, spellcraft.PointsLeft(s.char, g))
}

// cmdPromote converts the first consumable scribed copy of a spell to
// permanent, subject to the permanent limit.
func (s *session) cmdPromote(ctx context.Context, name string) {
	if name == "" {
		s.fail("Usage: promote <spell>")
		return
	}
	spell, ok := s.findSpell(name)
	if !ok {
		s.fail("You do not know %q.", name)
		return
	}
	for _, g := range s.char.Grimoires {
		for _, e := range g.Entries {
			if e.SpellID != spell.ID || e.Permanent {
				continue
			}
			out, err := spellcraft.PromoteEntry(s.char, g.ID, e.InstanceID)
			if err != nil {
				s.fail("%v", err)
				return
			}
			s.apply(ctx, out)
			s.ok("%s in %s is now permanent.", spell.Name, g.Name)
			return
		}
	}
	s.fail("No consumable copy of %q to promote.", spell.Name)
}

func (s *session) cmdMagicItem(ctx context.Context, args []string) {
	if len(args) == 0 {
		_ = s.conn.Write([]byte(RenderGrimoires(s.char)))
		return
	}
	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 3 {
			s.fail("Usage: item add <name> <capacity>")
			return
		}
		capacity, err := strconv.Atoi(args[len(args)-1])
		if err != nil || capacity < 1 {
			s.fail("Capacity must be a positive number.")
			return
		}
		name := strings.Join(args[1:len(args)-1], " ")
		s.apply(ctx, spellcraft.AddMagicItem(s.char, name, capacity))
		s.ok("Attuned %s (%d charge slot(s)).", name, capacity)
	case "remove":
		if len(args) < 2 {
			s.fail("Usage: item remove <name>")
			return
		}
		name := strings.Join(args[1:], " ")
		m, ok := s.findMagicItem(name)
		if !ok {
			s.fail("No magic item named %q.", name)
			return
		}
		out, err := spellcraft.RemoveMagicItem(s.char, m.ID)
		if err != nil {
			s.fail("%v", err)
			return
		}
		s.apply(ctx, out)
		s.ok("Discarded %s and its stored charges.", m.Name)
	default:
		s.fail("Usage: item [add <name> <capacity> | remove <name>]")
	}
}

// cmdStore loads spell charges into a magic item. Stored names need not be
// learned spells; a learned spell contributes its damage dice to the charge.
func (s *session) cmdStore(ctx context.Context, args []string) {
	if len(args) < 2 {
		s.fail("Usage: store <item> <spell> [count] [permanent]")
		return
	}
	m, ok := s.findMagicItem(args[0])
	if !ok {
		s.fail("No magic item named %q. Use 'item add <name> <capacity>' first.", args[0])
		return
	}

	rest := args[1:]
	permanent := false
	if last := strings.ToLower(rest[len(rest)-1]); last == "permanent" || last == "perm" {
		permanent = true
		rest = rest[:len(rest)-1]
	}
	count := 1
	if len(rest) > 1 {
		if n, err := strconv.Atoi(rest[len(rest)-1]); err == nil {
			count = n
			rest = rest[:len(rest)-1]
		}
	}
	if len(rest) == 0 {
		s.fail("Usage: store <item> <spell> [count] [permanent]")
		return
	}
	if count < 1 {
		s.fail("Count must be a positive number.")
		return
	}

	spellName := strings.Join(rest, " ")
	numDice := 0
	if spell, ok := s.findSpell(spellName); ok {
		spellName = spell.Name
		numDice = spell.NumDice
	}

	out, added, err := spellcraft.AddSpellToItem(s.char, m.ID, spellName, count, permanent, numDice)
	if err != nil {
		s.fail("%v", err)
		return
	}
	s.apply(ctx, out)
	m, _ = s.char.MagicItemByID(m.ID)
	s.ok("Stored %d charge(s) of %s in %s (%d/%d).", added, spellName, m.Name, len(m.Spells), m.Capacity)
}

func (s *session) cmdReset(ctx context.Context, name string) {
	if name == "" {
		s.fail("Usage: reset <item>")
		return
	}
	m, ok := s.findMagicItem(name)
	if !ok {
		s.fail("No magic item named %q.", name)
		return
	}
	out, err := spellcraft.ResetItem(s.char, m.ID)
	if err != nil {
		s.fail("%v", err)
		return
	}
	s.apply(ctx, out)
	s.ok("Recharged %s. Its permanent charges are ready again.", m.Name)
}

// cmdCast resolves a spell name against every grimoire first and then every
// magic item, applying the first castable entry found.
func (s *session) cmdCast(ctx context.Context, name string) {
	if name == "" {
		s.fail("Usage: cast <spell>")
		return
	}

	for _, g := range s.char.Grimoires {
		for _, e := range g.Entries {
			spell, ok := s.char.SpellByID(e.SpellID)
			if !ok || !strings.EqualFold(spell.Name, name) {
				continue
			}
			out, result, err := spellcraft.CastFromGrimoire(s.char, g.ID, e.InstanceID)
			if err != nil {
				s.fail("%v", err)
				return
			}
			s.apply(ctx, out)
			s.reportCast(spell.Name, g.Name, result)
			return
		}
	}

	for _, m := range s.char.MagicItems {
		out, result, err := spellcraft.CastFromItem(s.char, m.ID, name)
		if err != nil {
			if errors.Is(err, spellcraft.ErrSpellNotInItem) {
				continue
			}
			s.fail("%v", err)
			return
		}
		s.apply(ctx, out)
		s.reportCast(name, m.Name, result)
		return
	}

	s.fail("No castable copy of %q in your grimoires or items.", name)
}

func (s *session) reportCast(spell, source string, result spellcraft.CastResult) {
	switch result {
	case spellcraft.CastConsumed:
		s.ok("Cast %s from %s. The scribed copy is consumed.", spell, source)
	case spellcraft.CastExpended:
		s.ok("Cast %s from %s. It is expended until the next day.", spell, source)
	case spellcraft.CastAlreadyUsed:
		s.fail("%s in %s was already used today. Try 'newday'.", spell, source)
	}
}

// cmdRoll evaluates a dice expression, or, when the argument names one of
// the character's attacks, rolls that attack's resolved damage line.
func (s *session) cmdRoll(raw string) {
	if raw == "" {
		s.fail("Usage: roll <expression>  (e.g. roll 2d6+3)")
		return
	}
	expr := strings.ReplaceAll(raw, " ", "")
	result, err := s.h.roller.RollExpr(expr)
	if err != nil {
		if s.open {
			if atk, ok := s.findAttack(raw); ok {
				s.rollAttack(atk)
				return
			}
		}
		s.fail("Bad dice expression %q: %v", raw, err)
		return
	}
	s.history.Record(result)
	s.say("%s", telnet.Colorize(telnet.BrightWhite, result.String()))
}

func (s *session) rollAttack(atk sheet.Attack) {
	totals := s.engine.Snapshot(s.char).PerAttackTotals[atk.ID]
	if totals.NumDice < 1 || totals.DieType < 1 {
		s.fail("%s has no damage dice set.", atk.Name)
		return
	}
	expr := fmt.Sprintf("%dd%d%+d", totals.NumDice, totals.DieType, totals.DamageBonus)
	result, err := s.h.roller.RollExpr(expr)
	if err != nil {
		s.fail("Rolling %s: %v", atk.Name, err)
		return
	}
	s.history.Record(result)
	s.say("%s (to-hit %+d): %s", atk.Name, totals.ToHit, telnet.Colorize(telnet.BrightWhite, result.String()))
}

func (s *session) cmdRoster() {
	characters := s.roster.List()
	if len(characters) == 0 {
		s.say("The roster is empty. Use 'create <name> [template]'.")
		return
	}
	sort.Slice(characters, func(i, j int) bool { return characters[i].Name < characters[j].Name })
	_ = s.conn.WriteLine(telnet.Colorize(telnet.BrightWhite, "Roster:"))
	for _, c := range characters {
		level := derive.ResolveProgression(c).CurrentLevel
		class := c.Class1
		if class == "" {
			class = "untrained"
		}
		s.say("  %s — level %d %s", telnet.Colorize(telnet.BrightCyan, c.Name), level, class)
	}
}

func (s *session) cmdOpen(name string) {
	if name == "" {
		s.fail("Usage: open <name>")
		return
	}
	c, ok := s.roster.FindByName(name)
	if !ok {
		s.fail("No character named %q in the roster.", name)
		return
	}
	if s.open && s.char.ID == c.ID {
		s.say("%s is already open.", s.char.Name)
		return
	}
	if s.open {
		s.closeCurrent()
	}
	checked, err := s.roster.Checkout(c.ID, s.id)
	if err != nil {
		if errors.Is(err, roster.ErrCheckedOut) {
			s.fail("%s is being edited by another session.", c.Name)
			return
		}
		s.fail("%v", err)
		return
	}
	s.char = checked
	s.open = true
	s.h.setPresenceCharacter(s.id, checked.Name)
	snap := s.engine.Snapshot(s.char)
	s.ok("Opened %s (level %d, AC %d, HP %d/%d).",
		checked.Name, snap.LevelInfo.CurrentLevel, snap.AC, checked.HP, snap.MaxHP)
}

func (s *session) cmdClose() {
	name := s.char.Name
	s.closeCurrent()
	s.ok("Closed %s.", name)
}

func (s *session) closeCurrent() {
	if !s.open {
		return
	}
	_ = s.roster.Checkin(s.char.ID, s.id)
	s.h.setPresenceCharacter(s.id, "")
	s.char = sheet.Character{}
	s.open = false
}

func (s *session) cmdCreate(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.fail("Usage: create <name> [template]")
		return
	}
	name := args[0]
	c := sheet.New(name)

	templateID := "default"
	if len(args) > 1 {
		templateID = strings.ToLower(args[1])
	}
	if tpl, ok := s.h.templates.Template(templateID); ok {
		c = tpl.Apply(c)
	} else if len(args) > 1 {
		s.fail("Unknown template %q. Available: %s.", args[1], strings.Join(s.h.templates.IDs(), ", "))
		return
	}

	if err := s.roster.Create(ctx, c); err != nil {
		if errors.Is(err, roster.ErrDuplicateName) {
			s.fail("A character named %q already exists.", name)
			return
		}
		s.fail("%v", err)
		return
	}
	s.h.logger.Info("character created",
		zap.String("name", name),
		zap.String("username", s.acct.Username),
	)
	s.ok("Created %s. Use 'open %s' to start editing.", name, name)
}

func (s *session) cmdDelete(ctx context.Context, name string) {
	if name == "" {
		s.fail("Usage: delete <name>")
		return
	}
	c, ok := s.roster.FindByName(name)
	if !ok {
		s.fail("No character named %q in the roster.", name)
		return
	}
	if s.open && s.char.ID == c.ID {
		s.fail("Close %s before deleting it.", c.Name)
		return
	}
	if err := s.roster.Delete(ctx, c.ID); err != nil {
		if errors.Is(err, roster.ErrCheckedOut) {
			s.fail("%s is being edited by another session.", c.Name)
			return
		}
		s.fail("%v", err)
		return
	}
	s.ok("Deleted %s.", c.Name)
}

func (s *session) cmdExport() {
	characters := s.roster.List()
	sort.Slice(characters, func(i, j int) bool { return characters[i].Name < characters[j].Name })
	data, err := exchange.Export(characters, time.Now())
	if err != nil {
		s.h.logger.Error("exporting roster", zap.Error(err))
		s.fail("Export failed: %v", err)
		return
	}
	_ = s.conn.WriteLine(telnet.Colorf(telnet.Cyan, "--- archive begin (%d characters) ---", len(characters)))
	_ = s.conn.Write(append(data, '\r', '\n'))
	_ = s.conn.WriteLine(telnet.Colorize(telnet.Cyan, "--- archive end ---"))
}

// cmdImport reads an archive pasted into the session, terminated by a line
// holding a single '.', and merges it into the roster record by record.
func (s *session) cmdImport(ctx context.Context) error {
	if s.acct.Role != postgres.RoleAdmin && s.acct.Role != postgres.RoleEditor {
		s.fail("Importing requires the editor or admin role.")
		return nil
	}
	_ = s.conn.WriteLine(telnet.Colorize(telnet.Cyan, "Paste the archive JSON. End with a line containing only '.'"))

	var b strings.Builder
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}
		if strings.TrimSpace(line) == "." {
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	incoming, err := exchange.Import([]byte(b.String()))
	if err != nil {
		s.fail("Import failed: %v", err)
		return nil
	}

	added, updated, skipped := 0, 0, 0
	for _, c := range incoming {
		if _, err := s.roster.Get(c.ID); err == nil {
			if _, err := s.roster.Checkout(c.ID, s.id); err != nil {
				skipped++
				continue
			}
			if err := s.roster.Commit(ctx, c, s.id); err != nil {
				skipped++
			} else {
				updated++
				if s.open && s.char.ID == c.ID {
					s.char = c
				}
			}
			if !s.open || s.char.ID != c.ID {
				_ = s.roster.Checkin(c.ID, s.id)
			}
			continue
		}
		if err := s.roster.Create(ctx, c); err != nil {
			skipped++
			continue
		}
		added++
	}
	s.ok("Import complete: %d added, %d updated, %d skipped.", added, updated, skipped)
	return nil
}

func (s *session) cmdWho() {
	users := s.h.listPresence()
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	_ = s.conn.WriteLine(telnet.Colorf(telnet.BrightWhite, "Connected users (%d):", len(users)))
	for _, u := range users {
		if u.Character != "" {
			s.say("  %s — editing %s", u.Username, u.Character)
		} else {
			s.say("  %s", u.Username)
		}
	}
}

func (s *session) cmdHelp() {
	order := []string{
		command.CategoryRoster,
		command.CategorySheet,
		command.CategoryInventory,
		command.CategoryMagic,
		command.CategorySystem,
		command.CategoryAdmin,
	}
	byCategory := s.h.registry.CommandsByCategory()
	for _, cat := range order {
		cmds := byCategory[cat]
		if len(cmds) == 0 {
			continue
		}
		if cat == command.CategoryAdmin && s.acct.Role != postgres.RoleAdmin {
			continue
		}
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		label := strings.ToUpper(cat[:1]) + cat[1:]
		_ = s.conn.WriteLine(telnet.Colorf(telnet.BrightWhite, "%s:", label))
		for _, c := range cmds {
			alias := ""
			if len(c.Aliases) > 0 {
				alias = " (" + strings.Join(c.Aliases, ", ") + ")"
			}
			s.say("  %s%s — %s", telnet.Colorize(telnet.Green, c.Name), alias, c.Help)
		}
	}
}

func (s *session) cmdSetRole(ctx context.Context, args []string) {
	if s.acct.Role != postgres.RoleAdmin {
		s.fail("Only admins can change roles.")
		return
	}
	if s.h.accounts == nil {
		s.fail("Roles are not available in local mode.")
		return
	}
	if len(args) < 2 {
		s.fail("Usage: setrole <username> <role>")
		return
	}
	username, role := args[0], strings.ToLower(args[1])
	if !postgres.ValidRole(role) {
		s.fail("Invalid role %q.", role)
		return
	}
	acct, err := s.h.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, postgres.ErrAccountNotFound) {
			s.fail("No account named %q.", username)
			return
		}
		s.h.logger.Error("looking up account", zap.String("username", username), zap.Error(err))
		s.fail("An internal error occurred.")
		return
	}
	if err := s.h.accounts.SetRole(ctx, acct.ID, role); err != nil {
		s.h.logger.Error("setting role", zap.String("username", username), zap.Error(err))
		s.fail("An internal error occurred.")
		return
	}
	s.ok("%s is now a %s.", username, role)
}

// findItem matches an inventory item by name (case-insensitive) or ID.
func (s *session) findItem(name string) (sheet.InventoryItem, bool) {
	for _, it := range s.char.Inventory {
		if strings.EqualFold(it.Name, name) || it.ID == name {
			return it, true
		}
	}
	return sheet.InventoryItem{}, false
}

func (s *session) findSpell(name string) (sheet.Spell, bool) {
	for _, sp := range s.char.Spells {
		if strings.EqualFold(sp.Name, name) {
			return sp, true
		}
	}
	return sheet.Spell{}, false
}

func (s *session) findGrimoire(name string) (sheet.Grimoire, bool) {
	for _, g := range s.char.Grimoires {
		if strings.EqualFold(g.Name, name) || g.ID == name {
			return g, true
		}
	}
	return sheet.Grimoire{}, false
}

func (s *session) findMagicItem(name string) (sheet.MagicItem, bool) {
	for _, m := range s.char.MagicItems {
		if strings.EqualFold(m.Name, name) || m.ID == name {
			return m, true
		}
	}
	return sheet.MagicItem{}, false
}

func (s *session) findAttack(name string) (sheet.Attack, bool) {
	for _, a := range s.char.Attacks {
		if strings.EqualFold(a.Name, name) || a.ID == name {
			return a, true
		}
	}
	return sheet.Attack{}, false
}
