// Package command provides the command registry, parser, and built-in command definitions.
package command

// Categories for organizing commands.
const (
	CategorySheet     = "sheet"
	CategoryInventory = "inventory"
	CategoryMagic     = "magic"
	CategoryRoster    = "roster"
	CategorySystem    = "system"
	CategoryAdmin     = "admin"
)

// Handler identifiers mapping commands to session handlers.
const (
	HandlerShow      = "show"
	HandlerStats     = "stats"
	HandlerSetAttr   = "setattr"
	HandlerPrime     = "prime"
	HandlerXP        = "xp"
	HandlerHP        = "hp"
	HandlerLevel     = "level"
	HandlerInventory = "inventory"
	HandlerAddItem   = "additem"
	HandlerDrop      = "drop"
	HandlerEquip     = "equip"
	HandlerUnequip   = "unequip"
	HandlerShield    = "shield"
	HandlerAttacks   = "attacks"
	HandlerSpells    = "spells"
	HandlerLearn     = "learn"
	HandlerForget    = "forget"
	HandlerGrimoire  = "grimoire"
	HandlerScribe    = "scribe"
	HandlerPromote   = "promote"
	HandlerCast      = "cast"
	HandlerMagicItem = "item"
	HandlerStore     = "store"
	HandlerReset     = "reset"
	HandlerNewDay    = "newday"
	HandlerWallet    = "wallet"
	HandlerSpend     = "spend"
	HandlerDeposit   = "deposit"
	HandlerRoll      = "roll"
	HandlerHistory   = "history"
	HandlerRoster    = "roster"
	HandlerOpen      = "open"
	HandlerClose     = "close"
	HandlerCreate    = "create"
	HandlerDelete    = "delete"
	HandlerExport    = "export"
	HandlerImport    = "import"
	HandlerWho       = "who"
	HandlerQuit      = "quit"
	HandlerHelp      = "help"
	HandlerSetRole   = "setrole"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command (sheet, inventory, magic, roster, system).
	Category string
	// Handler maps to the session handler.
	Handler string
	// NeedsSheet reports whether the command requires an open character.
	NeedsSheet bool
}

// BuiltinCommands returns all built-in commands.
func BuiltinCommands() []Command {
	return []Command{
		// Sheet commands
		{Name: "show", Aliases: []string{"sh", "sheet"}, Help: "Display the full character sheet", Category: CategorySheet, Handler: HandlerShow, NeedsSheet: true},
		{Name: "stats", Aliases: []string{"st"}, Help: "Show derived attribute totals and modifiers", Category: CategorySheet, Handler: HandlerStats, NeedsSheet: true},
		{Name: "set", Aliases: nil, Help: "Set a rolled ability score (set <ability> <score>)", Category: CategorySheet, Handler: HandlerSetAttr, NeedsSheet: true},
		{Name: "prime", Aliases: nil, Help: "Toggle an ability's prime flag (prime <ability>)", Category: CategorySheet, Handler: HandlerPrime, NeedsSheet: true},
		{Name: "xp", Aliases: nil, Help: "Show or set experience points (xp [total])", Category: CategorySheet, Handler: HandlerXP, NeedsSheet: true},
		{Name: "hp", Aliases: nil, Help: "Show or set current hit points (hp [current])", Category: CategorySheet, Handler: HandlerHP, NeedsSheet: true},
		{Name: "level", Aliases: []string{"lvl"}, Help: "Show level progression and next threshold", Category: CategorySheet, Handler: HandlerLevel, NeedsSheet: true},

		// Inventory commands
		{Name: "inventory", Aliases: []string{"inv", "i"}, Help: "List carried items with encumbrance", Category: CategoryInventory, Handler: HandlerInventory, NeedsSheet: true},
		{Name: "additem", Aliases: []string{"add"}, Help: "Add an item (additem <name> [qty])", Category: CategoryInventory, Handler: HandlerAddItem, NeedsSheet: true},
		{Name: "drop", Aliases: nil, Help: "Remove an item (drop <item>)", Category: CategoryInventory, Handler: HandlerDrop, NeedsSheet: true},
		{Name: "equip", Aliases: []string{"eq"}, Help: "Equip armor or a bonus item (equip <item>)", Category: CategoryInventory, Handler: HandlerEquip, NeedsSheet: true},
		{Name: "unequip", Aliases: []string{"ueq"}, Help: "Unequip an item (unequip <item>)", Category: CategoryInventory, Handler: HandlerUnequip, NeedsSheet: true},
		{Name: "shield", Aliases: nil, Help: "Ready or stow a shield (shield [item])", Category: CategoryInventory, Handler: HandlerShield, NeedsSheet: true},
		{Name: "attacks", Aliases: []string{"atk"}, Help: "Show resolved attack lines", Category: CategoryInventory, Handler: HandlerAttacks, NeedsSheet: true},
		{Name: "wallet", Aliases: []string{"bal", "balance"}, Help: "Show coin purse", Category: CategoryInventory, Handler: HandlerWallet, NeedsSheet: true},
		{Name: "spend", Aliases: nil, Help: "Spend coins (spend <amount> <denomination>)", Category: CategoryInventory, Handler: HandlerSpend, NeedsSheet: true},
		{Name: "deposit", Aliases: nil, Help: "Add coins (deposit <amount> <denomination>)", Category: CategoryInventory, Handler: HandlerDeposit, NeedsSheet: true},

		// Magic commands
		{Name: "spells", Aliases: []string{"sp"}, Help: "List learned spells", Category: CategoryMagic, Handler: HandlerSpells, NeedsSheet: true},
		{Name: "learn", Aliases: nil, Help: "Learn a spell (learn <name> <level>)", Category: CategoryMagic, Handler: HandlerLearn, NeedsSheet: true},
		{Name: "forget", Aliases: nil, Help: "Forget a spell (forget <name>)", Category: CategoryMagic, Handler: HandlerForget, NeedsSheet: true},
		{Name: "grimoire", Aliases: []string{"grim"}, Help: "Show grimoire contents and points", Category: CategoryMagic, Handler: HandlerGrimoire, NeedsSheet: true},
		{Name: "scribe", Aliases: nil, Help: "Scribe a spell into a grimoire (scribe <spell> [permanent])", Category: CategoryMagic, Handler: HandlerScribe, NeedsSheet: true},
		{Name: "promote", Aliases: nil, Help: "Make a scribed spell permanent (promote <spell>)", Category: CategoryMagic, Handler: HandlerPromote, NeedsSheet: true},
		{Name: "cast", Aliases: nil, Help: "Cast a scribed or stored spell (cast <spell>)", Category: CategoryMagic, Handler: HandlerCast, NeedsSheet: true},
		{Name: "item", Aliases: nil, Help: "Manage magic items (item [add <name> <capacity> | remove <name>])", Category: CategoryMagic, Handler: HandlerMagicItem, NeedsSheet: true},
		{Name: "store", Aliases: nil, Help: "Store spell charges in a magic item (store <item> <spell> [count] [permanent])", Category: CategoryMagic, Handler: HandlerStore, NeedsSheet: true},
		{Name: "reset", Aliases: nil, Help: "Restore one magic item's daily charges (reset <item>)", Category: CategoryMagic, Handler: HandlerReset, NeedsSheet: true},
		{Name: "newday", Aliases: nil, Help: "Start a new day, restoring daily spell uses", Category: CategoryMagic, Handler: HandlerNewDay, NeedsSheet: true},
		{Name: "roll", Aliases: []string{"r"}, Help: "Roll dice (roll <expression>)", Category: CategoryMagic, Handler: HandlerRoll},
		{Name: "history", Aliases: []string{"hist"}, Help: "Show recent dice rolls", Category: CategoryMagic, Handler: HandlerHistory},

		// Roster commands
		{Name: "roster", Aliases: []string{"list"}, Help: "List characters in the roster", Category: CategoryRoster, Handler: HandlerRoster},
		{Name: "open", Aliases: nil, Help: "Open a character for editing (open <name>)", Category: CategoryRoster, Handler: HandlerOpen},
		{Name: "close", Aliases: nil, Help: "Close the open character", Category: CategoryRoster, Handler: HandlerClose, NeedsSheet: true},
		{Name: "create", Aliases: nil, Help: "Create a character (create <name> [template])", Category: CategoryRoster, Handler: HandlerCreate},
		{Name: "delete", Aliases: nil, Help: "Delete a character (delete <name>)", Category: CategoryRoster, Handler: HandlerDelete},
		{Name: "export", Aliases: nil, Help: "Export the roster as a JSON archive", Category: CategoryRoster, Handler: HandlerExport},

		// System commands
		{Name: "who", Aliases: nil, Help: "List connected users", Category: CategorySystem, Handler: HandlerWho},
		{Name: "quit", Aliases: []string{"exit"}, Help: "Disconnect", Category: CategorySystem, Handler: HandlerQuit},
		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},

		// Admin commands
		{Name: "setrole", Aliases: nil, Help: "Set an account's role (admin only)", Category: CategoryAdmin, Handler: HandlerSetRole},
		{Name: "import", Aliases: nil, Help: "Import a JSON archive into the roster (admin only)", Category: CategoryAdmin, Handler: HandlerImport},
	}
}
