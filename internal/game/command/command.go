// Package command provides the command registry, parser, and the handlers
// behind the player-facing command surface.
package command

// Categories for organizing commands.
const (
	CategoryMovement  = "movement"
	CategoryWorld     = "world"
	CategoryItems     = "items"
	CategoryDialogue  = "dialogue"
	CategorySystem    = "system"
)

// Definition declares one player-invocable command.
type Definition struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names; cartridges may extend them.
	Aliases []string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command.
	Category string
}

// BuiltinDefinitions returns the canonical command surface. Cartridges may
// add aliases, cooldowns, and gates per command but the canonical names are
// fixed.
func BuiltinDefinitions() []Definition {
	return []Definition{
		// Movement
		{Name: "move", Aliases: []string{"go"}, Help: "Move to a grid intersection (move 23)", Category: CategoryMovement},
		{Name: "enter", Aliases: nil, Help: "Enter a building at this intersection", Category: CategoryMovement},
		{Name: "exit", Aliases: nil, Help: "Step back out to the street", Category: CategoryMovement},

		// World
		{Name: "show", Aliases: []string{"look"}, Help: "Look around (show objects|people|items)", Category: CategoryWorld},
		{Name: "check", Aliases: []string{"examine", "investigate", "inspect"}, Help: "Examine something up close", Category: CategoryWorld},
		{Name: "open", Aliases: nil, Help: "Open an object", Category: CategoryWorld},
		{Name: "search", Aliases: nil, Help: "Search an object for items", Category: CategoryWorld},

		// Items
		{Name: "take", Aliases: []string{"pick", "pickup", "grab"}, Help: "Take an item", Category: CategoryItems},
		{Name: "use", Aliases: nil, Help: "Use an item (use key on desk)", Category: CategoryItems},
		{Name: "drop", Aliases: nil, Help: "Drop an item from your inventory", Category: CategoryItems},
		{Name: "read", Aliases: nil, Help: "Read a document you carry", Category: CategoryItems},
		{Name: "inventory", Aliases: []string{"inv", "bag"}, Help: "List what you carry", Category: CategoryItems},

		// Dialogue
		{Name: "talkto", Aliases: []string{"talk"}, Help: "Start a conversation with someone", Category: CategoryDialogue},
		{Name: "ask", Aliases: []string{"question", "askto"}, Help: "Ask your conversation partner a question", Category: CategoryDialogue},

		// System
		{Name: "progress", Aliases: nil, Help: "Show chapter progress", Category: CategorySystem},
		{Name: "next", Aliases: nil, Help: "Continue the introduction", Category: CategorySystem},
		{Name: "skip", Aliases: nil, Help: "Skip the introduction (dev only)", Category: CategorySystem},
		{Name: "reset", Aliases: []string{"restart"}, Help: "Wipe your progress and restart", Category: CategorySystem},
	}
}
