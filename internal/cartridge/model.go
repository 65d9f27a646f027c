// Package cartridge defines the world-definition bundle: the catalog of
// locations, structures, rooms, objects, items, and NPCs, plus sequencing
// data and the chapter progression table. A loaded Cartridge is read-only
// and safe to share across concurrent players.
package cartridge

import (
	"fmt"
	"strings"

	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/require"
)

// Lock types supported by the lock descriptor.
const (
	LockKey           = "key"
	LockCode          = "code"
	LockPin           = "pin"
	LockAuthorization = "authorization"
	LockBreakable     = "breakable"
)

// Cartridge is one playable world. Catalog rows are addressed by stable
// string ids; display names resolve through DisplayName().
type Cartridge struct {
	// ID uniquely identifies the game.
	ID string
	// Title is the player-facing game title.
	Title string
	// Version is the cartridge content version.
	Version string
	// Start describes where a fresh player begins.
	Start Start
	// World holds the catalog collections.
	World World
	// Intro and Tutorial are scripted sequences advanced by "next".
	Intro    []Sequence
	Tutorial []Sequence
	// Progression maps chapter numbers to advance requirements and
	// completion effects.
	Progression Progression
	// Commands holds per-command overrides: aliases, cooldowns, gates.
	Commands map[string]CommandConfig
	// UI is the template dictionary used by sendTextTpl effects.
	UI map[string]string
	// Media holds url buckets keyed by kind ("images", "audio", "video",
	// "doc") then by asset id.
	Media map[string]map[string]string
}

// Start describes initial placement for a new player.
type Start struct {
	// LocationID is where a fresh PlayerState is placed.
	LocationID string
	// Flags are set on game start before the intro flow begins.
	Flags []string
}

// World is the catalog of addressable entities.
type World struct {
	Locations []*Location
	Objects   []*Object
	Items     []*Item
	NPCs      []*NPC
}

// Location is a node in the flat movement grid. Movement between locations
// is teleport-by-id; there is no pathfinding.
type Location struct {
	ID          string
	Name        string
	Description string
	Structures  []*Structure
	// OnArrival and OnExit name hook scripts run by the scripting layer.
	OnArrival string
	OnExit    string
}

// Structure is an enterable building or area inside a location.
type Structure struct {
	ID        string
	Name      string
	Enterable bool
	Rooms     []*Room
	OnEnter   string
	OnExit    string
	// OnExitMedia is delivered when the player leaves the structure.
	OnExitMedia []effect.MediaRef
}

// Room holds the entities a player can interact with while inside a
// structure. Object and NPC entries carry optional visibility conditions.
type Room struct {
	ID      string
	Objects []EntityRef
	Items   []string
	NPCs    []EntityRef
	// Conditions are legacy room-entry conditions ("flag:x", "!flag:y",
	// "hasItem:z") translated into the requirements tree at load time.
	Conditions []string
}

// EntityRef points at a catalog entity, optionally gated by a visibility
// condition evaluated per player.
type EntityRef struct {
	ID          string
	VisibleWhen *require.Node
}

// Lock describes how an object resists opening. Type selects the unlock
// mechanism; the remaining fields configure it.
type Lock struct {
	Type string
	// RequiredItems lists inventory items that operate a key or breakable
	// lock. A single-item cartridge shorthand is folded in at load time.
	RequiredItems []string
	// RequiredCode and AcceptedCodes configure code/pin locks.
	RequiredCode  string
	AcceptedCodes []string
	CaseSensitive bool
	// Locked and Broken are the catalog defaults; per-player overlays
	// shadow them.
	Locked bool
	Broken bool
	// AutoOpenOnUnlock opens the object in the same patch that unlocks it.
	AutoOpenOnUnlock bool
	// OnUnlockFlag is set when the lock first opens.
	OnUnlockFlag string
	// Player-facing message overrides. Empty fields fall back to the UI
	// template table.
	LockedHint  string
	UnlockMsg   string
	CodeFailMsg string
	BreakMsg    string
	FailMsg     string
}

// AcceptsCode reports whether input operates a code or pin lock.
func (l *Lock) AcceptsCode(input string) bool {
	if l.Type != LockCode && l.Type != LockPin {
		return false
	}
	match := func(want string) bool {
		if l.CaseSensitive {
			return input == want
		}
		return strings.EqualFold(input, want)
	}
	for _, c := range l.AcceptedCodes {
		if match(c) {
			return true
		}
	}
	return l.RequiredCode != "" && match(l.RequiredCode)
}

// Object is a catalog-defined interactable. Per-player lock/open/broken
// state lives in the player overlay, never here.
type Object struct {
	ID          string
	Name        string
	Description string
	// Tags mark capabilities: "openable", "searchable", "lockable",
	// "usable", "takeable".
	Tags     []string
	Lock     *Lock
	Contents []string
	// Opened is the catalog default open state.
	Opened bool
	Media  []effect.MediaRef
}

// HasTag reports whether the object carries the given capability tag.
func (o *Object) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Item is a catalog-defined carryable.
type Item struct {
	ID          string
	Name        string
	Description string
	// ReadText is shown by the read command; empty means the item is not
	// readable.
	ReadText string
	Media    []effect.MediaRef
}

// Clue is one entry in an NPC's ordered disclosure list.
type Clue struct {
	ID   string
	Text string
	// Kind is "real" for the chapter-relevant clue, otherwise a herring
	// type ("herring", "gossip", "vague", ...).
	Kind string
	// When gates whether the clue may surface at all.
	When *require.Node
}

// Real reports whether the clue resolves part of the mystery.
func (c *Clue) Real() bool { return c.Kind == "real" }

// ScriptedReply is a canned answer selected by the question classifier.
type ScriptedReply struct {
	Tag  string
	Text string
}

// Fallbacks are the deterministic lines used when generation fails or the
// conversation is closed.
type Fallbacks struct {
	ForcedClue string
	Stonewall  string
}

// Behavior configures an NPC's conversation engine.
type Behavior struct {
	Persona string
	Style   string
	Opening string
	Voice   string
	Clues   []Clue
	Banter  []string
	Replies []ScriptedReply
	Fallbacks
}

// NPC is a catalog-defined character.
type NPC struct {
	ID          string
	Name        string
	Description string
	Images      []string
	Behavior    Behavior
}

// RealClue returns the first clue tagged real whose gate passes per check,
// or nil when the NPC has nothing to disclose yet.
func (n *NPC) RealClue(check func(*require.Node) bool) *Clue {
	for i := range n.Behavior.Clues {
		c := &n.Behavior.Clues[i]
		if c.Real() && (c.When == nil || check(c.When)) {
			return c
		}
	}
	return nil
}

// Sequence is one chapter of a scripted intro or tutorial flow: an optional
// header line followed by steps delivered in order.
type Sequence struct {
	ID     string
	Header string
	Steps  []SequenceStep
}

// SequenceStep is one beat of a scripted sequence.
type SequenceStep struct {
	Text    string
	TextTpl string
	Media   []effect.MediaRef
}

// Sequences returns the sequence bucket for a flow type ("intro" or
// "tutorial").
func (c *Cartridge) Sequences(flowType string) []Sequence {
	switch flowType {
	case "intro":
		return c.Intro
	case "tutorial":
		return c.Tutorial
	default:
		return nil
	}
}

// Chapter gates progression. Requires is evaluated on every command; the
// completion effects apply exactly once.
type Chapter struct {
	ID       string
	Title    string
	Requires *require.Node
	Summary  *Summary
	// OnComplete runs after the summary when the chapter closes.
	OnComplete []effect.Effect
}

// Summary is the chapter-complete payload.
type Summary struct {
	TextTpl string
	Media   []effect.MediaRef
}

// Progression is the ordered chapter table. Chapter N is Chapters[N-1].
type Progression struct {
	Chapters []Chapter
}

// ChapterAt returns the chapter for a 1-based chapter number.
func (p Progression) ChapterAt(n int) (Chapter, bool) {
	if n < 1 || n > len(p.Chapters) {
		return Chapter{}, false
	}
	return p.Chapters[n-1], true
}

// CommandConfig overrides dispatch behavior for one canonical command.
type CommandConfig struct {
	// Disabled removes the command from the surface entirely.
	Disabled bool
	// Aliases extend the built-in alias table.
	Aliases []string
	// CooldownSeconds throttles repeat invocations per player.
	CooldownSeconds int
	// Gate must evaluate true before the handler runs.
	Gate *require.Node
}

// Location returns the location with the given id.
func (c *Cartridge) Location(id string) (*Location, bool) {
	for _, l := range c.World.Locations {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// Object returns the catalog object with the given id.
func (c *Cartridge) Object(id string) (*Object, bool) {
	for _, o := range c.World.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// Item returns the catalog item with the given id.
func (c *Cartridge) Item(id string) (*Item, bool) {
	for _, it := range c.World.Items {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}

// NPC returns the catalog NPC with the given id.
func (c *Cartridge) NPC(id string) (*NPC, bool) {
	for _, n := range c.World.NPCs {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Template returns the UI template for key, or "" when absent.
func (c *Cartridge) Template(key string) string { return c.UI[key] }

// Validate checks internal consistency: non-empty ids, resolvable start
// location, and that every room reference points at a catalog row.
//
// Postcondition: returns nil only if every cross-reference resolves.
func (c *Cartridge) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("cartridge ID must not be empty")
	}
	if len(c.World.Locations) == 0 {
		return fmt.Errorf("cartridge %q: must contain at least one location", c.ID)
	}
	if c.Start.LocationID == "" {
		return fmt.Errorf("cartridge %q: start location must not be empty", c.ID)
	}
	if _, ok := c.Location(c.Start.LocationID); !ok {
		return fmt.Errorf("cartridge %q: start location %q not found", c.ID, c.Start.LocationID)
	}
	seen := make(map[string]bool)
	for _, loc := range c.World.Locations {
		if loc.ID == "" {
			return fmt.Errorf("cartridge %q: location with empty ID", c.ID)
		}
		if seen[loc.ID] {
			return fmt.Errorf("cartridge %q: duplicate location ID %q", c.ID, loc.ID)
		}
		seen[loc.ID] = true
		for _, st := range loc.Structures {
			if st.ID == "" {
				return fmt.Errorf("location %q: structure with empty ID", loc.ID)
			}
			for _, room := range st.Rooms {
				if err := c.validateRoom(loc, st, room); err != nil {
					return err
				}
			}
		}
	}
	for _, obj := range c.World.Objects {
		if err := c.validateObject(obj); err != nil {
			return err
		}
	}
	for i, ch := range c.Progression.Chapters {
		if ch.ID == "" {
			return fmt.Errorf("cartridge %q: chapter %d has empty ID", c.ID, i+1)
		}
	}
	return nil
}

func (c *Cartridge) validateRoom(loc *Location, st *Structure, room *Room) error {
	if room.ID == "" {
		return fmt.Errorf("structure %q: room with empty ID", st.ID)
	}
	for _, ref := range room.Objects {
		if _, ok := c.Object(ref.ID); !ok {
			return fmt.Errorf("room %q in %q: object %q not in catalog", room.ID, loc.ID, ref.ID)
		}
	}
	for _, id := range room.Items {
		if _, ok := c.Item(id); !ok {
			return fmt.Errorf("room %q in %q: item %q not in catalog", room.ID, loc.ID, id)
		}
	}
	for _, ref := range room.NPCs {
		if _, ok := c.NPC(ref.ID); !ok {
			return fmt.Errorf("room %q in %q: npc %q not in catalog", room.ID, loc.ID, ref.ID)
		}
	}
	return nil
}

func (c *Cartridge) validateObject(obj *Object) error {
	if obj.ID == "" {
		return fmt.Errorf("cartridge %q: object with empty ID", c.ID)
	}
	for _, id := range obj.Contents {
		if _, ok := c.Item(id); !ok {
			return fmt.Errorf("object %q: content item %q not in catalog", obj.ID, id)
		}
	}
	if obj.Lock != nil {
		switch obj.Lock.Type {
		case LockKey, LockCode, LockPin, LockAuthorization, LockBreakable:
		default:
			return fmt.Errorf("object %q: unknown lock type %q", obj.ID, obj.Lock.Type)
		}
		if obj.Lock.Type == LockKey && len(obj.Lock.RequiredItems) == 0 {
			return fmt.Errorf("object %q: key lock requires at least one item", obj.ID)
		}
	}
	return nil
}
