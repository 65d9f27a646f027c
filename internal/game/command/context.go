package command

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/dialogue"
	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/flow"
	"github.com/noirbyte/gumshoe/internal/game/match"
	"github.com/noirbyte/gumshoe/internal/game/progress"
	"github.com/noirbyte/gumshoe/internal/game/state"
	"github.com/noirbyte/gumshoe/internal/game/world"
)

// Invocation carries everything a handler needs for one command: the shared
// read-only cartridge, the player's mutable state, a fresh world view, and
// the collaborators for effects, dialogue, flows, and progression.
type Invocation struct {
	Ctx       context.Context
	Recipient string

	Cart  *cartridge.Cartridge
	State *state.PlayerState
	View  *world.View

	Applier  *effect.Applier
	Dialogue *dialogue.Engine
	Flow     *flow.Runner
	Progress *progress.Tracker
	Hooks    HookRunner
	Logger   *zap.Logger

	Args    []string
	RawArgs string
	DevMode bool
}

// Handler executes one command and returns the declarative effects to apply.
// Handlers mutate PlayerState directly for world-state changes and return
// effects for everything player-visible, so a single applier executes all
// output and the audit log stays complete.
type Handler func(inv *Invocation) ([]effect.Effect, error)

// Handlers returns the canonical name → handler table.
func Handlers() map[string]Handler {
	return map[string]Handler{
		"move":      Move,
		"enter":     Enter,
		"exit":      Exit,
		"show":      Show,
		"check":     Check,
		"open":      Open,
		"search":    Search,
		"take":      Take,
		"use":       Use,
		"drop":      Drop,
		"read":      Read,
		"inventory": Inventory,
		"talkto":    TalkTo,
		"ask":       Ask,
		"progress":  Progress,
		"next":      Next,
		"skip":      Skip,
		"reset":     Reset,
	}
}

// msg renders a UI template, falling back to the literal default when the
// cartridge does not define the key.
func (inv *Invocation) msg(key, fallback string, vars map[string]string) effect.Effect {
	if inv.Cart.Template(key) != "" {
		return effect.Tpl(key, vars)
	}
	return effect.Text(fallback)
}

// token joins the args into the single entity token most handlers resolve.
func (inv *Invocation) token() string {
	return strings.TrimSpace(strings.Join(inv.Args, " "))
}

// objectCandidates builds the resolver input for the visible objects in the
// current room, in cartridge order.
func objectCandidates(objs []*cartridge.Object) []match.Candidate {
	out := make([]match.Candidate, 0, len(objs))
	for _, o := range objs {
		out = append(out, match.Candidate{ID: o.ID, Fields: []string{o.Name}})
	}
	return out
}

// npcCandidates builds the resolver input for the visible NPCs.
func npcCandidates(npcs []*cartridge.NPC) []match.Candidate {
	out := make([]match.Candidate, 0, len(npcs))
	for _, n := range npcs {
		out = append(out, match.Candidate{ID: n.ID, Fields: []string{n.Name}})
	}
	return out
}

// itemCandidates builds the resolver input for a set of items.
func itemCandidates(items []*cartridge.Item) []match.Candidate {
	out := make([]match.Candidate, 0, len(items))
	for _, it := range items {
		out = append(out, match.Candidate{ID: it.ID, Fields: []string{it.Name}})
	}
	return out
}

// formatList renders names as prose: "a", "a and b", "a, b, and c".
func formatList(names []string) string {
	var arr []string
	for _, n := range names {
		if n != "" {
			arr = append(arr, n)
		}
	}
	switch len(arr) {
	case 0:
		return "nothing notable"
	case 1:
		return arr[0]
	case 2:
		return arr[0] + " and " + arr[1]
	default:
		return strings.Join(arr[:len(arr)-1], ", ") + ", and " + arr[len(arr)-1]
	}
}

// bullets renders names one per line, or the empty message.
func bullets(names []string, empty string) string {
	var arr []string
	for _, n := range names {
		if n != "" {
			arr = append(arr, "- "+n)
		}
	}
	if len(arr) == 0 {
		return empty
	}
	return strings.Join(arr, "\n")
}

// starred renders names bolded and comma-separated for suggestion lists.
func starred(names []string) string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, fmt.Sprintf("*%s*", n))
	}
	return strings.Join(out, ", ")
}
