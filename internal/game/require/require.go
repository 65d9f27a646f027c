// Package require implements the boolean requirements DSL used for command
// gates, room/NPC visibility conditions, and chapter-advance rules.
//
// A requirement is a tree of nodes. Each node carries exactly one of the
// combinator or leaf fields; unknown leaves evaluate to true so that newer
// cartridges keep working on older engines.
package require

import (
	"fmt"
	"strings"

	"github.com/noirbyte/gumshoe/internal/game/state"
)

// CounterAtLeast is the {key, value} leaf payload.
type CounterAtLeast struct {
	Key   string `yaml:"key" json:"key"`
	Value int    `yaml:"value" json:"value"`
}

// Node is one node of a requirement tree.
type Node struct {
	AllOf []*Node `yaml:"allOf,omitempty" json:"allOf,omitempty"`
	AnyOf []*Node `yaml:"anyOf,omitempty" json:"anyOf,omitempty"`
	Not   *Node   `yaml:"not,omitempty" json:"not,omitempty"`

	Flag           string          `yaml:"flag,omitempty" json:"flag,omitempty"`
	Item           string          `yaml:"item,omitempty" json:"item,omitempty"`
	CounterAtLeast *CounterAtLeast `yaml:"counterAtLeast,omitempty" json:"counterAtLeast,omitempty"`
	LocationIs     string          `yaml:"locationIs,omitempty" json:"locationIs,omitempty"`
	StructureIs    string          `yaml:"structureIs,omitempty" json:"structureIs,omitempty"`

	// Legacy shorthand fields, translated by normalize(). A node using these
	// must not also use the tree fields above.
	Location    string   `yaml:"location,omitempty" json:"location,omitempty"`
	InStructure *bool    `yaml:"inStructure,omitempty" json:"inStructure,omitempty"`
	Items       []string `yaml:"items,omitempty" json:"items,omitempty"`
	Flags       []string `yaml:"flags,omitempty" json:"flags,omitempty"`
	TalkedTo    []string `yaml:"talkedTo,omitempty" json:"talkedTo,omitempty"`
}

// normalize translates the legacy shorthand into tree form: a conjunction of
// the corresponding leaves. Returns n unchanged when no shorthand is present.
func (n *Node) normalize() *Node {
	if n == nil {
		return nil
	}
	if n.Location == "" && n.InStructure == nil && len(n.Items) == 0 &&
		len(n.Flags) == 0 && len(n.TalkedTo) == 0 {
		return n
	}
	var parts []*Node
	if n.Location != "" {
		parts = append(parts, &Node{LocationIs: n.Location})
	}
	if n.InStructure != nil {
		leaf := &Node{StructureIs: "*"}
		if !*n.InStructure {
			leaf = &Node{Not: leaf}
		}
		parts = append(parts, leaf)
	}
	for _, it := range n.Items {
		parts = append(parts, &Node{Item: it})
	}
	for _, f := range n.Flags {
		parts = append(parts, &Node{Flag: f})
	}
	for _, npc := range n.TalkedTo {
		// "talked to" is satisfied by having met the NPC, having unlocked
		// their clue, or the legacy talked flag.
		parts = append(parts, &Node{AnyOf: []*Node{
			{Flag: "met_npc:" + npc},
			{Flag: "clue_unlocked:" + npc},
			{Flag: "talked_to:" + npc},
		}})
	}
	return &Node{AllOf: parts}
}

// Evaluate reports whether the requirement holds for the given state.
// A nil node is vacuously true.
//
// Postcondition: pure; never mutates st.
func Evaluate(n *Node, st *state.PlayerState) bool {
	if n == nil || st == nil {
		return true
	}
	n = n.normalize()

	switch {
	case n.AllOf != nil:
		for _, c := range n.AllOf {
			if !Evaluate(c, st) {
				return false
			}
		}
		return true
	case n.AnyOf != nil:
		for _, c := range n.AnyOf {
			if Evaluate(c, st) {
				return true
			}
		}
		return false
	case n.Not != nil:
		return !Evaluate(n.Not, st)
	case n.Flag != "":
		return st.HasFlag(n.Flag)
	case n.Item != "":
		return st.HasItem(n.Item)
	case n.CounterAtLeast != nil:
		return st.Counter(n.CounterAtLeast.Key) >= n.CounterAtLeast.Value
	case n.LocationIs != "":
		return st.Location == n.LocationIs
	case n.StructureIs != "":
		if n.StructureIs == "*" {
			return st.InStructure
		}
		return st.InStructure && st.StructureID == n.StructureIs
	default:
		// Unknown leaf kinds fail open.
		return true
	}
}

// Explain returns human-readable reasons for each unsatisfied leaf.
// An empty slice means the requirement is met. An anyOf reports all child
// reasons only when no child is satisfied; a not reports a single generic
// reason when its negation fails.
func Explain(n *Node, st *state.PlayerState) []string {
	if n == nil || Evaluate(n, st) {
		return nil
	}
	n = n.normalize()

	switch {
	case n.AllOf != nil:
		var reasons []string
		for _, c := range n.AllOf {
			reasons = append(reasons, Explain(c, st)...)
		}
		return reasons
	case n.AnyOf != nil:
		var reasons []string
		for _, c := range n.AnyOf {
			reasons = append(reasons, Explain(c, st)...)
		}
		if len(reasons) == 0 {
			return []string{"none of the alternatives is satisfied"}
		}
		return []string{"any of: " + strings.Join(reasons, " / ")}
	case n.Not != nil:
		return []string{"a condition must not hold yet"}
	case n.Flag != "":
		return []string{fmt.Sprintf("missing progress: %s", prettyFlag(n.Flag))}
	case n.Item != "":
		return []string{fmt.Sprintf("you need the item %q", n.Item)}
	case n.CounterAtLeast != nil:
		return []string{fmt.Sprintf("%s must reach %d (now %d)",
			n.CounterAtLeast.Key, n.CounterAtLeast.Value, st.Counter(n.CounterAtLeast.Key))}
	case n.LocationIs != "":
		return []string{fmt.Sprintf("you must be at location %s", n.LocationIs)}
	case n.StructureIs != "":
		if n.StructureIs == "*" {
			return []string{"you must be inside a building"}
		}
		return []string{fmt.Sprintf("you must be inside %s", n.StructureIs)}
	default:
		return nil
	}
}

// prettyFlag renders well-known flag namespaces as friendlier phrases.
func prettyFlag(flag string) string {
	if npc, ok := strings.CutPrefix(flag, "met_npc:"); ok {
		return "meet " + npc
	}
	if loc, ok := strings.CutPrefix(flag, "visited_location:"); ok {
		return "visit location " + loc
	}
	return flag
}

// FromConds translates the inline condition strings used on room entries
// ("flag:x", "!flag:x", "hasItem:y") into a requirement tree.
// Unknown entries are dropped (fail open).
func FromConds(conds []string) *Node {
	if len(conds) == 0 {
		return nil
	}
	var parts []*Node
	for _, c := range conds {
		switch {
		case strings.HasPrefix(c, "flag:"):
			parts = append(parts, &Node{Flag: strings.TrimPrefix(c, "flag:")})
		case strings.HasPrefix(c, "!flag:"):
			parts = append(parts, &Node{Not: &Node{Flag: strings.TrimPrefix(c, "!flag:")}})
		case strings.HasPrefix(c, "hasItem:"):
			parts = append(parts, &Node{Item: strings.TrimPrefix(c, "hasItem:")})
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return &Node{AllOf: parts}
}
