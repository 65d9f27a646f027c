package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	gamereq "github.com/noirbyte/gumshoe/internal/game/require"
	"github.com/noirbyte/gumshoe/internal/game/state"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want ParseResult
	}{
		{"empty", "", ParseResult{}},
		{"blank", "   ", ParseResult{}},
		{"bare slash", "/", ParseResult{Slash: true}},
		{"plain word", "inventory", ParseResult{Command: "inventory"}},
		{"uppercased", "TAKE Brass Key", ParseResult{
			Command: "take", Args: []string{"Brass", "Key"}, RawArgs: "Brass Key",
		}},
		{"slash command", "/move 23", ParseResult{
			Command: "move", Args: []string{"23"}, RawArgs: "23", Slash: true,
		}},
		{"free text preserved", "/ask What did you  see?", ParseResult{
			Command: "ask",
			Args:    []string{"What", "did", "you", "see?"},
			RawArgs: "What did you  see?",
			Slash:   true,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.in))
		})
	}
}

func TestResolve(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	name, ok := r.Resolve("take")
	assert.True(t, ok)
	assert.Equal(t, "take", name)

	name, ok = r.Resolve("grab")
	assert.True(t, ok)
	assert.Equal(t, "take", name, "aliases map to the canonical name")

	name, ok = r.Resolve("invent")
	assert.True(t, ok)
	assert.Equal(t, "inventory", name, "prefixes resolve fuzzily")

	_, ok = r.Resolve("xyzzy")
	assert.False(t, ok)
}

func TestResolveCartridgeAliases(t *testing.T) {
	r, err := NewRegistry(map[string]cartridge.CommandConfig{
		"move": {Aliases: []string{"walk"}},
	})
	require.NoError(t, err)

	name, ok := r.Resolve("walk")
	assert.True(t, ok)
	assert.Equal(t, "move", name)
}

func TestNewRegistryRejectsAliasCollisions(t *testing.T) {
	_, err := NewRegistry(map[string]cartridge.CommandConfig{
		"move": {Aliases: []string{"look"}},
	})
	require.Error(t, err, "look already belongs to show")
	assert.Contains(t, err.Error(), "look")
}

func TestAuthorizeDisabled(t *testing.T) {
	r, err := NewRegistry(map[string]cartridge.CommandConfig{
		"skip": {Disabled: true},
	})
	require.NoError(t, err)
	st := state.New("p", "g")

	// The entry survives so the rejection is explainable.
	_, ok := r.Resolve("skip")
	assert.True(t, ok)

	auth := r.Authorize(st, "skip", time.Now())
	assert.False(t, auth.OK)
	assert.Equal(t, ReasonDisabled, auth.Reason)
}

func TestAuthorizeCooldown(t *testing.T) {
	r, err := NewRegistry(map[string]cartridge.CommandConfig{
		"move": {CooldownSeconds: 3},
	})
	require.NoError(t, err)
	st := state.New("p", "g")
	now := time.Now()

	assert.True(t, r.Authorize(st, "move", now).OK)

	r.StartCooldown(st, "move", now)
	auth := r.Authorize(st, "move", now.Add(time.Second))
	assert.False(t, auth.OK)
	assert.Equal(t, ReasonCooldown, auth.Reason)
	assert.Equal(t, 2*time.Second, auth.RetryIn)

	assert.True(t, r.Authorize(st, "move", now.Add(3*time.Second)).OK)
}

func TestAuthorizeGate(t *testing.T) {
	r, err := NewRegistry(map[string]cartridge.CommandConfig{
		"enter": {Gate: &gamereq.Node{Flag: "introSequenceSeen"}},
	})
	require.NoError(t, err)
	st := state.New("p", "g")

	auth := r.Authorize(st, "enter", time.Now())
	assert.False(t, auth.OK)
	assert.Equal(t, ReasonGated, auth.Reason)

	st.SetFlag("introSequenceSeen")
	assert.True(t, r.Authorize(st, "enter", time.Now()).OK)
}

func TestAuthorizeUnknown(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	auth := r.Authorize(state.New("p", "g"), "nosuch", time.Now())
	assert.False(t, auth.OK)
	assert.Equal(t, ReasonUnknown, auth.Reason)
}

func TestStartCooldownWithoutConfigIsNoop(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	st := state.New("p", "g")
	now := time.Now()

	r.StartCooldown(st, "move", now)
	assert.True(t, r.Authorize(st, "move", now).OK)
}
