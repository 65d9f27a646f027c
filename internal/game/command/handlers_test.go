package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/dialogue"
	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/flow"
	"github.com/noirbyte/gumshoe/internal/game/progress"
	"github.com/noirbyte/gumshoe/internal/game/state"
	"github.com/noirbyte/gumshoe/internal/game/world"
)

type stubOutbox struct {
	texts []string
	media []effect.MediaRef
}

func (s *stubOutbox) SendText(_ context.Context, _ string, text string) error {
	s.texts = append(s.texts, text)
	return nil
}

func (s *stubOutbox) SendMedia(_ context.Context, _ string, m effect.MediaRef) error {
	s.media = append(s.media, m)
	return nil
}

type stubGen struct{}

func (stubGen) Generate(context.Context, dialogue.GenerateRequest) (string, error) {
	return "", errors.New("offline")
}

type stubCls struct{}

func (stubCls) Classify(context.Context, string, []dialogue.Bucket, bool) (int, error) {
	return 0, errors.New("offline")
}

func caseCartridge() *cartridge.Cartridge {
	return &cartridge.Cartridge{
		ID:    "fixture",
		Start: cartridge.Start{LocationID: "11"},
		World: cartridge.World{
			Locations: []*cartridge.Location{
				{ID: "11", Name: "Dockside"},
				{
					ID:          "23",
					Name:        "Harbor District",
					Description: "Fog rolls off the water.",
					Structures: []*cartridge.Structure{
						{
							ID:        "warehouse",
							Name:      "Old Warehouse",
							Enterable: true,
							Rooms: []*cartridge.Room{
								{
									ID:      "main",
									Objects: []cartridge.EntityRef{{ID: "old_desk"}},
									Items:   []string{"brass_key"},
									NPCs:    []cartridge.EntityRef{{ID: "watchman"}},
								},
							},
						},
					},
				},
			},
			Objects: []*cartridge.Object{
				{
					ID:       "old_desk",
					Name:     "Old Desk",
					Tags:     []string{"openable", "searchable"},
					Contents: []string{"ledger"},
					Lock: &cartridge.Lock{
						Type:             cartridge.LockKey,
						RequiredItems:    []string{"brass_key"},
						Locked:           true,
						AutoOpenOnUnlock: true,
						OnUnlockFlag:     "desk_unlocked",
					},
				},
			},
			Items: []*cartridge.Item{
				{ID: "brass_key", Name: "Brass Key"},
				{ID: "ledger", Name: "Shipping Ledger", ReadText: "Crate 47, signed out after hours."},
			},
			NPCs: []*cartridge.NPC{
				{
					ID:   "watchman",
					Name: "Night Watchman",
					Behavior: cartridge.Behavior{
						Banter: []string{"Long shift tonight."},
					},
				},
			},
		},
		Progression: cartridge.Progression{
			Chapters: []cartridge.Chapter{
				{ID: "1", Title: "The Warehouse"},
			},
		},
	}
}

// harness bundles an invocation with the outbox so tests can both run
// handlers and apply the effects they return, the way dispatch does.
type harness struct {
	inv *Invocation
	out *stubOutbox
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cart := caseCartridge()
	out := &stubOutbox{}
	logger := zap.NewNop()
	applier := effect.NewApplier(out, cart.UI, cart.Media, logger)

	st := state.New("p", cart.ID)
	flow.End(st)
	st.Location = "23"
	st.InStructure = true
	st.StructureID = "warehouse"
	st.RoomID = "main"

	return &harness{
		inv: &Invocation{
			Ctx:       context.Background(),
			Recipient: "p",
			Cart:      cart,
			State:     st,
			View:      world.NewView(cart, st),
			Applier:   applier,
			Dialogue:  dialogue.NewEngine(stubGen{}, stubCls{}, 5, 280, logger),
			Flow:      flow.NewRunner(cart, applier),
			Progress:  progress.NewTracker(cart, applier, logger),
			Logger:    logger,
		},
		out: out,
	}
}

// run executes a handler with the given args and applies its effects.
func (h *harness) run(t *testing.T, handler Handler, args ...string) []effect.Effect {
	t.Helper()
	h.inv.Args = args
	h.inv.RawArgs = ""
	if len(args) > 0 {
		h.inv.RawArgs = args[0]
		for _, a := range args[1:] {
			h.inv.RawArgs += " " + a
		}
	}
	effects, err := handler(h.inv)
	require.NoError(t, err)
	h.inv.Applier.Apply(h.inv.Ctx, h.inv.Recipient, h.inv.State, effects)
	return effects
}

func (h *harness) lastText() string {
	if len(h.out.texts) == 0 {
		return ""
	}
	return h.out.texts[len(h.out.texts)-1]
}

// TestDeskCaseFlow walks the core investigation loop: take the key, use it
// on the desk, open it, take and read what's inside.
func TestDeskCaseFlow(t *testing.T) {
	h := newHarness(t)
	st := h.inv.State

	h.run(t, Take, "brass", "key")
	assert.True(t, st.HasItem("brass_key"))
	assert.True(t, st.HasFlag("has_item:brass_key"))
	assert.Equal(t, "Taken: Brass Key.", h.lastText())

	h.run(t, Use, "brass", "key", "on", "desk")
	assert.True(t, st.HasFlag("desk_unlocked"))
	assert.False(t, h.inv.View.EffectiveLocked("old_desk"))
	assert.True(t, h.inv.View.EffectiveOpened("old_desk"), "the key lock auto-opens")
	assert.Equal(t, "Unlocked Old Desk.", h.lastText())

	h.run(t, Open, "desk")
	assert.True(t, st.IsRevealed("ledger"))
	assert.Contains(t, h.lastText(), "Shipping Ledger")

	h.run(t, Take, "ledger")
	assert.True(t, st.HasItem("ledger"))

	h.run(t, Read, "ledger")
	assert.Equal(t, "Crate 47, signed out after hours.", h.lastText())
}

func TestOpenLockedDesk(t *testing.T) {
	h := newHarness(t)

	h.run(t, Open, "desk")
	assert.Contains(t, h.lastText(), "locked")
	assert.False(t, h.inv.State.IsRevealed("ledger"))
	assert.Equal(t, "old_desk", h.inv.State.Focus, "failed opens still set focus")
}

func TestUseFallsBackToFocusedObject(t *testing.T) {
	h := newHarness(t)
	h.run(t, Take, "brass", "key")
	h.run(t, Check, "desk")
	require.Equal(t, "old_desk", h.inv.State.Focus)

	// "use key" with no target works against the focused desk.
	h.run(t, Use, "key")
	assert.True(t, h.inv.State.HasFlag("desk_unlocked"))
}

func TestUseWrongItem(t *testing.T) {
	h := newHarness(t)
	h.run(t, Use, "crowbar", "on", "desk")
	assert.True(t, h.inv.View.EffectiveLocked("old_desk"))
	assert.Contains(t, h.lastText(), "doesn't work")
}

func TestSearchClosedDesk(t *testing.T) {
	h := newHarness(t)
	st := h.inv.State

	unlocked := false
	st.PatchObject("old_desk", state.ObjectOverlay{Locked: &unlocked})

	h.run(t, Search, "desk")
	assert.Contains(t, h.lastText(), "closed")
	assert.False(t, st.IsRevealed("ledger"))
}

func TestTakeOutside(t *testing.T) {
	h := newHarness(t)
	h.inv.State.InStructure = false

	h.run(t, Take, "brass", "key")
	assert.False(t, h.inv.State.HasItem("brass_key"))
	assert.Contains(t, h.lastText(), "not inside")
}

func TestDropClearsItemFlag(t *testing.T) {
	h := newHarness(t)
	h.run(t, Take, "brass", "key")

	h.run(t, Drop, "key")
	assert.False(t, h.inv.State.HasItem("brass_key"))
	assert.False(t, h.inv.State.HasFlag("has_item:brass_key"))
	assert.Equal(t, "Dropped: Brass Key.", h.lastText())
}

func TestInventory(t *testing.T) {
	h := newHarness(t)

	h.run(t, Inventory)
	assert.Equal(t, "Your pockets are empty.", h.lastText())

	h.run(t, Take, "brass", "key")
	h.run(t, Inventory)
	assert.Contains(t, h.lastText(), "- Brass Key")
}

func TestTalkToAndAsk(t *testing.T) {
	h := newHarness(t)
	st := h.inv.State

	// A lone visible NPC is selected without a token.
	h.run(t, TalkTo)
	assert.Equal(t, "watchman", st.ActiveNPC)
	assert.True(t, st.HasFlag("met_npc:watchman"))
	assert.Equal(t, askHint, h.lastText())

	h.inv.Args = nil
	h.inv.RawArgs = "What did you see?"
	effects, err := Ask(h.inv)
	require.NoError(t, err)
	h.inv.Applier.Apply(h.inv.Ctx, h.inv.Recipient, st, effects)
	assert.Equal(t, "*Night Watchman:* Long shift tonight.", h.lastText())
}

func TestAskWithoutPartner(t *testing.T) {
	h := newHarness(t)
	h.inv.RawArgs = "anything?"
	effects, err := Ask(h.inv)
	require.NoError(t, err)
	h.inv.Applier.Apply(h.inv.Ctx, h.inv.Recipient, h.inv.State, effects)
	assert.Contains(t, h.lastText(), "Talk to someone first")
}

func TestShowModes(t *testing.T) {
	h := newHarness(t)

	h.run(t, Show, "objects")
	assert.Contains(t, h.lastText(), "- Old Desk")

	h.run(t, Show, "people")
	assert.Contains(t, h.lastText(), "- Night Watchman")

	h.run(t, Show, "items")
	assert.Contains(t, h.lastText(), "no items visible")
}

func TestMoveEnterExit(t *testing.T) {
	h := newHarness(t)
	st := h.inv.State
	st.Location = "11"
	st.InStructure = false
	st.StructureID = ""
	st.RoomID = ""

	h.run(t, Move, "23")
	assert.Equal(t, "23", st.Location)
	assert.False(t, st.InStructure)
	assert.Contains(t, h.lastText(), "enter")

	h.run(t, Move, "23")
	assert.Equal(t, "You're already here.", h.lastText())

	h.run(t, Move, "99")
	assert.Contains(t, h.lastText(), "Invalid move")

	h.run(t, Move, "33")
	assert.Contains(t, h.lastText(), "No such intersection")

	h.run(t, Enter, "warehouse")
	assert.True(t, st.InStructure)
	assert.Equal(t, "warehouse", st.StructureID)
	assert.Equal(t, "main", st.RoomID)

	h.run(t, Exit)
	assert.False(t, st.InStructure)
	assert.Equal(t, "Where to next?", h.lastText())
}

func TestResetRestartsIntro(t *testing.T) {
	h := newHarness(t)
	st := h.inv.State
	st.SetFlag("desk_unlocked")
	st.AddItem("brass_key")

	h.run(t, Reset)
	assert.True(t, st.Flow.Active)
	assert.Equal(t, flow.TypeIntro, st.Flow.Type)
	assert.False(t, st.HasFlag("desk_unlocked"))
	assert.Empty(t, st.Inventory)
}
