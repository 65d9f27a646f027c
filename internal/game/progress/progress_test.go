package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/require"
	"github.com/noirbyte/gumshoe/internal/game/state"
)

type captureOutbox struct {
	texts []string
}

func (c *captureOutbox) SendText(_ context.Context, _ string, text string) error {
	c.texts = append(c.texts, text)
	return nil
}

func (c *captureOutbox) SendMedia(context.Context, string, effect.MediaRef) error {
	return nil
}

func progressionCart() *cartridge.Cartridge {
	return &cartridge.Cartridge{
		ID: "fixture",
		Progression: cartridge.Progression{
			Chapters: []cartridge.Chapter{
				{
					ID:       "ch1",
					Title:    "The Warehouse",
					Requires: &require.Node{Flag: "desk_unlocked"},
					Summary:  &cartridge.Summary{TextTpl: "chapterDone"},
					OnComplete: []effect.Effect{
						{SetFlag: "harbor_gate_open"},
					},
				},
				{
					ID:       "ch2",
					Title:    "The Station",
					Requires: &require.Node{CounterAtLeast: &require.CounterAtLeast{Key: "clues_found", Value: 3}},
				},
			},
		},
		UI: map[string]string{
			"chapterDone": "Chapter {{chapter}}: {{title}} closed.",
		},
	}
}

func newTracker(out *captureOutbox) *Tracker {
	cart := progressionCart()
	applier := effect.NewApplier(out, cart.UI, cart.Media, zap.NewNop())
	return NewTracker(cart, applier, zap.NewNop())
}

func TestCheckAndAdvanceFiresOnce(t *testing.T) {
	ctx := context.Background()
	out := &captureOutbox{}
	tr := newTracker(out)
	st := state.New("p", "g")

	assert.False(t, tr.CheckAndAdvance(ctx, "p", st), "requirements unmet")
	assert.Equal(t, 1, st.Chapter)

	st.SetFlag("desk_unlocked")
	assert.True(t, tr.CheckAndAdvance(ctx, "p", st))
	assert.Equal(t, 2, st.Chapter)
	assert.Equal(t, []int{1}, st.ChaptersCompleted)
	assert.True(t, st.HasFlag("chapter_1_done"))
	assert.True(t, st.HasFlag("harbor_gate_open"), "completion effects applied")
	assert.Equal(t, []string{"Chapter 1: The Warehouse closed."}, out.texts)

	// The flag that satisfied chapter one must not re-fire it.
	assert.False(t, tr.CheckAndAdvance(ctx, "p", st))
	assert.Equal(t, 2, st.Chapter)
	assert.Len(t, out.texts, 1)
}

func TestCheckAndAdvanceSecondChapter(t *testing.T) {
	ctx := context.Background()
	out := &captureOutbox{}
	tr := newTracker(out)
	st := state.New("p", "g")
	st.Chapter = 2
	st.SetFlag("chapter_1_done")

	st.IncCounter("clues_found", 3)
	assert.True(t, tr.CheckAndAdvance(ctx, "p", st))
	assert.Equal(t, 3, st.Chapter)
	// Chapter two has no summary template, so the stock line is sent.
	if assert.Len(t, out.texts, 1) {
		assert.Contains(t, out.texts[0], "Chapter 2 complete")
	}

	// No chapter three exists; nothing more can fire.
	assert.False(t, tr.CheckAndAdvance(ctx, "p", st))
}

func TestUnmet(t *testing.T) {
	out := &captureOutbox{}
	tr := newTracker(out)
	st := state.New("p", "g")

	reasons, ok := tr.Unmet(st)
	assert.True(t, ok)
	if assert.Len(t, reasons, 1) {
		assert.Equal(t, "missing progress: desk_unlocked", reasons[0])
	}

	st.SetFlag("desk_unlocked")
	reasons, ok = tr.Unmet(st)
	assert.True(t, ok)
	assert.Empty(t, reasons)

	st.Chapter = 99
	_, ok = tr.Unmet(st)
	assert.False(t, ok)
}

func TestChapterZeroRepaired(t *testing.T) {
	ctx := context.Background()
	out := &captureOutbox{}
	tr := newTracker(out)
	st := state.New("p", "g")
	st.Chapter = 0

	tr.CheckAndAdvance(ctx, "p", st)
	assert.Equal(t, 1, st.Chapter)
}
