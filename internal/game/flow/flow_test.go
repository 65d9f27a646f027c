package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/state"
)

type captureOutbox struct {
	texts []string
	media []effect.MediaRef
}

func (c *captureOutbox) SendText(_ context.Context, _ string, text string) error {
	c.texts = append(c.texts, text)
	return nil
}

func (c *captureOutbox) SendMedia(_ context.Context, _ string, m effect.MediaRef) error {
	c.media = append(c.media, m)
	return nil
}

func introCart() *cartridge.Cartridge {
	return &cartridge.Cartridge{
		ID: "fixture",
		Intro: []cartridge.Sequence{
			{
				ID:     "night_one",
				Header: "*Night One*",
				Steps: []cartridge.SequenceStep{
					{Text: "Rain hammers the office window."},
					{TextTpl: "caseFile"},
					{Media: []effect.MediaRef{{Type: "image", URL: "skyline"}}},
				},
			},
			{
				ID: "night_two",
				Steps: []cartridge.SequenceStep{
					{Text: "The phone rings once, then stops."},
				},
			},
		},
		UI: map[string]string{
			"caseFile": "A case file lands on your desk.",
		},
		Media: map[string]map[string]string{
			"images": {"skyline": "https://cdn.example/skyline.jpg"},
		},
	}
}

func newRunner(c *captureOutbox) (*Runner, *cartridge.Cartridge) {
	cart := introCart()
	applier := effect.NewApplier(c, cart.UI, cart.Media, zap.NewNop())
	return NewRunner(cart, applier), cart
}

func TestBeginInEnd(t *testing.T) {
	st := state.New("p", "g")

	assert.True(t, In(st, ""), "fresh players start inside the intro flow")
	assert.True(t, In(st, TypeIntro))
	assert.False(t, In(st, TypeTutorial))

	End(st)
	assert.False(t, In(st, ""))

	Begin(st, TypeTutorial)
	assert.True(t, In(st, TypeTutorial))
	assert.False(t, In(st, TypeIntro))
}

func TestAdvanceDeliversOneSequencePerCall(t *testing.T) {
	out := &captureOutbox{}
	runner, _ := newRunner(out)
	st := state.New("p", "g")
	ctx := context.Background()

	more := runner.Advance(ctx, "p", st)
	assert.True(t, more, "a second sequence remains")
	assert.Equal(t, []string{
		"*Night One*",
		"Rain hammers the office window.",
		"A case file lands on your desk.",
	}, out.texts)
	if assert.Len(t, out.media, 1) {
		assert.Equal(t, "https://cdn.example/skyline.jpg", out.media[0].URL)
	}
	assert.False(t, runner.Done(st))

	more = runner.Advance(ctx, "p", st)
	assert.False(t, more, "bucket exhausted")
	assert.Equal(t, "The phone rings once, then stops.", out.texts[len(out.texts)-1])
	assert.True(t, runner.Done(st))

	// Advancing past the end delivers nothing.
	n := len(out.texts)
	assert.False(t, runner.Advance(ctx, "p", st))
	assert.Len(t, out.texts, n)
}

func TestAdvanceHeaderShownOnce(t *testing.T) {
	out := &captureOutbox{}
	runner, _ := newRunner(out)
	st := state.New("p", "g")

	// A step cursor mid-sequence with the header already shown must not
	// repeat the header.
	st.Flow.HeaderShown = true
	st.Flow.Step = 1

	runner.Advance(context.Background(), "p", st)
	assert.Equal(t, []string{"A case file lands on your desk."}, out.texts)
}

func TestDoneWithoutActiveFlow(t *testing.T) {
	out := &captureOutbox{}
	runner, _ := newRunner(out)
	st := state.New("p", "g")
	End(st)
	assert.True(t, runner.Done(st))
}
