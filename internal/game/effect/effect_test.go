package effect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/game/state"
)

// fakeOutbox records deliveries and can simulate channel failures.
type fakeOutbox struct {
	texts    []string
	media    []MediaRef
	mediaErr error
}

func (f *fakeOutbox) SendText(_ context.Context, _ string, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeOutbox) SendMedia(_ context.Context, _ string, m MediaRef) error {
	if f.mediaErr != nil {
		return f.mediaErr
	}
	f.media = append(f.media, m)
	return nil
}

func newTestApplier(out *fakeOutbox) *Applier {
	templates := map[string]string{
		"take.confirmed": "You pocket the {{item}}.",
		"empty":          "",
	}
	media := map[string]map[string]string{
		"images": {"watchman_portrait": "https://cdn.example.com/watchman.jpg"},
		"audio":  {"foghorn": "https://cdn.example.com/foghorn.ogg"},
	}
	return NewApplier(out, templates, media, zap.NewNop())
}

func TestApplyStateEffects(t *testing.T) {
	out := &fakeOutbox{}
	a := newTestApplier(out)
	st := state.New("p", "g")

	a.Apply(context.Background(), "p", st, []Effect{
		{SetFlag: "opened_object:desk"},
		{IncCounter: "clues_found"},
		{IncCounter: "clues_found", By: 2},
		{RevealItems: []string{"ledger", "brass_key"}},
	})

	assert.True(t, st.HasFlag("opened_object:desk"))
	assert.Equal(t, 3, st.Counter("clues_found"))
	assert.True(t, st.IsRevealed("ledger"))
	assert.True(t, st.IsRevealed("brass_key"))
	assert.Len(t, st.Log, 4, "each effect leaves one audit entry")
	assert.Empty(t, out.texts)
}

func TestApplyIdempotentEffects(t *testing.T) {
	out := &fakeOutbox{}
	a := newTestApplier(out)
	st := state.New("p", "g")

	effects := []Effect{
		{SetFlag: "visited_location:harbor"},
		{RevealItems: []string{"ledger"}},
	}
	a.Apply(context.Background(), "p", st, effects)
	a.Apply(context.Background(), "p", st, effects)

	assert.True(t, st.HasFlag("visited_location:harbor"))
	assert.Equal(t, []string{"ledger"}, st.RevealedItems, "reapplying reveals nothing twice")
}

func TestApplySendText(t *testing.T) {
	out := &fakeOutbox{}
	a := newTestApplier(out)
	st := state.New("p", "g")

	a.Apply(context.Background(), "p", st, []Effect{
		Text("Where to next?"),
		Tpl("take.confirmed", map[string]string{"item": "brass key"}),
		Tpl("no.such.key", nil),
	})

	require.Len(t, out.texts, 2, "missing template sends nothing")
	assert.Equal(t, "Where to next?", out.texts[0])
	assert.Equal(t, "You pocket the brass key.", out.texts[1])
}

func TestApplyMediaResolution(t *testing.T) {
	out := &fakeOutbox{}
	a := newTestApplier(out)
	st := state.New("p", "g")

	a.Apply(context.Background(), "p", st, []Effect{
		{SendMedia: []MediaRef{
			{Type: "image", URL: "watchman_portrait", Caption: "The watchman"},
			{Type: "image", URL: "https://cdn.example.com/passthrough.jpg"},
			{Type: "audio", URL: "foghorn"},
			{Type: "image", URL: "unknown_id"},
		}},
	})

	require.Len(t, out.media, 3, "unknown bucket ids are dropped")
	assert.Equal(t, "https://cdn.example.com/watchman.jpg", out.media[0].URL)
	assert.Equal(t, "The watchman", out.media[0].Caption)
	assert.Equal(t, "https://cdn.example.com/passthrough.jpg", out.media[1].URL)
	assert.Equal(t, "https://cdn.example.com/foghorn.ogg", out.media[2].URL)
}

func TestApplyMediaDegradesToText(t *testing.T) {
	t.Run("unsupported type", func(t *testing.T) {
		out := &fakeOutbox{mediaErr: ErrUnsupportedMedia}
		a := newTestApplier(out)
		st := state.New("p", "g")

		a.Apply(context.Background(), "p", st, []Effect{
			{SendMedia: []MediaRef{{Type: "audio", URL: "foghorn"}}},
		})

		require.Len(t, out.texts, 1)
		assert.Equal(t, "https://cdn.example.com/foghorn.ogg", out.texts[0])
	})

	t.Run("transient failure", func(t *testing.T) {
		out := &fakeOutbox{mediaErr: errors.New("connection reset")}
		a := newTestApplier(out)
		st := state.New("p", "g")

		a.Apply(context.Background(), "p", st, []Effect{
			{SendMedia: []MediaRef{{Type: "image", URL: "watchman_portrait"}}},
		})

		require.Len(t, out.texts, 1)
		assert.Equal(t, "https://cdn.example.com/watchman.jpg", out.texts[0])
	})
}

func TestApplyContinuesPastFailures(t *testing.T) {
	out := &fakeOutbox{mediaErr: errors.New("boom")}
	a := newTestApplier(out)
	st := state.New("p", "g")

	a.Apply(context.Background(), "p", st, []Effect{
		{SendMedia: []MediaRef{{Type: "image", URL: "watchman_portrait"}}},
		{SetFlag: "after_failure"},
	})

	assert.True(t, st.HasFlag("after_failure"), "later effects still apply")
}

func TestResolveMedia(t *testing.T) {
	a := newTestApplier(&fakeOutbox{})

	assert.Equal(t, "https://cdn.example.com/watchman.jpg", a.ResolveMedia("image", "watchman_portrait"))
	assert.Equal(t, "http://x/y.png", a.ResolveMedia("image", "http://x/y.png"))
	assert.Equal(t, "", a.ResolveMedia("image", ""))
	assert.Equal(t, "", a.ResolveMedia("video", "watchman_portrait"))
}
