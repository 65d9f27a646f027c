package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	gamereq "github.com/noirbyte/gumshoe/internal/game/require"
	"github.com/noirbyte/gumshoe/internal/game/state"
)

// offlineGen always fails, forcing the deterministic fallback paths.
type offlineGen struct{}

func (offlineGen) Generate(context.Context, GenerateRequest) (string, error) {
	return "", errors.New("generator offline")
}

// recordingGen echoes a fixed reply and records every request it sees.
type recordingGen struct {
	reply string
	reqs  []GenerateRequest
}

func (g *recordingGen) Generate(_ context.Context, req GenerateRequest) (string, error) {
	g.reqs = append(g.reqs, req)
	return g.reply, nil
}

// fixedCls always proposes the same bucket index.
type fixedCls struct {
	idx int
	err error
}

func (c fixedCls) Classify(context.Context, string, []Bucket, bool) (int, error) {
	return c.idx, c.err
}

func watchman() *cartridge.NPC {
	return &cartridge.NPC{
		ID:   "watchman",
		Name: "Night Watchman",
		Behavior: cartridge.Behavior{
			Clues: []cartridge.Clue{
				{ID: "h1", Text: "Saw a grey sedan idling past midnight.", Kind: "herring"},
				{ID: "real", Text: "The foreman carries a second set of keys.", Kind: "real"},
				{ID: "h2", Text: "Folks say the loft is haunted.", Kind: "gossip"},
			},
			Banter: []string{"Long shift tonight.", "Coffee's gone cold."},
			Fallbacks: cartridge.Fallbacks{
				Stonewall: "Beat it, detective.",
			},
		},
	}
}

func newEngine(t *testing.T, gen Generator, cls Classifier) *Engine {
	t.Helper()
	return NewEngine(gen, cls, 5, 280, zap.NewNop())
}

func TestGreetSetsMetFlagAndActiveNPC(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, offlineGen{}, fixedCls{err: errors.New("down")})
	npc := watchman()
	npc.Behavior.Opening = "Evening. Something I can do for you?"
	st := state.New("p", "g")

	line := eng.Greet(ctx, npc, st)

	assert.Equal(t, "Evening. Something I can do for you?", line)
	assert.True(t, st.HasFlag("met_npc:watchman"))
	assert.Equal(t, "watchman", st.ActiveNPC)
}

func TestGreetFallsBackWhenGenerationFails(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, offlineGen{}, fixedCls{err: errors.New("down")})
	st := state.New("p", "g")

	line := eng.Greet(ctx, watchman(), st)
	assert.Equal(t, "Night Watchman looks you over, waiting.", line)
}

// TestFullVisit walks a complete five-question visit with generation offline:
// banter on odd turns, herrings on even turns, the real clue forced on the
// last turn, then stonewalling, a single recap on re-entry, and stonewalling
// again.
func TestFullVisit(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, offlineGen{}, fixedCls{err: errors.New("down")})
	npc := watchman()
	st := state.New("p", "g")

	eng.Greet(ctx, npc, st)

	ask := func(q string) string {
		t.Helper()
		reply, err := eng.Ask(ctx, npc, st, q)
		require.NoError(t, err)
		return reply
	}

	assert.Equal(t, "Long shift tonight.", ask("seen anything?"))
	assert.Equal(t, "Saw a grey sedan idling past midnight.", ask("anything odd?"))
	assert.Equal(t, "Coffee's gone cold.", ask("who has access?"))
	assert.Equal(t, "Folks say the loft is haunted.", ask("what about the loft?"))

	reply := ask("just tell me")
	assert.Equal(t, "The foreman carries a second set of keys.", reply)

	ts := st.Talk(npc.ID)
	assert.True(t, ts.Closed)
	assert.True(t, ts.Revealed)
	assert.True(t, ts.RecapAvailable)
	assert.Len(t, ts.History, 5)

	assert.Equal(t, "Beat it, detective.", ask("one more thing"))

	// Re-entering the conversation arms exactly one recap.
	eng.Greet(ctx, npc, st)
	assert.Equal(t, "Like I said before: The foreman carries a second set of keys.", ask("what was that clue?"))
	assert.Equal(t, "Beat it, detective.", ask("again?"))
}

func TestForcedRevealWithoutDisclosableClue(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, offlineGen{}, fixedCls{err: errors.New("down")})
	npc := watchman()
	npc.Behavior.Clues[1].When = &gamereq.Node{Flag: "warrant_signed"}
	st := state.New("p", "g")
	st.Talk(npc.ID).Asked = 4

	reply, err := eng.Ask(ctx, npc, st, "talk")
	require.NoError(t, err)
	assert.Equal(t, defaultStonewall, reply, "closes without a reveal when nothing is disclosable")

	ts := st.Talk(npc.ID)
	assert.True(t, ts.Closed)
	assert.False(t, ts.Revealed)
	assert.False(t, ts.RecapAvailable)
}

func TestQuestionTooLongLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	eng := NewEngine(offlineGen{}, fixedCls{}, 5, 16, zap.NewNop())
	npc := watchman()
	st := state.New("p", "g")

	_, err := eng.Ask(ctx, npc, st, "this question is far longer than sixteen bytes")
	require.ErrorIs(t, err, ErrQuestionTooLong)
	assert.Zero(t, st.Talk(npc.ID).Asked)
}

func TestChapterRolloverReopensVisit(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, offlineGen{}, fixedCls{err: errors.New("down")})
	npc := watchman()
	st := state.New("p", "g")

	ts := st.Talk(npc.ID)
	ts.Closed = true
	ts.Revealed = true
	ts.LastTalkChapter = 1

	st.Chapter = 2
	eng.Greet(ctx, npc, st)

	ts = st.Talk(npc.ID)
	assert.False(t, ts.Closed, "closed visits reset when the chapter advances")
	assert.Zero(t, ts.Asked)
	assert.Equal(t, 2, ts.LastTalkChapter)

	reply, err := eng.Ask(ctx, npc, st, "anything new?")
	require.NoError(t, err)
	assert.Equal(t, "Long shift tonight.", reply)
}

func TestScriptedReplySelection(t *testing.T) {
	ctx := context.Background()
	npc := watchman()
	npc.Behavior.Replies = []cartridge.ScriptedReply{
		{Tag: "alibi", Text: "I was at my post all night."},
		{Tag: "rumor", Text: "Ask the harbormaster about that."},
	}
	st := state.New("p", "g")

	eng := newEngine(t, offlineGen{}, fixedCls{idx: 1})
	reply, err := eng.Ask(ctx, npc, st, "where were you?")
	require.NoError(t, err)
	assert.Equal(t, "Ask the harbormaster about that.", reply)
}

func TestScriptedReplyNeverLeaksRealClue(t *testing.T) {
	ctx := context.Background()
	npc := watchman()
	npc.Behavior.Replies = []cartridge.ScriptedReply{
		{Tag: "alibi", Text: "I was at my post all night."},
	}
	st := state.New("p", "g")

	// The classifier points at the appended real-clue bucket; the engine
	// must substitute a scripted reply instead.
	eng := newEngine(t, offlineGen{}, fixedCls{idx: 1})
	reply, err := eng.Ask(ctx, npc, st, "what's the real story?")
	require.NoError(t, err)
	assert.Equal(t, "I was at my post all night.", reply)
}

func TestHerringWrappedByGenerator(t *testing.T) {
	ctx := context.Background()
	gen := &recordingGen{reply: "Now that you mention it, a grey sedan sat out there past midnight."}
	eng := newEngine(t, gen, fixedCls{err: errors.New("down")})
	npc := watchman()
	st := state.New("p", "g")
	st.Talk(npc.ID).Asked = 1

	reply, err := eng.Ask(ctx, npc, st, "anything odd?")
	require.NoError(t, err)
	assert.Equal(t, gen.reply, reply)

	require.Len(t, gen.reqs, 1)
	assert.Equal(t, "Saw a grey sedan idling past midnight.", gen.reqs[0].Inject)
}

func TestBanterExhaustionFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, offlineGen{}, fixedCls{err: errors.New("down")})
	npc := watchman()
	npc.Behavior.Banter = nil
	npc.Behavior.Clues = npc.Behavior.Clues[1:2] // real only, no herrings
	st := state.New("p", "g")

	reply, err := eng.Ask(ctx, npc, st, "seen anything?")
	require.NoError(t, err)
	assert.Equal(t, defaultBanter, reply)
}
