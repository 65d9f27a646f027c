// Package dialogue paces NPC clue disclosure across bounded conversation
// turns. Each visit guarantees the real clue is delivered on or before the
// turn cap while earlier turns mix banter, scripted replies, and herrings.
package dialogue

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/require"
	"github.com/noirbyte/gumshoe/internal/game/state"
)

// ErrQuestionTooLong is returned before any state mutation when a question
// exceeds the configured length limit.
var ErrQuestionTooLong = errors.New("question exceeds length limit")

// Default deterministic lines used when a cartridge provides none.
const (
	defaultStonewall  = "I've told you everything I know. Ask someone else."
	defaultForcedClue = "Fine. Listen carefully, because I won't say it twice."
	defaultBanter     = "Hm. Can't say that rings a bell."
)

// GenerateRequest carries everything the text generator needs to produce an
// in-character reply.
type GenerateRequest struct {
	NPC      *cartridge.NPC
	Question string
	History  []state.Exchange
	// Avoid lists texts the reply must not repeat verbatim.
	Avoid []string
	// Inject, when non-empty, is clue text the reply must work in.
	Inject string
}

// Generator produces free-form in-character NPC prose. Implementations must
// bound their own latency; a failed or slow call degrades to fixed fallback
// lines, never an unanswered question.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Bucket is one candidate reply offered to the classifier.
type Bucket struct {
	Tag  string
	Text string
}

// Classifier picks the reply bucket best matching a question. The returned
// index addresses the buckets slice.
type Classifier interface {
	Classify(ctx context.Context, question string, buckets []Bucket, allowClue bool) (int, error)
}

// realTag marks the bucket carrying the real clue in classifier input.
const realTag = "real_clue"

// Engine drives per-NPC conversations. Safe for concurrent use across
// players; the TalkState passed in must not be shared between calls.
type Engine struct {
	gen    Generator
	cls    Classifier
	cap    int
	maxLen int
	logger *zap.Logger
}

// NewEngine creates a conversation engine.
//
// Precondition: gen, cls, and logger must be non-nil; turnCap and maxLen
// must be positive.
func NewEngine(gen Generator, cls Classifier, turnCap, maxLen int, logger *zap.Logger) *Engine {
	return &Engine{gen: gen, cls: cls, cap: turnCap, maxLen: maxLen, logger: logger}
}

// Greet opens a conversation: it resets or resumes the visit state and
// returns the NPC's opening line. Called by talkto, before any ask.
//
// Postcondition: a revealed-closed NPC has its one-time recap armed.
func (e *Engine) Greet(ctx context.Context, npc *cartridge.NPC, st *state.PlayerState) string {
	ts := st.Talk(npc.ID)
	e.rolloverIfStale(ts, st.Chapter)

	if ts.Closed && ts.RecapAvailable {
		ts.RecapAwaitingAsk = true
	}
	st.SetFlag("met_npc:" + npc.ID)
	st.ActiveNPC = npc.ID

	if npc.Behavior.Opening != "" {
		return npc.Behavior.Opening
	}
	reply, err := e.gen.Generate(ctx, GenerateRequest{NPC: npc, Question: ""})
	if err != nil || reply == "" {
		return fmt.Sprintf("%s looks you over, waiting.", npc.Name)
	}
	return reply
}

// Ask consumes one question turn against the NPC's state machine and
// returns the reply text.
//
// Precondition: the player must have selected the NPC via Greet.
// Postcondition: the real clue is delivered on or before turn cap for a
// fresh visit; the visit can never remain open past the cap.
func (e *Engine) Ask(ctx context.Context, npc *cartridge.NPC, st *state.PlayerState, question string) (string, error) {
	if len(question) > e.maxLen {
		return "", ErrQuestionTooLong
	}

	ts := st.Talk(npc.ID)
	e.rolloverIfStale(ts, st.Chapter)
	ts.LastTalkChapter = st.Chapter

	if ts.Closed {
		return e.closedReply(npc, ts, question), nil
	}

	ts.Asked++
	real := npc.RealClue(func(n *require.Node) bool { return require.Evaluate(n, st) })

	var reply string
	if ts.Asked >= e.cap {
		reply = e.forcedReveal(npc, ts, real)
	} else {
		reply = e.midTurn(ctx, npc, ts, st, question, real)
	}

	ts.Remember(question, reply)
	return reply, nil
}

// closedReply handles questions after the visit has closed: a one-time recap
// of the real clue if armed, otherwise the fixed stonewall line.
func (e *Engine) closedReply(npc *cartridge.NPC, ts *state.TalkState, question string) string {
	if ts.RecapAwaitingAsk {
		ts.RecapAwaitingAsk = false
		ts.RecapAvailable = false
		if real := npc.RealClue(func(*require.Node) bool { return true }); real != nil {
			return fmt.Sprintf("Like I said before: %s", real.Text)
		}
	}
	if npc.Behavior.Stonewall != "" {
		return npc.Behavior.Stonewall
	}
	return defaultStonewall
}

// forcedReveal delivers the real clue directly, bypassing generation, so
// disclosure is guaranteed regardless of classifier behavior.
func (e *Engine) forcedReveal(npc *cartridge.NPC, ts *state.TalkState, real *cartridge.Clue) string {
	ts.Closed = true
	if real == nil {
		// Nothing disclosable yet: close the visit without a reveal so
		// the conversation cannot stay open past the cap.
		if npc.Behavior.ForcedClue != "" {
			return npc.Behavior.ForcedClue
		}
		return defaultStonewall
	}
	ts.Revealed = true
	ts.RecapAvailable = true
	ts.MarkClueUsed(real.Text)
	return real.Text
}

// midTurn handles turns before the cap: herring injection on even turns,
// classifier- or generator-driven replies on odd turns. The real clue never
// surfaces here.
func (e *Engine) midTurn(ctx context.Context, npc *cartridge.NPC, ts *state.TalkState, st *state.PlayerState, question string, real *cartridge.Clue) string {
	if ts.Asked%2 == 0 {
		if h := e.nextHerring(npc, ts, st); h != nil {
			ts.MarkClueUsed(h.Text)
			return e.wrapClue(ctx, npc, ts, question, h.Text)
		}
	}

	if reply, ok := e.scriptedReply(ctx, npc, question, real); ok {
		return reply
	}
	return e.freeReply(ctx, npc, ts, question)
}

// nextHerring returns the first gated-in, not-yet-spoken non-real clue.
func (e *Engine) nextHerring(npc *cartridge.NPC, ts *state.TalkState, st *state.PlayerState) *cartridge.Clue {
	for i := range npc.Behavior.Clues {
		c := &npc.Behavior.Clues[i]
		if c.Real() || ts.ClueUsed(c.Text) {
			continue
		}
		if c.When != nil && !require.Evaluate(c.When, st) {
			continue
		}
		return c
	}
	return nil
}

// scriptedReply asks the classifier to pick among the NPC's canned replies.
// If the classifier proposes the real-clue bucket while disallowed, the
// first non-clue bucket is substituted deterministically.
func (e *Engine) scriptedReply(ctx context.Context, npc *cartridge.NPC, question string, real *cartridge.Clue) (string, bool) {
	if len(npc.Behavior.Replies) == 0 {
		return "", false
	}
	buckets := make([]Bucket, 0, len(npc.Behavior.Replies)+1)
	for _, r := range npc.Behavior.Replies {
		buckets = append(buckets, Bucket{Tag: r.Tag, Text: r.Text})
	}
	if real != nil {
		buckets = append(buckets, Bucket{Tag: realTag, Text: real.Text})
	}

	idx, err := e.cls.Classify(ctx, question, buckets, false)
	if err != nil {
		e.logger.Warn("classification failed, falling back to generation",
			zap.String("npc", npc.ID),
			zap.Error(err),
		)
		return "", false
	}
	if idx < 0 || idx >= len(buckets) {
		return "", false
	}
	if buckets[idx].Tag == realTag {
		for i, b := range buckets {
			if b.Tag != realTag {
				idx = i
				break
			}
		}
		if buckets[idx].Tag == realTag {
			return "", false
		}
	}
	return buckets[idx].Text, true
}

// wrapClue asks the generator to deliver clue text in character, degrading
// to the bare text when generation fails.
func (e *Engine) wrapClue(ctx context.Context, npc *cartridge.NPC, ts *state.TalkState, question, clueText string) string {
	reply, err := e.gen.Generate(ctx, GenerateRequest{
		NPC:      npc,
		Question: question,
		History:  ts.History,
		Avoid:    ts.UsedClues,
		Inject:   clueText,
	})
	if err != nil || reply == "" {
		return clueText
	}
	return reply
}

// freeReply produces a no-injection turn: generated prose biased away from
// repetition, degrading to banter, then to a fixed line.
func (e *Engine) freeReply(ctx context.Context, npc *cartridge.NPC, ts *state.TalkState, question string) string {
	reply, err := e.gen.Generate(ctx, GenerateRequest{
		NPC:      npc,
		Question: question,
		History:  ts.History,
		Avoid:    ts.UsedClues,
	})
	if err == nil && reply != "" {
		return reply
	}
	if err != nil {
		e.logger.Warn("generation failed, falling back to banter",
			zap.String("npc", npc.ID),
			zap.Error(err),
		)
	}
	for _, b := range npc.Behavior.Banter {
		if !ts.ClueUsed(b) {
			ts.MarkClueUsed(b)
			return b
		}
	}
	return defaultBanter
}

// rolloverIfStale resets a closed visit to fresh once the chapter advances,
// so each chapter gets its own disclosure cycle.
func (e *Engine) rolloverIfStale(ts *state.TalkState, chapter int) {
	if ts.Closed && chapter > ts.LastTalkChapter {
		*ts = state.TalkState{LastTalkChapter: chapter}
	}
}
