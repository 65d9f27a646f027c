// Package flow drives scripted intro and tutorial sequences: a cursor over
// the cartridge's sequence buckets plus a renderer that delivers each step
// through the effects applier.
package flow

import (
	"context"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/state"
)

// Flow types stored in the player's sequencing cursor.
const (
	TypeIntro    = "intro"
	TypeTutorial = "tutorial"
)

// Begin activates a sequence flow from its first step.
func Begin(st *state.PlayerState, flowType string) {
	st.Flow = state.Flow{Active: true, Type: flowType}
}

// In reports whether the player is inside an active flow; a non-empty
// flowType restricts the check to that flow.
func In(st *state.PlayerState, flowType string) bool {
	if !st.Flow.Active {
		return false
	}
	return flowType == "" || st.Flow.Type == flowType
}

// End deactivates the flow cursor.
func End(st *state.PlayerState) {
	st.Flow = state.Flow{}
}

// Runner renders sequence steps to the player.
type Runner struct {
	cart    *cartridge.Cartridge
	applier *effect.Applier
}

// NewRunner creates a Runner over the shared cartridge and applier.
func NewRunner(cart *cartridge.Cartridge, applier *effect.Applier) *Runner {
	return &Runner{cart: cart, applier: applier}
}

// Done reports whether the cursor has run past the last sequence of its
// bucket.
func (r *Runner) Done(st *state.PlayerState) bool {
	if !st.Flow.Active {
		return true
	}
	return st.Flow.Seq >= len(r.cart.Sequences(st.Flow.Type))
}

// Advance delivers the current sequence in full, then moves the cursor to
// the next one. It reports whether a sequence remains after the move.
//
// Precondition: the player must be in an active flow.
// Postcondition: the cursor points at the next sequence start, or past the
// end when the bucket is exhausted.
func (r *Runner) Advance(ctx context.Context, recipient string, st *state.PlayerState) (more bool) {
	seqs := r.cart.Sequences(st.Flow.Type)
	if st.Flow.Seq >= len(seqs) {
		return false
	}
	cur := seqs[st.Flow.Seq]

	if st.Flow.Step == 0 && cur.Header != "" && !st.Flow.HeaderShown {
		r.applier.Apply(ctx, recipient, st, []effect.Effect{effect.Text(cur.Header)})
		st.Flow.HeaderShown = true
	}

	for st.Flow.Step < len(cur.Steps) {
		r.renderStep(ctx, recipient, st, cur.Steps[st.Flow.Step])
		st.Flow.Step++
	}

	st.Flow.Seq++
	st.Flow.Step = 0
	st.Flow.HeaderShown = false
	return st.Flow.Seq < len(seqs)
}

func (r *Runner) renderStep(ctx context.Context, recipient string, st *state.PlayerState, step cartridge.SequenceStep) {
	var effects []effect.Effect
	switch {
	case step.TextTpl != "":
		effects = append(effects, effect.Tpl(step.TextTpl, nil))
	case step.Text != "":
		effects = append(effects, effect.Text(step.Text))
	}
	if len(step.Media) > 0 {
		effects = append(effects, effect.Effect{SendMedia: step.Media})
	}
	if len(effects) > 0 {
		r.applier.Apply(ctx, recipient, st, effects)
	}
}
