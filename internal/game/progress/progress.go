// Package progress gates chapter advancement: after every command the
// current chapter's requirements are re-evaluated, and on first
// satisfaction the completion effects fire exactly once.
package progress

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/require"
	"github.com/noirbyte/gumshoe/internal/game/state"
)

// Tracker advances players through the cartridge's chapter table.
type Tracker struct {
	cart    *cartridge.Cartridge
	applier *effect.Applier
	logger  *zap.Logger
}

// NewTracker creates a Tracker over the shared cartridge.
func NewTracker(cart *cartridge.Cartridge, applier *effect.Applier, logger *zap.Logger) *Tracker {
	return &Tracker{cart: cart, applier: applier, logger: logger}
}

// doneFlag marks a completed chapter so its effects never re-fire.
func doneFlag(chapter int) string {
	return fmt.Sprintf("chapter_%d_done", chapter)
}

// CheckAndAdvance evaluates the current chapter's requirements and, when
// first satisfied, delivers the summary, applies the completion effects,
// and moves the player to the next chapter. It reports whether a
// progression event fired.
//
// Postcondition: repeated calls after satisfaction are no-ops; a chapter's
// completion effects apply exactly once per playthrough.
func (t *Tracker) CheckAndAdvance(ctx context.Context, recipient string, st *state.PlayerState) bool {
	if st.Chapter < 1 {
		st.Chapter = 1
	}
	ch, ok := t.cart.Progression.ChapterAt(st.Chapter)
	if !ok {
		return false
	}
	if st.HasFlag(doneFlag(st.Chapter)) {
		return false
	}
	if ch.Requires == nil || !require.Evaluate(ch.Requires, st) {
		return false
	}

	completed := st.Chapter
	t.deliverSummary(ctx, recipient, st, ch, completed)
	if len(ch.OnComplete) > 0 {
		t.applier.Apply(ctx, recipient, st, ch.OnComplete)
	}

	st.SetFlag(doneFlag(completed))
	st.ChaptersCompleted = append(st.ChaptersCompleted, completed)
	st.Chapter = completed + 1

	t.logger.Info("chapter complete",
		zap.String("player", st.PlayerID),
		zap.Int("chapter", completed),
	)
	return true
}

// Unmet returns the human-readable reasons the current chapter has not yet
// completed. An empty slice with ok=true means the chapter is satisfied but
// not yet marked; ok=false means no chapter remains.
func (t *Tracker) Unmet(st *state.PlayerState) (reasons []string, ok bool) {
	ch, exists := t.cart.Progression.ChapterAt(st.Chapter)
	if !exists {
		return nil, false
	}
	if ch.Requires == nil {
		return nil, true
	}
	return require.Explain(ch.Requires, st), true
}

func (t *Tracker) deliverSummary(ctx context.Context, recipient string, st *state.PlayerState, ch cartridge.Chapter, chapter int) {
	if ch.Summary == nil {
		t.applier.Apply(ctx, recipient, st, []effect.Effect{
			effect.Text(fmt.Sprintf("Chapter %d complete. The city shifts. New leads emerge.", chapter)),
		})
		return
	}
	var effects []effect.Effect
	if ch.Summary.TextTpl != "" {
		effects = append(effects, effect.Tpl(ch.Summary.TextTpl, map[string]string{
			"chapter": fmt.Sprintf("%d", chapter),
			"title":   ch.Title,
		}))
	}
	if len(ch.Summary.Media) > 0 {
		effects = append(effects, effect.Effect{SendMedia: ch.Summary.Media})
	}
	if len(effects) > 0 {
		t.applier.Apply(ctx, recipient, st, effects)
	}
}
