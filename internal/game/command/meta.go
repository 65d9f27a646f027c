package command

import (
	"fmt"

	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/flow"
)

// Progress reports the current chapter and its unmet requirements.
func Progress(inv *Invocation) ([]effect.Effect, error) {
	ch, ok := inv.Cart.Progression.ChapterAt(inv.State.Chapter)
	if !ok {
		return []effect.Effect{inv.msg("progress.noChapter", "No active chapter.", nil)}, nil
	}

	header := fmt.Sprintf("Chapter %s", ch.ID)
	if ch.Title != "" {
		header = fmt.Sprintf("Chapter %s, %s", ch.ID, ch.Title)
	}

	reasons, _ := inv.Progress.Unmet(inv.State)
	if len(reasons) == 0 {
		return []effect.Effect{effect.Text(fmt.Sprintf("%s\nAll requirements met. Keep playing to trigger advancement.", header))}, nil
	}
	return []effect.Effect{effect.Text(fmt.Sprintf("%s\nUnmet requirements:\n%s", header, bullets(reasons, "Unknown blocking condition.")))}, nil
}

// Next advances the active scripted sequence.
func Next(inv *Invocation) ([]effect.Effect, error) {
	if !inv.State.Flow.Active {
		return []effect.Effect{effect.Text("Nothing to continue.")}, nil
	}
	if inv.Flow.Done(inv.State) {
		return []effect.Effect{effect.Text("Nothing more to show.")}, nil
	}

	// The runner renders steps through the applier as it goes.
	more := inv.Flow.Advance(inv.Ctx, inv.Recipient, inv.State)
	if !more && inv.State.Flow.Type == flow.TypeIntro {
		return []effect.Effect{effect.Text("End of introduction. Type /exit to start the game.")}, nil
	}
	return nil, nil
}

// Skip jumps to the end of the intro flow. Dev builds only.
func Skip(inv *Invocation) ([]effect.Effect, error) {
	if !inv.DevMode {
		return []effect.Effect{effect.Text("Command not available.")}, nil
	}
	if !flow.In(inv.State, flow.TypeIntro) {
		return []effect.Effect{effect.Text("Nothing to skip.")}, nil
	}
	seqs := inv.Cart.Sequences(flow.TypeIntro)
	if len(seqs) == 0 {
		return []effect.Effect{effect.Text("No intro defined.")}, nil
	}

	// Position at the last step of the last sequence so a single advance
	// drains it and enables /exit.
	last := len(seqs) - 1
	steps := len(seqs[last].Steps)
	if steps == 0 {
		inv.State.Flow.Seq = len(seqs)
		inv.State.Flow.Step = 0
		return []effect.Effect{effect.Text("Skipped intro.")}, nil
	}
	inv.State.Flow.Seq = last
	inv.State.Flow.Step = steps - 1
	inv.State.Flow.HeaderShown = true
	return Next(inv)
}

// Reset wipes the player's progress and restarts the intro.
func Reset(inv *Invocation) ([]effect.Effect, error) {
	inv.State.Reset()
	for _, f := range inv.Cart.Start.Flags {
		inv.State.SetFlag(f)
	}
	return []effect.Effect{effect.Text("Game reset. Type */next* to begin.")}, nil
}
