package command

import (
	"errors"
	"fmt"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/dialogue"
	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/match"
)

const askHint = "Use */ask* + your question to converse. For example: */ask What did you see?*"

// TalkTo selects a conversation partner among the room's visible NPCs.
func TalkTo(inv *Invocation) ([]effect.Effect, error) {
	if !inv.State.InStructure {
		return notInside(inv), nil
	}

	visible := inv.View.VisibleNPCs()
	if len(visible) == 0 {
		return []effect.Effect{effect.Text("No one here to talk to.")}, nil
	}

	names := make([]string, 0, len(visible))
	for _, n := range visible {
		names = append(names, n.Name)
	}

	var target *cartridge.NPC
	token := inv.token()
	switch {
	case token == "" && len(visible) == 1:
		target = visible[0]
	case token == "":
		return []effect.Effect{effect.Text(fmt.Sprintf("Talk to who? Try: %s", starred(names)))}, nil
	default:
		id, ok := match.Best(token, npcCandidates(visible), match.ThresholdNPC)
		if !ok {
			return []effect.Effect{effect.Text(fmt.Sprintf("Couldn't find them. Try: %s", starred(names)))}, nil
		}
		for _, n := range visible {
			if n.ID == id {
				target = n
				break
			}
		}
	}

	alreadyActive := inv.State.ActiveNPC == target.ID
	opening := inv.Dialogue.Greet(inv.Ctx, target, inv.State)

	var effects []effect.Effect
	if !alreadyActive {
		// Profile card on first selection this session.
		if len(target.Images) > 0 {
			effects = append(effects, effect.Effect{SendMedia: []effect.MediaRef{
				{Type: "image", URL: target.Images[0], Caption: target.Name},
			}})
		}
		if target.Description != "" {
			effects = append(effects, effect.Text(target.Description))
		}
		if opening != "" {
			effects = append(effects, effect.Text(opening))
		}
	}
	effects = append(effects,
		effect.Text(fmt.Sprintf("%s is set as active conversation partner.", target.Name)),
		effect.Text(askHint),
	)
	return effects, nil
}

// Ask puts one question to the active conversation partner.
func Ask(inv *Invocation) ([]effect.Effect, error) {
	question := inv.RawArgs
	if question == "" {
		return []effect.Effect{effect.Text("Ask what? Example: */ask What did you see?*")}, nil
	}

	if inv.State.ActiveNPC == "" {
		return []effect.Effect{effect.Text("Talk to someone first. Try */talkto*.")}, nil
	}
	npc, ok := inv.Cart.NPC(inv.State.ActiveNPC)
	if !ok {
		inv.State.ActiveNPC = ""
		return []effect.Effect{effect.Text("Talk to someone first. Try */talkto*.")}, nil
	}

	reply, err := inv.Dialogue.Ask(inv.Ctx, npc, inv.State, question)
	if err != nil {
		if errors.Is(err, dialogue.ErrQuestionTooLong) {
			return []effect.Effect{inv.msg("ask.tooLong",
				"That question rambles. Keep it shorter and try again.", nil)}, nil
		}
		return nil, fmt.Errorf("asking %s: %w", npc.ID, err)
	}
	return []effect.Effect{effect.Text(fmt.Sprintf("*%s:* %s", npc.Name, reply))}, nil
}
