package command

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/flow"
	"github.com/noirbyte/gumshoe/internal/game/match"
)

// HookRunner executes a cartridge hook script and returns its effects.
type HookRunner interface {
	Run(inv *Invocation, hook string) ([]effect.Effect, error)
}

// runHook executes an entity hook, swallowing script failures: a broken
// hook must never block movement.
func runHook(inv *Invocation, hook string) []effect.Effect {
	if hook == "" || inv.Hooks == nil {
		return nil
	}
	effects, err := inv.Hooks.Run(inv, hook)
	if err != nil {
		inv.Logger.Warn("hook script failed",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return nil
	}
	return effects
}

// gridCoord reports whether the token is a valid 3x3 grid coordinate and
// returns it in plain two-digit form.
func gridCoord(token string) (string, bool) {
	t := strings.ReplaceAll(token, ",", "")
	if len(t) != 2 {
		return "", false
	}
	for i := 0; i < 2; i++ {
		if t[i] < '1' || t[i] > '3' {
			return "", false
		}
	}
	return t, true
}

// locationByCoord resolves a grid coordinate against the cartridge,
// accepting both "23" and "2,3" id spellings.
func locationByCoord(cart *cartridge.Cartridge, coord string) (*cartridge.Location, bool) {
	if loc, ok := cart.Location(coord); ok {
		return loc, true
	}
	comma := coord[:1] + "," + coord[1:]
	return cart.Location(comma)
}

// Move teleports the player to a grid intersection.
func Move(inv *Invocation) ([]effect.Effect, error) {
	if inv.DevMode && inv.State.Flow.Active {
		// Dev shortcut: moving auto-completes the intro so gates don't block.
		flow.End(inv.State)
		inv.State.SetFlag("introDone")
	}

	coord, ok := gridCoord(inv.token())
	if !ok {
		return []effect.Effect{inv.msg("move.invalid",
			"Invalid move. Use a 3x3 grid coordinate like */move 11*, */move 23*, */move 33*.", nil)}, nil
	}

	loc, ok := locationByCoord(inv.Cart, coord)
	if !ok {
		return []effect.Effect{inv.msg("move.notFound",
			"No such intersection. The grid goes from 11 to 33.", nil)}, nil
	}

	if strings.ReplaceAll(inv.State.Location, ",", "") == coord {
		return []effect.Effect{inv.msg("move.alreadyHere", "You're already here.", nil)}, nil
	}

	prev, _ := inv.Cart.Location(inv.State.Location)

	inv.State.Location = loc.ID
	inv.State.InStructure = false
	inv.State.StructureID = ""
	inv.State.RoomID = ""

	var effects []effect.Effect
	if prev != nil {
		effects = append(effects, runHook(inv, prev.OnExit)...)
	}
	arrival := runHook(inv, loc.OnArrival)
	effects = append(effects, arrival...)

	// Fallback narrative when the location defines no arrival hook.
	if loc.OnArrival == "" {
		var names, enterable []string
		for _, s := range loc.Structures {
			names = append(names, s.Name)
			if s.Enterable {
				enterable = append(enterable, s.Name)
			}
		}
		effects = append(effects,
			inv.msg("move.arrived", "You arrived at your destination.", nil),
			inv.msg("whereOutside",
				fmt.Sprintf("You're at *%s*. %s\n\n*Around you:* %s", loc.Name, loc.Description, formatList(names)),
				map[string]string{
					"location":   loc.Name,
					"flavor":     loc.Description,
					"structures": formatList(names),
				}),
		)
		if len(enterable) > 0 {
			suggest := enterSuggestion(enterable[0])
			effects = append(effects, inv.msg("move.enterHint",
				fmt.Sprintf("Use */enter %s* to step inside.", suggest),
				map[string]string{"suggest": suggest}))
		}
	}

	return effects, nil
}

// enterSuggestion extracts the word a player would most likely type to
// enter a structure, preferring the last word of its name.
func enterSuggestion(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return "building"
	}
	return strings.ToLower(words[len(words)-1])
}

// Enter puts the player inside an enterable structure at this intersection.
func Enter(inv *Invocation) ([]effect.Effect, error) {
	if inv.State.InStructure {
		return []effect.Effect{inv.msg("enter.alreadyInside", "You are already inside.", nil)}, nil
	}

	loc := inv.View.CurrentLocation()
	if loc == nil {
		return []effect.Effect{inv.msg("enter.whereAmI", "You are nowhere. Use /move.", nil)}, nil
	}

	var enterables []*cartridge.Structure
	for _, s := range loc.Structures {
		if s.Enterable {
			enterables = append(enterables, s)
		}
	}
	if len(enterables) == 0 {
		return []effect.Effect{inv.msg("enter.noneHere", "No enterable buildings here.", nil)}, nil
	}

	names := make([]string, 0, len(enterables))
	for _, s := range enterables {
		names = append(names, s.Name)
	}

	token := inv.token()
	if token == "" {
		return []effect.Effect{inv.msg("enter.whichOne",
			fmt.Sprintf("Enter which building? %s\nExample: */enter %s*", starred(names), enterSuggestion(enterables[0].Name)),
			map[string]string{"names": starred(names)})}, nil
	}

	cands := make([]match.Candidate, 0, len(enterables))
	for _, s := range enterables {
		cands = append(cands, match.Candidate{ID: s.ID, Fields: []string{s.Name}})
	}
	id, ok := match.Best(token, cands, match.ThresholdObject)
	if !ok {
		return []effect.Effect{inv.msg("enter.notFound",
			fmt.Sprintf("No such building here. Try one of: %s", starred(names)),
			map[string]string{"names": starred(names)})}, nil
	}

	var target *cartridge.Structure
	for _, s := range enterables {
		if s.ID == id {
			target = s
			break
		}
	}

	inv.State.InStructure = true
	inv.State.StructureID = target.ID
	inv.State.RoomID = "main"

	effects := []effect.Effect{inv.msg("enter.confirmed",
		fmt.Sprintf("You slip inside *%s*.", target.Name),
		map[string]string{"structure": target.Name})}
	effects = append(effects, runHook(inv, target.OnEnter)...)
	return effects, nil
}

// Exit leaves the current structure, or closes the intro flow once its
// final sequence has been shown.
func Exit(inv *Invocation) ([]effect.Effect, error) {
	if flow.In(inv.State, flow.TypeIntro) {
		if !inv.Flow.Done(inv.State) {
			return []effect.Effect{effect.Text("Finish the introduction first. Use /next.")}, nil
		}
		flow.End(inv.State)
		inv.State.SetFlag("introSequenceSeen")
		inv.State.Location = inv.Cart.Start.LocationID
		inv.State.InStructure = false
		inv.State.StructureID = ""
		inv.State.RoomID = ""
		return []effect.Effect{inv.msg("whereToNext", "Where to next?", nil)}, nil
	}

	if inv.State.InStructure {
		st := inv.View.CurrentStructure()
		inv.State.InStructure = false
		inv.State.StructureID = ""
		inv.State.RoomID = ""

		var effects []effect.Effect
		if st != nil {
			if len(st.OnExitMedia) > 0 {
				effects = append(effects, effect.Effect{SendMedia: st.OnExitMedia})
			}
			effects = append(effects, runHook(inv, st.OnExit)...)
		}
		effects = append(effects, inv.msg("whereToNext", "Where to next?", nil))
		return effects, nil
	}

	return []effect.Effect{inv.msg("whereToNext", "Where to next?", nil)}, nil
}
