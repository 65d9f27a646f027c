// Package engine composes the dispatch pipeline: load player state, gate,
// normalize input, authorize, execute the handler, apply effects, update
// progression, persist. Each incoming command runs as one linear sequence;
// the transport is expected to serialize per sender.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/command"
	"github.com/noirbyte/gumshoe/internal/game/dialogue"
	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/flow"
	"github.com/noirbyte/gumshoe/internal/game/progress"
	"github.com/noirbyte/gumshoe/internal/game/state"
	"github.com/noirbyte/gumshoe/internal/game/world"
)

// Store is the persistence capability for player state documents, keyed by
// (player id, game id). A missing document is reported as state.ErrNotFound.
// Writes are last-writer-wins.
type Store interface {
	Load(ctx context.Context, playerID, gameID string) (*state.PlayerState, error)
	Save(ctx context.Context, st *state.PlayerState) error
}

// tryAgainLater is shown when an internal failure prevents processing.
const tryAgainLater = "Something went wrong on our side. Try again later."

// Engine is the per-cartridge dispatch pipeline. Safe for concurrent use
// across players; per-player serialization is the transport's concern.
type Engine struct {
	cart     *cartridge.Cartridge
	registry *command.Registry
	handlers map[string]command.Handler

	applier  *effect.Applier
	dialogue *dialogue.Engine
	flow     *flow.Runner
	progress *progress.Tracker
	hooks    command.HookRunner
	store    Store
	logger   *zap.Logger

	devMode bool
	now     func() time.Time
}

// Options configures optional engine collaborators.
type Options struct {
	// Hooks runs cartridge hook scripts; nil disables hooks.
	Hooks command.HookRunner
	// DevMode enables the skip command and intro shortcuts.
	DevMode bool
	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

// New assembles an engine over a validated cartridge.
//
// Precondition: cart must have passed Validate; all collaborators non-nil
// except those in Options.
func New(cart *cartridge.Cartridge, applier *effect.Applier, dlg *dialogue.Engine, store Store, logger *zap.Logger, opts Options) (*Engine, error) {
	registry, err := command.NewRegistry(cart.Commands)
	if err != nil {
		return nil, fmt.Errorf("building command registry: %w", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cart:     cart,
		registry: registry,
		handlers: command.Handlers(),
		applier:  applier,
		dialogue: dlg,
		flow:     flow.NewRunner(cart, applier),
		progress: progress.NewTracker(cart, applier, logger),
		hooks:    opts.Hooks,
		store:    store,
		logger:   logger,
		devMode:  opts.DevMode,
		now:      now,
	}, nil
}

// HandleMessage processes one incoming player message end to end.
//
// Postcondition: every outcome produces a player-visible reply; state is
// persisted only when the pipeline ran the handler without a storage error.
func (e *Engine) HandleMessage(ctx context.Context, playerID, text string) {
	logger := e.logger.With(zap.String("player", playerID), zap.String("game", e.cart.ID))

	st, err := e.loadOrCreate(ctx, playerID)
	if err != nil {
		logger.Error("loading player state", zap.Error(err))
		e.send(ctx, playerID, tryAgainLater)
		return
	}

	parsed := command.Parse(text)
	name, resolved := e.registry.Resolve(parsed.Command)

	// Intro gate: during a scripted flow only the sequencing commands work.
	if flow.In(st, "") {
		allowed := map[string]bool{"next": true, "reset": true, "exit": true}
		if e.devMode {
			allowed["skip"] = true
			allowed["move"] = true
		}
		if !parsed.Slash || !resolved || !allowed[name] {
			e.send(ctx, playerID, e.template("unknownCommandDuringIntro",
				"Finish the introduction first. Type */next*, */exit*, or */reset*."))
			return
		}
	}

	if !resolved {
		e.send(ctx, playerID, e.template("unknownCommand",
			fmt.Sprintf("Unknown command: %s", parsed.Command)))
		return
	}

	if !e.authorize(ctx, playerID, st, name) {
		return
	}

	e.normalizeRoom(st)

	inv := &command.Invocation{
		Ctx:       ctx,
		Recipient: playerID,
		Cart:      e.cart,
		State:     st,
		View:      world.NewView(e.cart, st),
		Applier:   e.applier,
		Dialogue:  e.dialogue,
		Flow:      e.flow,
		Progress:  e.progress,
		Hooks:     e.hooks,
		Logger:    logger,
		Args:      parsed.Args,
		RawArgs:   parsed.RawArgs,
		DevMode:   e.devMode,
	}

	handler, ok := e.handlers[name]
	if !ok {
		e.send(ctx, playerID, e.template("commandUnhandled",
			fmt.Sprintf("Command '%s' is not implemented.", name)))
		return
	}

	effects, err := handler(inv)
	if err != nil {
		logger.Error("handler failed", zap.String("command", name), zap.Error(err))
		e.send(ctx, playerID, tryAgainLater)
		return
	}
	e.registry.StartCooldown(st, name, e.now())
	if len(effects) > 0 {
		e.applier.Apply(ctx, playerID, st, effects)
	}

	// Normalize again: the handler may have moved the player.
	e.normalizeRoom(st)
	e.markVisits(st)
	e.progress.CheckAndAdvance(ctx, playerID, st)

	if err := e.store.Save(ctx, st); err != nil {
		logger.Error("saving player state", zap.Error(err))
		e.send(ctx, playerID, tryAgainLater)
	}
}

// loadOrCreate fetches the player's state, creating a fresh playthrough on
// first contact.
func (e *Engine) loadOrCreate(ctx context.Context, playerID string) (*state.PlayerState, error) {
	st, err := e.store.Load(ctx, playerID, e.cart.ID)
	if err == nil {
		st.Normalize()
		return st, nil
	}
	if !errors.Is(err, state.ErrNotFound) {
		return nil, err
	}
	st = state.New(playerID, e.cart.ID)
	st.Location = e.cart.Start.LocationID
	for _, f := range e.cart.Start.Flags {
		st.SetFlag(f)
	}
	if len(e.cart.Sequences(flow.TypeIntro)) == 0 {
		flow.End(st)
	}
	return st, nil
}

// authorize runs the registry checks and reports failures to the player.
// A rejection never mutates state.
func (e *Engine) authorize(ctx context.Context, playerID string, st *state.PlayerState, name string) bool {
	auth := e.registry.Authorize(st, name, e.now())
	if auth.OK {
		return true
	}
	switch auth.Reason {
	case command.ReasonDisabled:
		e.send(ctx, playerID, e.template("commandDisabled",
			fmt.Sprintf("Command '%s' is disabled.", name)))
	case command.ReasonCooldown:
		secs := int(auth.RetryIn.Seconds()) + 1
		e.send(ctx, playerID, e.template("commandCooldown",
			fmt.Sprintf("Command '%s' is on cooldown for %ds.", name, secs)))
	case command.ReasonGated:
		e.send(ctx, playerID, e.template("commandBlocked",
			fmt.Sprintf("You cannot use '%s' right now.", name)))
	default:
		e.send(ctx, playerID, e.template("unknownCommand",
			fmt.Sprintf("Unknown command: %s", name)))
	}
	return false
}

// normalizeRoom keeps the position invariant: inside a structure the room
// id must resolve, outside it must be empty.
func (e *Engine) normalizeRoom(st *state.PlayerState) {
	if !st.InStructure {
		st.StructureID = ""
		st.RoomID = ""
		return
	}
	room := world.NewView(e.cart, st).CurrentRoom()
	if room == nil {
		st.InStructure = false
		st.StructureID = ""
		st.RoomID = ""
		return
	}
	st.RoomID = room.ID
}

// markVisits records visit flags for the player's position after a command.
func (e *Engine) markVisits(st *state.PlayerState) {
	view := world.NewView(e.cart, st)
	if loc := view.CurrentLocation(); loc != nil {
		st.SetFlag("visited_location:" + loc.ID)
	}
	if !st.InStructure {
		return
	}
	if structure := view.CurrentStructure(); structure != nil {
		st.SetFlag("visited_structure_id:" + structure.ID)
		if slug := labelSlug(structure.Name); slug != "" {
			st.SetFlag("visited_structure_label:" + slug)
		}
	}
}

// labelSlug normalizes a display name to a flag-safe token.
func labelSlug(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// send delivers one plain text line outside the effects pipeline, for
// failures that happen before a state document is in hand.
func (e *Engine) send(ctx context.Context, playerID, text string) {
	st := &state.PlayerState{}
	e.applier.Apply(ctx, playerID, st, []effect.Effect{effect.Text(text)})
}

// template renders a UI template by key, falling back to the literal.
func (e *Engine) template(key, fallback string) string {
	if tpl := e.cart.Template(key); tpl != "" {
		return tpl
	}
	return fallback
}
