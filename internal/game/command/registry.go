package command

import (
	"fmt"
	"time"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/match"
	"github.com/noirbyte/gumshoe/internal/game/require"
	"github.com/noirbyte/gumshoe/internal/game/state"
)

// Authorization failure reasons.
const (
	ReasonUnknown  = "unknown"
	ReasonDisabled = "disabled"
	ReasonCooldown = "cooldown"
	ReasonGated    = "gated"
)

// AuthResult is the outcome of authorizing a command for a player.
type AuthResult struct {
	OK     bool
	Reason string
	// RetryIn is set for cooldown rejections.
	RetryIn time.Duration
}

// entry is a command definition merged with its cartridge config.
type entry struct {
	def Definition
	cfg cartridge.CommandConfig
}

// Registry maps command names and aliases to definitions, merged with the
// cartridge's per-command overrides. Built once per loaded cartridge.
type Registry struct {
	entries map[string]*entry // canonical name → entry
	aliases map[string]string // alias → canonical name
}

// NewRegistry builds a registry from the built-in definitions plus the
// cartridge's command config. Disabled commands keep their entry so they
// reject with an explanation instead of reading as unknown.
//
// Precondition: no two commands may share a canonical name or alias.
func NewRegistry(overrides map[string]cartridge.CommandConfig) (*Registry, error) {
	defs := BuiltinDefinitions()
	r := &Registry{
		entries: make(map[string]*entry, len(defs)),
		aliases: make(map[string]string),
	}

	for _, def := range defs {
		if _, exists := r.entries[def.Name]; exists {
			return nil, fmt.Errorf("duplicate command name: %q", def.Name)
		}
		e := &entry{def: def, cfg: overrides[def.Name]}
		r.entries[def.Name] = e

		aliases := append([]string{}, def.Aliases...)
		aliases = append(aliases, e.cfg.Aliases...)
		for _, alias := range aliases {
			if _, exists := r.entries[alias]; exists {
				return nil, fmt.Errorf("alias %q conflicts with command name %q", alias, alias)
			}
			if existing, exists := r.aliases[alias]; exists && existing != def.Name {
				return nil, fmt.Errorf("duplicate alias %q: used by %q and %q", alias, existing, def.Name)
			}
			r.aliases[alias] = def.Name
		}
	}

	return r, nil
}

// Resolve maps a typed command token to its canonical name: exact name,
// then alias, then a fuzzy pass over the alias table for typo tolerance.
//
// Postcondition: Returns (name, true) when resolved, or ("", false).
func (r *Registry) Resolve(token string) (string, bool) {
	if _, ok := r.entries[token]; ok {
		return token, true
	}
	if canonical, ok := r.aliases[token]; ok {
		return canonical, true
	}

	options := make([]string, 0, len(r.entries)+len(r.aliases))
	for name := range r.entries {
		options = append(options, name)
	}
	for alias := range r.aliases {
		options = append(options, alias)
	}
	hit, ok := match.BestString(token, options, match.ThresholdKeyword)
	if !ok {
		return "", false
	}
	if canonical, isAlias := r.aliases[hit]; isAlias {
		return canonical, true
	}
	return hit, true
}

// Authorize checks whether the player may run the command right now:
// the command must be enabled, off cooldown, and its DSL gate satisfied.
//
// Postcondition: a rejection never mutates player state.
func (r *Registry) Authorize(st *state.PlayerState, name string, now time.Time) AuthResult {
	e, ok := r.entries[name]
	if !ok {
		return AuthResult{Reason: ReasonUnknown}
	}
	if e.cfg.Disabled {
		return AuthResult{Reason: ReasonDisabled}
	}
	if until, cooling := st.OnCooldown(name, now); cooling {
		return AuthResult{Reason: ReasonCooldown, RetryIn: until.Sub(now)}
	}
	if e.cfg.Gate != nil && !require.Evaluate(e.cfg.Gate, st) {
		return AuthResult{Reason: ReasonGated}
	}
	return AuthResult{OK: true}
}

// StartCooldown arms the command's cooldown after a successful run.
func (r *Registry) StartCooldown(st *state.PlayerState, name string, now time.Time) {
	e, ok := r.entries[name]
	if !ok || e.cfg.CooldownSeconds <= 0 {
		return
	}
	st.StartCooldown(name, now, time.Duration(e.cfg.CooldownSeconds)*time.Second)
}

// Definitions returns all registered definitions keyed by canonical name.
func (r *Registry) Definitions() map[string]Definition {
	out := make(map[string]Definition, len(r.entries))
	for name, e := range r.entries {
		out[name] = e.def
	}
	return out
}
