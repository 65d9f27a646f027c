// Package effect applies declarative effect lists against player state and the
// outbound message channel. Effects apply independently in array order with no
// rollback; every application is recorded to the state's audit log.
package effect

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/game/state"
)

// ErrUnsupportedMedia is returned by an Outbox that cannot deliver the given
// media type. The applier degrades to a plain text message with the URL.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// MediaRef points at an out-of-band asset to deliver.
type MediaRef struct {
	// Type is one of "image", "audio", "video", "doc".
	Type string `yaml:"type" json:"type"`
	// URL is either an absolute URL or a media-bucket id resolved against
	// the cartridge's media table.
	URL     string `yaml:"url" json:"url"`
	Caption string `yaml:"caption,omitempty" json:"caption,omitempty"`
}

// Effect is one declarative instruction. Exactly one of the operation fields
// is set per effect; effects with no recognized operation are skipped.
type Effect struct {
	// SetFlag sets the named flag true. Idempotent.
	SetFlag string `yaml:"setFlag,omitempty" json:"setFlag,omitempty"`

	// IncCounter adds By (default 1) to the named counter.
	IncCounter string `yaml:"incCounter,omitempty" json:"incCounter,omitempty"`
	By         int    `yaml:"by,omitempty" json:"by,omitempty"`

	// RevealItems adds ids to the revealed set. Idempotent.
	RevealItems []string `yaml:"revealItems,omitempty" json:"revealItems,omitempty"`

	// SendMedia routes each ref to the matching delivery capability.
	SendMedia []MediaRef `yaml:"sendMedia,omitempty" json:"sendMedia,omitempty"`

	// SendTextTpl renders a UI template with Vars and sends the result.
	SendTextTpl string            `yaml:"sendTextTpl,omitempty" json:"sendTextTpl,omitempty"`
	Vars        map[string]string `yaml:"vars,omitempty" json:"vars,omitempty"`

	// SendText sends literal text, bypassing the template table.
	SendText string `yaml:"sendText,omitempty" json:"sendText,omitempty"`
}

// Text builds a literal text effect.
func Text(text string) Effect { return Effect{SendText: text} }

// Tpl builds a template-rendered text effect.
func Tpl(key string, vars map[string]string) Effect {
	return Effect{SendTextTpl: key, Vars: vars}
}

// Outbox is the delivery capability consumed by the applier. The transport
// behind it is out of the engine's scope.
type Outbox interface {
	// SendText delivers a plain text line to the recipient.
	SendText(ctx context.Context, recipient, text string) error
	// SendMedia delivers a media reference; implementations return
	// ErrUnsupportedMedia for types they cannot carry.
	SendMedia(ctx context.Context, recipient string, media MediaRef) error
}

// Applier executes effect lists. Safe for concurrent use across players; the
// per-player state passed to Apply must not be shared between calls.
type Applier struct {
	out       Outbox
	templates map[string]string
	media     map[string]map[string]string
	logger    *zap.Logger
}

// NewApplier creates an Applier.
//
// Precondition: out and logger must be non-nil; templates and media may be nil.
func NewApplier(out Outbox, templates map[string]string, media map[string]map[string]string, logger *zap.Logger) *Applier {
	return &Applier{out: out, templates: templates, media: media, logger: logger}
}

// Template renders a UI template by key; missing templates render empty.
func (a *Applier) Template(key string, vars map[string]string) string {
	tpl, ok := a.templates[key]
	if !ok {
		return ""
	}
	return Render(tpl, vars)
}

// ResolveMedia maps a bucket id to its URL; absolute URLs pass through.
func (a *Applier) ResolveMedia(mediaType, idOrURL string) string {
	if idOrURL == "" {
		return ""
	}
	if len(idOrURL) >= 4 && idOrURL[:4] == "http" {
		return idOrURL
	}
	bucketName := mediaType
	if mediaType == "image" {
		bucketName = "images"
	}
	return a.media[bucketName][idOrURL]
}

// Apply executes the effects in order against st and the outbox. A failed
// delivery does not undo earlier effects; it is logged and application
// continues with the next effect.
//
// Postcondition: every recognized effect appends one audit-log entry to st.
func (a *Applier) Apply(ctx context.Context, recipient string, st *state.PlayerState, effects []Effect) {
	for _, eff := range effects {
		switch {
		case eff.SetFlag != "":
			st.SetFlag(eff.SetFlag)
			a.record(st, "setFlag", map[string]any{"flag": eff.SetFlag})

		case eff.IncCounter != "":
			by := eff.By
			if by == 0 {
				by = 1
			}
			st.IncCounter(eff.IncCounter, by)
			a.record(st, "incCounter", map[string]any{"key": eff.IncCounter, "by": by})

		case len(eff.RevealItems) > 0:
			st.MarkRevealed(eff.RevealItems...)
			a.record(st, "revealItems", map[string]any{"items": eff.RevealItems})

		case len(eff.SendMedia) > 0:
			for _, m := range eff.SendMedia {
				a.sendMedia(ctx, recipient, m)
			}
			a.record(st, "sendMedia", map[string]any{"count": len(eff.SendMedia)})

		case eff.SendTextTpl != "":
			if text := a.Template(eff.SendTextTpl, eff.Vars); text != "" {
				a.sendText(ctx, recipient, text)
			}
			a.record(st, "sendTextTpl", map[string]any{"key": eff.SendTextTpl})

		case eff.SendText != "":
			a.sendText(ctx, recipient, eff.SendText)
			a.record(st, "sendText", nil)
		}
	}
}

func (a *Applier) sendText(ctx context.Context, recipient, text string) {
	if err := a.out.SendText(ctx, recipient, text); err != nil {
		a.logger.Warn("text delivery failed",
			zap.String("recipient", recipient),
			zap.Error(err),
		)
	}
}

// sendMedia routes by type, degrading to a text message with the URL when the
// channel cannot carry the media.
func (a *Applier) sendMedia(ctx context.Context, recipient string, m MediaRef) {
	url := a.ResolveMedia(m.Type, m.URL)
	if url == "" {
		return
	}
	resolved := m
	resolved.URL = url
	err := a.out.SendMedia(ctx, recipient, resolved)
	if err == nil {
		return
	}
	if errors.Is(err, ErrUnsupportedMedia) {
		a.sendText(ctx, recipient, url)
		return
	}
	a.logger.Warn("media delivery failed",
		zap.String("recipient", recipient),
		zap.String("type", m.Type),
		zap.Error(err),
	)
	a.sendText(ctx, recipient, url)
}

func (a *Applier) record(st *state.PlayerState, eventType string, detail map[string]any) {
	st.AppendEvent(uuid.NewString(), eventType, detail)
}
