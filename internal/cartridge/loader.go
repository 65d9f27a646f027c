package cartridge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/require"
)

// yamlCartridgeFile is the top-level YAML structure for cartridge files.
type yamlCartridgeFile struct {
	Cartridge yamlCartridge `yaml:"cartridge"`
}

// yamlCartridge is the YAML representation of a cartridge. Entity names may
// appear as either display_name/displayName or name; the converter resolves
// one canonical name per row.
type yamlCartridge struct {
	ID          string                       `yaml:"id"`
	Title       string                       `yaml:"title"`
	Version     string                       `yaml:"version"`
	Start       yamlStart                    `yaml:"start"`
	Locations   []yamlLocation               `yaml:"locations"`
	Objects     []yamlObject                 `yaml:"objects"`
	Items       []yamlItem                   `yaml:"items"`
	NPCs        []yamlNPC                    `yaml:"npcs"`
	Intro       []yamlSequence               `yaml:"intro"`
	Tutorial    []yamlSequence               `yaml:"tutorial"`
	Progression yamlProgression              `yaml:"progression"`
	Commands    map[string]yamlCommand       `yaml:"commands"`
	UI          map[string]string            `yaml:"ui"`
	Media       map[string]map[string]string `yaml:"media"`
}

type yamlStart struct {
	Location string   `yaml:"location"`
	Flags    []string `yaml:"flags"`
}

type yamlLocation struct {
	ID          string          `yaml:"id"`
	DisplayName string          `yaml:"displayName"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Structures  []yamlStructure `yaml:"structures"`
	OnArrival   string          `yaml:"onArrival"`
	OnExit      string          `yaml:"onExit"`
}

type yamlStructure struct {
	ID          string            `yaml:"id"`
	DisplayName string            `yaml:"displayName"`
	Name        string            `yaml:"name"`
	Enterable   *bool             `yaml:"enterable"`
	Rooms       []yamlRoom        `yaml:"rooms"`
	OnEnter     string            `yaml:"onEnter"`
	OnExit      string            `yaml:"onExit"`
	OnExitMedia []effect.MediaRef `yaml:"onExitMedia"`
}

type yamlRoom struct {
	ID         string          `yaml:"id"`
	Objects    []yamlEntityRef `yaml:"objects"`
	Items      []string        `yaml:"items"`
	NPCs       []yamlEntityRef `yaml:"npcs"`
	Conditions []string        `yaml:"conditions"`
}

// yamlEntityRef accepts either a bare id string or an object with an id and
// a visibility condition.
type yamlEntityRef struct {
	ID          string
	VisibleWhen *require.Node
}

func (r *yamlEntityRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&r.ID)
	}
	var full struct {
		ID          string        `yaml:"id"`
		VisibleWhen *require.Node `yaml:"visibleWhen"`
	}
	if err := value.Decode(&full); err != nil {
		return err
	}
	r.ID = full.ID
	r.VisibleWhen = full.VisibleWhen
	return nil
}

type yamlLock struct {
	Type             string   `yaml:"type"`
	RequiredItem     string   `yaml:"requiredItem"`
	RequiredItems    []string `yaml:"requiredItems"`
	RequiredCode     string   `yaml:"requiredCode"`
	AcceptedCodes    []string `yaml:"acceptedCodes"`
	CaseSensitive    bool     `yaml:"caseSensitive"`
	Locked           bool     `yaml:"locked"`
	Broken           bool     `yaml:"broken"`
	AutoOpenOnUnlock bool     `yaml:"autoOpenOnUnlock"`
	AutoOpenOnBreak  bool     `yaml:"autoOpenOnBreak"`
	OnUnlockFlag     string   `yaml:"onUnlockFlag"`
	LockedHint       string   `yaml:"lockedHint"`
	UnlockMsg        string   `yaml:"onUnlockMsg"`
	CodeFailMsg      string   `yaml:"onCodeFail"`
	BreakMsg         string   `yaml:"onBreakMsg"`
	FailMsg          string   `yaml:"breakFailMsg"`
}

type yamlObject struct {
	ID          string            `yaml:"id"`
	DisplayName string            `yaml:"displayName"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Tags        []string          `yaml:"tags"`
	Lock        *yamlLock         `yaml:"lock"`
	Contents    []string          `yaml:"contents"`
	States      map[string]bool   `yaml:"states"`
	Media       []effect.MediaRef `yaml:"media"`
}

type yamlItem struct {
	ID          string            `yaml:"id"`
	DisplayName string            `yaml:"displayName"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	ReadText    string            `yaml:"readText"`
	Media       []effect.MediaRef `yaml:"media"`
}

type yamlClue struct {
	ID   string        `yaml:"id"`
	Text string        `yaml:"text"`
	Kind string        `yaml:"kind"`
	When *require.Node `yaml:"when"`
}

type yamlNPC struct {
	ID          string   `yaml:"id"`
	DisplayName string   `yaml:"displayName"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Images      []string `yaml:"images"`
	Behavior    struct {
		Persona string     `yaml:"persona"`
		Style   string     `yaml:"style"`
		Opening string     `yaml:"opening"`
		Voice   string     `yaml:"voice"`
		Clues   []yamlClue `yaml:"clues"`
		Banter  []string   `yaml:"banter"`
		Replies []struct {
			Tag  string `yaml:"tag"`
			Text string `yaml:"text"`
		} `yaml:"replies"`
		Fallbacks struct {
			ForcedClue string `yaml:"forcedClue"`
			Stonewall  string `yaml:"stonewall"`
		} `yaml:"fallbacks"`
	} `yaml:"behavior"`
}

type yamlSequence struct {
	ID     string     `yaml:"id"`
	Header string     `yaml:"header"`
	Steps  []yamlStep `yaml:"steps"`
}

type yamlStep struct {
	Text    string            `yaml:"text"`
	TextTpl string            `yaml:"textTpl"`
	Media   []effect.MediaRef `yaml:"media"`
}

type yamlChapter struct {
	ID         string          `yaml:"id"`
	Title      string          `yaml:"title"`
	Requires   *require.Node   `yaml:"requires"`
	SummaryTpl string          `yaml:"summaryTpl"`
	Summary    *yamlSummary    `yaml:"summary"`
	OnComplete []effect.Effect `yaml:"onChapterComplete"`
}

type yamlSummary struct {
	TextTpl string            `yaml:"textTpl"`
	Media   []effect.MediaRef `yaml:"media"`
}

type yamlProgression struct {
	Chapters []yamlChapter `yaml:"chapters"`
}

type yamlCommand struct {
	Disabled        bool          `yaml:"disabled"`
	Aliases         []string      `yaml:"aliases"`
	CooldownSeconds int           `yaml:"cooldownSeconds"`
	Gate            *require.Node `yaml:"gate"`
}

// LoadFromFile reads and validates a single cartridge YAML file.
//
// Precondition: path must point to a valid YAML cartridge file.
// Postcondition: Returns a validated Cartridge or a non-nil error; a
// cartridge is never partially loaded.
func LoadFromFile(path string) (*Cartridge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cartridge file %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates a cartridge from YAML bytes.
func LoadFromBytes(data []byte) (*Cartridge, error) {
	var file yamlCartridgeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing cartridge YAML: %w", err)
	}

	cart := convertYAMLCartridge(file.Cartridge)
	if err := cart.Validate(); err != nil {
		return nil, fmt.Errorf("validating cartridge: %w", err)
	}

	return cart, nil
}

// LoadFromDir loads the first cartridge file found in a directory.
//
// Precondition: dir must be a valid directory path.
func LoadFromDir(dir string) (*Cartridge, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading cartridge directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		cart, err := LoadFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading cartridge from %s: %w", name, err)
		}
		return cart, nil
	}

	return nil, fmt.Errorf("no cartridge files found in %s", dir)
}

// displayName resolves the canonical player-facing name for a catalog row:
// displayName wins over name, and a bare id is prettified as a last resort.
func displayName(display, name, id string) string {
	if display != "" {
		return display
	}
	if name != "" {
		return name
	}
	return strings.ReplaceAll(id, "_", " ")
}

// convertYAMLCartridge converts the parsed YAML structures into domain types.
func convertYAMLCartridge(yc yamlCartridge) *Cartridge {
	cart := &Cartridge{
		ID:      yc.ID,
		Title:   yc.Title,
		Version: yc.Version,
		Start: Start{
			LocationID: yc.Start.Location,
			Flags:      yc.Start.Flags,
		},
		Intro:    convertSequences(yc.Intro),
		Tutorial: convertSequences(yc.Tutorial),
		UI:       yc.UI,
		Media:    yc.Media,
	}

	for _, yl := range yc.Locations {
		cart.World.Locations = append(cart.World.Locations, convertLocation(yl))
	}
	for _, yo := range yc.Objects {
		cart.World.Objects = append(cart.World.Objects, convertObject(yo))
	}
	for _, yi := range yc.Items {
		cart.World.Items = append(cart.World.Items, &Item{
			ID:          yi.ID,
			Name:        displayName(yi.DisplayName, yi.Name, yi.ID),
			Description: yi.Description,
			ReadText:    yi.ReadText,
			Media:       yi.Media,
		})
	}
	for _, yn := range yc.NPCs {
		cart.World.NPCs = append(cart.World.NPCs, convertNPC(yn))
	}

	for _, ych := range yc.Progression.Chapters {
		cart.Progression.Chapters = append(cart.Progression.Chapters, convertChapter(ych))
	}

	if len(yc.Commands) > 0 {
		cart.Commands = make(map[string]CommandConfig, len(yc.Commands))
		for name, ycmd := range yc.Commands {
			cart.Commands[name] = CommandConfig{
				Disabled:        ycmd.Disabled,
				Aliases:         ycmd.Aliases,
				CooldownSeconds: ycmd.CooldownSeconds,
				Gate:            ycmd.Gate,
			}
		}
	}

	return cart
}

func convertLocation(yl yamlLocation) *Location {
	loc := &Location{
		ID:          yl.ID,
		Name:        displayName(yl.DisplayName, yl.Name, yl.ID),
		Description: yl.Description,
		OnArrival:   yl.OnArrival,
		OnExit:      yl.OnExit,
	}
	for _, ys := range yl.Structures {
		// Structures are enterable unless the cartridge says otherwise.
		enterable := ys.Enterable == nil || *ys.Enterable
		st := &Structure{
			ID:          ys.ID,
			Name:        displayName(ys.DisplayName, ys.Name, ys.ID),
			Enterable:   enterable,
			OnEnter:     ys.OnEnter,
			OnExit:      ys.OnExit,
			OnExitMedia: ys.OnExitMedia,
		}
		for _, yr := range ys.Rooms {
			st.Rooms = append(st.Rooms, &Room{
				ID:         yr.ID,
				Objects:    convertRefs(yr.Objects),
				Items:      yr.Items,
				NPCs:       convertRefs(yr.NPCs),
				Conditions: yr.Conditions,
			})
		}
		loc.Structures = append(loc.Structures, st)
	}
	return loc
}

func convertRefs(refs []yamlEntityRef) []EntityRef {
	out := make([]EntityRef, 0, len(refs))
	for _, r := range refs {
		out = append(out, EntityRef{ID: r.ID, VisibleWhen: r.VisibleWhen})
	}
	return out
}

func convertObject(yo yamlObject) *Object {
	obj := &Object{
		ID:          yo.ID,
		Name:        displayName(yo.DisplayName, yo.Name, yo.ID),
		Description: yo.Description,
		Tags:        yo.Tags,
		Contents:    yo.Contents,
		Opened:      yo.States["opened"],
		Media:       yo.Media,
	}
	if yo.Lock != nil {
		obj.Lock = convertLock(yo.Lock)
	}
	return obj
}

func convertLock(yl *yamlLock) *Lock {
	required := yl.RequiredItems
	if yl.RequiredItem != "" {
		required = append([]string{yl.RequiredItem}, required...)
	}
	return &Lock{
		Type:             yl.Type,
		RequiredItems:    required,
		RequiredCode:     yl.RequiredCode,
		AcceptedCodes:    yl.AcceptedCodes,
		CaseSensitive:    yl.CaseSensitive,
		Locked:           yl.Locked,
		Broken:           yl.Broken,
		AutoOpenOnUnlock: yl.AutoOpenOnUnlock || yl.AutoOpenOnBreak,
		OnUnlockFlag:     yl.OnUnlockFlag,
		LockedHint:       yl.LockedHint,
		UnlockMsg:        yl.UnlockMsg,
		CodeFailMsg:      yl.CodeFailMsg,
		BreakMsg:         yl.BreakMsg,
		FailMsg:          yl.FailMsg,
	}
}

func convertNPC(yn yamlNPC) *NPC {
	npc := &NPC{
		ID:          yn.ID,
		Name:        displayName(yn.DisplayName, yn.Name, yn.ID),
		Description: yn.Description,
		Images:      yn.Images,
		Behavior: Behavior{
			Persona: yn.Behavior.Persona,
			Style:   yn.Behavior.Style,
			Opening: yn.Behavior.Opening,
			Voice:   yn.Behavior.Voice,
			Banter:  yn.Behavior.Banter,
			Fallbacks: Fallbacks{
				ForcedClue: yn.Behavior.Fallbacks.ForcedClue,
				Stonewall:  yn.Behavior.Fallbacks.Stonewall,
			},
		},
	}
	for _, yc := range yn.Behavior.Clues {
		npc.Behavior.Clues = append(npc.Behavior.Clues, Clue{
			ID:   yc.ID,
			Text: yc.Text,
			Kind: yc.Kind,
			When: yc.When,
		})
	}
	for _, yr := range yn.Behavior.Replies {
		npc.Behavior.Replies = append(npc.Behavior.Replies, ScriptedReply{Tag: yr.Tag, Text: yr.Text})
	}
	return npc
}

func convertSequences(seqs []yamlSequence) []Sequence {
	out := make([]Sequence, 0, len(seqs))
	for _, ys := range seqs {
		seq := Sequence{ID: ys.ID, Header: ys.Header}
		for _, st := range ys.Steps {
			seq.Steps = append(seq.Steps, SequenceStep{Text: st.Text, TextTpl: st.TextTpl, Media: st.Media})
		}
		out = append(out, seq)
	}
	return out
}

func convertChapter(ych yamlChapter) Chapter {
	ch := Chapter{
		ID:         ych.ID,
		Title:      ych.Title,
		Requires:   ych.Requires,
		OnComplete: ych.OnComplete,
	}
	switch {
	case ych.Summary != nil:
		ch.Summary = &Summary{TextTpl: ych.Summary.TextTpl, Media: ych.Summary.Media}
	case ych.SummaryTpl != "":
		ch.Summary = &Summary{TextTpl: ych.SummaryTpl}
	}
	return ch
}
