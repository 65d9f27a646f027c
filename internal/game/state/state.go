// Package state holds the mutable per-player game state: position, inventory,
// flags, counters, per-object overlays, and NPC conversation tracking.
package state

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when no state document exists for a
// player and game key.
var ErrNotFound = errors.New("player state not found")

// maxLogEntries caps the append-only event log.
const maxLogEntries = 1000

// ObjectOverlay is a sparse patch over an object's catalog defaults.
// A nil field means "use the catalog value".
//
// Invariant: an overlay never records a field equal to the catalog default;
// callers patch only the fields a command actually changed.
type ObjectOverlay struct {
	Locked *bool `json:"locked,omitempty"`
	Opened *bool `json:"opened,omitempty"`
	Broken *bool `json:"broken,omitempty"`
}

// Exchange is one question/answer pair in an NPC conversation history.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TalkState tracks one NPC's conversation progress for the current visit.
type TalkState struct {
	// Asked counts questions consumed this visit.
	Asked int `json:"asked"`
	// Revealed is set once the real clue has been delivered.
	Revealed bool `json:"revealed"`
	// Closed blocks further answers this visit.
	Closed bool `json:"closed"`
	// History is a bounded ring of recent exchanges.
	History []Exchange `json:"history,omitempty"`
	// UsedClues lists clue texts already spoken, to block verbatim repeats.
	UsedClues []string `json:"usedClues,omitempty"`
	// LastTalkChapter is the chapter during the last conversation turn.
	LastTalkChapter int `json:"lastTalkChapter"`
	// RecapAvailable marks that a revealed clue may be recapped on re-entry.
	RecapAvailable bool `json:"recapAvailable"`
	// RecapAwaitingAsk schedules the recap for the next question.
	RecapAwaitingAsk bool `json:"recapAwaitingAsk"`
}

// maxHistory bounds the conversation history ring per NPC.
const maxHistory = 8

// Remember appends an exchange, dropping the oldest beyond the ring size.
func (t *TalkState) Remember(question, answer string) {
	t.History = append(t.History, Exchange{Question: question, Answer: answer})
	if len(t.History) > maxHistory {
		t.History = t.History[len(t.History)-maxHistory:]
	}
}

// MarkClueUsed records a spoken clue text so it is never repeated verbatim.
func (t *TalkState) MarkClueUsed(text string) {
	for _, u := range t.UsedClues {
		if u == text {
			return
		}
	}
	t.UsedClues = append(t.UsedClues, text)
}

// ClueUsed reports whether the clue text has already been spoken.
func (t *TalkState) ClueUsed(text string) bool {
	for _, u := range t.UsedClues {
		if u == text {
			return true
		}
	}
	return false
}

// Flow is the intro/tutorial sequencing cursor.
type Flow struct {
	Active      bool   `json:"active"`
	Type        string `json:"type,omitempty"`
	Seq         int    `json:"seq"`
	Step        int    `json:"step"`
	HeaderShown bool   `json:"headerShown,omitempty"`
}

// Event is one entry in the append-only effect/audit log.
type Event struct {
	ID     string         `json:"id"`
	At     time.Time      `json:"at"`
	Type   string         `json:"type"`
	Detail map[string]any `json:"detail,omitempty"`
}

// PlayerState is the full mutable state for one player in one game.
//
// Invariant: InStructure=false implies StructureID and RoomID are empty;
// InStructure=true implies both are set and resolvable in the cartridge.
type PlayerState struct {
	PlayerID string `json:"playerId"`
	GameID   string `json:"gameId"`

	Location    string `json:"location,omitempty"`
	InStructure bool   `json:"inStructure"`
	StructureID string `json:"structureId,omitempty"`
	RoomID      string `json:"roomId,omitempty"`

	// Inventory preserves acquisition order and holds no duplicates.
	Inventory []string `json:"inventory"`
	// RevealedItems grows monotonically within a playthrough; only Reset shrinks it.
	RevealedItems []string `json:"revealedItems"`

	Flags    map[string]bool           `json:"flags"`
	Counters map[string]int            `json:"counters"`
	Objects  map[string]*ObjectOverlay `json:"objects"`

	NPCTalk   map[string]*TalkState `json:"npcTalk"`
	ActiveNPC string                `json:"activeNpc,omitempty"`

	Chapter           int   `json:"chapter"`
	ChaptersCompleted []int `json:"chaptersCompleted,omitempty"`

	Flow Flow `json:"flow"`

	// Focus is the last object interacted with, for follow-up commands.
	Focus string `json:"focus,omitempty"`

	// Cooldowns maps command name to the time it becomes usable again.
	Cooldowns map[string]time.Time `json:"cooldowns,omitempty"`

	Log []Event `json:"log,omitempty"`
}

// New creates the state for a fresh playthrough, positioned in the intro flow.
//
// Postcondition: Chapter is 1 and the intro sequence is active at step zero.
func New(playerID, gameID string) *PlayerState {
	s := &PlayerState{PlayerID: playerID, GameID: gameID}
	s.Reset()
	return s
}

// Reset wipes everything except identity and restarts the intro flow.
func (s *PlayerState) Reset() {
	s.Location = ""
	s.InStructure = false
	s.StructureID = ""
	s.RoomID = ""
	s.Inventory = []string{}
	s.RevealedItems = []string{}
	s.Flags = map[string]bool{}
	s.Counters = map[string]int{}
	s.Objects = map[string]*ObjectOverlay{}
	s.NPCTalk = map[string]*TalkState{}
	s.ActiveNPC = ""
	s.Chapter = 1
	s.ChaptersCompleted = nil
	s.Flow = Flow{Active: true, Type: "intro"}
	s.Focus = ""
	s.Cooldowns = nil
	s.Log = nil
}

// Normalize repairs nil maps after JSON decoding of older documents.
func (s *PlayerState) Normalize() {
	if s.Inventory == nil {
		s.Inventory = []string{}
	}
	if s.RevealedItems == nil {
		s.RevealedItems = []string{}
	}
	if s.Flags == nil {
		s.Flags = map[string]bool{}
	}
	if s.Counters == nil {
		s.Counters = map[string]int{}
	}
	if s.Objects == nil {
		s.Objects = map[string]*ObjectOverlay{}
	}
	if s.NPCTalk == nil {
		s.NPCTalk = map[string]*TalkState{}
	}
	if s.Chapter < 1 {
		s.Chapter = 1
	}
}

// SetFlag sets a boolean progress marker.
func (s *PlayerState) SetFlag(name string) {
	if name == "" {
		return
	}
	if s.Flags == nil {
		s.Flags = map[string]bool{}
	}
	s.Flags[name] = true
}

// ClearFlag sets a flag to false.
func (s *PlayerState) ClearFlag(name string) {
	if name == "" || s.Flags == nil {
		return
	}
	s.Flags[name] = false
}

// HasFlag reports whether the flag is set truthy.
func (s *PlayerState) HasFlag(name string) bool {
	return s.Flags != nil && s.Flags[name]
}

// Counter returns the counter value; a missing counter reads as zero.
func (s *PlayerState) Counter(key string) int {
	if s.Counters == nil {
		return 0
	}
	return s.Counters[key]
}

// IncCounter adds delta to a counter, creating it at zero if missing.
func (s *PlayerState) IncCounter(key string, delta int) {
	if key == "" {
		return
	}
	if s.Counters == nil {
		s.Counters = map[string]int{}
	}
	s.Counters[key] += delta
}

// HasItem reports whether the item is in the inventory.
func (s *PlayerState) HasItem(id string) bool {
	for _, it := range s.Inventory {
		if it == id {
			return true
		}
	}
	return false
}

// AddItem appends an item preserving acquisition order; duplicates are ignored.
func (s *PlayerState) AddItem(id string) {
	if id == "" || s.HasItem(id) {
		return
	}
	s.Inventory = append(s.Inventory, id)
}

// RemoveItem drops an item from the inventory if present.
//
// Postcondition: Returns true if the item was removed.
func (s *PlayerState) RemoveItem(id string) bool {
	for i, it := range s.Inventory {
		if it == id {
			s.Inventory = append(s.Inventory[:i], s.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// IsRevealed reports whether the item has ever been disclosed to the player.
func (s *PlayerState) IsRevealed(id string) bool {
	for _, it := range s.RevealedItems {
		if it == id {
			return true
		}
	}
	return false
}

// MarkRevealed adds item ids to the revealed set. Idempotent.
func (s *PlayerState) MarkRevealed(ids ...string) {
	for _, id := range ids {
		if id == "" || s.IsRevealed(id) {
			continue
		}
		s.RevealedItems = append(s.RevealedItems, id)
	}
}

// Overlay returns the overlay for an object, or nil when no field differs
// from the catalog defaults.
func (s *PlayerState) Overlay(objectID string) *ObjectOverlay {
	if s.Objects == nil {
		return nil
	}
	return s.Objects[objectID]
}

// PatchObject merges a sparse overlay patch for the object.
// Only non-nil fields in patch are written.
func (s *PlayerState) PatchObject(objectID string, patch ObjectOverlay) {
	if objectID == "" {
		return
	}
	if s.Objects == nil {
		s.Objects = map[string]*ObjectOverlay{}
	}
	ov := s.Objects[objectID]
	if ov == nil {
		ov = &ObjectOverlay{}
		s.Objects[objectID] = ov
	}
	if patch.Locked != nil {
		ov.Locked = patch.Locked
	}
	if patch.Opened != nil {
		ov.Opened = patch.Opened
	}
	if patch.Broken != nil {
		ov.Broken = patch.Broken
	}
}

// Talk returns the conversation state for an NPC, creating it on first use.
func (s *PlayerState) Talk(npcID string) *TalkState {
	if s.NPCTalk == nil {
		s.NPCTalk = map[string]*TalkState{}
	}
	ts := s.NPCTalk[npcID]
	if ts == nil {
		ts = &TalkState{}
		s.NPCTalk[npcID] = ts
	}
	return ts
}

// OnCooldown reports whether the command is still cooling down at now.
func (s *PlayerState) OnCooldown(cmd string, now time.Time) (time.Time, bool) {
	if s.Cooldowns == nil {
		return time.Time{}, false
	}
	until, ok := s.Cooldowns[cmd]
	if !ok || !until.After(now) {
		return time.Time{}, false
	}
	return until, true
}

// StartCooldown records that cmd may not run again until now+d.
func (s *PlayerState) StartCooldown(cmd string, now time.Time, d time.Duration) {
	if s.Cooldowns == nil {
		s.Cooldowns = map[string]time.Time{}
	}
	s.Cooldowns[cmd] = now.Add(d)
}

// AppendEvent records an audit entry, trimming the log to its cap.
func (s *PlayerState) AppendEvent(id string, eventType string, detail map[string]any) {
	s.Log = append(s.Log, Event{ID: id, At: time.Now().UTC(), Type: eventType, Detail: detail})
	if len(s.Log) > maxLogEntries {
		s.Log = s.Log[len(s.Log)-maxLogEntries:]
	}
}
