package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewStartsIntro(t *testing.T) {
	st := New("player-1", "game-1")

	assert.Equal(t, "player-1", st.PlayerID)
	assert.Equal(t, 1, st.Chapter)
	assert.True(t, st.Flow.Active)
	assert.Equal(t, "intro", st.Flow.Type)
	assert.Empty(t, st.Inventory)
}

func TestResetKeepsIdentity(t *testing.T) {
	st := New("player-1", "game-1")
	st.Location = "harbor"
	st.AddItem("brass_key")
	st.SetFlag("chapter_1_done")
	st.Chapter = 3

	st.Reset()

	assert.Equal(t, "player-1", st.PlayerID)
	assert.Equal(t, "game-1", st.GameID)
	assert.Empty(t, st.Location)
	assert.Empty(t, st.Inventory)
	assert.False(t, st.HasFlag("chapter_1_done"))
	assert.Equal(t, 1, st.Chapter)
	assert.True(t, st.Flow.Active)
}

func TestInventory(t *testing.T) {
	st := New("p", "g")

	st.AddItem("brass_key")
	st.AddItem("ledger")
	st.AddItem("brass_key")
	assert.Equal(t, []string{"brass_key", "ledger"}, st.Inventory, "duplicates ignored, order preserved")

	assert.True(t, st.RemoveItem("brass_key"))
	assert.False(t, st.RemoveItem("brass_key"))
	assert.Equal(t, []string{"ledger"}, st.Inventory)
}

func TestMarkRevealedIdempotent(t *testing.T) {
	st := New("p", "g")

	st.MarkRevealed("ledger", "ledger", "")
	st.MarkRevealed("ledger")
	assert.Equal(t, []string{"ledger"}, st.RevealedItems)
	assert.True(t, st.IsRevealed("ledger"))
	assert.False(t, st.IsRevealed("note"))
}

func TestPatchObjectMergesSparseFields(t *testing.T) {
	st := New("p", "g")
	assert.Nil(t, st.Overlay("desk"))

	unlocked := false
	st.PatchObject("desk", ObjectOverlay{Locked: &unlocked})
	ov := st.Overlay("desk")
	require.NotNil(t, ov)
	require.NotNil(t, ov.Locked)
	assert.False(t, *ov.Locked)
	assert.Nil(t, ov.Opened, "untouched field stays nil")

	opened := true
	st.PatchObject("desk", ObjectOverlay{Opened: &opened})
	ov = st.Overlay("desk")
	require.NotNil(t, ov.Locked)
	assert.False(t, *ov.Locked, "earlier patch survives later ones")
	require.NotNil(t, ov.Opened)
	assert.True(t, *ov.Opened)
}

func TestPatchObjectProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		st := New("p", "g")
		var wantLocked, wantOpened, wantBroken *bool

		n := rapid.IntRange(1, 8).Draw(t, "patches")
		for i := 0; i < n; i++ {
			var patch ObjectOverlay
			if rapid.Bool().Draw(t, "hasLocked") {
				v := rapid.Bool().Draw(t, "locked")
				patch.Locked = &v
				wantLocked = &v
			}
			if rapid.Bool().Draw(t, "hasOpened") {
				v := rapid.Bool().Draw(t, "opened")
				patch.Opened = &v
				wantOpened = &v
			}
			if rapid.Bool().Draw(t, "hasBroken") {
				v := rapid.Bool().Draw(t, "broken")
				patch.Broken = &v
				wantBroken = &v
			}
			st.PatchObject("desk", patch)
		}

		ov := st.Overlay("desk")
		require.NotNil(t, ov)
		assert.Equal(t, wantLocked, ov.Locked)
		assert.Equal(t, wantOpened, ov.Opened)
		assert.Equal(t, wantBroken, ov.Broken)
	})
}

func TestTalkLazyInit(t *testing.T) {
	st := New("p", "g")

	ts := st.Talk("watchman")
	require.NotNil(t, ts)
	ts.Asked = 2
	assert.Equal(t, 2, st.Talk("watchman").Asked, "same instance on repeat access")
}

func TestTalkStateClues(t *testing.T) {
	ts := &TalkState{}

	ts.MarkClueUsed("the ledger is forged")
	ts.MarkClueUsed("the ledger is forged")
	assert.True(t, ts.ClueUsed("the ledger is forged"))
	assert.False(t, ts.ClueUsed("something else"))
	assert.Len(t, ts.UsedClues, 1)

	ts.Remember("who did it?", "no idea")
	require.Len(t, ts.History, 1)
	assert.Equal(t, "who did it?", ts.History[0].Question)
}

func TestCooldowns(t *testing.T) {
	st := New("p", "g")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, on := st.OnCooldown("move", now)
	assert.False(t, on)

	st.StartCooldown("move", now, 10*time.Second)
	until, on := st.OnCooldown("move", now.Add(5*time.Second))
	assert.True(t, on)
	assert.Equal(t, now.Add(10*time.Second), until)

	_, on = st.OnCooldown("move", now.Add(10*time.Second))
	assert.False(t, on, "cooldown expires at the boundary")
}

func TestAppendEventTrims(t *testing.T) {
	st := New("p", "g")
	for i := 0; i < maxLogEntries+10; i++ {
		st.AppendEvent("id", "setFlag", nil)
	}
	assert.Len(t, st.Log, maxLogEntries)
}

func TestNormalizeRepairsDecodedDocument(t *testing.T) {
	raw := []byte(`{"playerId":"p","gameId":"g","chapter":0}`)
	var st PlayerState
	require.NoError(t, json.Unmarshal(raw, &st))

	st.Normalize()

	assert.NotNil(t, st.Flags)
	assert.NotNil(t, st.Counters)
	assert.NotNil(t, st.Objects)
	assert.NotNil(t, st.NPCTalk)
	assert.NotNil(t, st.Inventory)
	assert.Equal(t, 1, st.Chapter)
}

func TestRoundTripJSON(t *testing.T) {
	st := New("p", "g")
	st.Location = "harbor"
	st.AddItem("brass_key")
	locked := false
	st.PatchObject("desk", ObjectOverlay{Locked: &locked})
	st.Talk("watchman").Asked = 3

	doc, err := json.Marshal(st)
	require.NoError(t, err)

	var got PlayerState
	require.NoError(t, json.Unmarshal(doc, &got))
	got.Normalize()

	assert.Equal(t, st.Location, got.Location)
	assert.Equal(t, st.Inventory, got.Inventory)
	require.NotNil(t, got.Overlay("desk"))
	assert.Equal(t, 3, got.Talk("watchman").Asked)
}
