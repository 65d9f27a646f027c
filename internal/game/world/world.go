// Package world answers "where is the player" and "what is reachable"
// queries against the cartridge catalog and a player's state. Every query is
// a pure read: the view never mutates its inputs and never returns an entity
// absent from the cartridge.
package world

import (
	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/require"
	"github.com/noirbyte/gumshoe/internal/game/state"
)

// View is a read-only snapshot of one player's position in the world,
// rebuilt per command. It is not retained across requests.
type View struct {
	cart *cartridge.Cartridge
	st   *state.PlayerState
}

// NewView creates a view over cart and st.
//
// Precondition: cart and st must be non-nil; st must belong to cart's game.
func NewView(cart *cartridge.Cartridge, st *state.PlayerState) *View {
	return &View{cart: cart, st: st}
}

// CurrentLocation returns the player's location, or nil if the state points
// at an id missing from the cartridge.
func (v *View) CurrentLocation() *cartridge.Location {
	loc, ok := v.cart.Location(v.st.Location)
	if !ok {
		return nil
	}
	return loc
}

// CurrentStructure returns the structure the player is inside, or nil when
// outside or unresolvable.
func (v *View) CurrentStructure() *cartridge.Structure {
	if !v.st.InStructure {
		return nil
	}
	loc := v.CurrentLocation()
	if loc == nil {
		return nil
	}
	for _, s := range loc.Structures {
		if s.ID == v.st.StructureID {
			return s
		}
	}
	return nil
}

// CurrentRoom returns the player's room inside the current structure. When
// the state's room id does not resolve, the room named "main" is preferred,
// then the structure's first room, so a player never strands in a
// nonexistent room after a cartridge update.
func (v *View) CurrentRoom() *cartridge.Room {
	st := v.CurrentStructure()
	if st == nil || len(st.Rooms) == 0 {
		return nil
	}
	var main *cartridge.Room
	for _, r := range st.Rooms {
		if r.ID == v.st.RoomID {
			return r
		}
		if r.ID == "main" {
			main = r
		}
	}
	if main != nil {
		return main
	}
	return st.Rooms[0]
}

// EffectiveLocked merges the player overlay with the catalog lock default.
// Objects without a lock are never locked.
func (v *View) EffectiveLocked(objectID string) bool {
	obj, ok := v.cart.Object(objectID)
	if !ok {
		return false
	}
	if ov := v.st.Overlay(objectID); ov != nil && ov.Locked != nil {
		return *ov.Locked
	}
	return obj.Lock != nil && obj.Lock.Locked
}

// EffectiveOpened merges the player overlay with the catalog open default.
func (v *View) EffectiveOpened(objectID string) bool {
	obj, ok := v.cart.Object(objectID)
	if !ok {
		return false
	}
	if ov := v.st.Overlay(objectID); ov != nil && ov.Opened != nil {
		return *ov.Opened
	}
	return obj.Opened
}

// EffectiveBroken merges the player overlay with the catalog broken default.
func (v *View) EffectiveBroken(objectID string) bool {
	obj, ok := v.cart.Object(objectID)
	if !ok {
		return false
	}
	if ov := v.st.Overlay(objectID); ov != nil && ov.Broken != nil {
		return *ov.Broken
	}
	return obj.Lock != nil && obj.Lock.Broken
}

// Accessible reports whether an object's contents can be reached: the lock
// must be open (or broken through) and, for openable objects, the lid open.
func (v *View) Accessible(obj *cartridge.Object) bool {
	if v.EffectiveLocked(obj.ID) && !v.EffectiveBroken(obj.ID) {
		return false
	}
	if obj.HasTag("openable") && !v.EffectiveOpened(obj.ID) {
		return false
	}
	return true
}

// VisibleObjects returns the current room's objects whose visibility gates
// pass for this player, in cartridge order.
func (v *View) VisibleObjects() []*cartridge.Object {
	room := v.CurrentRoom()
	if room == nil {
		return nil
	}
	var out []*cartridge.Object
	for _, ref := range room.Objects {
		if !v.refVisible(ref) {
			continue
		}
		if obj, ok := v.cart.Object(ref.ID); ok {
			out = append(out, obj)
		}
	}
	return out
}

// VisibleNPCs returns the current room's NPCs whose visibility gates pass.
func (v *View) VisibleNPCs() []*cartridge.NPC {
	room := v.CurrentRoom()
	if room == nil {
		return nil
	}
	var out []*cartridge.NPC
	for _, ref := range room.NPCs {
		if !v.refVisible(ref) {
			continue
		}
		if npc, ok := v.cart.NPC(ref.ID); ok {
			out = append(out, npc)
		}
	}
	return out
}

// VisibleItems returns the loose items in the current room plus the contents
// of accessible visible objects, filtered to items the player has revealed
// and not yet taken.
func (v *View) VisibleItems() []*cartridge.Item {
	room := v.CurrentRoom()
	if room == nil {
		return nil
	}
	ids := append([]string(nil), room.Items...)
	for _, obj := range v.VisibleObjects() {
		if !v.Accessible(obj) {
			continue
		}
		ids = append(ids, obj.Contents...)
	}

	seen := make(map[string]bool, len(ids))
	var out []*cartridge.Item
	for _, id := range ids {
		if seen[id] || v.st.HasItem(id) || !v.st.IsRevealed(id) {
			continue
		}
		seen[id] = true
		if item, ok := v.cart.Item(id); ok {
			out = append(out, item)
		}
	}
	return out
}

// LooseItems returns the room's plain-sight items regardless of reveal
// state; the show command treats them as always revealed.
func (v *View) LooseItems() []*cartridge.Item {
	room := v.CurrentRoom()
	if room == nil {
		return nil
	}
	var out []*cartridge.Item
	for _, id := range room.Items {
		if v.st.HasItem(id) {
			continue
		}
		if item, ok := v.cart.Item(id); ok {
			out = append(out, item)
		}
	}
	return out
}

func (v *View) refVisible(ref cartridge.EntityRef) bool {
	if ref.VisibleWhen == nil {
		return true
	}
	return require.Evaluate(ref.VisibleWhen, v.st)
}
