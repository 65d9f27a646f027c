package command

import (
	"fmt"
	"strings"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/match"
	"github.com/noirbyte/gumshoe/internal/game/state"
)

// notInside is the shared rejection for room-scoped commands used outside.
func notInside(inv *Invocation) []effect.Effect {
	return []effect.Effect{inv.msg("notInside",
		"You are not inside a building. Use /enter first.", nil)}
}

// showModes maps mode aliases for the show command.
var showModes = map[string][]string{
	"objects": {"objects", "object", "objs", "things"},
	"people":  {"people", "person", "npc", "npcs", "folk", "persons"},
	"items":   {"item", "items", "loot", "gear"},
}

func resolveShowMode(token string) string {
	q := strings.ToLower(strings.TrimSpace(token))
	if q == "" {
		return ""
	}
	for mode, aliases := range showModes {
		for _, a := range aliases {
			if a == q {
				return mode
			}
		}
	}
	for mode, aliases := range showModes {
		if _, ok := match.BestString(q, aliases, match.ThresholdKeyword); ok {
			return mode
		}
	}
	return ""
}

// Show lists the visible objects, people, and items in the current room.
func Show(inv *Invocation) ([]effect.Effect, error) {
	if !inv.State.InStructure {
		return notInside(inv), nil
	}
	if inv.View.CurrentRoom() == nil {
		return []effect.Effect{effect.Text("You're inside, but not in a defined room.")}, nil
	}

	var objectNames, npcNames, itemNames []string
	for _, o := range inv.View.VisibleObjects() {
		objectNames = append(objectNames, o.Name)
	}
	for _, n := range inv.View.VisibleNPCs() {
		npcNames = append(npcNames, n.Name)
	}
	for _, it := range inv.View.VisibleItems() {
		itemNames = append(itemNames, it.Name)
	}

	objectsLine := fmt.Sprintf("*Objects here:*\n\n%s", bullets(objectNames, "no obvious objects."))
	peopleLine := fmt.Sprintf("*People here:*\n\n%s", bullets(npcNames, "no one in sight."))
	itemsLine := fmt.Sprintf("*Items here:*\n\n%s", bullets(itemNames, "no items visible at first glance."))

	raw := inv.token()
	switch resolveShowMode(raw) {
	case "objects":
		return []effect.Effect{effect.Text(objectsLine)}, nil
	case "people":
		return []effect.Effect{effect.Text(peopleLine)}, nil
	case "items":
		return []effect.Effect{effect.Text(itemsLine)}, nil
	}
	if raw != "" {
		return []effect.Effect{effect.Text(
			"Your eyes wander, but focus falters. Try */show objects*, */show people*, or */show items*.")}, nil
	}
	return []effect.Effect{effect.Text(strings.Join([]string{objectsLine, "", peopleLine, "", itemsLine}, "\n"))}, nil
}

// resolveRoomObject matches a token against the visible objects in the
// current room, with a stricter cross-room fallback over the whole structure.
func resolveRoomObject(inv *Invocation, token string, crossRoom bool) *cartridge.Object {
	visible := inv.View.VisibleObjects()
	if id, ok := match.Best(token, objectCandidates(visible), match.ThresholdObject); ok {
		obj, _ := inv.Cart.Object(id)
		return obj
	}
	if !crossRoom {
		return nil
	}
	st := inv.View.CurrentStructure()
	if st == nil {
		return nil
	}
	var all []*cartridge.Object
	for _, room := range st.Rooms {
		for _, ref := range room.Objects {
			if obj, ok := inv.Cart.Object(ref.ID); ok {
				all = append(all, obj)
			}
		}
	}
	if id, ok := match.Best(token, objectCandidates(all), match.ThresholdCrossRoom); ok {
		obj, _ := inv.Cart.Object(id)
		return obj
	}
	return nil
}

// lockedTail picks the hint line for a locked object.
func lockedTail(obj *cartridge.Object) string {
	lock := obj.Lock
	if lock != nil && lock.LockedHint != "" {
		hint := strings.TrimSpace(lock.LockedHint)
		for _, prefix := range []string{"It's locked.", "it's locked.", "Locked.", "locked."} {
			hint = strings.TrimSpace(strings.TrimPrefix(hint, prefix))
		}
		if hint != "" {
			return hint
		}
	}
	if lock == nil {
		return "It won't open, something's keeping it shut."
	}
	switch lock.Type {
	case cartridge.LockKey:
		return "A key would help."
	case cartridge.LockCode, cartridge.LockPin:
		return "It needs a code."
	case cartridge.LockAuthorization:
		return "You'll need authorization."
	default:
		return "It won't open, something's keeping it shut."
	}
}

// lastWord extracts the token a player would type to target the object.
func lastWord(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return name
	}
	return strings.ToLower(words[len(words)-1])
}

// Check reports an object's status without revealing contents.
func Check(inv *Invocation) ([]effect.Effect, error) {
	if !inv.State.InStructure {
		return notInside(inv), nil
	}

	token := inv.token()
	if resolveShowMode(token) == "objects" {
		var names []string
		for _, o := range inv.View.VisibleObjects() {
			names = append(names, o.Name)
		}
		if len(names) == 0 {
			return []effect.Effect{effect.Text("No objects to check here.")}, nil
		}
		return []effect.Effect{effect.Text(fmt.Sprintf("Objects here:\n\n%s", bullets(names, "none")))}, nil
	}
	if token == "" {
		return []effect.Effect{effect.Text("Check what? Try */check desk* or */check cabinet*.")}, nil
	}

	obj := resolveRoomObject(inv, token, false)
	if obj == nil {
		var names []string
		for _, o := range inv.View.VisibleObjects() {
			names = append(names, o.Name)
		}
		if len(names) == 0 {
			return []effect.Effect{effect.Text("No objects to check here.")}, nil
		}
		return []effect.Effect{effect.Text(fmt.Sprintf("No such object here. Try one of: %s", starred(names)))}, nil
	}

	inv.State.Focus = obj.ID

	if inv.View.EffectiveLocked(obj.ID) {
		return []effect.Effect{effect.Text(fmt.Sprintf("Hmmm. *%s* is locked. %s", obj.Name, lockedTail(obj)))}, nil
	}
	if obj.HasTag("openable") {
		if !inv.View.EffectiveOpened(obj.ID) {
			return []effect.Effect{effect.Text(fmt.Sprintf(
				"*%s* isn't locked, but it's closed. Try */open %s*.", obj.Name, lastWord(obj.Name)))}, nil
		}
		return []effect.Effect{effect.Text(fmt.Sprintf("*%s* is open.", obj.Name))}, nil
	}
	if obj.HasTag("searchable") {
		return []effect.Effect{effect.Text(fmt.Sprintf(
			"You check *%s*. Looks like you could search it. Try */search %s*.", obj.Name, lastWord(obj.Name)))}, nil
	}
	return []effect.Effect{effect.Text(fmt.Sprintf("You check *%s*. Nothing unusual.", obj.Name))}, nil
}

// itemNames maps item ids to display names via the catalog.
func itemNames(cart *cartridge.Cartridge, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if it, ok := cart.Item(id); ok {
			out = append(out, it.Name)
		} else {
			out = append(out, strings.ReplaceAll(id, "_", " "))
		}
	}
	return out
}

// remainingContents filters an object's contents to items not yet taken.
func remainingContents(st *state.PlayerState, obj *cartridge.Object) []string {
	var out []string
	for _, id := range obj.Contents {
		if !st.HasItem(id) {
			out = append(out, id)
		}
	}
	return out
}

// Open opens an object, revealing its remaining contents.
func Open(inv *Invocation) ([]effect.Effect, error) {
	if !inv.State.InStructure {
		return []effect.Effect{inv.msg("open.notInside",
			"Open what? Step inside first with */enter*.", nil)}, nil
	}
	token := inv.token()
	if token == "" {
		return []effect.Effect{inv.msg("open.what",
			"Open what? Try */open desk* or */open cabinet*.", nil)}, nil
	}

	obj := resolveRoomObject(inv, token, false)
	if obj == nil {
		var names []string
		for _, o := range inv.View.VisibleObjects() {
			names = append(names, o.Name)
		}
		if len(names) == 0 {
			return []effect.Effect{inv.msg("open.noneHere", "Nothing here to open.", nil)}, nil
		}
		return []effect.Effect{inv.msg("open.whichOne",
			fmt.Sprintf("Open what? Here you have: %s", starred(names)),
			map[string]string{"names": starred(names)})}, nil
	}

	inv.State.Focus = obj.ID

	if !obj.HasTag("openable") {
		return []effect.Effect{inv.msg("open.notOpenable",
			fmt.Sprintf("*%s* can't be opened.", obj.Name),
			map[string]string{"name": obj.Name})}, nil
	}

	if inv.View.EffectiveLocked(obj.ID) {
		fallback := fmt.Sprintf("Hmmm, *%s* seems locked. It will need a key or code.", obj.Name)
		if obj.Lock != nil && obj.Lock.LockedHint != "" {
			return []effect.Effect{effect.Text(obj.Lock.LockedHint)}, nil
		}
		return []effect.Effect{inv.msg("open.locked", fallback, map[string]string{"name": obj.Name})}, nil
	}

	var effects []effect.Effect
	if !inv.View.EffectiveOpened(obj.ID) {
		opened := true
		inv.State.PatchObject(obj.ID, state.ObjectOverlay{Opened: &opened})
		inv.State.SetFlag("opened_object:" + obj.ID)
	}

	remaining := remainingContents(inv.State, obj)
	if len(remaining) == 0 {
		return append(effects, inv.msg("open.empty",
			fmt.Sprintf("You open the *%s*. It's empty.", obj.Name),
			map[string]string{"name": obj.Name})), nil
	}

	effects = append(effects, effect.Effect{RevealItems: remaining})
	list := bullets(itemNames(inv.Cart, remaining), "")
	effects = append(effects, inv.msg("open.contents",
		fmt.Sprintf("You open the *%s*.\nInside you find:\n%s", obj.Name, list),
		map[string]string{"name": obj.Name, "list": list}))
	return effects, nil
}

// Search inspects an object for items, honoring lock and open state.
func Search(inv *Invocation) ([]effect.Effect, error) {
	if !inv.State.InStructure {
		return notInside(inv), nil
	}
	token := inv.token()
	if token == "" {
		return []effect.Effect{effect.Text("Search what? Try */search desk* or */check cabinet*.")}, nil
	}

	obj := resolveRoomObject(inv, token, true)
	if obj == nil {
		var names []string
		for _, o := range inv.View.VisibleObjects() {
			names = append(names, o.Name)
		}
		if len(names) == 0 {
			return []effect.Effect{effect.Text("No objects to search here.")}, nil
		}
		return []effect.Effect{effect.Text(fmt.Sprintf("No such object. Try one of: %s", starred(names)))}, nil
	}

	inv.State.Focus = obj.ID

	if inv.View.EffectiveLocked(obj.ID) {
		return []effect.Effect{effect.Text(fmt.Sprintf("Hmmm. *%s* is locked. %s", obj.Name, lockedTail(obj)))}, nil
	}
	if obj.HasTag("openable") && !inv.View.EffectiveOpened(obj.ID) {
		return []effect.Effect{effect.Text(fmt.Sprintf(
			"You check the *%s*. It's closed. Try */open %s* or */use <item>*.", obj.Name, lastWord(obj.Name)))}, nil
	}

	remaining := remainingContents(inv.State, obj)
	if len(remaining) == 0 {
		return []effect.Effect{inv.msg("searchEmpty",
			fmt.Sprintf("You search the *%s*, nothing else.", obj.Name),
			map[string]string{"object": obj.Name})}, nil
	}

	list := bullets(itemNames(inv.Cart, remaining), "")
	return []effect.Effect{
		{RevealItems: remaining},
		inv.msg("searchFound",
			fmt.Sprintf("You search the *%s* and find:\n%s", obj.Name, list),
			map[string]string{"object": obj.Name, "list": list}),
	}, nil
}
