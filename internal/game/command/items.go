package command

import (
	"fmt"
	"strings"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/game/match"
	"github.com/noirbyte/gumshoe/internal/game/state"
)

// takeable returns the items the player could take right now: visible
// revealed items plus the room's plain-sight loose items.
func takeable(inv *Invocation) []*cartridge.Item {
	seen := make(map[string]bool)
	var out []*cartridge.Item
	for _, it := range inv.View.VisibleItems() {
		if !seen[it.ID] {
			seen[it.ID] = true
			out = append(out, it)
		}
	}
	for _, it := range inv.View.LooseItems() {
		if !seen[it.ID] {
			seen[it.ID] = true
			out = append(out, it)
		}
	}
	return out
}

// Take moves an item from the room into the inventory.
func Take(inv *Invocation) ([]effect.Effect, error) {
	if !inv.State.InStructure {
		return []effect.Effect{inv.msg("take.notInside", "You're not inside. Use */enter*.", nil)}, nil
	}
	if inv.View.CurrentRoom() == nil {
		return []effect.Effect{inv.msg("take.nowhere", "Nowhere to take.", nil)}, nil
	}

	candidates := takeable(inv)
	token := inv.token()
	if token == "" {
		if len(candidates) == 0 {
			return []effect.Effect{effect.Text("Nothing here to take.")}, nil
		}
		var names []string
		for _, it := range candidates {
			names = append(names, it.Name)
		}
		return []effect.Effect{inv.msg("take.whichOne",
			fmt.Sprintf("Which one?\n%s", bullets(names, "nothing")),
			map[string]string{"list": bullets(names, "nothing")})}, nil
	}

	id, ok := match.Best(token, itemCandidates(candidates), match.ThresholdObject)
	if !ok {
		if inv.State.HasItem(token) {
			item, _ := inv.Cart.Item(token)
			name := token
			if item != nil {
				name = item.Name
			}
			return []effect.Effect{inv.msg("take.alreadyHave",
				fmt.Sprintf("You already have %s.", name),
				map[string]string{"item": name})}, nil
		}
		var names []string
		for _, it := range candidates {
			names = append(names, it.Name)
		}
		if len(names) == 0 {
			return []effect.Effect{effect.Text("Nothing here to take.")}, nil
		}
		return []effect.Effect{inv.msg("take.whichOne",
			fmt.Sprintf("Which one?\n%s", bullets(names, "nothing")),
			map[string]string{"list": bullets(names, "nothing")})}, nil
	}

	item, _ := inv.Cart.Item(id)
	if inv.State.HasItem(id) {
		return []effect.Effect{inv.msg("take.alreadyHave",
			fmt.Sprintf("You already have %s.", item.Name),
			map[string]string{"item": item.Name})}, nil
	}

	inv.State.AddItem(id)
	return []effect.Effect{
		{SetFlag: "has_item:" + id},
		inv.msg("take.confirmed", fmt.Sprintf("Taken: %s.", item.Name),
			map[string]string{"item": item.Name}),
	}, nil
}

// splitUseArgs separates "use <item> on <target>" into the two tokens.
func splitUseArgs(args []string) (itemTok, targetTok string) {
	for i, a := range args {
		if a == "on" || a == "with" {
			return strings.Join(args[:i], " "), strings.Join(args[i+1:], " ")
		}
	}
	return strings.Join(args, " "), ""
}

// Use applies an inventory item or a typed code to an object's lock.
func Use(inv *Invocation) ([]effect.Effect, error) {
	if !inv.State.InStructure {
		return notInside(inv), nil
	}

	itemTok, targetTok := splitUseArgs(inv.Args)
	if itemTok == "" {
		return []effect.Effect{effect.Text("Use what? Try */use brass key on desk*.")}, nil
	}

	// Resolve target object; fall back to the last focused object when the
	// player says just "use key".
	var obj *cartridge.Object
	if targetTok != "" {
		obj = resolveRoomObject(inv, targetTok, true)
	} else if inv.State.Focus != "" {
		obj, _ = inv.Cart.Object(inv.State.Focus)
	}
	if obj == nil {
		return []effect.Effect{effect.Text("Use it on what? Try */use <item> on <object>*.")}, nil
	}
	if obj.Lock == nil {
		return []effect.Effect{effect.Text(fmt.Sprintf("*%s* has no lock to work on.", obj.Name))}, nil
	}

	inv.State.Focus = obj.ID
	lock := obj.Lock

	// Resolve the inventory item, if any.
	var held []match.Candidate
	for _, id := range inv.State.Inventory {
		if it, ok := inv.Cart.Item(id); ok {
			held = append(held, match.Candidate{ID: it.ID, Fields: []string{it.Name}})
		}
	}
	heldID, hasHeld := match.Best(itemTok, held, match.ThresholdObject)

	switch lock.Type {
	case cartridge.LockBreakable:
		if inv.View.EffectiveBroken(obj.ID) {
			return []effect.Effect{effect.Text(fmt.Sprintf("*%s* is already broken open.", obj.Name))}, nil
		}
		if !hasHeld || !containsString(lock.RequiredItems, heldID) {
			if lock.FailMsg != "" {
				return []effect.Effect{effect.Text(lock.FailMsg)}, nil
			}
			return []effect.Effect{effect.Text(fmt.Sprintf("That won't break *%s* open.", obj.Name))}, nil
		}
		broken := true
		patch := state.ObjectOverlay{Broken: &broken}
		if lock.AutoOpenOnUnlock {
			opened := true
			patch.Opened = &opened
		}
		unlocked := false
		patch.Locked = &unlocked
		inv.State.PatchObject(obj.ID, patch)
		effects := unlockFlagEffects(lock)
		if lock.BreakMsg != "" {
			return append(effects, effect.Text(lock.BreakMsg)), nil
		}
		return append(effects, effect.Text(fmt.Sprintf("You force *%s* open.", obj.Name))), nil

	case cartridge.LockKey, cartridge.LockAuthorization:
		if !inv.View.EffectiveLocked(obj.ID) {
			return []effect.Effect{inv.msg("use.alreadyUnlocked",
				fmt.Sprintf("*%s* is already unlocked.", obj.Name),
				map[string]string{"name": obj.Name})}, nil
		}
		if !hasHeld || !containsString(lock.RequiredItems, heldID) {
			if lock.LockedHint != "" {
				return []effect.Effect{effect.Text(lock.LockedHint)}, nil
			}
			return []effect.Effect{effect.Text(fmt.Sprintf("That doesn't work on *%s*.", obj.Name))}, nil
		}
		return applyUnlock(inv, obj), nil

	case cartridge.LockCode, cartridge.LockPin:
		if !inv.View.EffectiveLocked(obj.ID) {
			return []effect.Effect{inv.msg("use.alreadyUnlocked",
				fmt.Sprintf("*%s* is already unlocked.", obj.Name),
				map[string]string{"name": obj.Name})}, nil
		}
		if lock.AcceptsCode(itemTok) {
			return applyUnlock(inv, obj), nil
		}
		if lock.CodeFailMsg != "" {
			return []effect.Effect{effect.Text(lock.CodeFailMsg)}, nil
		}
		if lock.LockedHint != "" {
			return []effect.Effect{effect.Text(lock.LockedHint)}, nil
		}
		return []effect.Effect{effect.Text(fmt.Sprintf("The code doesn't open *%s*.", obj.Name))}, nil
	}

	return []effect.Effect{effect.Text(fmt.Sprintf("Nothing happens to *%s*.", obj.Name))}, nil
}

// applyUnlock patches the overlay for a successful unlock and builds the
// confirmation effects.
func applyUnlock(inv *Invocation, obj *cartridge.Object) []effect.Effect {
	lock := obj.Lock
	unlocked := false
	patch := state.ObjectOverlay{Locked: &unlocked}
	if lock.AutoOpenOnUnlock {
		opened := true
		patch.Opened = &opened
	}
	inv.State.PatchObject(obj.ID, patch)

	effects := unlockFlagEffects(lock)
	if lock.UnlockMsg != "" {
		return append(effects, effect.Text(lock.UnlockMsg))
	}
	return append(effects, inv.msg("use.unlocked",
		fmt.Sprintf("Unlocked %s.", obj.Name),
		map[string]string{"name": obj.Name}))
}

func unlockFlagEffects(lock *cartridge.Lock) []effect.Effect {
	if lock.OnUnlockFlag == "" {
		return nil
	}
	return []effect.Effect{{SetFlag: lock.OnUnlockFlag}}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// inventoryCandidates builds resolver input from the player's inventory.
func inventoryCandidates(inv *Invocation) []match.Candidate {
	var out []match.Candidate
	for _, id := range inv.State.Inventory {
		if it, ok := inv.Cart.Item(id); ok {
			out = append(out, match.Candidate{ID: it.ID, Fields: []string{it.Name}})
		}
	}
	return out
}

// Drop removes an item from the inventory.
func Drop(inv *Invocation) ([]effect.Effect, error) {
	token := inv.token()
	if token == "" {
		return []effect.Effect{effect.Text("Drop what? Check your */inventory*.")}, nil
	}
	id, ok := match.Best(token, inventoryCandidates(inv), match.ThresholdObject)
	if !ok {
		return []effect.Effect{effect.Text("You're not carrying that.")}, nil
	}
	item, _ := inv.Cart.Item(id)
	inv.State.RemoveItem(id)
	inv.State.ClearFlag("has_item:" + id)
	return []effect.Effect{inv.msg("drop.confirmed",
		fmt.Sprintf("Dropped: %s.", item.Name),
		map[string]string{"item": item.Name})}, nil
}

// Read shows an item's text and media; the item must be carried.
func Read(inv *Invocation) ([]effect.Effect, error) {
	token := inv.token()
	if token == "" {
		return []effect.Effect{effect.Text("Read what? Check your */inventory*.")}, nil
	}
	id, ok := match.Best(token, inventoryCandidates(inv), match.ThresholdObject)
	if !ok {
		return []effect.Effect{effect.Text("You're not carrying that.")}, nil
	}
	item, _ := inv.Cart.Item(id)
	if item.ReadText == "" && len(item.Media) == 0 {
		return []effect.Effect{effect.Text(fmt.Sprintf("There's nothing to read on %s.", item.Name))}, nil
	}

	var effects []effect.Effect
	if item.ReadText != "" {
		effects = append(effects, effect.Text(item.ReadText))
	}
	if len(item.Media) > 0 {
		effects = append(effects, effect.Effect{SendMedia: item.Media})
	}
	return effects, nil
}

// Inventory lists what the player carries.
func Inventory(inv *Invocation) ([]effect.Effect, error) {
	if len(inv.State.Inventory) == 0 {
		return []effect.Effect{inv.msg("inventoryEmpty", "Your pockets are empty.", nil)}, nil
	}
	names := itemNames(inv.Cart, inv.State.Inventory)
	header := "You're carrying:"
	if tpl := inv.Cart.Template("inventoryHeader"); tpl != "" {
		header = tpl
	}
	return []effect.Effect{effect.Text(fmt.Sprintf("%s\n%s", header, bullets(names, "nothing")))}, nil
}
