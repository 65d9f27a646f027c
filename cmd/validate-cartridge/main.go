// Package main provides a cartridge validation tool for content authors.
// It loads a cartridge directory, runs full validation, and reports the
// catalog counts on success.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/noirbyte/gumshoe/internal/cartridge"
)

func main() {
	dir := flag.String("dir", "content/cartridge", "path to cartridge directory")
	flag.Parse()

	cart, err := cartridge.LoadFromDir(*dir)
	if err != nil {
		log.Fatalf("loading cartridge: %v", err)
	}
	if err := cart.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "cartridge %q is invalid: %v\n", cart.ID, err)
		os.Exit(1)
	}

	fmt.Printf("cartridge %q (%s) is valid\n", cart.ID, cart.Title)
	fmt.Printf("  locations:  %d\n", len(cart.World.Locations))
	fmt.Printf("  objects:    %d\n", len(cart.World.Objects))
	fmt.Printf("  items:      %d\n", len(cart.World.Items))
	fmt.Printf("  npcs:       %d\n", len(cart.World.NPCs))
	fmt.Printf("  chapters:   %d\n", len(cart.Progression.Chapters))
	fmt.Printf("  intro:      %d sequences\n", len(cart.Intro))
	fmt.Printf("  tutorial:   %d sequences\n", len(cart.Tutorial))
}
