// Package main provides the game server binary. It loads the cartridge,
// connects PostgreSQL, wires the dialogue and scripting collaborators, and
// serves a console transport for local play. Messaging transports plug in
// behind the same Outbox boundary.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/cartridge"
	"github.com/noirbyte/gumshoe/internal/config"
	"github.com/noirbyte/gumshoe/internal/engine"
	"github.com/noirbyte/gumshoe/internal/game/dialogue"
	"github.com/noirbyte/gumshoe/internal/game/effect"
	"github.com/noirbyte/gumshoe/internal/llm"
	"github.com/noirbyte/gumshoe/internal/observability"
	"github.com/noirbyte/gumshoe/internal/scripting"
	"github.com/noirbyte/gumshoe/internal/server"
	"github.com/noirbyte/gumshoe/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	playerID := flag.String("player", "local", "player id for the console session")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	// Load and validate the cartridge.
	cartStart := time.Now()
	cart, err := cartridge.LoadFromDir(cfg.Game.CartridgeDir)
	if err != nil {
		logger.Fatal("loading cartridge", zap.Error(err))
	}
	if err := cart.Validate(); err != nil {
		logger.Fatal("validating cartridge", zap.Error(err))
	}
	logger.Info("cartridge loaded",
		zap.String("id", cart.ID),
		zap.String("title", cart.Title),
		zap.Int("locations", len(cart.World.Locations)),
		zap.Int("npcs", len(cart.World.NPCs)),
		zap.Duration("elapsed", time.Since(cartStart)),
	)

	// Connect to PostgreSQL for state persistence.
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	stateRepo := postgres.NewGameStateRepository(pool.DB())

	outbox := &consoleOutbox{}
	applier := effect.NewApplier(outbox, cart.UI, cart.Media, logger)

	// The dialogue engine degrades to scripted fallbacks when the LLM is
	// unreachable, so a missing API key only disables free-form replies.
	var gen dialogue.Generator
	var cls dialogue.Classifier
	if client, err := llm.NewClient(cfg.LLM, logger); err != nil {
		logger.Warn("llm unavailable, using scripted fallbacks", zap.Error(err))
		off := offlineLLM{}
		gen, cls = off, off
	} else {
		gen, cls = client, client
	}
	dlg := dialogue.NewEngine(gen, cls, cfg.Game.ConversationCap, cfg.Game.QuestionMaxLen, logger)

	opts := engine.Options{DevMode: cfg.Game.DevMode}
	if cfg.Game.ScriptDir != "" {
		scriptMgr := scripting.NewManager(logger)
		if err := scriptMgr.Load(cfg.Game.ScriptDir, 0); err != nil {
			logger.Fatal("loading hook scripts", zap.Error(err))
		}
		defer scriptMgr.Close()
		opts.Hooks = scriptMgr
		logger.Info("hook scripts loaded", zap.String("dir", cfg.Game.ScriptDir))
	}

	eng, err := engine.New(cart, applier, dlg, stateRepo, logger, opts)
	if err != nil {
		logger.Fatal("building engine", zap.Error(err))
	}

	logger.Info("game server initialized", zap.Duration("startup", time.Since(start)))

	consoleCtx, stopConsole := context.WithCancel(ctx)
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("console", &server.FuncService{
		StartFn: func() error {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					continue
				}
				eng.HandleMessage(consoleCtx, *playerID, line)
			}
			return scanner.Err()
		},
		StopFn: stopConsole,
	})

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-consoleCtx.Done():
					return nil
				case <-ticker.C:
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			}
		},
		StopFn: func() {
			pool.Close()
		},
	})

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// consoleOutbox writes replies to stdout. Media is reported as a labelled
// URL line; there is nothing richer to render on a terminal.
type consoleOutbox struct{}

func (consoleOutbox) SendText(_ context.Context, _ string, text string) error {
	_, err := fmt.Println(text)
	return err
}

func (consoleOutbox) SendMedia(_ context.Context, _ string, media effect.MediaRef) error {
	if media.Caption != "" {
		_, err := fmt.Printf("[%s] %s (%s)\n", media.Type, media.URL, media.Caption)
		return err
	}
	_, err := fmt.Printf("[%s] %s\n", media.Type, media.URL)
	return err
}

// offlineLLM satisfies the dialogue collaborator interfaces when no API key
// is configured; every call errors so the engine's fallbacks take over.
type offlineLLM struct{}

func (offlineLLM) Generate(context.Context, dialogue.GenerateRequest) (string, error) {
	return "", fmt.Errorf("llm disabled")
}

func (offlineLLM) Classify(context.Context, string, []dialogue.Bucket, bool) (int, error) {
	return -1, fmt.Errorf("llm disabled")
}
