// Command tilewar runs one territory-conquest match with an HTTP API and a match archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/tilewar/internal/api"
	"github.com/talgya/tilewar/internal/config"
	"github.com/talgya/tilewar/internal/engine"
	"github.com/talgya/tilewar/internal/entropy"
	"github.com/talgya/tilewar/internal/persistence"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// ── Configuration: defaults, then TILEWAR_* env, then flags ──────
	cfg, err := config.FromEnv(config.Default(), os.Getenv)
	if err != nil {
		slog.Error("bad environment", "error", err)
		os.Exit(1)
	}
	mapSize := flag.String("map", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height), "map size WxH")
	flag.IntVar(&cfg.Bots, "bots", cfg.Bots, "number of autonomous factions")
	flag.StringVar(&cfg.Difficulty, "difficulty", cfg.Difficulty, "easy, normal, or hard")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed (0 = random)")
	flag.IntVar(&cfg.TickHz, "hz", cfg.TickHz, "simulation ticks per second")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "match archive path (empty disables)")
	flag.IntVar(&cfg.APIPort, "port", cfg.APIPort, "HTTP API port (0 disables)")
	speed := flag.Float64("speed", 1, "clock speed multiplier (0-16)")
	limit := flag.Duration("timeout", 0, "stop after this much wall time (0 = until the match ends)")
	flag.Parse()

	if cfg.Width, cfg.Height, err = config.ParseMapSize(*mapSize); err != nil {
		slog.Error("bad map size", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("bad configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Seed == 0 {
		cfg.Seed = entropy.CryptoSeed()
	}

	slog.Info("tilewar starting",
		"map", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"bots", cfg.Bots,
		"difficulty", cfg.Difficulty,
		"seed", cfg.Seed,
		"tick_hz", cfg.TickHz,
	)

	// ── Match ─────────────────────────────────────────────────────────
	sim, err := engine.NewMatch(cfg, engine.DefaultRules(), entropy.New(cfg.Seed))
	if err != nil {
		slog.Error("failed to create match", "error", err)
		os.Exit(1)
	}
	clock := engine.NewClock(sim)
	clock.SetSpeed(*speed)

	// ── Archive ───────────────────────────────────────────────────────
	var db *persistence.DB
	if cfg.DBPath != "" {
		db, err = openArchive(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.DBPath)

		rec, err := persistence.NewRecorder(db, cfg)
		if err != nil {
			slog.Error("failed to open match archive", "error", err)
			os.Exit(1)
		}
		defer rec.Close()
		if err := db.SaveMeta("last_match", rec.MatchID); err != nil {
			slog.Warn("failed to save meta", "error", err)
		}
		clock.OnSecond = func(uint64) { rec.OnSecond(sim) }
		sim.OnMatchEnd = func(res engine.Result) { rec.Finish(sim, res) }
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *limit)
		defer cancel()
	}

	// ── API ───────────────────────────────────────────────────────────
	if cfg.APIPort > 0 {
		if cfg.AdminKey == "" {
			slog.Warn("TILEWAR_ADMIN_KEY not set; command endpoints will be disabled")
		}
		server := &api.Server{
			Sim:      sim,
			Clock:    clock,
			DB:       db,
			Port:     cfg.APIPort,
			AdminKey: cfg.AdminKey,
		}
		srv := server.Start(ctx)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	}

	h := sim.Factions.Human()
	fmt.Printf("\n%s holds %d of %s land tiles against %d rivals.\n",
		h.Name, h.LandTiles, humanize.Comma(int64(sim.TotalLand)), cfg.Bots)
	fmt.Println("Starting match... (Ctrl+C to stop)")

	clock.Run(ctx)

	if res := sim.Result; res != nil {
		fmt.Printf("Match over: %s after %s with %.1f%% of the land; %d of %d rivals defeated.\n",
			res.Outcome, engine.MatchTime(res.ElapsedSeconds), res.FinalLandPercentage,
			res.DefeatedBotCount, cfg.Bots)
		return
	}
	fmt.Printf("Match stopped at %s with %.1f%% of the land.\n",
		engine.MatchTime(sim.Elapsed), 100*sim.LandShare(h.ID))
}

// openArchive creates the database directory if needed and opens the archive.
func openArchive(path string) (*persistence.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return persistence.Open(path)
}
