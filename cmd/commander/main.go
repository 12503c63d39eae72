// Command commander plays the human faction of a running tilewar match.
// It observes the match, decides on one command per cycle, and acts via the
// command API.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/tilewar/internal/commander"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment.
	apiURL := envOrDefault("TILEWAR_API_URL", "http://localhost:8080")
	adminKey := os.Getenv("TILEWAR_ADMIN_KEY")
	intervalMS := envIntOrDefault("COMMANDER_INTERVAL_MS", 500)
	memoryPath := os.Getenv("COMMANDER_MEMORY")

	if adminKey == "" {
		slog.Error("TILEWAR_ADMIN_KEY is required")
		os.Exit(1)
	}

	interval := time.Duration(intervalMS) * time.Millisecond
	slog.Info("commander starting", "api_url", apiURL, "interval", interval)

	observer := commander.NewObserver(apiURL)
	actor := commander.NewActor(apiURL, adminKey)
	mem := commander.NewMemory()
	if memoryPath != "" {
		mem = commander.LoadMemory(memoryPath)
		defer mem.Save(memoryPath)
	}

	slog.Info("waiting for tilewar API...")
	if !waitForAPI(apiURL) {
		os.Exit(1)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			d, err := commander.Cycle(observer, actor, mem)
			if err != nil {
				slog.Error("cycle failed", "error", err)
				continue
			}
			if d.Rationale == commander.MatchOver {
				fmt.Println("Match over; commander stopped.")
				return
			}
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			fmt.Println("Commander stopped.")
			return
		}
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// waitForAPI polls the status endpoint with exponential backoff until it
// responds. Gives up after two minutes.
func waitForAPI(apiURL string) bool {
	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second
	deadline := time.Now().Add(2 * time.Minute)

	for {
		resp, err := http.Get(apiURL + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				slog.Info("tilewar API is ready")
				return true
			}
		}
		if time.Now().After(deadline) {
			slog.Error("tilewar API did not become ready within 2 minutes")
			return false
		}
		slog.Info("tilewar not ready, retrying...", "backoff", backoff)
		time.Sleep(backoff)
		backoff = min(2*backoff, maxBackoff)
	}
}
