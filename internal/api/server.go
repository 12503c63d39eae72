// Package api provides the HTTP API for observing and playing a match.
// GET endpoints are public (read-only observation of published snapshots).
// POST endpoints require a bearer token and feed the human faction's inbox.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/talgya/tilewar/internal/engine"
	"github.com/talgya/tilewar/internal/faction"
	"github.com/talgya/tilewar/internal/persistence"
	"github.com/talgya/tilewar/internal/world"
)

// Server serves the match over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Clock    *engine.Clock
	DB       *persistence.DB // Nil disables /api/v1/matches
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// CommandRate is the per-client command budget per second.
	CommandRate int

	hub *Hub
}

// Handler builds the route table. The websocket hub starts with ctx and stops with it.
func (s *Server) Handler(ctx context.Context) http.Handler {
	rate := s.CommandRate
	if rate <= 0 {
		rate = 30
	}
	commandLimiter := NewRateLimiter(rate)

	s.hub = NewHub(s.Sim, s.Clock)
	go s.hub.Run(ctx)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/factions", s.handleFactions)
	mux.HandleFunc("/api/v1/map", s.handleMap)
	mux.HandleFunc("/api/v1/tile", s.handleTile)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/annexations", s.handleAnnexations)
	mux.HandleFunc("/api/v1/matches", s.handleMatches)
	mux.HandleFunc("/api/v1/stream", s.hub.ServeWS)

	// Control endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/command", s.adminOnly(RateLimitMiddleware(commandLimiter, s.handleCommand)))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine. The returned server can be shut down.
func (s *Server) Start(ctx context.Context) *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler(ctx)}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "control endpoints disabled (no TILEWAR_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

// Status is the body of /api/v1/status and of websocket status frames.
type Status struct {
	Tick        uint64                 `json:"tick"`
	Elapsed     float64                `json:"elapsed"`
	MatchTime   string                 `json:"match_time"`
	Speed       float64                `json:"speed"`
	TotalLand   int                    `json:"total_land"`
	HeldTarget  int                    `json:"held_target"`
	Human       *engine.FactionSummary `json:"human,omitempty"`
	BotsActive  int                    `json:"bots_active"`
	Annexations int                    `json:"annexations"`
	Result      *engine.Result         `json:"result,omitempty"`
}

func (s *Server) status() Status {
	return buildStatus(s.Sim.Snapshot(), s.Clock)
}

func buildStatus(snap *engine.Snapshot, clock *engine.Clock) Status {
	st := Status{
		Tick:        snap.Tick,
		Elapsed:     snap.Elapsed,
		MatchTime:   engine.MatchTime(snap.Elapsed),
		TotalLand:   snap.TotalLand,
		HeldTarget:  snap.HeldTarget,
		Annexations: len(snap.Annexations),
		Result:      snap.Result,
	}
	if clock != nil {
		st.Speed = clock.Speed()
	}
	for k := range snap.Factions {
		f := &snap.Factions[k]
		switch {
		case f.Human:
			st.Human = f
		case !f.Defeated:
			st.BotsActive++
		}
	}
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.status())
}

func (s *Server) handleFactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Factions)
}

// handleMap returns the whole grid as flat row-major arrays.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	g := s.Sim.Snapshot().Grid
	terrain := make([]int, len(g.Terrain))
	building := make([]int, len(g.Building))
	for i := range terrain {
		terrain[i] = int(g.Terrain[i])
		building[i] = int(g.Building[i])
	}
	writeJSON(w, map[string]any{
		"width":    g.Width,
		"height":   g.Height,
		"terrain":  terrain,
		"owner":    g.Owner,
		"building": building,
		"level":    g.Level,
		"progress": g.Progress,
	})
}

// handleTile returns one tile (GET /api/v1/tile?x=..&y=..) with the human's next build costs.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	g := snap.Grid
	x, errX := strconv.Atoi(r.URL.Query().Get("x"))
	y, errY := strconv.Atoi(r.URL.Query().Get("y"))
	if errX != nil || errY != nil || !g.InBounds(x, y) {
		http.Error(w, "x and y must be on the map", http.StatusBadRequest)
		return
	}
	i := g.Index(x, y)

	// Only buildings the human could place here are priced.
	costs := map[string]float64{}
	for _, kind := range []world.Building{world.BuildingCity, world.BuildingDefense} {
		if _, cost, ok := snap.NextBuild(faction.HumanID, i, kind); ok {
			costs[world.BuildingKey(kind)] = cost
		}
	}

	writeJSON(w, map[string]any{
		"index":      i,
		"x":          x,
		"y":          y,
		"terrain":    world.TerrainName(g.Terrain[i]),
		"owner":      g.Owner[i],
		"building":   world.BuildingName(g.Building[i]),
		"level":      g.Level[i],
		"progress":   g.Progress[i],
		"build_cost": costs,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := s.Sim.Snapshot().Events
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	writeJSON(w, events)
}

func (s *Server) handleAnnexations(w http.ResponseWriter, r *http.Request) {
	annex := s.Sim.Snapshot().Annexations
	if annex == nil {
		annex = []engine.Annexation{}
	}
	writeJSON(w, annex)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "match archive disabled", http.StatusServiceUnavailable)
		return
	}
	matches, err := s.DB.RecentMatches(20)
	if err != nil {
		slog.Error("list matches", "error", err)
		http.Error(w, "archive query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, matches)
}

// CommandRequest is the JSON body of POST /api/v1/command.
// Tile may be given as an index or as x/y.
type CommandRequest struct {
	Kind        string   `json:"kind"` // attack, release, build, ratios
	Tile        *int     `json:"tile,omitempty"`
	X           *int     `json:"x,omitempty"`
	Y           *int     `json:"y,omitempty"`
	Building    string   `json:"building,omitempty"`
	WorkerRatio *float64 `json:"worker_ratio,omitempty"`
	AttackRatio *float64 `json:"attack_ratio,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	snap := s.Sim.Snapshot()
	if snap.Result != nil {
		http.Error(w, "match is over", http.StatusConflict)
		return
	}
	cmd, err := req.toCommand(snap.Grid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.Sim.Inbox.Push(cmd)
	writeJSON(w, map[string]any{"queued": req.Kind, "tick": snap.Tick})
}

func (req CommandRequest) toCommand(g *world.Grid) (engine.Command, error) {
	tile := func() (int, error) {
		switch {
		case req.Tile != nil:
			if !g.Valid(*req.Tile) {
				return 0, fmt.Errorf("tile %d is off the map", *req.Tile)
			}
			return *req.Tile, nil
		case req.X != nil && req.Y != nil:
			if !g.InBounds(*req.X, *req.Y) {
				return 0, fmt.Errorf("tile %d,%d is off the map", *req.X, *req.Y)
			}
			return g.Index(*req.X, *req.Y), nil
		}
		return 0, fmt.Errorf("tile or x/y required")
	}

	switch req.Kind {
	case "attack":
		i, err := tile()
		if err != nil {
			return engine.Command{}, err
		}
		return engine.Command{Kind: engine.CmdAttack, Tile: i}, nil
	case "release":
		return engine.Command{Kind: engine.CmdRelease, Tile: -1}, nil
	case "build":
		i, err := tile()
		if err != nil {
			return engine.Command{}, err
		}
		b, ok := world.ParseBuilding(req.Building)
		if !ok || b == world.BuildingNone {
			return engine.Command{}, fmt.Errorf("unknown building %q (use city, defense)", req.Building)
		}
		return engine.Command{Kind: engine.CmdBuild, Tile: i, Building: b}, nil
	case "ratios":
		if req.WorkerRatio == nil || req.AttackRatio == nil {
			return engine.Command{}, fmt.Errorf("worker_ratio and attack_ratio required")
		}
		return engine.Command{Kind: engine.CmdSetRatios, WorkerRatio: *req.WorkerRatio, AttackRatio: *req.AttackRatio}, nil
	}
	return engine.Command{}, fmt.Errorf("unknown command %q (use attack, release, build, ratios)", req.Kind)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Clock == nil {
		http.Error(w, "no clock attached", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 16 {
			http.Error(w, "speed must be 0-16", http.StatusBadRequest)
			return
		}
		s.Clock.SetSpeed(req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Clock.Speed()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
