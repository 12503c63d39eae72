package commander

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/tilewar/internal/api"
	"github.com/talgya/tilewar/internal/config"
	"github.com/talgya/tilewar/internal/engine"
	"github.com/talgya/tilewar/internal/entropy"
	"github.com/talgya/tilewar/internal/world"
)

// stripObservation is a 5x3 all-plains map. The human (1) holds the middle
// column x=2; the bot (2) holds x=4; the rest is unowned.
func stripObservation() *Observation {
	m := MapData{Width: 5, Height: 3}
	n := m.Width * m.Height
	m.Terrain = make([]int, n)
	m.Owner = make([]int, n)
	m.Building = make([]int, n)
	m.Level = make([]int, n)
	for i := range n {
		m.Terrain[i] = 1
		switch i % 5 {
		case 2:
			m.Owner[i] = 1
		case 4:
			m.Owner[i] = 2
		}
	}
	human := FactionInfo{ID: 1, Name: "Azure", Human: true, Population: 5000, Cap: 10000, WorkerRatio: 0.6, AttackRatio: 0.2, LandTiles: 3}
	return &Observation{
		Status: MatchStatus{HeldTarget: -1, Human: &human, TotalLand: 15},
		Map:    m,
		Factions: []FactionInfo{
			human,
			{ID: 2, Name: "Crimson", Population: 4000, Cap: 9000, WorkerRatio: 0.6, LandTiles: 3},
		},
	}
}

func TestTriage(t *testing.T) {
	obs := stripObservation()
	p := Triage(obs)
	if p.Stance != StanceExpand {
		t.Fatalf("stance = %s, want EXPAND", p.Stance)
	}
	// x=1 and x=3 in every row border the human.
	if len(p.Fronts) != 6 {
		t.Fatalf("fronts = %d, want 6", len(p.Fronts))
	}
	if len(p.Interior) != 0 {
		t.Fatalf("interior = %v, want none", p.Interior)
	}
	if p.Fill != 0.5 {
		t.Fatalf("fill = %v", p.Fill)
	}

	obs.Status.Human.Population = 1000
	if Triage(obs).Stance != StanceRecover {
		t.Fatal("thin population did not trigger RECOVER")
	}

	for i := range obs.Map.Owner {
		if obs.Map.Owner[i] == 0 {
			obs.Map.Owner[i] = 1
		}
	}
	obs.Status.Human.Population = 5000
	p = Triage(obs)
	if p.Stance != StancePush || len(p.Interior) == 0 {
		t.Fatalf("stance = %s interior = %d", p.Stance, len(p.Interior))
	}
}

func TestDecideOrder(t *testing.T) {
	obs := stripObservation()
	obs.Status.Human.WorkerRatio = 0.9
	d := Decide(obs, Triage(obs), NewMemory())
	if d.Action != "ratios" || *d.Command.WorkerRatio != 0.6 || *d.Command.AttackRatio != 0.2 {
		t.Fatalf("decision = %+v", d)
	}

	obs.Status.Human.WorkerRatio = 0.6
	d = Decide(obs, Triage(obs), NewMemory())
	if d.Action != "attack" || d.Command.Kind != "attack" {
		t.Fatalf("decision = %+v", d)
	}
	if obs.Map.Owner[d.Target] != 0 {
		t.Fatalf("attacked tile %d owned by %d while unowned land was free", d.Target, obs.Map.Owner[d.Target])
	}

	obs.Status.HeldTarget = d.Target
	if held := Decide(obs, Triage(obs), NewMemory()); held.Action != "hold" || held.Command != nil {
		t.Fatalf("decision = %+v", held)
	}

	obs.Status.Result = &ResultInfo{Outcome: "win"}
	if over := Decide(obs, Triage(obs), NewMemory()); over.Action != "none" {
		t.Fatalf("decision after match end = %+v", over)
	}
}

func TestDecideBuildsCityWhenFull(t *testing.T) {
	obs := stripObservation()
	for i := range obs.Map.Owner {
		if obs.Map.Owner[i] == 0 {
			obs.Map.Owner[i] = 1
		}
	}
	h := obs.Status.Human
	h.Population, h.Gold = 9500, 3000
	h.WorkerRatio, h.AttackRatio = 0.5, 0.35

	p := Triage(obs)
	tile, ok := wantsCity(obs, p)
	if !ok {
		t.Fatal("full population did not ask for a city")
	}
	if d := Decide(obs, p, NewMemory()); d.Action == "build" {
		t.Fatalf("built without a quote: %+v", d)
	}

	obs.Quote = &Quote{Tile: tile, Cost: map[string]float64{"city": 2500, "defense": 1800}}
	d := Decide(obs, p, NewMemory())
	if d.Action != "build" || d.Command.Building != "city" || *d.Command.Tile != tile {
		t.Fatalf("decision = %+v", d)
	}

	obs.Map.Building[tile], obs.Map.Level[tile] = buildingCity, 1
	p = Triage(obs)
	if next, _ := wantsCity(obs, p); next != tile {
		t.Fatalf("upgrade target = %d, want existing city %d", next, tile)
	}
	obs.Quote = &Quote{Tile: tile, Cost: map[string]float64{"city": 4250}}
	if d := Decide(obs, p, NewMemory()); d.Action == "build" {
		t.Fatalf("upgrade quoted at 4250 chosen with %v gold", h.Gold)
	}

	obs.Quote = &Quote{Tile: tile, Cost: map[string]float64{}}
	h.Gold = 1e6
	if d := Decide(obs, p, NewMemory()); d.Action == "build" {
		t.Fatal("built where the server offered no city")
	}
}

func TestStaleTargetsSkipped(t *testing.T) {
	mem := NewMemory()
	mem.StaleAfter = 3
	for range 3 {
		mem.Record(CycleRecord{Action: "hold", Target: 1, Land: 3})
	}
	if !mem.Stale(1) {
		t.Fatal("target pressed three cycles without gain is not stale")
	}
	if mem.Stale(3) {
		t.Fatal("unrelated tile marked stale")
	}

	obs := stripObservation()
	if d := Decide(obs, Triage(obs), mem); d.Target == 1 {
		t.Fatal("stale target chosen again")
	}

	mem.Record(CycleRecord{Action: "attack", Target: 1, Land: 4})
	if mem.Stale(1) {
		t.Fatal("target that gained land marked stale")
	}
}

func TestMemoryPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	mem := NewMemory()
	for k := range maxRecords + 5 {
		mem.Record(CycleRecord{Tick: uint64(k)})
	}
	mem.Save(path)

	got := LoadMemory(path)
	if len(got.Records) != maxRecords || got.Records[0].Tick != 5 {
		t.Fatalf("loaded %d records starting at tick %d", len(got.Records), got.Records[0].Tick)
	}
	if got.StaleAfter != NewMemory().StaleAfter {
		t.Fatal("defaults lost on load")
	}
	if len(LoadMemory(filepath.Join(t.TempDir(), "missing.json")).Records) != 0 {
		t.Fatal("missing file produced records")
	}
}

func TestActorClassifiesRefusals(t *testing.T) {
	status := http.StatusUnauthorized
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "3")
		}
		http.Error(w, http.StatusText(status), status)
	}))
	defer ts.Close()

	tile := 3
	act := func() error {
		_, err := NewActor(ts.URL, "k").Act(&Command{Kind: "attack", Tile: &tile})
		return err
	}

	err := act()
	var throttled *ThrottledError
	if err == nil || errors.Is(err, ErrMatchOver) || errors.As(err, &throttled) {
		t.Fatalf("401: err = %v", err)
	}

	status = http.StatusConflict
	if err := act(); !errors.Is(err, ErrMatchOver) {
		t.Fatalf("409: err = %v", err)
	}

	status = http.StatusTooManyRequests
	if err := act(); !errors.As(err, &throttled) || throttled.RetryAfter != 3*time.Second {
		t.Fatalf("429: err = %v", err)
	}
}

// fakeMatch serves a fixed observation and answers every command with code.
func fakeMatch(t *testing.T, obs *Observation, code int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(v any) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(v)
		}
	}
	mux.HandleFunc("GET /api/v1/status", serve(obs.Status))
	mux.HandleFunc("GET /api/v1/map", serve(obs.Map))
	mux.HandleFunc("GET /api/v1/factions", serve(obs.Factions))
	mux.HandleFunc("POST /api/v1/command", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(code), code)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestCycleTreatsFinishedMatchAsResult(t *testing.T) {
	ts := fakeMatch(t, stripObservation(), http.StatusConflict)
	d, err := Cycle(NewObserver(ts.URL), NewActor(ts.URL, "k"), NewMemory())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if d.Rationale != MatchOver || d.Command != nil {
		t.Fatalf("decision = %+v", d)
	}
}

func TestCycleSkipsThrottledCommand(t *testing.T) {
	ts := fakeMatch(t, stripObservation(), http.StatusTooManyRequests)
	d, err := Cycle(NewObserver(ts.URL), NewActor(ts.URL, "k"), NewMemory())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if d.Command == nil {
		t.Fatalf("decision = %+v, want the throttled command", d)
	}
}

func TestQuoteTileFromServer(t *testing.T) {
	cfg := config.Default()
	cfg.Width, cfg.Height, cfg.Bots = 48, 32, 2
	rules := engine.DefaultRules()
	rules.ReportEvery = 0
	sim, err := engine.NewMatch(cfg, rules, entropy.New(21))
	if err != nil {
		t.Fatal(err)
	}
	srv := &api.Server{Sim: sim, Clock: engine.NewClock(sim), AdminKey: "k"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts := httptest.NewServer(srv.Handler(ctx))
	defer ts.Close()

	observer := NewObserver(ts.URL)
	obs, err := observer.Observe()
	if err != nil {
		t.Fatal(err)
	}
	own, water := -1, -1
	for i, o := range obs.Map.Owner {
		if o == obs.Status.Human.ID && obs.Map.Building[i] == buildingNone && own < 0 {
			own = i
		}
		if obs.Map.Terrain[i] == terrainWater && water < 0 {
			water = i
		}
	}

	if own < 0 || water < 0 {
		t.Fatalf("map lacks a test tile: own %d water %d", own, water)
	}

	q, err := observer.QuoteTile(&obs.Map, own)
	if err != nil {
		t.Fatal(err)
	}
	if q.Cost["city"] != rules.BuildCost(world.BuildingCity, 1) {
		t.Fatalf("city quote = %v", q.Cost)
	}
	if q, err = observer.QuoteTile(&obs.Map, water); err != nil || len(q.Cost) != 0 {
		t.Fatalf("water quote = %+v, %v", q, err)
	}
	if _, err := observer.QuoteTile(&obs.Map, len(obs.Map.Owner)); err == nil {
		t.Fatal("off-map tile quoted")
	}
}

func TestCycleAgainstLiveServer(t *testing.T) {
	cfg := config.Default()
	cfg.Width, cfg.Height, cfg.Bots = 48, 32, 2
	rules := engine.DefaultRules()
	rules.ReportEvery = 0
	sim, err := engine.NewMatch(cfg, rules, entropy.New(21))
	if err != nil {
		t.Fatal(err)
	}
	srv := &api.Server{Sim: sim, Clock: engine.NewClock(sim), AdminKey: "k"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts := httptest.NewServer(srv.Handler(ctx))
	defer ts.Close()

	observer, actor, mem := NewObserver(ts.URL), NewActor(ts.URL, "k"), NewMemory()
	start := sim.Factions.Human().LandTiles

	for range 20 {
		if _, err := Cycle(observer, actor, mem); err != nil {
			t.Fatal(err)
		}
		for range 10 {
			sim.Step()
		}
		sim.Publish()
	}
	if len(mem.Records) != 20 {
		t.Fatalf("recorded %d cycles", len(mem.Records))
	}
	if got := sim.Factions.Human().LandTiles; got <= start {
		t.Fatalf("human land %d, started with %d", got, start)
	}
}
