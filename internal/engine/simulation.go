// Package engine runs the territory-conquest simulation: economy, combat,
// annexation, the autonomous-faction director, and the fixed-step clock.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/talgya/tilewar/internal/config"
	"github.com/talgya/tilewar/internal/entropy"
	"github.com/talgya/tilewar/internal/faction"
	"github.com/talgya/tilewar/internal/world"
)

// Simulation holds the complete match state. Every mutation happens inside Step.
type Simulation struct {
	Grid       *world.Grid
	Factions   *faction.Registry
	Rules      Rules
	Difficulty config.Difficulty
	RNG        entropy.Source

	TotalLand int     // Land tiles on the map, never below 1
	Tick      uint64  // Most recent tick processed
	Elapsed   float64 // Simulated seconds

	Events      []Event      // Recent notable events, trimmed to maxEvents
	Annexations []Annexation // Enclosures still within their display lifetime
	Result      *Result      // Set once when the match ends

	Inbox *Inbox
	order humanOrder

	// OnMatchEnd fires once, on the tick the result is decided.
	OnMatchEnd func(Result)

	// Flood-fill scratch: a tile is visited when visit[i] == epoch.
	visit []uint32
	epoch uint32
	stack []int

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int

	snapMu sync.RWMutex
	snap   *Snapshot
}

const maxEvents = 1000

// Event is a notable occurrence in the match.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "capture", "annexation", "build", "defeat", "match"
}

// NewSimulation wires an already populated grid and registry together and
// brings every faction's cached stats up to date.
func NewSimulation(g *world.Grid, reg *faction.Registry, rules Rules, diff config.Difficulty, rng entropy.Source) *Simulation {
	s := &Simulation{
		Grid:       g,
		Factions:   reg,
		Rules:      rules,
		Difficulty: diff,
		RNG:        rng,
		TotalLand:  max(1, g.LandCount()),
		Inbox:      NewInbox(),
		order:      humanOrder{target: -1},
		visit:      make([]uint32, g.Len()),
		subs:       make(map[int]chan Event),
	}
	s.recountAll()
	s.Publish()
	return s
}

// NewMatch generates a map, spawns the human and cfg.Bots autonomous factions,
// and returns a ready simulation.
func NewMatch(cfg config.Match, rules Rules, rng entropy.Source) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	diff, err := config.DifficultyByName(cfg.Difficulty)
	if err != nil {
		return nil, err
	}
	rules.TickHz = cfg.TickHz

	gen := world.DefaultGenConfig()
	gen.Width, gen.Height = cfg.Width, cfg.Height
	g := world.Generate(gen, rng)

	names := world.FactionNames(rng, cfg.Bots+1)
	reg := faction.NewRegistry()
	reg.Add(faction.New(faction.HumanID, faction.RoleHuman, names[0], faction.Start{
		Gold:           rules.StartGold,
		Population:     rules.StartPopulation,
		Cap:            rules.BaseCap,
		WorkerRatio:    rules.HumanWorkerRatio,
		AttackRatio:    rules.HumanAttackRatio,
		EconMultiplier: 1,
	}))
	ids := []faction.ID{faction.HumanID}
	for k := 0; k < cfg.Bots; k++ {
		id := faction.ID(k + 2)
		reg.Add(faction.New(id, faction.RoleAutonomous, names[k+1], faction.Start{
			Gold:           rules.StartGold,
			Population:     rules.StartPopulation,
			Cap:            rules.BaseCap,
			WorkerRatio:    diff.TargetWorker,
			AttackRatio:    diff.TargetAttack,
			EconMultiplier: diff.EconMultiplier,
			ThinkInterval:  diff.ThinkInterval,
		}))
		ids = append(ids, id)
	}

	spawns := world.PlaceSpawns(g, ids, world.DefaultSpawnConfig(), rng)
	spaced := 0
	for _, sp := range spawns {
		if sp.Spaced {
			spaced++
		}
	}

	counts := world.TerrainCounts(g)
	slog.Info("map generated",
		"size", fmt.Sprintf("%dx%d", g.Width, g.Height),
		"plains", counts[world.TerrainPlains],
		"mountain", counts[world.TerrainMountain],
		"water", counts[world.TerrainWater],
		"factions", len(ids),
		"spaced_spawns", spaced,
		"difficulty", diff.Name,
	)

	return NewSimulation(g, reg, rules, diff, rng), nil
}

// Step advances the match by one fixed tick. It does nothing once the match has ended.
func (s *Simulation) Step() {
	if s.Result != nil {
		return
	}
	dt := s.Rules.TickSeconds()
	s.Tick++
	s.Elapsed += dt

	s.advanceLedger(dt)
	s.applyHumanInput(dt)
	for _, bot := range s.Factions.Bots() {
		if bot.Active() {
			s.stepBot(bot, dt)
		}
	}
	s.ageAnnexations(dt)

	if s.Tick%uint64(s.Rules.TickHz) == 0 {
		s.periodicRecompute()
	}
	s.checkMatchEnd()
}

// recountAll recomputes land, city levels, and population cap for every faction
// from a full grid scan, and marks factions with no land as defeated.
func (s *Simulation) recountAll() {
	n := s.Factions.Len() + 1
	land := make([]int, n)
	cities := make([]int, n)

	g := s.Grid
	for i, o := range g.Owner {
		if o == faction.Neutral || int(o) >= n || g.Terrain[i] == world.TerrainWater {
			continue
		}
		land[o]++
		if g.Building[i] == world.BuildingCity {
			cities[o] += g.Level[i]
		}
	}

	for _, f := range s.Factions.All() {
		f.LandTiles = land[f.ID]
		f.CityLevels = cities[f.ID]
		f.Population.Cap = s.Rules.BaseCap +
			float64(f.LandTiles)*s.Rules.CapPerLandTile +
			float64(f.CityLevels)*s.Rules.CapPerCityLevel
		f.Population.Current = clamp(f.Population.Current, 0, f.Population.Cap)

		if f.LandTiles == 0 && !f.Defeated {
			f.Defeated = true
			f.ClearBurst()
			s.record("defeat", fmt.Sprintf("%s has been defeated", f.Name))
		}
	}
}

// RecomputeStats refreshes every faction's cached stats from the grid.
func (s *Simulation) RecomputeStats() {
	s.recountAll()
}

// LandShare returns the faction's share of all land tiles.
func (s *Simulation) LandShare(id faction.ID) float64 {
	f := s.Factions.Get(id)
	if f == nil {
		return 0
	}
	return float64(f.LandTiles) / float64(s.TotalLand)
}

// record appends an event, trims the log, and fans it out to subscribers.
func (s *Simulation) record(category, description string) {
	e := Event{Tick: s.Tick, Description: description, Category: category}
	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}

	s.subMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default: // Slow subscriber; drop rather than stall the tick.
		}
	}
	s.subMu.Unlock()
}

// Subscribe registers a channel that receives every new event.
func (s *Simulation) Subscribe() (int, <-chan Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	ch := make(chan Event, 64)
	s.subs[s.nextSub] = ch
	return s.nextSub, ch
}

// Unsubscribe removes and closes a subscription.
func (s *Simulation) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// report logs a periodic summary of the match.
func (s *Simulation) report() {
	h := s.Factions.Human()
	if h == nil {
		return
	}
	active := 0
	for _, f := range s.Factions.Bots() {
		if f.Active() {
			active++
		}
	}
	slog.Info("match report",
		"tick", s.Tick,
		"elapsed", fmt.Sprintf("%.0fs", s.Elapsed),
		"gold", humanize.Comma(int64(h.Gold)),
		"population", humanize.Comma(int64(h.Population.Current)),
		"cap", humanize.Comma(int64(h.Population.Cap)),
		"land", h.LandTiles,
		"land_share", fmt.Sprintf("%.3f", s.LandShare(faction.HumanID)),
		"bots_active", active,
	)
}
