package engine

import (
	"github.com/talgya/tilewar/internal/faction"
	"github.com/talgya/tilewar/internal/world"
)

// FactionSummary is the per-faction view handed to consumers.
type FactionSummary struct {
	ID          faction.ID `json:"id"`
	Name        string     `json:"name"`
	Human       bool       `json:"human"`
	Gold        float64    `json:"gold"`
	Population  float64    `json:"population"`
	Cap         float64    `json:"cap"`
	WorkerRatio float64    `json:"worker_ratio"`
	AttackRatio float64    `json:"attack_ratio"`
	LandTiles   int        `json:"land_tiles"`
	LandShare   float64    `json:"land_share"`
	CityLevels  int        `json:"city_levels"`
	Defeated    bool       `json:"defeated"`
}

// Snapshot is a deep, read-only copy of the match taken after a tick batch.
// Consumers may keep it; the simulation never touches it again.
type Snapshot struct {
	Tick        uint64           `json:"tick"`
	Elapsed     float64          `json:"elapsed"`
	TotalLand   int              `json:"total_land"`
	Grid        *world.Grid      `json:"grid"`
	Factions    []FactionSummary `json:"factions"`
	Annexations []Annexation     `json:"annexations"`
	Events      []Event          `json:"events"`
	HeldTarget  int              `json:"held_target"`
	Result      *Result          `json:"result,omitempty"`

	rules Rules
}

const snapshotEvents = 100

// Publish copies the current state into a new snapshot. Call only from the tick goroutine.
func (s *Simulation) Publish() {
	snap := &Snapshot{
		Tick:       s.Tick,
		Elapsed:    s.Elapsed,
		TotalLand:  s.TotalLand,
		Grid:       s.Grid.Clone(),
		Factions:   s.Summaries(),
		HeldTarget: s.HeldTarget(),
		rules:      s.Rules,
	}
	for _, a := range s.Annexations {
		a.Tiles = append([]int(nil), a.Tiles...)
		snap.Annexations = append(snap.Annexations, a)
	}
	start := max(0, len(s.Events)-snapshotEvents)
	snap.Events = append([]Event(nil), s.Events[start:]...)
	if s.Result != nil {
		res := *s.Result
		snap.Result = &res
	}

	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
}

// NextBuild prices building kind on tile for id against the snapshot's grid,
// with the same checks Build applies.
func (sn *Snapshot) NextBuild(id faction.ID, tile int, kind world.Building) (level int, cost float64, ok bool) {
	return sn.rules.nextBuild(sn.Grid, id, tile, kind)
}

// Snapshot returns the most recently published snapshot. Safe from any goroutine.
func (s *Simulation) Snapshot() *Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// Summaries returns per-faction summaries in id order.
func (s *Simulation) Summaries() []FactionSummary {
	out := make([]FactionSummary, 0, s.Factions.Len())
	for _, f := range s.Factions.All() {
		out = append(out, FactionSummary{
			ID:          f.ID,
			Name:        f.Name,
			Human:       f.Role == faction.RoleHuman,
			Gold:        f.Gold,
			Population:  f.Population.Current,
			Cap:         f.Population.Cap,
			WorkerRatio: f.WorkerRatio,
			AttackRatio: f.AttackRatio,
			LandTiles:   f.LandTiles,
			LandShare:   float64(f.LandTiles) / float64(s.TotalLand),
			CityLevels:  f.CityLevels,
			Defeated:    f.Defeated,
		})
	}
	return out
}
