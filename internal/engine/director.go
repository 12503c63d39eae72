// AI director: scheduling and decision passes for autonomous factions.
package engine

import (
	"github.com/talgya/tilewar/internal/faction"
	"github.com/talgya/tilewar/internal/world"
)

// stepBot advances one autonomous faction by one tick: it keeps pressing the
// current burst target and runs a decision pass whenever the think timer expires.
func (s *Simulation) stepBot(f *faction.Faction, dt float64) {
	b := f.Bot
	if b == nil {
		return
	}
	b.ThinkTimer += dt

	if b.BurstTicks > 0 {
		b.BurstTicks--
		if b.Target >= 0 {
			if s.Grid.Owner[b.Target] == f.ID {
				f.ClearBurst()
			} else {
				s.Resolve(f.ID, b.Target, dt)
			}
		}
	}

	if b.ThinkTimer < b.ThinkInterval {
		return
	}
	b.ThinkTimer = 0
	s.decide(f)
}

// decide runs one decision pass: drift the sliders, build, expand, then pick a target.
func (s *Simulation) decide(f *faction.Faction) {
	r := s.Rules
	f.WorkerRatio += (s.Difficulty.TargetWorker - f.WorkerRatio) * r.SmoothingRate
	f.AttackRatio += (s.Difficulty.TargetAttack - f.AttackRatio) * r.SmoothingRate
	f.LossPressure *= r.ThinkPressureDecay

	critical := f.Population.Current < r.CriticalShare*f.Population.Cap

	if f.Population.Current > r.NearCapShare*f.Population.Cap {
		s.botBuild(f, world.BuildingCity)
	}
	if f.LossPressure > r.PressureThreshold || critical || s.hasConflict(f.ID) {
		s.botBuild(f, world.BuildingDefense)
	}

	if s.botExpand(f) {
		return
	}
	if !critical {
		s.botChooseAttack(f)
	}
}

// botBuild builds or upgrades kind on the first eligible tile in scan order.
// Cities go on interior tiles, defenses on tiles facing another faction.
func (s *Simulation) botBuild(f *faction.Faction, kind world.Building) bool {
	g := s.Grid
	wantBorder := kind == world.BuildingDefense
	for i := range g.Owner {
		if g.Owner[i] != f.ID || g.Terrain[i] == world.TerrainWater {
			continue
		}
		if g.HasHostileNeighbor(i, f.ID) != wantBorder {
			continue
		}
		if g.Building[i] != world.BuildingNone && g.Building[i] != kind {
			continue
		}
		return s.Build(f.ID, i, kind)
	}
	return false
}

// hasConflict reports whether any owned tile borders another faction.
func (s *Simulation) hasConflict(id faction.ID) bool {
	g := s.Grid
	for i, o := range g.Owner {
		if o == id && g.HasHostileNeighbor(i, id) {
			return true
		}
	}
	return false
}

// botExpand claims the best unowned land tile next to the faction's territory.
// Plains score above mountains; the first best tile in scan order wins.
func (s *Simulation) botExpand(f *faction.Faction) bool {
	g := s.Grid
	best, bestScore := -1, 0
	var buf [4]int
	for i, o := range g.Owner {
		if o != f.ID {
			continue
		}
		for _, n := range g.Neighbors4(i, buf[:0]) {
			if g.Owner[n] != faction.Neutral || g.Terrain[n] == world.TerrainWater {
				continue
			}
			score := 1
			if g.Terrain[n] == world.TerrainPlains {
				score = 2
			}
			if score > bestScore {
				best, bestScore = n, score
			}
		}
	}
	if best < 0 {
		return false
	}
	f.Population.Current = max(0, f.Population.Current-f.Troops()*s.Rules.ExpansionCost)
	s.capture(best, f.ID)
	return true
}

// botChooseAttack scores every enemy tile bordering the faction and commits a
// burst to the best one.
func (s *Simulation) botChooseAttack(f *faction.Faction) {
	g := s.Grid
	best := -1
	bestScore := 0.0
	for i, o := range g.Owner {
		if o == f.ID || o == faction.Neutral || g.Terrain[i] == world.TerrainWater {
			continue
		}
		if !g.HasNeighborOwnedBy(i, f.ID) {
			continue
		}
		score := s.attackScore(f.ID, i)
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return
	}
	f.Bot.Target = best
	f.Bot.BurstTicks = s.Rules.BurstTicks()
}

// attackScore rates target for attacker. Higher is more attractive.
func (s *Simulation) attackScore(attacker faction.ID, target int) float64 {
	g := s.Grid
	defID := g.Owner[target]
	def := s.Factions.Get(defID)

	density := def.Troops() / float64(max(1, def.LandTiles))
	weakness := 300 / max(10, density)
	enclosure := float64(s.enclosurePotential(target, attacker)) * 18

	proximity := 2.0
	if defID == faction.HumanID {
		proximity = 4
	}
	terrainPenalty := 0.0
	if g.Terrain[target] == world.TerrainMountain {
		terrainPenalty = 7
	}
	defensePenalty := (s.localDefenseMultiplier(defID, target) - 1) * 10

	return weakness + enclosure + proximity - terrainPenalty - defensePenalty
}

// enclosurePotential counts target's same-owner neighbours that already touch
// the attacker on at least two sides.
func (s *Simulation) enclosurePotential(target int, attacker faction.ID) int {
	g := s.Grid
	enemy := g.Owner[target]
	count := 0
	var nbuf, sbuf [4]int
	for _, n := range g.Neighbors4(target, nbuf[:0]) {
		if g.Owner[n] != enemy {
			continue
		}
		support := 0
		for _, m := range g.Neighbors4(n, sbuf[:0]) {
			if g.Owner[m] == attacker {
				support++
			}
		}
		if support >= 2 {
			count++
		}
	}
	return count
}
