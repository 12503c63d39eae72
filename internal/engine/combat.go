// Combat resolution: one attack order applied to one tile for one tick.
package engine

import (
	"fmt"

	"github.com/talgya/tilewar/internal/faction"
	"github.com/talgya/tilewar/internal/world"
)

// AttackOutcome reports what a single Resolve call did.
type AttackOutcome uint8

const (
	OutcomeIgnored   AttackOutcome = iota // A precondition failed; nothing changed
	OutcomeWalkIn                         // Neutral tile taken without a fight
	OutcomeContested                      // Progress and attrition applied, tile still held
	OutcomeCaptured                       // Progress reached 1 and the tile changed hands
)

// Resolve applies attacker's order against target for one tick of length dt.
// Invalid orders are silent no-ops.
func (s *Simulation) Resolve(attacker faction.ID, target int, dt float64) AttackOutcome {
	g := s.Grid
	if !g.IsLand(target) {
		return OutcomeIgnored
	}
	atk := s.Factions.Get(attacker)
	if atk == nil || atk.Defeated {
		return OutcomeIgnored
	}
	defID := g.Owner[target]
	if defID == attacker {
		return OutcomeIgnored
	}
	if !g.HasNeighborOwnedBy(target, attacker) {
		return OutcomeIgnored
	}

	if defID == faction.Neutral {
		atk.Population.Current *= 1 - s.Rules.WalkInCost
		s.capture(target, attacker)
		return OutcomeWalkIn
	}

	def := s.Factions.Get(defID)
	committed := atk.Troops() * atk.AttackRatio
	attackPower := committed * s.Rules.AttackPowerFactor
	defensePower := s.defensePower(def, target)

	net := attackPower - defensePower
	if net >= 0 {
		g.Progress[target] += net * s.Rules.CaptureGainRate
	} else {
		g.Progress[target] += net * s.Rules.DecayRate
	}
	g.Progress[target] = clamp(g.Progress[target], 0, 1)

	atk.Population.Current = max(0, atk.Population.Current-committed*s.Rules.AttackCasualtyRate*dt)
	share := 0.0
	if attackPower > 0 {
		share = attackPower / (attackPower + defensePower)
	}
	def.Population.Current = max(0, def.Population.Current-max(0, share)*defensePower*s.Rules.DefenseCasualtyRate*dt)

	if g.Progress[target] >= 1 {
		s.capture(target, attacker)
		s.record("capture", fmt.Sprintf("%s took a tile from %s", atk.Name, def.Name))
		return OutcomeCaptured
	}
	return OutcomeContested
}

// defensePower is what def brings to bear on target this tick.
func (s *Simulation) defensePower(def *faction.Faction, target int) float64 {
	density := def.Troops() / float64(max(1, def.LandTiles))
	return density * s.Rules.DefenseBaseFactor * s.terrainMultiplier(target) * s.localDefenseMultiplier(def.ID, target)
}

func (s *Simulation) terrainMultiplier(i int) float64 {
	if s.Grid.Terrain[i] == world.TerrainMountain {
		return s.Rules.MountainDefense
	}
	return 1
}

// localDefenseMultiplier sums the levels of owner's defense buildings within
// DefenseRadius (Euclidean) of the tile.
func (s *Simulation) localDefenseMultiplier(owner faction.ID, i int) float64 {
	g := s.Grid
	cx, cy := g.XY(i)
	r := s.Rules.DefenseRadius
	levels := 0
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if !g.InBounds(x, y) {
				continue
			}
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy > r*r {
				continue
			}
			j := g.Index(x, y)
			if g.Owner[j] == owner && g.Building[j] == world.BuildingDefense {
				levels += g.Level[j]
			}
		}
	}
	return 1 + s.Rules.DefenseBonusPerLevel*float64(levels)
}

// capture transfers a tile, refreshes stats, and checks for enclosed pockets.
func (s *Simulation) capture(i int, attacker faction.ID) {
	g := s.Grid
	prev := g.Owner[i]
	if prev == attacker {
		return
	}
	g.Owner[i] = attacker
	g.Progress[i] = 0
	razeDefense(g, i)

	if pf := s.Factions.Get(prev); pf != nil {
		pf.LossPressure++
	}
	s.recountAll()

	if prev != faction.Neutral {
		s.annexEnclosures(i, prev, attacker)
	}
}

// razeDefense applies the capture policy: defenses fall with the tile, cities change hands.
func razeDefense(g *world.Grid, i int) {
	if g.Building[i] == world.BuildingDefense {
		g.ClearBuilding(i)
	}
}
