// Building construction and upgrades for both the human and autonomous factions.
package engine

import (
	"fmt"
	"math"

	"github.com/talgya/tilewar/internal/faction"
	"github.com/talgya/tilewar/internal/world"
)

// BuildCost returns the gold needed to bring a building of kind to level.
func (r Rules) BuildCost(kind world.Building, level int) float64 {
	steps := float64(max(0, level-1))
	switch kind {
	case world.BuildingCity:
		return math.Round(r.CityBaseCost * math.Pow(r.CityCostGrowth, steps))
	case world.BuildingDefense:
		return math.Round(r.DefenseBaseCost * math.Pow(r.DefenseCostGrowth, steps))
	}
	return 0
}

// NextBuild returns the level and cost of building kind on tile for id.
// ok is false when the tile cannot take that building at all.
func (s *Simulation) NextBuild(id faction.ID, tile int, kind world.Building) (level int, cost float64, ok bool) {
	return s.Rules.nextBuild(s.Grid, id, tile, kind)
}

func (r Rules) nextBuild(g *world.Grid, id faction.ID, tile int, kind world.Building) (level int, cost float64, ok bool) {
	if kind == world.BuildingNone || !g.IsLand(tile) || g.Owner[tile] != id {
		return 0, 0, false
	}
	switch g.Building[tile] {
	case world.BuildingNone:
		level = 1
	case kind:
		level = g.Level[tile] + 1
	default:
		return 0, 0, false
	}
	return level, r.BuildCost(kind, level), true
}

// Build places or upgrades a building. Insufficient gold refuses outright.
func (s *Simulation) Build(id faction.ID, tile int, kind world.Building) bool {
	f := s.Factions.Get(id)
	if f == nil || f.Defeated {
		return false
	}
	level, cost, ok := s.NextBuild(id, tile, kind)
	if !ok || f.Gold < cost {
		return false
	}

	f.Gold -= cost
	s.Grid.Building[tile] = kind
	s.Grid.Level[tile] = level
	s.recountAll()

	x, y := s.Grid.XY(tile)
	s.record("build", fmt.Sprintf("%s raised a level %d %s at %d,%d",
		f.Name, level, world.BuildingName(kind), x, y))
	return true
}
