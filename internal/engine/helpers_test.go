package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/talgya/tilewar/internal/config"
	"github.com/talgya/tilewar/internal/faction"
	"github.com/talgya/tilewar/internal/world"
)

// quietRules are DefaultRules with logging and attrition switched off and a
// unit defense factor, so powers in tests are easy to compute by hand.
func quietRules() Rules {
	r := DefaultRules()
	r.ReportEvery = 0
	r.AttackCasualtyRate = 0
	r.DefenseCasualtyRate = 0
	r.DefenseBaseFactor = 1
	return r
}

func plainsGrid(w, h int) *world.Grid {
	g := world.NewGrid(w, h)
	for i := range g.Terrain {
		g.Terrain[i] = world.TerrainPlains
	}
	return g
}

func normal(t *testing.T) config.Difficulty {
	t.Helper()
	d, err := config.DifficultyByName("normal")
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// duel builds a 10x10 plains map split down the middle: the human owns x<5,
// a bot owns x>=5. Both have WorkerRatio 0 and AttackRatio 0.5.
func duel(t *testing.T, rules Rules, humanPop, botPop float64) *Simulation {
	t.Helper()
	g := plainsGrid(10, 10)
	for i := range g.Owner {
		x, _ := g.XY(i)
		if x < 5 {
			g.Owner[i] = faction.HumanID
		} else {
			g.Owner[i] = 2
		}
	}
	reg := faction.NewRegistry()
	reg.Add(faction.New(faction.HumanID, faction.RoleHuman, "Azure", faction.Start{
		Population: humanPop, Cap: 1e9, AttackRatio: 0.5, EconMultiplier: 1,
	}))
	reg.Add(faction.New(2, faction.RoleAutonomous, "Crimson", faction.Start{
		Population: botPop, Cap: 1e9, AttackRatio: 0.5, EconMultiplier: 1, ThinkInterval: 1,
	}))
	return NewSimulation(g, reg, rules, normal(t), rand.New(rand.NewSource(1)))
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
