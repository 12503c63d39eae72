package commander

import (
	"fmt"
	"math"
)

// Command is the payload for POST /api/v1/command.
type Command struct {
	Kind        string   `json:"kind"`
	Tile        *int     `json:"tile,omitempty"`
	Building    string   `json:"building,omitempty"`
	WorkerRatio *float64 `json:"worker_ratio,omitempty"`
	AttackRatio *float64 `json:"attack_ratio,omitempty"`
}

// Decision is the commander's choice for one cycle.
type Decision struct {
	Action    string   `json:"action"` // none, ratios, build, attack
	Target    int      `json:"target"` // Tile acted on, -1 when none
	Rationale string   `json:"rationale"`
	Command   *Command `json:"command,omitempty"`
}

type ratios struct{ worker, attack float64 }

// MatchOver is the rationale Decide gives once the match has a result.
const MatchOver = "match is over"

var stanceRatios = map[Stance]ratios{
	StanceRecover: {0.75, 0.10},
	StanceExpand:  {0.60, 0.20},
	StancePush:    {0.50, 0.35},
}

const (
	buildFill      = 0.85 // Population fill that triggers a city build
	ratioTolerance = 0.05
)

// wantsCity reports whether Decide would consider a city this cycle, and where.
// Cycle uses it to fetch a Quote before deciding.
func wantsCity(obs *Observation, p *Posture) (int, bool) {
	if obs.Status.Result != nil || p.Fill <= buildFill {
		return -1, false
	}
	return cityTile(obs, p)
}

// Decide picks at most one command: fix the sliders, then build, then attack.
// A city is only built when obs carries a Quote the human can afford.
func Decide(obs *Observation, p *Posture, mem *Memory) Decision {
	if obs.Status.Result != nil {
		return Decision{Action: "none", Target: -1, Rationale: MatchOver}
	}
	h := obs.Status.Human

	want := stanceRatios[p.Stance]
	if math.Abs(h.WorkerRatio-want.worker) > ratioTolerance || math.Abs(h.AttackRatio-want.attack) > ratioTolerance {
		w, a := want.worker, want.attack
		return Decision{
			Action:    "ratios",
			Target:    -1,
			Rationale: fmt.Sprintf("stance %s wants %.2f workers, %.2f attack", p.Stance, w, a),
			Command:   &Command{Kind: "ratios", WorkerRatio: &w, AttackRatio: &a},
		}
	}

	if q := obs.Quote; q != nil && p.Fill > buildFill {
		if cost, ok := q.Cost["city"]; ok && h.Gold >= cost {
			tile := q.Tile
			level := 1
			if obs.Map.Building[tile] == buildingCity {
				level = obs.Map.Level[tile] + 1
			}
			return Decision{
				Action:    "build",
				Target:    tile,
				Rationale: fmt.Sprintf("population at %.0f%% of cap, raising city to level %d for %.0f gold", p.Fill*100, level, cost),
				Command:   &Command{Kind: "build", Tile: &tile, Building: "city"},
			}
		}
	}

	if p.Stance == StanceRecover {
		return Decision{Action: "none", Target: -1, Rationale: "recovering population"}
	}

	target, why := pickTarget(obs, p, mem)
	if target < 0 {
		return Decision{Action: "none", Target: -1, Rationale: "no reachable target"}
	}
	if target == obs.Status.HeldTarget {
		return Decision{Action: "hold", Target: target, Rationale: "pressing " + why}
	}
	return Decision{
		Action:    "attack",
		Target:    target,
		Rationale: why,
		Command:   &Command{Kind: "attack", Tile: &target},
	}
}

// cityTile prefers upgrading the lowest existing city, else the first interior tile.
func cityTile(obs *Observation, p *Posture) (int, bool) {
	best := -1
	for _, i := range p.Cities {
		if best < 0 || obs.Map.Level[i] < obs.Map.Level[best] {
			best = i
		}
	}
	if best >= 0 {
		return best, true
	}
	for _, i := range p.Interior {
		if obs.Map.Building[i] == buildingNone {
			return i, true
		}
	}
	return -1, false
}

// pickTarget chooses unowned land first, then the enemy with the thinnest troops.
// Targets the memory marks as stale are skipped.
func pickTarget(obs *Observation, p *Posture, mem *Memory) (int, string) {
	density := map[int]float64{}
	names := map[int]string{}
	for _, f := range obs.Factions {
		troops := f.Population * (1 - f.WorkerRatio)
		density[f.ID] = troops / math.Max(1, float64(f.LandTiles))
		names[f.ID] = f.Name
	}

	best, bestScore := -1, math.Inf(-1)
	why := ""
	for _, fr := range p.Fronts {
		if mem != nil && mem.Stale(fr.Tile) {
			continue
		}
		var score float64
		var reason string
		if fr.Owner == 0 {
			score, reason = 1000, "unowned land"
		} else {
			score, reason = 100/math.Max(1, density[fr.Owner]), "weakest neighbour "+names[fr.Owner]
		}
		if fr.Mountain {
			score *= 0.5
		}
		if score > bestScore {
			best, bestScore, why = fr.Tile, score, reason
		}
	}
	return best, why
}
