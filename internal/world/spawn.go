// Spawn placement: picks spaced seed tiles and claims a starting blob for each faction.
package world

import (
	"log/slog"

	"github.com/talgya/tilewar/internal/entropy"
	"github.com/talgya/tilewar/internal/faction"
)

// SpawnConfig controls starting territory placement.
type SpawnConfig struct {
	BlobSize    int // Land tiles claimed per faction
	Margin      int // Seeds are sampled this far from the edge
	MaxAttempts int // Rejection-sampling attempts per faction
}

// DefaultSpawnConfig returns the standard spawn parameters.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		BlobSize:    40,
		Margin:      6,
		MaxAttempts: 5000,
	}
}

// Spawn records where a faction started.
type Spawn struct {
	Faction faction.ID
	Seed    int  // Seed tile index, -1 if no land was left
	Claimed int  // Tiles actually claimed
	Spaced  bool // False when placed by the unspaced fallback
}

// MinSpawnDistance returns the minimum seed spacing for a map of the given size.
func MinSpawnDistance(width, height int) int {
	d := width / 16
	if d < 18 {
		d = 18
	}
	if d > 25 {
		d = 25
	}
	// Small maps cannot honour the full spacing.
	if limit := min(width, height) / 3; d > limit {
		d = max(limit, 2)
	}
	return d
}

// PlaceSpawns claims a starting blob for every id, in order.
// When spacing cannot be satisfied the faction is placed anywhere on free land.
func PlaceSpawns(g *Grid, ids []faction.ID, cfg SpawnConfig, rng entropy.Source) []Spawn {
	minDist := MinSpawnDistance(g.Width, g.Height)
	minDist2 := minDist * minDist

	margin := cfg.Margin
	if g.Width-1-2*margin < 0 || g.Height-1-2*margin < 0 {
		margin = 0
	}

	var seeds []int
	spawns := make([]Spawn, 0, len(ids))

	for _, id := range ids {
		seed := -1
		for a := 0; a < cfg.MaxAttempts; a++ {
			x := entropy.IntRange(rng, margin, g.Width-1-margin)
			y := entropy.IntRange(rng, margin, g.Height-1-margin)
			i := g.Index(x, y)
			if g.Terrain[i] == TerrainWater || g.Owner[i] != faction.Neutral {
				continue
			}
			if tooClose(g, i, seeds, minDist2) {
				continue
			}
			seed = i
			break
		}

		sp := Spawn{Faction: id, Seed: seed, Spaced: seed >= 0}
		if seed < 0 {
			seed = firstFreeLand(g, rng.Intn(g.Len()))
			sp.Seed = seed
			slog.Warn("spawn spacing unsatisfiable, placing unspaced",
				"faction", id, "min_dist", minDist, "found", seed >= 0)
		}
		if seed >= 0 {
			seeds = append(seeds, seed)
			sp.Claimed = ClaimBlob(g, id, seed, cfg.BlobSize)
		}
		spawns = append(spawns, sp)
	}
	return spawns
}

// ClaimBlob assigns up to count land tiles to id by breadth-first expansion from seed.
// Water and tiles owned by others are skipped without consuming the budget.
func ClaimBlob(g *Grid, id faction.ID, seed, count int) int {
	if !g.Valid(seed) {
		return 0
	}
	seen := make([]bool, g.Len())
	queue := []int{seed}
	seen[seed] = true
	got := 0
	var buf [4]int

	for len(queue) > 0 && got < count {
		i := queue[0]
		queue = queue[1:]
		if g.Terrain[i] == TerrainWater {
			continue
		}
		if o := g.Owner[i]; o != faction.Neutral && o != id {
			continue
		}
		if g.Owner[i] != id {
			g.Owner[i] = id
			got++
		}
		for _, n := range g.Neighbors4(i, buf[:0]) {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return got
}

func tooClose(g *Grid, i int, seeds []int, minDist2 int) bool {
	x, y := g.XY(i)
	for _, s := range seeds {
		sx, sy := g.XY(s)
		dx, dy := x-sx, y-sy
		if dx*dx+dy*dy < minDist2 {
			return true
		}
	}
	return false
}

// firstFreeLand scans from start (wrapping) for an unowned land tile.
func firstFreeLand(g *Grid, start int) int {
	n := g.Len()
	for k := 0; k < n; k++ {
		i := (start + k) % n
		if g.Terrain[i] != TerrainWater && g.Owner[i] == faction.Neutral {
			return i
		}
	}
	return -1
}

// FactionNames produces count distinct procedural realm names.
func FactionNames(rng entropy.Source, count int) []string {
	prefixes := []string{
		"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
		"Silver", "Red", "White", "Dark", "Bright", "High", "Low",
		"Old", "New", "Far", "Deep", "Long", "Broad", "Gold", "Frost",
		"Storm", "Thorn", "Elm", "Oak", "Pine", "Copper", "River",
	}
	suffixes := []string{
		"haven", "ford", "hollow", "wick", "bridge", "gate", "keep",
		"stead", "wood", "field", "dale", "crest", "vale", "port",
		"mark", "bury", "marsh", "well", "brook", "cliff", "moor",
		"ridge", "watch", "fall", "reach", "helm",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)
	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}
	return names
}
