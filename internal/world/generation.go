// Map generation using layered simplex noise with a radial edge falloff.
// Land is chosen by rank so the land share lands in a target band, then
// mountains are grown from cluster seeds and capped.
package world

import (
	"math"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/tilewar/internal/entropy"
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Width        int
	Height       int
	LandMin      float64 // Lower bound of the target land share
	LandMax      float64 // Upper bound of the target land share
	SmoothPasses int     // Cellular-automaton passes after thresholding
	MountainCap  float64 // Maximum share of land that may be mountain
	Octaves      int
}

// DefaultGenConfig returns the standard match map configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:        384,
		Height:       216,
		LandMin:      0.25,
		LandMax:      0.40,
		SmoothPasses: 1,
		MountainCap:  0.15,
		Octaves:      4,
	}
}

// SmallTestConfig returns a tiny map for rapid iteration.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Width = 96
	cfg.Height = 64
	return cfg
}

// Generate creates a grid with terrain only; no tile is owned.
func Generate(cfg GenConfig, rng entropy.Source) *Grid {
	g := NewGrid(cfg.Width, cfg.Height)
	if g.Len() == 0 {
		return g
	}

	field := noiseField(cfg, rng)
	blurField(field, cfg.Width, cfg.Height)

	target := cfg.LandMin + rng.Float64()*(cfg.LandMax-cfg.LandMin)
	threshold := rankThreshold(field, target)
	for i, v := range field {
		if v >= threshold {
			g.Terrain[i] = TerrainPlains
		}
	}

	for p := 0; p < cfg.SmoothPasses; p++ {
		smoothLand(g)
	}

	growMountains(g, rng)
	capMountains(g, cfg.MountainCap, rng)
	return g
}

// noiseField samples octave simplex noise and pushes the edges of the map down.
func noiseField(cfg GenConfig, rng entropy.Source) []float64 {
	noise := opensimplex.NewNormalized(int64(rng.Intn(math.MaxInt32)))

	octaves := cfg.Octaves
	if octaves <= 0 {
		octaves = 4
	}
	span := float64(max(cfg.Width, cfg.Height))
	frequency := 3.5 / span

	cx := float64(cfg.Width-1) / 2
	cy := float64(cfg.Height-1) / 2
	field := make([]float64, cfg.Width*cfg.Height)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			v := octaveNoise(noise, float64(x), float64(y), octaves, frequency, 0.5)

			// Continental shaping: 0 at the centre, 1 at the edge midpoints.
			dx := (float64(x) - cx) / math.Max(cx, 1)
			dy := (float64(y) - cy) / math.Max(cy, 1)
			dist := math.Sqrt(dx*dx + dy*dy)
			falloff := 1.0 - math.Pow(dist, 3.5)
			if falloff < 0 {
				falloff = 0
			}
			field[x+y*cfg.Width] = v * falloff
		}
	}
	return field
}

// blurField replaces each value with the mean of its in-bounds 3x3 neighbourhood.
func blurField(field []float64, width, height int) {
	out := make([]float64, len(field))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum, n := 0.0, 0
			for oy := -1; oy <= 1; oy++ {
				for ox := -1; ox <= 1; ox++ {
					nx, ny := x+ox, y+oy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					sum += field[nx+ny*width]
					n++
				}
			}
			out[x+y*width] = sum / float64(n)
		}
	}
	copy(field, out)
}

// rankThreshold returns the value above which roughly share of the field lies.
func rankThreshold(field []float64, share float64) float64 {
	sorted := append([]float64(nil), field...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	k := int(float64(len(sorted)) * share)
	if k >= len(sorted) {
		k = len(sorted) - 1
	}
	if k < 0 {
		k = 0
	}
	return sorted[k]
}

// smoothLand runs one majority pass over the 8-neighbourhood. Off-grid cells count as water.
func smoothLand(g *Grid) {
	next := make([]Terrain, g.Len())
	copy(next, g.Terrain)

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			land := 0
			for oy := -1; oy <= 1; oy++ {
				for ox := -1; ox <= 1; ox++ {
					if ox == 0 && oy == 0 {
						continue
					}
					nx, ny := x+ox, y+oy
					if g.InBounds(nx, ny) && g.Terrain[g.Index(nx, ny)] != TerrainWater {
						land++
					}
				}
			}
			i := g.Index(x, y)
			switch {
			case land >= 5:
				next[i] = TerrainPlains
			case land <= 3:
				next[i] = TerrainWater
			}
		}
	}
	g.Terrain = next
}

// growMountains seeds clusters on plains and grows each with distance-decaying probability.
func growMountains(g *Grid, rng entropy.Source) {
	seedCount := max(8, g.Len()/5000)

	type point struct{ x, y int }
	var seeds []point
	for s := 0; s < seedCount; s++ {
		for attempt := 0; attempt < 1000; attempt++ {
			x, y := rng.Intn(g.Width), rng.Intn(g.Height)
			if g.Terrain[g.Index(x, y)] == TerrainPlains {
				seeds = append(seeds, point{x, y})
				break
			}
		}
	}

	for _, s := range seeds {
		rad := entropy.IntRange(rng, 3, 8)
		for y := s.y - rad; y <= s.y+rad; y++ {
			for x := s.x - rad; x <= s.x+rad; x++ {
				if !g.InBounds(x, y) {
					continue
				}
				i := g.Index(x, y)
				if g.Terrain[i] != TerrainPlains {
					continue
				}
				d := math.Hypot(float64(x-s.x), float64(y-s.y))
				if d <= float64(rad) && rng.Float64() > d/float64(rad+1) {
					g.Terrain[i] = TerrainMountain
				}
			}
		}
	}
}

// capMountains reverts random mountains to plains until they are at most limit of land.
func capMountains(g *Grid, limit float64, rng entropy.Source) {
	land := 0
	var mountains []int
	for i, t := range g.Terrain {
		if t == TerrainWater {
			continue
		}
		land++
		if t == TerrainMountain {
			mountains = append(mountains, i)
		}
	}

	maxMountains := int(float64(land) * limit)
	for len(mountains) > maxMountains {
		k := rng.Intn(len(mountains))
		g.Terrain[mountains[k]] = TerrainPlains
		mountains[k] = mountains[len(mountains)-1]
		mountains = mountains[:len(mountains)-1]
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
