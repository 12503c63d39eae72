package world

import (
	"fmt"

	"github.com/talgya/tilewar/internal/faction"
)

// Grid holds the complete tile state in parallel dense slices.
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	Terrain  []Terrain    `json:"terrain"`
	Owner    []faction.ID `json:"owner"`
	Building []Building   `json:"building"`
	Level    []int        `json:"level"`    // Meaningful only where Building != BuildingNone
	Progress []float64    `json:"progress"` // Capture progress in [0,1]
}

// NewGrid creates an all-water, unowned grid.
func NewGrid(width, height int) *Grid {
	n := width * height
	return &Grid{
		Width:    width,
		Height:   height,
		Terrain:  make([]Terrain, n),
		Owner:    make([]faction.ID, n),
		Building: make([]Building, n),
		Level:    make([]int, n),
		Progress: make([]float64, n),
	}
}

// Len returns the number of tiles.
func (g *Grid) Len() int {
	return len(g.Terrain)
}

// Index converts (x, y) to a tile index. Callers check InBounds first.
func (g *Grid) Index(x, y int) int {
	return x + y*g.Width
}

// XY converts a tile index back to coordinates.
func (g *Grid) XY(i int) (int, int) {
	return i % g.Width, i / g.Width
}

// InBounds returns true if (x, y) lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// Valid returns true if i is a tile index.
func (g *Grid) Valid(i int) bool {
	return i >= 0 && i < len(g.Terrain)
}

// IsLand returns true for a valid non-water tile.
func (g *Grid) IsLand(i int) bool {
	return g.Valid(i) && g.Terrain[i] != TerrainWater
}

// OnBoundary returns true if the tile lies on the outer edge of the grid.
func (g *Grid) OnBoundary(i int) bool {
	x, y := g.XY(i)
	return x == 0 || y == 0 || x == g.Width-1 || y == g.Height-1
}

// Neighbors4 appends the in-bounds orthogonal neighbours of i to buf and returns it.
// Order is east, west, south, north.
func (g *Grid) Neighbors4(i int, buf []int) []int {
	buf = buf[:0]
	x, y := g.XY(i)
	if x+1 < g.Width {
		buf = append(buf, i+1)
	}
	if x > 0 {
		buf = append(buf, i-1)
	}
	if y+1 < g.Height {
		buf = append(buf, i+g.Width)
	}
	if y > 0 {
		buf = append(buf, i-g.Width)
	}
	return buf
}

// HasNeighborOwnedBy returns true if an orthogonal neighbour of i is owned by id.
func (g *Grid) HasNeighborOwnedBy(i int, id faction.ID) bool {
	var buf [4]int
	for _, n := range g.Neighbors4(i, buf[:0]) {
		if g.Owner[n] == id {
			return true
		}
	}
	return false
}

// HasHostileNeighbor returns true if an orthogonal neighbour belongs to another faction.
func (g *Grid) HasHostileNeighbor(i int, id faction.ID) bool {
	var buf [4]int
	for _, n := range g.Neighbors4(i, buf[:0]) {
		if o := g.Owner[n]; o != faction.Neutral && o != id {
			return true
		}
	}
	return false
}

// LandCount returns the number of non-water tiles.
func (g *Grid) LandCount() int {
	n := 0
	for _, t := range g.Terrain {
		if t != TerrainWater {
			n++
		}
	}
	return n
}

// ClearBuilding removes any building on the tile.
func (g *Grid) ClearBuilding(i int) {
	g.Building[i] = BuildingNone
	g.Level[i] = 0
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	c := &Grid{Width: g.Width, Height: g.Height}
	c.Terrain = append([]Terrain(nil), g.Terrain...)
	c.Owner = append([]faction.ID(nil), g.Owner...)
	c.Building = append([]Building(nil), g.Building...)
	c.Level = append([]int(nil), g.Level...)
	c.Progress = append([]float64(nil), g.Progress...)
	return c
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, land=%d)", g.Width, g.Height, g.LandCount())
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(g *Grid) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, t := range g.Terrain {
		counts[t]++
	}
	return counts
}
