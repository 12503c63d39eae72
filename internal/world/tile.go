// Package world provides the tile grid, terrain, and map generation.
// Tiles are addressed by a single index i = x + y*W.
package world

// Terrain types for grid tiles. Immutable after generation.
type Terrain uint8

const (
	TerrainWater    Terrain = iota // Never owned, never built on
	TerrainPlains                  // Default land
	TerrainMountain                // Harder to take, worse to expand into
)

// Building types that can stand on an owned land tile.
type Building uint8

const (
	BuildingNone    Building = iota
	BuildingCity             // Raises the owner's population cap
	BuildingDefense          // Strengthens the owner's defense nearby
)

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainWater:
		return "Water"
	case TerrainPlains:
		return "Plains"
	case TerrainMountain:
		return "Mountain"
	default:
		return "Unknown"
	}
}

// BuildingName returns a human-readable name for a building type.
func BuildingName(b Building) string {
	switch b {
	case BuildingNone:
		return "None"
	case BuildingCity:
		return "City"
	case BuildingDefense:
		return "Defense"
	default:
		return "Unknown"
	}
}

// BuildingKey returns the lowercase name ParseBuilding accepts.
func BuildingKey(b Building) string {
	switch b {
	case BuildingNone:
		return "none"
	case BuildingCity:
		return "city"
	case BuildingDefense:
		return "defense"
	default:
		return "unknown"
	}
}

// ParseBuilding maps a lowercase name to a building type.
func ParseBuilding(s string) (Building, bool) {
	switch s {
	case "none", "":
		return BuildingNone, true
	case "city":
		return BuildingCity, true
	case "defense":
		return BuildingDefense, true
	}
	return BuildingNone, false
}
