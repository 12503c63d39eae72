package commander

// Stance is the commander's overall posture for one cycle.
type Stance string

const (
	StanceRecover Stance = "RECOVER" // Population too thin to fight
	StanceExpand  Stance = "EXPAND"  // Unowned land still borders us
	StancePush    Stance = "PUSH"    // Only enemies left on the front
)

// Front is one tile the human faction could attack.
type Front struct {
	Tile     int
	Owner    int
	Mountain bool
}

// Posture holds derived signals computed from an Observation.
// Runs before Decide; deterministic and free.
type Posture struct {
	Fill     float64 // Population over cap
	Share    float64 // Land share
	Fronts   []Front // Attackable tiles in scan order
	Interior []int   // Owned land tiles with no foreign neighbour
	Cities   []int   // Owned city tiles
	Stance   Stance
}

// Triage computes a Posture from the observation.
func Triage(obs *Observation) *Posture {
	h := obs.Status.Human
	p := &Posture{Share: h.LandShare}
	if h.Cap > 0 {
		p.Fill = h.Population / h.Cap
	}

	m := obs.Map
	me := h.ID
	neutralFront := false
	for i := range m.Owner {
		if m.Terrain[i] == terrainWater {
			continue
		}
		if m.Owner[i] == me {
			if m.Building[i] == buildingCity {
				p.Cities = append(p.Cities, i)
			}
			if !m.foreignNeighbour(i, me) {
				p.Interior = append(p.Interior, i)
			}
			continue
		}
		if !m.ownedNeighbour(i, me) {
			continue
		}
		p.Fronts = append(p.Fronts, Front{Tile: i, Owner: m.Owner[i], Mountain: m.Terrain[i] == terrainMountain})
		if m.Owner[i] == 0 {
			neutralFront = true
		}
	}

	switch {
	case p.Fill < 0.3:
		p.Stance = StanceRecover
	case neutralFront:
		p.Stance = StanceExpand
	default:
		p.Stance = StancePush
	}
	return p
}

func (m MapData) neighbours(i int, fn func(j int) bool) bool {
	x, y := i%m.Width, i/m.Width
	if x+1 < m.Width && fn(i+1) {
		return true
	}
	if x > 0 && fn(i-1) {
		return true
	}
	if y+1 < m.Height && fn(i+m.Width) {
		return true
	}
	return y > 0 && fn(i-m.Width)
}

func (m MapData) ownedNeighbour(i, id int) bool {
	return m.neighbours(i, func(j int) bool { return m.Owner[j] == id })
}

// foreignNeighbour reports whether i borders land held by anyone else, unowned land included.
func (m MapData) foreignNeighbour(i, id int) bool {
	return m.neighbours(i, func(j int) bool { return m.Terrain[j] != terrainWater && m.Owner[j] != id })
}
