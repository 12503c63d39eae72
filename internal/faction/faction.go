// Package faction holds the participants of a match and the registry that
// indexes them by id.
package faction

// ID identifies a faction. 0 is reserved for unowned land.
type ID uint16

const (
	Neutral ID = 0 // Unowned tile
	HumanID ID = 1 // The human-controlled faction always has id 1
)

// Role tags whether a faction is driven by the input collaborator or by the AI director.
type Role uint8

const (
	RoleHuman      Role = iota // Orders arrive through the input inbox
	RoleAutonomous             // Orders come from the AI director
)

// Population is the demographic state of a faction.
type Population struct {
	Current float64 `json:"current"`
	Cap     float64 `json:"cap"`
}

// BotState is the scheduling state carried only by autonomous factions.
type BotState struct {
	ThinkTimer    float64 `json:"think_timer"`    // Seconds accumulated since the last decision pass
	ThinkInterval float64 `json:"think_interval"` // Seconds between decision passes
	Target        int     `json:"target"`         // Burst target tile, -1 when idle
	BurstTicks    int     `json:"burst_ticks"`    // Ticks remaining in the current burst
}

// Faction is one participant in a match.
type Faction struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`

	Gold       float64    `json:"gold"`
	Population Population `json:"population"`

	// Allocation sliders, both in [0,1].
	WorkerRatio float64 `json:"worker_ratio"` // Share of population producing gold
	AttackRatio float64 `json:"attack_ratio"` // Share of troops committed per attack

	EconMultiplier float64 `json:"econ_multiplier"`

	// Cached from the grid; refreshed after every ownership or building change.
	LandTiles  int `json:"land_tiles"`
	CityLevels int `json:"city_levels"`

	// LossPressure counts recently lost tiles and decays geometrically.
	LossPressure float64 `json:"loss_pressure"`

	Defeated bool `json:"defeated"`

	Bot *BotState `json:"bot,omitempty"`
}

// Start holds the opening values for a new faction.
type Start struct {
	Gold           float64
	Population     float64
	Cap            float64
	WorkerRatio    float64
	AttackRatio    float64
	EconMultiplier float64
	ThinkInterval  float64 // Ignored for the human faction
}

// New creates a faction. Autonomous factions get a BotState with no target.
func New(id ID, role Role, name string, st Start) *Faction {
	f := &Faction{
		ID:             id,
		Name:           name,
		Role:           role,
		Gold:           st.Gold,
		Population:     Population{Current: st.Population, Cap: st.Cap},
		WorkerRatio:    st.WorkerRatio,
		AttackRatio:    st.AttackRatio,
		EconMultiplier: st.EconMultiplier,
	}
	if f.Population.Current > f.Population.Cap {
		f.Population.Current = f.Population.Cap
	}
	if role == RoleAutonomous {
		f.Bot = &BotState{ThinkInterval: st.ThinkInterval, Target: -1}
	}
	return f
}

// Workers returns the part of the population producing gold.
func (f *Faction) Workers() float64 {
	return f.Population.Current * f.WorkerRatio
}

// Troops returns the part of the population available for combat.
func (f *Faction) Troops() float64 {
	return f.Population.Current * (1 - f.WorkerRatio)
}

// IsBot reports whether the AI director drives this faction.
func (f *Faction) IsBot() bool {
	return f.Role == RoleAutonomous
}

// Active reports whether the faction still takes part in the match.
func (f *Faction) Active() bool {
	return !f.Defeated
}

// ClearBurst drops any committed burst target.
func (f *Faction) ClearBurst() {
	if f.Bot == nil {
		return
	}
	f.Bot.Target = -1
	f.Bot.BurstTicks = 0
}
