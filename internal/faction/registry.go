package faction

// Registry indexes factions by id. Slot 0 is the neutral placeholder and is never filled.
type Registry struct {
	slots []*Faction
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: []*Faction{nil}}
}

// Add appends a faction. Its id must equal the next free slot.
func (r *Registry) Add(f *Faction) {
	if int(f.ID) != len(r.slots) {
		panic("faction: registry ids must be dense and ascending")
	}
	r.slots = append(r.slots, f)
}

// Get returns the faction with the given id, or nil for neutral and unknown ids.
func (r *Registry) Get(id ID) *Faction {
	if id == Neutral || int(id) >= len(r.slots) {
		return nil
	}
	return r.slots[id]
}

// Valid reports whether id names a registered faction.
func (r *Registry) Valid(id ID) bool {
	return r.Get(id) != nil
}

// Human returns the human faction, or nil if none has been added yet.
func (r *Registry) Human() *Faction {
	return r.Get(HumanID)
}

// All returns every faction in ascending id order.
func (r *Registry) All() []*Faction {
	return r.slots[1:]
}

// Bots returns the autonomous factions in ascending id order, including defeated ones.
func (r *Registry) Bots() []*Faction {
	var bots []*Faction
	for _, f := range r.All() {
		if f.IsBot() {
			bots = append(bots, f)
		}
	}
	return bots
}

// Len returns the number of registered factions.
func (r *Registry) Len() int {
	return len(r.slots) - 1
}
