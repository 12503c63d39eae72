// Faction ledger: gold income, population growth, and the periodic stats recompute.
package engine

// growthRate is a bell curve over the population fill ratio, peaking at
// GrowthPeak and never dropping below GrowthFloor.
func (r Rules) growthRate(fill float64) float64 {
	x := fill - r.GrowthPeak
	v := r.GrowthMax - r.GrowthCurve*x*x
	if v < r.GrowthFloor {
		v = r.GrowthFloor
	}
	return v
}

// advanceLedger runs one tick of economy and demography for every active faction.
func (s *Simulation) advanceLedger(dt float64) {
	for _, f := range s.Factions.All() {
		if f.Defeated {
			continue
		}
		f.Gold += f.Workers() * s.Rules.GoldPerWorkerPerSecond * f.EconMultiplier * dt

		fill := 0.0
		if f.Population.Cap > 0 {
			fill = f.Population.Current / f.Population.Cap
		}
		growth := f.Population.Current * s.Rules.growthRate(fill) * dt
		f.Population.Current = clamp(f.Population.Current+growth, 0, f.Population.Cap)
	}
}

// periodicRecompute runs once per simulated second: stats refresh and pressure decay.
func (s *Simulation) periodicRecompute() {
	s.recountAll()
	for _, f := range s.Factions.All() {
		f.LossPressure *= s.Rules.PressureDecay
	}

	sec := int(s.Tick / uint64(s.Rules.TickHz))
	if s.Rules.ReportEvery > 0 && sec%s.Rules.ReportEvery == 0 {
		s.report()
	}
}
