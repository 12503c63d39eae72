package engine

import "golang.org/x/exp/constraints"

// Rules holds every tunable constant of the simulation.
// Tests override individual fields; matches use DefaultRules.
type Rules struct {
	TickHz int // Simulation ticks per simulated second

	// Opening state.
	StartGold        float64
	StartPopulation  float64
	HumanWorkerRatio float64
	HumanAttackRatio float64

	// Economy and demography.
	GoldPerWorkerPerSecond float64
	BaseCap                float64
	CapPerLandTile         float64
	CapPerCityLevel        float64
	GrowthPeak             float64 // Fill ratio at which growth is fastest
	GrowthMax              float64
	GrowthCurve            float64
	GrowthFloor            float64
	PressureDecay          float64 // Applied to LossPressure once per periodic recompute

	// Combat.
	AttackPowerFactor    float64
	DefenseBaseFactor    float64
	MountainDefense      float64
	DefenseRadius        int
	DefenseBonusPerLevel float64
	CaptureGainRate      float64
	DecayRate            float64
	AttackCasualtyRate   float64
	DefenseCasualtyRate  float64
	WalkInCost           float64 // Fraction of population spent on a neutral walk-in

	// Buildings.
	CityBaseCost      float64
	CityCostGrowth    float64
	DefenseBaseCost   float64
	DefenseCostGrowth float64

	// Autonomous factions.
	SmoothingRate      float64 // Fraction of the gap to the difficulty targets closed per pass
	NearCapShare       float64
	PressureThreshold  float64
	CriticalShare      float64
	BurstSeconds       float64
	ThinkPressureDecay float64
	ExpansionCost      float64 // Fraction of troops spent on a passive expansion

	// Match.
	WinLandShare  float64
	AnnexationTTL float64 // Seconds an annexation stays visible to consumers
	ReportEvery   int     // Seconds between match report log lines, 0 disables
}

// DefaultRules returns the standard match rules.
func DefaultRules() Rules {
	return Rules{
		TickHz: 20,

		StartGold:        2000,
		StartPopulation:  6500,
		HumanWorkerRatio: 0.6,
		HumanAttackRatio: 0.2,

		GoldPerWorkerPerSecond: 0.015,
		BaseCap:                8000,
		CapPerLandTile:         30,
		CapPerCityLevel:        25000,
		GrowthPeak:             0.45,
		GrowthMax:              0.06,
		GrowthCurve:            0.173,
		GrowthFloor:            0.002,
		PressureDecay:          0.45,

		AttackPowerFactor:    0.020,
		DefenseBaseFactor:    55,
		MountainDefense:      1.35,
		DefenseRadius:        4,
		DefenseBonusPerLevel: 0.12,
		CaptureGainRate:      0.0012,
		DecayRate:            0.00035,
		AttackCasualtyRate:   0.006,
		DefenseCasualtyRate:  0.0008,
		WalkInCost:           0.001,

		CityBaseCost:      2500,
		CityCostGrowth:    1.7,
		DefenseBaseCost:   1800,
		DefenseCostGrowth: 1.6,

		SmoothingRate:      0.2,
		NearCapShare:       0.92,
		PressureThreshold:  0.8,
		CriticalShare:      0.25,
		BurstSeconds:       1.5,
		ThinkPressureDecay: 0.95,
		ExpansionCost:      0.001,

		WinLandShare:  0.72,
		AnnexationTTL: 0.5,
		ReportEvery:   30,
	}
}

// TickSeconds returns the fixed tick length in seconds.
func (r Rules) TickSeconds() float64 {
	return 1 / float64(r.TickHz)
}

// BurstTicks returns the burst duration in whole ticks, at least 1.
func (r Rules) BurstTicks() int {
	n := int(r.BurstSeconds*float64(r.TickHz) + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
