package engine

import (
	"testing"

	"github.com/talgya/tilewar/internal/faction"
)

func TestGrowthRateCurve(t *testing.T) {
	r := DefaultRules()
	if got := r.growthRate(0.45); !approx(got, 0.06) {
		t.Fatalf("peak growth = %v, want 0.06", got)
	}
	if r.growthRate(0.1) >= r.growthRate(0.45) || r.growthRate(0.9) >= r.growthRate(0.45) {
		t.Fatal("growth is not highest at the peak fill")
	}
	r.GrowthCurve = 1
	if got := r.growthRate(1); got != r.GrowthFloor {
		t.Fatalf("growth far from peak = %v, want floor %v", got, r.GrowthFloor)
	}
}

func TestLedgerIncomeAndGrowth(t *testing.T) {
	s := duel(t, quietRules(), 1000, 200)
	h := s.Factions.Human()
	h.WorkerRatio = 0.5
	h.EconMultiplier = 2
	dt := s.Rules.TickSeconds()

	fill := h.Population.Current / h.Population.Cap
	wantGold := h.Gold + 500*s.Rules.GoldPerWorkerPerSecond*2*dt
	wantPop := 1000 + 1000*s.Rules.growthRate(fill)*dt

	s.advanceLedger(dt)
	if !approx(h.Gold, wantGold) {
		t.Fatalf("gold = %v, want %v", h.Gold, wantGold)
	}
	if !approx(h.Population.Current, wantPop) {
		t.Fatalf("population = %v, want %v", h.Population.Current, wantPop)
	}
}

func TestLedgerClampsToCap(t *testing.T) {
	s := duel(t, quietRules(), 1000, 200)
	h := s.Factions.Human()
	h.Population.Current = h.Population.Cap
	for range 100 {
		s.advanceLedger(s.Rules.TickSeconds())
	}
	if h.Population.Current != h.Population.Cap {
		t.Fatalf("population %v exceeded cap %v", h.Population.Current, h.Population.Cap)
	}
}

func TestLedgerSkipsDefeated(t *testing.T) {
	s := duel(t, quietRules(), 1000, 200)
	bot := s.Factions.Get(2)
	bot.Defeated = true
	bot.WorkerRatio = 1
	gold, pop := bot.Gold, bot.Population.Current
	s.advanceLedger(1)
	if bot.Gold != gold || bot.Population.Current != pop {
		t.Fatal("defeated faction kept producing")
	}
}

func TestPeriodicRecomputeDecaysPressure(t *testing.T) {
	s := duel(t, quietRules(), 1000, 200)
	bot := s.Factions.Get(2)
	bot.LossPressure = 4
	s.periodicRecompute()
	if !approx(bot.LossPressure, 4*s.Rules.PressureDecay) {
		t.Fatalf("pressure = %v, want %v", bot.LossPressure, 4*s.Rules.PressureDecay)
	}
}

func TestRecountIsIdempotent(t *testing.T) {
	s := duel(t, quietRules(), 1000, 200)
	s.capture(s.Grid.Index(5, 0), faction.HumanID)
	before := s.Summaries()
	s.RecomputeStats()
	s.RecomputeStats()
	after := s.Summaries()
	for k := range before {
		if before[k] != after[k] {
			t.Fatalf("recount changed %+v to %+v", before[k], after[k])
		}
	}
}
