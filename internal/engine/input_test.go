package engine

import (
	"sync"
	"testing"

	"github.com/talgya/tilewar/internal/faction"
	"github.com/talgya/tilewar/internal/world"
)

func TestInboxDrainsInOrder(t *testing.T) {
	in := NewInbox()
	var wg sync.WaitGroup
	for k := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in.Push(Command{Kind: CmdAttack, Tile: k})
		}()
	}
	wg.Wait()
	if got := len(in.drain()); got != 50 {
		t.Fatalf("drained %d commands, want 50", got)
	}
	if got := len(in.drain()); got != 0 {
		t.Fatalf("second drain returned %d commands", got)
	}
}

func TestHeldAttackPressesEveryTick(t *testing.T) {
	r := quietRules()
	r.GrowthMax, r.GrowthCurve, r.GrowthFloor = 0, 0, 0
	s := duel(t, r, 1000, 200)
	target := s.Grid.Index(5, 5)
	s.Inbox.Push(Command{Kind: CmdAttack, Tile: target})
	for range 10 {
		s.Step()
	}
	if want := 10 * 6 * s.Rules.CaptureGainRate; !approx(s.Grid.Progress[target], want) {
		t.Fatalf("progress = %v, want %v", s.Grid.Progress[target], want)
	}
	if s.HeldTarget() != target {
		t.Fatalf("held target = %d", s.HeldTarget())
	}
}

func TestReleaseKeepsProgress(t *testing.T) {
	s := duel(t, quietRules(), 1000, 200)
	target := s.Grid.Index(5, 5)
	s.Inbox.Push(Command{Kind: CmdAttack, Tile: target})
	for range 5 {
		s.Step()
	}
	s.Inbox.Push(Command{Kind: CmdRelease})
	s.Step()
	progress := s.Grid.Progress[target]
	if progress == 0 {
		t.Fatal("release wiped accrued progress")
	}
	for range 5 {
		s.Step()
	}
	if s.Grid.Progress[target] != progress {
		t.Fatal("released order kept pressing")
	}
	if s.HeldTarget() != -1 {
		t.Fatal("order still held after release")
	}
}

func TestInvalidOrderIsDropped(t *testing.T) {
	s := duel(t, quietRules(), 1000, 200)
	s.Inbox.Push(Command{Kind: CmdAttack, Tile: s.Grid.Index(9, 9)})
	s.Step()
	if s.HeldTarget() != -1 {
		t.Fatal("non-adjacent target stayed held")
	}
}

func TestSetRatiosClamps(t *testing.T) {
	s := duel(t, quietRules(), 1000, 200)
	s.Inbox.Push(Command{Kind: CmdSetRatios, WorkerRatio: 1.4, AttackRatio: -0.2})
	s.Step()
	h := s.Factions.Human()
	if h.WorkerRatio != 1 || h.AttackRatio != 0 {
		t.Fatalf("ratios = %v/%v, want 1/0", h.WorkerRatio, h.AttackRatio)
	}
}

func TestBuildCommand(t *testing.T) {
	s := duel(t, quietRules(), 1000, 200)
	s.Factions.Human().Gold = 2500
	tile := s.Grid.Index(2, 2)
	s.Inbox.Push(Command{Kind: CmdBuild, Tile: tile, Building: world.BuildingCity})
	s.Step()
	if s.Grid.Building[tile] != world.BuildingCity {
		t.Fatal("build command ignored")
	}
	if s.Factions.Human().CityLevels != 1 {
		t.Fatal("city levels not refreshed")
	}
}

func TestDefeatedHumanInputIgnored(t *testing.T) {
	s := duel(t, quietRules(), 1000, 200)
	s.Factions.Human().Defeated = true
	s.Inbox.Push(Command{Kind: CmdAttack, Tile: s.Grid.Index(5, 5)})
	s.Step()
	if s.HeldTarget() != -1 || s.Grid.Owner[s.Grid.Index(5, 5)] != 2 {
		t.Fatal("defeated human still attacking")
	}
	if s.Factions.Get(faction.HumanID).Defeated != true {
		t.Fatal("defeat flag cleared")
	}
}
