package persistence

import (
	"path/filepath"
	"testing"

	"github.com/talgya/tilewar/internal/config"
	"github.com/talgya/tilewar/internal/engine"
	"github.com/talgya/tilewar/internal/entropy"
	"github.com/talgya/tilewar/internal/faction"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPackOwnersRoundTrip(t *testing.T) {
	owner := make([]faction.ID, 384*216)
	for i := range owner {
		owner[i] = faction.ID(i / 5000)
	}
	blob, err := packOwners(owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(blob) >= 2*len(owner) {
		t.Fatalf("blob %d bytes, no smaller than raw %d", len(blob), 2*len(owner))
	}
	got, err := unpackOwners(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(owner) {
		t.Fatalf("len = %d, want %d", len(got), len(owner))
	}
	for i := range owner {
		if got[i] != owner[i] {
			t.Fatalf("tile %d = %d, want %d", i, got[i], owner[i])
		}
	}
}

func TestMatchLifecycle(t *testing.T) {
	db := openTestDB(t)
	cfg := config.Default()
	cfg.Width, cfg.Height, cfg.Seed = 32, 16, 5

	id, err := db.StartMatch(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.FinalOwnership(id); err == nil {
		t.Fatal("unfinished match returned an ownership grid")
	}

	owner := make([]faction.ID, 32*16)
	owner[7] = faction.HumanID
	res := engine.Result{Outcome: engine.OutcomeWin, ElapsedSeconds: 321.5, FinalLandPercentage: 73.1, DefeatedBotCount: 4, LargestRemainingEnemyLand: 12}
	if err := db.FinishMatch(id, res, owner); err != nil {
		t.Fatal(err)
	}

	matches, err := db.RecentMatches(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d", len(matches))
	}
	m := matches[0]
	if m.ID != id || m.Outcome != "win" || m.Width != 32 || m.Seed != 5 || m.DefeatedBots != 4 || m.LargestEnemy != 12 {
		t.Fatalf("record = %+v", m)
	}
	if m.EndedAt == "" {
		t.Fatal("ended_at not set")
	}

	got, err := db.FinalOwnership(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(owner) || got[7] != faction.HumanID {
		t.Fatal("ownership grid did not survive the archive")
	}

	if err := db.FinishMatch("missing", res, owner); err == nil {
		t.Fatal("finished a match that was never started")
	}
}

func TestSamplesAndEvents(t *testing.T) {
	db := openTestDB(t)
	id, err := db.StartMatch(config.Default())
	if err != nil {
		t.Fatal(err)
	}

	for tick := uint64(20); tick <= 60; tick += 20 {
		err := db.SampleFactions(id, tick, []engine.FactionSummary{
			{ID: 1, Name: "Azure", LandTiles: int(tick)},
			{ID: 2, Name: "Crimson", Defeated: tick == 60},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	samples, err := db.Samples(id, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 || samples[0].Defeated || !samples[2].Defeated {
		t.Fatalf("samples = %+v", samples)
	}

	events := []engine.Event{
		{Tick: 1, Description: "first", Category: "build"},
		{Tick: 2, Description: "second", Category: "capture"},
	}
	if err := db.SaveEvents(id, events); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveEvents(id, nil); err != nil {
		t.Fatal(err)
	}
	got, err := db.RecentEvents(id, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Description != "second" {
		t.Fatalf("events = %+v", got)
	}
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveMeta("last_match", "a"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("last_match", "b"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMeta("last_match")
	if err != nil || v != "b" {
		t.Fatalf("meta = %q, %v", v, err)
	}
}

func TestRecorderArchivesMatch(t *testing.T) {
	db := openTestDB(t)
	cfg := config.Default()
	cfg.Width, cfg.Height, cfg.Bots = 48, 32, 2
	rules := engine.DefaultRules()
	rules.ReportEvery = 0
	sim, err := engine.NewMatch(cfg, rules, entropy.New(3))
	if err != nil {
		t.Fatal(err)
	}
	rec, err := NewRecorder(db, cfg)
	if err != nil {
		t.Fatal(err)
	}
	rec.SampleEvery = 1

	for range 3 * rules.TickHz {
		sim.Step()
		if sim.Tick%uint64(rules.TickHz) == 0 {
			rec.OnSecond(sim)
		}
	}
	rec.Finish(sim, engine.Result{Outcome: engine.OutcomeLoss, Tick: sim.Tick})
	rec.Close()

	samples, err := db.Samples(rec.MatchID, faction.HumanID)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 4 {
		t.Fatalf("samples = %d, want 3 periodic and 1 final", len(samples))
	}
	events, err := db.RecentEvents(rec.MatchID, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != len(sim.Events) {
		t.Fatalf("archived %d events, simulation logged %d", len(events), len(sim.Events))
	}
	owner, err := db.FinalOwnership(rec.MatchID)
	if err != nil {
		t.Fatal(err)
	}
	if len(owner) != 48*32 {
		t.Fatalf("ownership grid len = %d", len(owner))
	}
}

func TestRecorderSkipsSecondWhenWriterBusy(t *testing.T) {
	db := openTestDB(t)
	cfg := config.Default()
	cfg.Width, cfg.Height, cfg.Bots = 48, 32, 2
	rules := engine.DefaultRules()
	rules.ReportEvery = 0
	sim, err := engine.NewMatch(cfg, rules, entropy.New(5))
	if err != nil {
		t.Fatal(err)
	}
	id, err := db.StartMatch(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// No writer goroutine and no buffer: every hand-off fails immediately.
	rec := &Recorder{DB: db, MatchID: id, SampleEvery: 1, writes: make(chan func()), done: make(chan struct{})}
	for range rules.TickHz {
		sim.Step()
	}
	rec.OnSecond(sim)
	if rec.next != 0 {
		t.Fatalf("next = %d after a skipped second, want 0", rec.next)
	}
	if n, _ := db.Samples(id, faction.HumanID); len(n) != 0 {
		t.Fatalf("skipped second wrote %d samples", len(n))
	}

	rec.writes = make(chan func(), writeQueue)
	go rec.run()
	for range rules.TickHz {
		sim.Step()
	}
	rec.OnSecond(sim)
	rec.Close()

	events, err := db.RecentEvents(id, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != len(sim.Events) {
		t.Fatalf("archived %d events, simulation logged %d", len(events), len(sim.Events))
	}
	samples, err := db.Samples(id, faction.HumanID)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(samples))
	}
}
