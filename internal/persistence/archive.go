package persistence

import (
	"log/slog"
	"slices"

	"github.com/talgya/tilewar/internal/config"
	"github.com/talgya/tilewar/internal/engine"
)

// writeQueue bounds the writes waiting for the archive goroutine.
const writeQueue = 64

// Recorder streams one running match into the archive. OnSecond and Finish
// must be called from the clock goroutine; they copy what they need and hand
// the SQLite writes to a background writer, so a tick never waits on disk.
type Recorder struct {
	DB          *DB
	MatchID     string
	SampleEvery int // Seconds between faction samples

	next   uint64 // First tick whose events are not queued yet
	writes chan func()
	done   chan struct{}
}

// NewRecorder opens an archive row for a match started from cfg and starts
// its writer. Call Close to drain pending writes.
func NewRecorder(db *DB, cfg config.Match) (*Recorder, error) {
	id, err := db.StartMatch(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("match archive opened", "id", id)
	r := &Recorder{
		DB:          db,
		MatchID:     id,
		SampleEvery: 10,
		writes:      make(chan func(), writeQueue),
		done:        make(chan struct{}),
	}
	go r.run()
	return r, nil
}

func (r *Recorder) run() {
	defer close(r.done)
	for write := range r.writes {
		write()
	}
}

// Close waits for every queued write to reach the database.
func (r *Recorder) Close() {
	close(r.writes)
	<-r.done
}

// OnSecond queues new events and, every SampleEvery seconds, a faction sample.
// When the writer is backed up the second is skipped; its events are picked
// up by the next call.
func (r *Recorder) OnSecond(sim *engine.Simulation) {
	sec := int(sim.Tick / uint64(sim.Rules.TickHz))
	var summaries []engine.FactionSummary
	if r.SampleEvery > 0 && sec%r.SampleEvery == 0 {
		summaries = sim.Summaries()
	}
	events := r.freshEvents(sim)
	tick := sim.Tick

	select {
	case r.writes <- func() { r.store(tick, events, summaries) }:
		r.next = tick + 1
	default:
		slog.Warn("archive writer backed up, skipping second", "tick", tick)
	}
}

// Finish queues the final events, a last sample, and the match result.
// It blocks only if the writer queue is full.
func (r *Recorder) Finish(sim *engine.Simulation, res engine.Result) {
	events := r.freshEvents(sim)
	summaries := sim.Summaries()
	owner := slices.Clone(sim.Grid.Owner)
	tick := sim.Tick
	r.next = tick + 1

	r.writes <- func() {
		r.store(tick, events, summaries)
		if err := r.DB.FinishMatch(r.MatchID, res, owner); err != nil {
			slog.Error("match archive failed", "error", err)
		}
	}
}

func (r *Recorder) freshEvents(sim *engine.Simulation) []engine.Event {
	var fresh []engine.Event
	for _, e := range sim.Events {
		if e.Tick >= r.next {
			fresh = append(fresh, e)
		}
	}
	return fresh
}

func (r *Recorder) store(tick uint64, events []engine.Event, summaries []engine.FactionSummary) {
	if err := r.DB.SaveEvents(r.MatchID, events); err != nil {
		slog.Error("event flush failed", "error", err)
	}
	if summaries == nil {
		return
	}
	if err := r.DB.SampleFactions(r.MatchID, tick, summaries); err != nil {
		slog.Error("faction sample failed", "error", err)
	}
}
