package commander

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
)

// Cycle executes one observe → decide → act pass and records it in mem.
func Cycle(observer *Observer, actor *Actor, mem *Memory) (Decision, error) {
	obs, err := observer.Observe()
	if err != nil {
		return Decision{}, fmt.Errorf("observe: %w", err)
	}
	h := obs.Status.Human
	p := Triage(obs)
	slog.Info("observation complete",
		"tick", obs.Status.Tick,
		"gold", humanize.Comma(int64(h.Gold)),
		"population", humanize.Comma(int64(h.Population)),
		"fill", fmt.Sprintf("%.3f", p.Fill),
		"land_share", fmt.Sprintf("%.3f", p.Share),
		"fronts", len(p.Fronts),
		"stance", p.Stance,
	)

	if tile, ok := wantsCity(obs, p); ok {
		q, err := observer.QuoteTile(&obs.Map, tile)
		if err != nil {
			slog.Warn("build quote unavailable", "tile", tile, "error", err)
		} else {
			obs.Quote = q
		}
	}

	d := Decide(obs, p, mem)
	mem.Record(CycleRecord{Tick: obs.Status.Tick, Action: d.Action, Target: d.Target, Land: h.LandTiles, Stance: p.Stance})
	if d.Command == nil {
		slog.Info("no command", "action", d.Action, "rationale", d.Rationale)
		return d, nil
	}

	ack, err := actor.Act(d.Command)
	var throttled *ThrottledError
	switch {
	case errors.Is(err, ErrMatchOver):
		slog.Info("match ended before the command landed", "action", d.Action)
		return Decision{Action: "none", Target: -1, Rationale: MatchOver}, nil
	case errors.As(err, &throttled):
		slog.Warn("command throttled", "action", d.Action, "retry_after", throttled.RetryAfter)
		return d, nil
	case err != nil:
		return d, fmt.Errorf("act: %w", err)
	}
	slog.Info("command queued", "action", d.Action, "target", d.Target, "tick", ack.Tick, "rationale", d.Rationale)
	return d, nil
}
