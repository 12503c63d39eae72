// Fixed-step clock: converts wall time into whole simulation ticks.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// maxFrame bounds how much wall time one frame may feed the accumulator,
// so a stalled process does not replay a burst of ticks afterwards.
const maxFrame = 100 * time.Millisecond

// Clock drives a Simulation at a fixed tick rate regardless of frame timing.
type Clock struct {
	Sim   *Simulation
	Frame time.Duration // Wall-clock polling interval for Run

	// Callbacks, invoked on the clock goroutine.
	OnTick   func(tick uint64) // After every tick
	OnSecond func(tick uint64) // Every TickHz ticks
	OnBatch  func(snap *Snapshot)

	mu    sync.Mutex
	speed float64
	acc   time.Duration
	tick  time.Duration
}

// NewClock creates a clock for sim at real-time speed.
func NewClock(sim *Simulation) *Clock {
	return &Clock{
		Sim:   sim,
		Frame: 16 * time.Millisecond,
		speed: 1,
		tick:  time.Second / time.Duration(max(1, sim.Rules.TickHz)),
	}
}

// Speed returns the current speed multiplier. 0 means paused.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// SetSpeed sets the speed multiplier, clamped to [0, 16].
func (c *Clock) SetSpeed(v float64) {
	c.mu.Lock()
	c.speed = clamp(v, 0, 16)
	speed := c.speed
	c.mu.Unlock()
	slog.Info("clock speed changed", "speed", fmt.Sprintf("%.2f", speed))
}

// Advance feeds elapsed wall time into the accumulator and runs every whole
// tick it now covers. It returns the number of ticks run.
func (c *Clock) Advance(elapsed time.Duration) int {
	c.mu.Lock()
	speed := c.speed
	c.mu.Unlock()
	if speed <= 0 || elapsed <= 0 {
		return 0
	}

	c.acc += time.Duration(float64(min(elapsed, maxFrame)) * speed)
	n := 0
	for c.acc >= c.tick {
		c.acc -= c.tick
		if c.Sim.Result != nil {
			c.acc = 0
			break
		}
		c.step()
		n++
	}
	return n
}

func (c *Clock) step() {
	c.Sim.Step()
	if c.OnTick != nil {
		c.OnTick(c.Sim.Tick)
	}
	if c.OnSecond != nil && c.Sim.Tick%uint64(c.Sim.Rules.TickHz) == 0 {
		c.OnSecond(c.Sim.Tick)
	}
}

// Run polls the wall clock every Frame until ctx is cancelled or the match ends.
// A snapshot is published after every batch that ran at least one tick.
func (c *Clock) Run(ctx context.Context) {
	slog.Info("simulation clock started", "tick_hz", c.Sim.Rules.TickHz, "speed", c.Speed())
	ticker := time.NewTicker(c.Frame)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation clock stopped", "tick", c.Sim.Tick)
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			if c.Advance(elapsed) == 0 {
				continue
			}
			c.Sim.Publish()
			if c.OnBatch != nil {
				c.OnBatch(c.Sim.Snapshot())
			}
			if c.Sim.Result != nil {
				slog.Info("simulation clock stopped", "tick", c.Sim.Tick, "outcome", c.Sim.Result.Outcome)
				return
			}
		}
	}
}

// MatchTime formats elapsed simulated seconds as m:ss.
func MatchTime(elapsed float64) string {
	total := int(elapsed)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
