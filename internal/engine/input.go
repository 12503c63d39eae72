// Human input: commands queued by the input collaborator and sampled once per tick.
package engine

import (
	"sync"

	"github.com/talgya/tilewar/internal/faction"
	"github.com/talgya/tilewar/internal/world"
)

// CommandKind enumerates human commands.
type CommandKind uint8

const (
	CmdAttack    CommandKind = iota // Hold an attack order on Tile
	CmdRelease                      // Release the held order; accrued progress stays
	CmdBuild                        // Build or upgrade Building on Tile once
	CmdSetRatios                    // Override the human worker and attack ratios
)

// Command is one input event for the human faction.
type Command struct {
	Kind        CommandKind    `json:"kind"`
	Tile        int            `json:"tile"`
	Building    world.Building `json:"building"`
	WorkerRatio float64        `json:"worker_ratio"`
	AttackRatio float64        `json:"attack_ratio"`
}

// Inbox is the only path from outside goroutines into the simulation.
type Inbox struct {
	mu      sync.Mutex
	pending []Command
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{}
}

// Push queues a command for the next tick.
func (in *Inbox) Push(cmd Command) {
	in.mu.Lock()
	in.pending = append(in.pending, cmd)
	in.mu.Unlock()
}

// drain removes and returns every queued command.
func (in *Inbox) drain() []Command {
	in.mu.Lock()
	defer in.mu.Unlock()
	cmds := in.pending
	in.pending = nil
	return cmds
}

type humanOrder struct {
	target int
	held   bool
}

// HeldTarget returns the tile of the held human attack order, or -1.
func (s *Simulation) HeldTarget() int {
	if !s.order.held {
		return -1
	}
	return s.order.target
}

// applyHumanInput drains the inbox and presses the held attack order once.
func (s *Simulation) applyHumanInput(dt float64) {
	h := s.Factions.Human()
	if h == nil || h.Defeated {
		s.Inbox.drain()
		s.order = humanOrder{target: -1}
		return
	}

	for _, cmd := range s.Inbox.drain() {
		switch cmd.Kind {
		case CmdAttack:
			s.order = humanOrder{target: cmd.Tile, held: true}
		case CmdRelease:
			s.order = humanOrder{target: -1}
		case CmdBuild:
			s.Build(faction.HumanID, cmd.Tile, cmd.Building)
		case CmdSetRatios:
			h.WorkerRatio = clamp(cmd.WorkerRatio, 0, 1)
			h.AttackRatio = clamp(cmd.AttackRatio, 0, 1)
		}
	}

	if !s.order.held {
		return
	}
	if s.Resolve(faction.HumanID, s.order.target, dt) == OutcomeIgnored {
		s.order = humanOrder{target: -1}
	}
}
