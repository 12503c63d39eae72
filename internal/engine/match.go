// Match referee: win/loss detection and the terminal summary.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/tilewar/internal/faction"
)

// Outcome is the human faction's result.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// Result summarises a finished match.
type Result struct {
	Outcome                   Outcome `json:"outcome"`
	Tick                      uint64  `json:"tick"`
	ElapsedSeconds            float64 `json:"elapsed_seconds"`
	FinalLandPercentage       float64 `json:"final_land_percentage"`
	DefeatedBotCount          int     `json:"defeated_bot_count"`
	LargestRemainingEnemyLand int     `json:"largest_remaining_enemy_land"`
}

// checkMatchEnd decides the match once the human crosses the win share or loses all land.
func (s *Simulation) checkMatchEnd() bool {
	if s.Result != nil {
		return true
	}
	h := s.Factions.Human()
	if h == nil {
		return false
	}

	share := s.LandShare(faction.HumanID)
	var outcome Outcome
	switch {
	case share >= s.Rules.WinLandShare:
		outcome = OutcomeWin
	case h.LandTiles <= 0:
		outcome = OutcomeLoss
	default:
		return false
	}

	res := Result{
		Outcome:             outcome,
		Tick:                s.Tick,
		ElapsedSeconds:      s.Elapsed,
		FinalLandPercentage: share * 100,
	}
	for _, bot := range s.Factions.Bots() {
		if bot.LandTiles == 0 {
			res.DefeatedBotCount++
		}
		res.LargestRemainingEnemyLand = max(res.LargestRemainingEnemyLand, bot.LandTiles)
	}
	s.Result = &res
	s.order = humanOrder{target: -1}

	s.record("match", fmt.Sprintf("match over: %s after %.1fs with %.1f%% of the land",
		outcome, res.ElapsedSeconds, res.FinalLandPercentage))
	slog.Info("match ended",
		"outcome", outcome,
		"elapsed", fmt.Sprintf("%.1fs", res.ElapsedSeconds),
		"land_pct", fmt.Sprintf("%.1f", res.FinalLandPercentage),
		"bots_defeated", res.DefeatedBotCount,
		"largest_enemy", res.LargestRemainingEnemyLand,
	)
	if s.OnMatchEnd != nil {
		s.OnMatchEnd(res)
	}
	return true
}
