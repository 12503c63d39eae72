// Enclosure annexation: after a capture, pockets of the previous owner that
// no longer reach the map edge are handed to the capturer.
package engine

import (
	"fmt"

	"github.com/talgya/tilewar/internal/faction"
	"github.com/talgya/tilewar/internal/world"
)

// Annexation is one enclosed region that changed hands in a single capture.
type Annexation struct {
	Tiles []int      `json:"tiles"`
	From  faction.ID `json:"from"`
	To    faction.ID `json:"to"`
	Tick  uint64     `json:"tick"`
	TTL   float64    `json:"ttl"` // Seconds left for display
}

// annexEnclosures flood-fills from each neighbour of captured still owned by prev.
// Regions that never touch the grid boundary are flipped to next.
func (s *Simulation) annexEnclosures(captured int, prev, next faction.ID) []Annexation {
	if prev == faction.Neutral {
		return nil
	}
	g := s.Grid

	s.epoch++
	if s.epoch == 0 {
		// Wrapped; stale marks could alias the new epoch.
		clear(s.visit)
		s.epoch = 1
	}

	var found []Annexation
	var seeds, buf [4]int
	for _, start := range g.Neighbors4(captured, seeds[:0]) {
		if g.Owner[start] != prev || s.visit[start] == s.epoch {
			continue
		}

		var region []int
		touchesEdge := false
		s.stack = append(s.stack[:0], start)
		s.visit[start] = s.epoch

		for len(s.stack) > 0 {
			i := s.stack[len(s.stack)-1]
			s.stack = s.stack[:len(s.stack)-1]
			region = append(region, i)
			if g.OnBoundary(i) {
				touchesEdge = true
			}
			for _, n := range g.Neighbors4(i, buf[:0]) {
				if s.visit[n] != s.epoch && g.Owner[n] == prev && g.Terrain[n] != world.TerrainWater {
					s.visit[n] = s.epoch
					s.stack = append(s.stack, n)
				}
			}
		}

		if touchesEdge {
			continue
		}
		for _, i := range region {
			g.Owner[i] = next
			g.Progress[i] = 0
			razeDefense(g, i)
		}
		found = append(found, Annexation{
			Tiles: region,
			From:  prev,
			To:    next,
			Tick:  s.Tick,
			TTL:   s.Rules.AnnexationTTL,
		})
	}

	if len(found) == 0 {
		return nil
	}
	s.recountAll()
	s.Annexations = append(s.Annexations, found...)

	winner, loser := s.Factions.Get(next), s.Factions.Get(prev)
	for _, a := range found {
		s.record("annexation", fmt.Sprintf("%s annexed %d enclosed tiles from %s", winner.Name, len(a.Tiles), loser.Name))
	}
	return found
}

// ageAnnexations counts down display lifetimes and drops expired entries.
func (s *Simulation) ageAnnexations(dt float64) {
	kept := s.Annexations[:0]
	for _, a := range s.Annexations {
		a.TTL -= dt
		if a.TTL > 0 {
			kept = append(kept, a)
		}
	}
	clear(s.Annexations[len(kept):])
	s.Annexations = kept
}
