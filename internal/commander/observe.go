// Package commander implements an autonomous player for the human faction.
// It observes the match via the API, decides on one command per cycle with
// deterministic rules, and acts via the command endpoint.
package commander

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Observation holds all data collected during an observation cycle.
type Observation struct {
	Status   MatchStatus   `json:"status"`
	Map      MapData       `json:"map"`
	Factions []FactionInfo `json:"factions"`

	// Quote is the server's price list for the tile the commander would build
	// on. Nil when no build is being considered.
	Quote *Quote `json:"quote,omitempty"`
}

// Quote holds GET /api/v1/tile build costs, keyed "city" and "defense".
// A missing key means the server would refuse that building.
type Quote struct {
	Tile int                `json:"index"`
	Cost map[string]float64 `json:"build_cost"`
}

// MatchStatus mirrors GET /api/v1/status.
type MatchStatus struct {
	Tick        uint64       `json:"tick"`
	Elapsed     float64      `json:"elapsed"`
	MatchTime   string       `json:"match_time"`
	Speed       float64      `json:"speed"`
	TotalLand   int          `json:"total_land"`
	HeldTarget  int          `json:"held_target"`
	Human       *FactionInfo `json:"human"`
	BotsActive  int          `json:"bots_active"`
	Annexations int          `json:"annexations"`
	Result      *ResultInfo  `json:"result"`
}

// ResultInfo mirrors the result object of a finished match.
type ResultInfo struct {
	Outcome             string  `json:"outcome"`
	ElapsedSeconds      float64 `json:"elapsed_seconds"`
	FinalLandPercentage float64 `json:"final_land_percentage"`
	DefeatedBotCount    int     `json:"defeated_bot_count"`
}

// FactionInfo mirrors items from GET /api/v1/factions.
type FactionInfo struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Human       bool    `json:"human"`
	Gold        float64 `json:"gold"`
	Population  float64 `json:"population"`
	Cap         float64 `json:"cap"`
	WorkerRatio float64 `json:"worker_ratio"`
	AttackRatio float64 `json:"attack_ratio"`
	LandTiles   int     `json:"land_tiles"`
	LandShare   float64 `json:"land_share"`
	CityLevels  int     `json:"city_levels"`
	Defeated    bool    `json:"defeated"`
}

// MapData mirrors GET /api/v1/map.
type MapData struct {
	Width    int   `json:"width"`
	Height   int   `json:"height"`
	Terrain  []int `json:"terrain"`
	Owner    []int `json:"owner"`
	Building []int `json:"building"`
	Level    []int `json:"level"`
}

// Terrain and building codes as served by the API.
const (
	terrainWater    = 0
	terrainMountain = 2

	buildingNone = 0
	buildingCity = 1
)

// Observer fetches match state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Observe fetches the status, map, and faction endpoints.
func (o *Observer) Observe() (*Observation, error) {
	obs := &Observation{}

	if err := o.fetchJSON("/api/v1/status", &obs.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON("/api/v1/map", &obs.Map); err != nil {
		return nil, fmt.Errorf("fetch map: %w", err)
	}
	if err := o.fetchJSON("/api/v1/factions", &obs.Factions); err != nil {
		return nil, fmt.Errorf("fetch factions: %w", err)
	}
	if obs.Status.Human == nil {
		return nil, fmt.Errorf("status has no human faction")
	}
	if n := obs.Map.Width * obs.Map.Height; len(obs.Map.Owner) != n || len(obs.Map.Terrain) != n {
		return nil, fmt.Errorf("map arrays do not match %dx%d", obs.Map.Width, obs.Map.Height)
	}

	return obs, nil
}

// QuoteTile fetches the build costs the server offers for tile.
func (o *Observer) QuoteTile(m *MapData, tile int) (*Quote, error) {
	if tile < 0 || tile >= m.Width*m.Height {
		return nil, fmt.Errorf("tile %d outside %dx%d map", tile, m.Width, m.Height)
	}
	q := &Quote{}
	path := fmt.Sprintf("/api/v1/tile?x=%d&y=%d", tile%m.Width, tile/m.Width)
	if err := o.fetchJSON(path, q); err != nil {
		return nil, fmt.Errorf("fetch quote: %w", err)
	}
	if q.Tile != tile {
		return nil, fmt.Errorf("quote for tile %d answered for %d", tile, q.Tile)
	}
	return q, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(path string, target any) error {
	resp, err := o.HTTPClient.Get(o.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
