// Package config holds match setup parameters and difficulty presets.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Difficulty tunes the autonomous factions.
type Difficulty struct {
	Name           string  `json:"name"`
	ThinkInterval  float64 `json:"think_interval"`  // Seconds between AI decision passes
	EconMultiplier float64 `json:"econ_multiplier"` // Gold income multiplier for bots
	TargetWorker   float64 `json:"target_worker"`   // Worker ratio bots drift toward
	TargetAttack   float64 `json:"target_attack"`   // Attack ratio bots drift toward
}

var difficulties = map[string]Difficulty{
	"easy":   {Name: "easy", ThinkInterval: 1.5, EconMultiplier: 0.9, TargetWorker: 0.65, TargetAttack: 0.16},
	"normal": {Name: "normal", ThinkInterval: 1.0, EconMultiplier: 1.0, TargetWorker: 0.60, TargetAttack: 0.20},
	"hard":   {Name: "hard", ThinkInterval: 0.6, EconMultiplier: 1.1, TargetWorker: 0.55, TargetAttack: 0.24},
}

// DifficultyByName returns the preset for easy, normal, or hard.
func DifficultyByName(name string) (Difficulty, error) {
	d, ok := difficulties[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Difficulty{}, fmt.Errorf("%w: unknown difficulty %q (use easy, normal, hard)", ErrInvalid, name)
	}
	return d, nil
}

// Match holds everything needed to start one match.
type Match struct {
	Width      int
	Height     int
	Bots       int
	Difficulty string
	Seed       int64 // 0 = random
	TickHz     int

	// Outer surfaces.
	DBPath   string // Empty disables the match archive
	APIPort  int    // 0 disables the HTTP API
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Default returns the standard match configuration.
func Default() Match {
	return Match{
		Width:      384,
		Height:     216,
		Bots:       6,
		Difficulty: "normal",
		TickHz:     20,
		DBPath:     "data/tilewar.db",
		APIPort:    8080,
	}
}

// Validate checks ranges and the difficulty name.
func (m Match) Validate() error {
	if m.Width < 8 || m.Height < 8 {
		return fmt.Errorf("%w: map %dx%d smaller than 8x8", ErrInvalid, m.Width, m.Height)
	}
	if m.Width > 4096 || m.Height > 4096 {
		return fmt.Errorf("%w: map %dx%d larger than 4096x4096", ErrInvalid, m.Width, m.Height)
	}
	if m.Bots < 1 || m.Bots > 32 {
		return fmt.Errorf("%w: bot count %d outside 1-32", ErrInvalid, m.Bots)
	}
	if m.TickHz < 1 || m.TickHz > 240 {
		return fmt.Errorf("%w: tick rate %d outside 1-240", ErrInvalid, m.TickHz)
	}
	if _, err := DifficultyByName(m.Difficulty); err != nil {
		return err
	}
	return nil
}

// ParseMapSize parses "WxH", e.g. "384x216".
func ParseMapSize(s string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: map size %q (want WxH)", ErrInvalid, s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: map width %q: %v", ErrInvalid, parts[0], err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: map height %q: %v", ErrInvalid, parts[1], err)
	}
	return w, h, nil
}

// FromEnv overlays TILEWAR_* variables onto m. Unset variables leave fields unchanged.
func FromEnv(m Match, getenv func(string) string) (Match, error) {
	if v := getenv("TILEWAR_MAP_SIZE"); v != "" {
		w, h, err := ParseMapSize(v)
		if err != nil {
			return m, err
		}
		m.Width, m.Height = w, h
	}
	if v := getenv("TILEWAR_BOTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return m, fmt.Errorf("%w: TILEWAR_BOTS=%q", ErrInvalid, v)
		}
		m.Bots = n
	}
	if v := getenv("TILEWAR_DIFFICULTY"); v != "" {
		m.Difficulty = v
	}
	if v := getenv("TILEWAR_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return m, fmt.Errorf("%w: TILEWAR_SEED=%q", ErrInvalid, v)
		}
		m.Seed = n
	}
	if v := getenv("TILEWAR_DB"); v != "" {
		m.DBPath = v
	}
	if v := getenv("TILEWAR_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return m, fmt.Errorf("%w: TILEWAR_PORT=%q", ErrInvalid, v)
		}
		m.APIPort = n
	}
	if v := getenv("TILEWAR_ADMIN_KEY"); v != "" {
		m.AdminKey = v
	}
	return m, nil
}
