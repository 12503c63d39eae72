package config

import (
	"errors"
	"testing"
)

func TestDifficultyPresets(t *testing.T) {
	tests := []struct {
		name     string
		interval float64
		econ     float64
	}{
		{"easy", 1.5, 0.9},
		{"normal", 1.0, 1.0},
		{"HARD", 0.6, 1.1},
	}
	for _, tt := range tests {
		d, err := DifficultyByName(tt.name)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if d.ThinkInterval != tt.interval || d.EconMultiplier != tt.econ {
			t.Errorf("%s: got %+v", tt.name, d)
		}
	}
	if _, err := DifficultyByName("nightmare"); !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown difficulty error = %v", err)
	}
}

func TestParseMapSize(t *testing.T) {
	w, h, err := ParseMapSize("384x216")
	if err != nil || w != 384 || h != 216 {
		t.Fatalf("got %d,%d,%v", w, h, err)
	}
	for _, bad := range []string{"", "384", "ax2", "3x", "1x2x3"} {
		if _, _, err := ParseMapSize(bad); !errors.Is(err, ErrInvalid) {
			t.Errorf("%q: err = %v", bad, err)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default invalid: %v", err)
	}
	m := Default()
	m.Bots = 0
	if err := m.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("zero bots: %v", err)
	}
	m = Default()
	m.Width = 4
	if err := m.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("tiny map: %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		"TILEWAR_MAP_SIZE":   "128x96",
		"TILEWAR_BOTS":       "3",
		"TILEWAR_DIFFICULTY": "hard",
		"TILEWAR_SEED":       "42",
		"TILEWAR_ADMIN_KEY":  "secret",
	}
	m, err := FromEnv(Default(), func(k string) string { return env[k] })
	if err != nil {
		t.Fatal(err)
	}
	if m.Width != 128 || m.Height != 96 || m.Bots != 3 || m.Difficulty != "hard" || m.Seed != 42 || m.AdminKey != "secret" {
		t.Errorf("overlay mismatch: %+v", m)
	}
	if m.DBPath != Default().DBPath {
		t.Error("unset variable changed a field")
	}

	env = map[string]string{"TILEWAR_BOTS": "many"}
	if _, err := FromEnv(Default(), func(k string) string { return env[k] }); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad bots: %v", err)
	}
}
