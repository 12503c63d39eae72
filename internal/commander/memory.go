package commander

import (
	"encoding/json"
	"log/slog"
	"os"
)

const maxRecords = 50

// CycleRecord captures what happened in a single commander cycle.
type CycleRecord struct {
	Tick   uint64 `json:"tick"`
	Action string `json:"action"`
	Target int    `json:"target"`
	Land   int    `json:"land"`
	Stance Stance `json:"stance"`
}

// Memory keeps a ring of recent cycles so the commander can give up on
// targets it has been pressing without result.
type Memory struct {
	Records    []CycleRecord `json:"records"`
	StaleAfter int           `json:"-"` // Consecutive cycles on one target before it is skipped
}

// NewMemory returns an empty memory.
func NewMemory() *Memory {
	return &Memory{StaleAfter: 12}
}

// LoadMemory reads a memory file. Returns empty memory if it is missing or corrupt.
func LoadMemory(path string) *Memory {
	mem := NewMemory()
	data, err := os.ReadFile(path)
	if err != nil {
		return mem
	}
	if err := json.Unmarshal(data, mem); err != nil {
		slog.Warn("commander memory corrupted, starting fresh", "error", err)
		return NewMemory()
	}
	return mem
}

// Save writes the memory to path.
func (m *Memory) Save(path string) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		slog.Error("failed to marshal commander memory", "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Error("failed to write commander memory", "error", err)
	}
}

// Record adds a cycle record, trimming to maxRecords.
func (m *Memory) Record(r CycleRecord) {
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// Stale reports whether the most recent cycles all pressed tile without gaining land.
func (m *Memory) Stale(tile int) bool {
	if m.StaleAfter <= 0 || len(m.Records) < m.StaleAfter {
		return false
	}
	recent := m.Records[len(m.Records)-m.StaleAfter:]
	for _, r := range recent {
		if r.Target != tile || (r.Action != "attack" && r.Action != "hold") {
			return false
		}
	}
	return recent[len(recent)-1].Land <= recent[0].Land
}
