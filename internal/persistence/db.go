// Package persistence provides the SQLite match archive.
// Nothing in it is read back to resume a match.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/tilewar/internal/config"
	"github.com/talgya/tilewar/internal/engine"
	"github.com/talgya/tilewar/internal/faction"
)

// DB wraps a SQLite connection for the match archive.
type DB struct {
	conn *sqlx.DB
}

// MatchRecord is one row of the matches table.
type MatchRecord struct {
	ID           string  `db:"id" json:"id"`
	StartedAt    string  `db:"started_at" json:"started_at"`
	EndedAt      string  `db:"ended_at" json:"ended_at,omitempty"`
	Width        int     `db:"width" json:"width"`
	Height       int     `db:"height" json:"height"`
	Bots         int     `db:"bots" json:"bots"`
	Difficulty   string  `db:"difficulty" json:"difficulty"`
	Seed         int64   `db:"seed" json:"seed"`
	Outcome      string  `db:"outcome" json:"outcome,omitempty"`
	Elapsed      float64 `db:"elapsed" json:"elapsed_seconds"`
	FinalLandPct float64 `db:"final_land_pct" json:"final_land_percentage"`
	DefeatedBots int     `db:"defeated_bots" json:"defeated_bot_count"`
	LargestEnemy int     `db:"largest_enemy" json:"largest_remaining_enemy_land"`
}

// Sample is one row of the faction_samples table.
type Sample struct {
	MatchID    string  `db:"match_id" json:"match_id"`
	Tick       uint64  `db:"tick" json:"tick"`
	FactionID  int     `db:"faction_id" json:"faction_id"`
	Name       string  `db:"name" json:"name"`
	Gold       float64 `db:"gold" json:"gold"`
	Population float64 `db:"population" json:"population"`
	Cap        float64 `db:"cap" json:"cap"`
	LandTiles  int     `db:"land_tiles" json:"land_tiles"`
	CityLevels int     `db:"city_levels" json:"city_levels"`
	Defeated   bool    `db:"defeated" json:"defeated"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		ended_at TEXT NOT NULL DEFAULT '',
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		bots INTEGER NOT NULL,
		difficulty TEXT NOT NULL,
		seed INTEGER NOT NULL,
		outcome TEXT NOT NULL DEFAULT '',
		elapsed REAL NOT NULL DEFAULT 0,
		final_land_pct REAL NOT NULL DEFAULT 0,
		defeated_bots INTEGER NOT NULL DEFAULT 0,
		largest_enemy INTEGER NOT NULL DEFAULT 0,
		final_owner BLOB
	);

	CREATE TABLE IF NOT EXISTS faction_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		match_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		faction_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		gold REAL NOT NULL,
		population REAL NOT NULL,
		cap REAL NOT NULL,
		land_tiles INTEGER NOT NULL,
		city_levels INTEGER NOT NULL,
		defeated INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		match_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_match ON events(match_id, tick);
	CREATE INDEX IF NOT EXISTS idx_samples_match ON faction_samples(match_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartMatch inserts a new match row and returns its id.
func (db *DB) StartMatch(cfg config.Match) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		`INSERT INTO matches (id, started_at, width, height, bots, difficulty, seed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339), cfg.Width, cfg.Height, cfg.Bots, cfg.Difficulty, cfg.Seed,
	)
	if err != nil {
		return "", fmt.Errorf("insert match: %w", err)
	}
	return id, nil
}

// FinishMatch stores the result and the compressed final ownership grid.
func (db *DB) FinishMatch(id string, res engine.Result, owner []faction.ID) error {
	blob, err := packOwners(owner)
	if err != nil {
		return fmt.Errorf("pack ownership: %w", err)
	}
	r, err := db.conn.Exec(
		`UPDATE matches SET ended_at = ?, outcome = ?, elapsed = ?, final_land_pct = ?,
		 defeated_bots = ?, largest_enemy = ?, final_owner = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), string(res.Outcome), res.ElapsedSeconds,
		res.FinalLandPercentage, res.DefeatedBotCount, res.LargestRemainingEnemyLand, blob, id,
	)
	if err != nil {
		return fmt.Errorf("update match %s: %w", id, err)
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return fmt.Errorf("update match %s: no such match", id)
	}
	slog.Info("match archived", "id", id, "outcome", res.Outcome, "grid_bytes", len(blob))
	return nil
}

// FinalOwnership returns the archived ownership grid of a finished match.
func (db *DB) FinalOwnership(id string) ([]faction.ID, error) {
	var blob []byte
	if err := db.conn.Get(&blob, "SELECT final_owner FROM matches WHERE id = ?", id); err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, fmt.Errorf("match %s has not finished", id)
	}
	return unpackOwners(blob)
}

// RecentMatches returns the most recently started matches.
func (db *DB) RecentMatches(limit int) ([]MatchRecord, error) {
	var out []MatchRecord
	err := db.conn.Select(&out,
		`SELECT id, started_at, ended_at, width, height, bots, difficulty, seed, outcome,
		 elapsed, final_land_pct, defeated_bots, largest_enemy
		 FROM matches ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	return out, err
}

// SampleFactions appends one stats row per faction.
func (db *DB) SampleFactions(matchID string, tick uint64, factions []engine.FactionSummary) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO faction_samples
		(match_id, tick, faction_id, name, gold, population, cap, land_tiles, city_levels, defeated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range factions {
		_, err := stmt.Exec(matchID, tick, int(f.ID), f.Name, f.Gold, f.Population, f.Cap,
			f.LandTiles, f.CityLevels, f.Defeated)
		if err != nil {
			return fmt.Errorf("insert sample for faction %d: %w", f.ID, err)
		}
	}

	return tx.Commit()
}

// Samples returns every stats row for one faction in tick order.
func (db *DB) Samples(matchID string, id faction.ID) ([]Sample, error) {
	var out []Sample
	err := db.conn.Select(&out,
		`SELECT match_id, tick, faction_id, name, gold, population, cap, land_tiles, city_levels, defeated
		 FROM faction_samples WHERE match_id = ? AND faction_id = ? ORDER BY tick`,
		matchID, int(id),
	)
	return out, err
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(matchID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (match_id, tick, description, category) VALUES (?, ?, ?, ?)",
			matchID, e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events of a match, newest first.
func (db *DB) RecentEvents(matchID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events WHERE match_id = ? ORDER BY id DESC LIMIT ?",
		matchID, limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}
