package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database used by the host to persist session history
// and per-player combat stats. The whole layer is optional: a nil *DB
// disables persistence and the game runs unchanged.
type DB struct {
	conn *sql.DB
}

// SessionRow is one completed hosted session
type SessionRow struct {
	ID        string
	MapID     string
	Duration  float64
	Peers     int
	CreatedAt time.Time
}

// PlayerStatsRow accumulates a named player's lifetime stats on this host
type PlayerStatsRow struct {
	Name   string
	Frags  int
	Deaths int
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		map_id TEXT NOT NULL,
		duration REAL NOT NULL DEFAULT 0,
		peers INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS player_stats (
		name TEXT PRIMARY KEY,
		frags INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		type TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("db: migration error: %v", err)
	}
	return err
}

// RecordSession stores a finished session's summary
func (db *DB) RecordSession(id, mapID string, duration float64, peers int) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO sessions (id, map_id, duration, peers) VALUES (?, ?, ?, ?)",
		id, mapID, duration, peers,
	)
	return err
}

// AddPlayerStats accumulates frags and deaths for a player name
func (db *DB) AddPlayerStats(name string, frags, deaths int) error {
	_, err := db.conn.Exec(`
		INSERT INTO player_stats (name, frags, deaths) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			frags = frags + excluded.frags,
			deaths = deaths + excluded.deaths`,
		name, frags, deaths,
	)
	return err
}

// GetPlayerStats returns a player's accumulated stats, or nil if unknown
func (db *DB) GetPlayerStats(name string) (*PlayerStatsRow, error) {
	row := db.conn.QueryRow("SELECT name, frags, deaths FROM player_stats WHERE name = ?", name)
	var r PlayerStatsRow
	if err := row.Scan(&r.Name, &r.Frags, &r.Deaths); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// InsertEvents writes a batch of analytics events in one transaction
func (db *DB) InsertEvents(events []GameEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		"INSERT INTO events (session_id, type, actor, subject, created_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, e := range events {
		if _, err := stmt.Exec(e.SessionID, e.Type, e.Actor, e.Subject, e.Timestamp); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SessionEventCount returns the number of recorded events for a session
func (db *DB) SessionEventCount(sessionID string) (int, error) {
	row := db.conn.QueryRow("SELECT COUNT(*) FROM events WHERE session_id = ?", sessionID)
	var n int
	err := row.Scan(&n)
	return n, err
}
