package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER NOT NULL,
	applied_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS readings (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	read_at   TIMESTAMP NOT NULL,
	qi_value  REAL NOT NULL,
	qi_raw    TEXT NOT NULL,
	bloodline TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS forage_events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	logged_at TIMESTAMP NOT NULL,
	kind      TEXT NOT NULL,
	area      INTEGER NOT NULL,
	x         INTEGER NOT NULL,
	y         INTEGER NOT NULL,
	detail    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_forage_events_area ON forage_events(area, kind);
`

const schemaVersion = 1

// Reading is one reincarnation stats read
type Reading struct {
	ReadAt    time.Time
	QiValue   float64
	QiRaw     string
	Bloodline string
}

// ForageEvent is one forage click, strike or blacklist promotion
type ForageEvent struct {
	LoggedAt time.Time
	Kind     string
	Area     int
	X        int
	Y        int
	Detail   string
}

// Store is the run history database
type Store struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the SQLite history at dbPath and applies the schema
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite works best with a single connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	s := &Store{conn: conn, path: dbPath, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	var n int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", schemaVersion).Scan(&n); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if n == 0 {
		if _, err := s.conn.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)", schemaVersion, s.now()); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// RecordReading appends a reincarnation stats read
func (s *Store) RecordReading(qiValue float64, qiRaw, bloodline string) error {
	_, err := s.conn.Exec(
		"INSERT INTO readings (read_at, qi_value, qi_raw, bloodline) VALUES (?, ?, ?, ?)",
		s.now(), qiValue, qiRaw, bloodline,
	)
	if err != nil {
		return fmt.Errorf("failed to record reading: %w", err)
	}
	return nil
}

// RecordForageEvent appends a forage click/strike/blacklist event
func (s *Store) RecordForageEvent(kind string, area, x, y int, detail string) error {
	_, err := s.conn.Exec(
		"INSERT INTO forage_events (logged_at, kind, area, x, y, detail) VALUES (?, ?, ?, ?, ?, ?)",
		s.now(), kind, area, x, y, detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record forage event: %w", err)
	}
	return nil
}

// RecentReadings returns up to limit readings, newest first
func (s *Store) RecentReadings(limit int) ([]Reading, error) {
	rows, err := s.conn.Query(
		"SELECT read_at, qi_value, qi_raw, bloodline FROM readings ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var out []Reading
	for rows.Next() {
		var r Reading
		if err := rows.Scan(&r.ReadAt, &r.QiValue, &r.QiRaw, &r.Bloodline); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ForageEvents returns up to limit events for an area, newest first
func (s *Store) ForageEvents(area, limit int) ([]ForageEvent, error) {
	rows, err := s.conn.Query(
		"SELECT logged_at, kind, area, x, y, detail FROM forage_events WHERE area = ? ORDER BY id DESC LIMIT ?",
		area, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query forage events: %w", err)
	}
	defer rows.Close()

	var out []ForageEvent
	for rows.Next() {
		var e ForageEvent
		if err := rows.Scan(&e.LoggedAt, &e.Kind, &e.Area, &e.X, &e.Y, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountForageEvents counts events of kind across all areas
func (s *Store) CountForageEvents(kind string) (int, error) {
	var n int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM forage_events WHERE kind = ?", kind).Scan(&n)
	return n, err
}
