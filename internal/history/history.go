package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultPath is the default database location. The tool runs as root for
// block device access, so a system path is fine.
const DefaultPath = "/var/lib/batoprep/history.db"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Stage event statuses.
const (
	EventStarted  = "started"
	EventDone     = "done"
	EventSkipped  = "skipped"
	EventDegraded = "degraded"
	EventFailed   = "failed"
)

// DB wraps the SQLite run-history database. Everything here is best-effort
// bookkeeping: provisioning never blocks on it.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the history database at the given path.
func Open(path string) (*DB, error) {
	if path == "" {
		path = DefaultPath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) migrate() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	var version int
	err = d.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return err
	}

	migrations := []string{
		migrationV1,
	}

	for i, migration := range migrations {
		v := i + 1
		if v <= version {
			continue
		}

		tx, err := d.conn.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d failed: %w", v, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

const migrationV1 = `
-- One row per provisioning attempt
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    disk_index INTEGER NOT NULL,
    device_path TEXT NOT NULL,
    image_source TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'running',
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

-- Per-stage event log within a run
CREATE TABLE IF NOT EXISTS run_events (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id),
    stage TEXT NOT NULL,
    status TEXT NOT NULL,
    detail TEXT,
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_run ON run_events(run_id);
CREATE INDEX IF NOT EXISTS idx_events_time ON run_events(timestamp);
`

// Run is an in-progress provisioning run being recorded.
type Run struct {
	db *DB
	ID string
}

// BeginRun records the start of a provisioning run.
func (d *DB) BeginRun(diskIndex int, devicePath, imageSource string) (*Run, error) {
	id := uuid.NewString()
	_, err := d.conn.Exec(`
		INSERT INTO runs (id, disk_index, device_path, image_source, status)
		VALUES (?, ?, ?, ?, ?)
	`, id, diskIndex, devicePath, imageSource, StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return &Run{db: d, ID: id}, nil
}

// Event records a stage event. Write failures are swallowed: the event log
// must never interfere with the run it describes.
func (r *Run) Event(stage, status, detail string) {
	if r == nil {
		return
	}
	r.db.conn.Exec(`
		INSERT INTO run_events (run_id, stage, status, detail)
		VALUES (?, ?, ?, ?)
	`, r.ID, stage, status, detail)
}

// Finish marks the run completed or failed.
func (r *Run) Finish(status string) error {
	if r == nil {
		return nil
	}
	_, err := r.db.conn.Exec(`
		UPDATE runs SET status = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, r.ID)
	return err
}

// Record is a completed or in-progress run as stored.
type Record struct {
	ID          string
	DiskIndex   int
	DevicePath  string
	ImageSource string
	Status      string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// RecentRuns returns the most recent runs, newest first.
func (d *DB) RecentRuns(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`
		SELECT id, disk_index, device_path, image_source, status, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var finished sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.DiskIndex, &rec.DevicePath, &rec.ImageSource,
			&rec.Status, &rec.StartedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			rec.FinishedAt = &t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Events returns the stage events of a run in order.
func (d *DB) Events(runID string) ([]Event, error) {
	rows, err := d.conn.Query(`
		SELECT stage, status, detail, timestamp
		FROM run_events
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var detail sql.NullString
		if err := rows.Scan(&ev.Stage, &ev.Status, &detail, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.Detail = detail.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Event is one recorded stage event.
type Event struct {
	Stage     string
	Status    string
	Detail    string
	Timestamp time.Time
}
