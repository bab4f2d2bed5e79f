// Package db stores measuring sessions and their readouts in sqlite.
package db

import (
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/stature/internal/display"
	"github.com/banshee-data/stature/internal/monitoring"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("db: not found")

type DB struct {
	*sql.DB
	path string
}

// NewDB opens (or creates) the database at path and brings its schema up to
// date.
func NewDB(path string) (*DB, error) {
	// pragmas in the DSN apply to every pooled connection
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string { return db.path }

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// SessionRecord is one row of the sessions table.
type SessionRecord struct {
	ID        string     `json:"session_id"`
	Source    string     `json:"source"`
	Capacity  int        `json:"capacity"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Frames    int        `json:"frames"`
}

// StartSession inserts a new session.
func (db *DB) StartSession(rec SessionRecord) error {
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, source, capacity, started_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Source, rec.Capacity, toMillis(rec.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to start session %s: %w", rec.ID, err)
	}
	return nil
}

// EndSession stamps the end time and processed frame count.
func (db *DB) EndSession(id string, endedAt time.Time, frames int) error {
	res, err := db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ? WHERE session_id = ?`,
		toMillis(endedAt), frames, id,
	)
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("end session %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanSession(row interface{ Scan(...any) error }) (SessionRecord, error) {
	var (
		rec     SessionRecord
		started int64
		ended   sql.NullInt64
	)
	if err := row.Scan(&rec.ID, &rec.Source, &rec.Capacity, &started, &ended, &rec.Frames); err != nil {
		return rec, err
	}
	rec.StartedAt = fromMillis(started)
	if ended.Valid {
		t := fromMillis(ended.Int64)
		rec.EndedAt = &t
	}
	return rec, nil
}

const sessionColumns = `session_id, source, capacity, started_at, ended_at, frames`

// Session returns one session by ID.
func (db *DB) Session(id string) (SessionRecord, error) {
	rec, err := scanSession(db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// Sessions returns the most recently started sessions first. A non-positive
// limit defaults to 100.
func (db *DB) Sessions(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC, session_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ReadoutRow is one stored readout. Nil fields were absent when recorded.
type ReadoutRow struct {
	SessionID   string    `json:"session_id"`
	Frame       int       `json:"frame"`
	Height      *float64  `json:"height_m,omitempty"`
	HeightClass *string   `json:"height_class,omitempty"`
	BodyType    *string   `json:"body_type,omitempty"`
	Weight      *float64  `json:"weight_kg,omitempty"`
	Fill        int       `json:"fill"`
	Capacity    int       `json:"capacity"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// RecordReadout appends r to its session.
func (db *DB) RecordReadout(r display.Readout) error {
	var class *string
	if r.HeightClass != nil {
		class = &r.HeightClass.Label
	}
	_, err := db.Exec(
		`INSERT INTO readouts (
			session_id, frame_index, height_m, height_class, body_type,
			weight_kg, fill, capacity, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.Frame, r.Height, class, r.BodyType,
		r.Weight, r.Fill, r.Capacity, toMillis(r.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to record readout for frame %d: %w", r.Frame, err)
	}
	return nil
}

// Readouts returns a session's readouts in frame order.
func (db *DB) Readouts(sessionID string) ([]ReadoutRow, error) {
	rows, err := db.Query(`SELECT session_id, frame_index, height_m, height_class, body_type,
			weight_kg, fill, capacity, recorded_at
		FROM readouts WHERE session_id = ? ORDER BY frame_index, readout_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReadoutRow
	for rows.Next() {
		var (
			row      ReadoutRow
			height   sql.NullFloat64
			class    sql.NullString
			body     sql.NullString
			weight   sql.NullFloat64
			recorded int64
		)
		if err := rows.Scan(&row.SessionID, &row.Frame, &height, &class, &body,
			&weight, &row.Fill, &row.Capacity, &recorded); err != nil {
			return nil, err
		}
		if height.Valid {
			row.Height = &height.Float64
		}
		if class.Valid {
			row.HeightClass = &class.String
		}
		if body.Valid {
			row.BodyType = &body.String
		}
		if weight.Valid {
			row.Weight = &weight.Float64
		}
		row.RecordedAt = fromMillis(recorded)
		out = append(out, row)
	}
	return out, rows.Err()
}

// SessionStore records one session's readouts as they are produced.
type SessionStore struct {
	db *DB
	id string

	mu     sync.Mutex
	frames int
}

// OpenSessionStore starts rec and returns a sink for its readouts.
func (db *DB) OpenSessionStore(rec SessionRecord) (*SessionStore, error) {
	if err := db.StartSession(rec); err != nil {
		return nil, err
	}
	return &SessionStore{db: db, id: rec.ID}, nil
}

// Consume stores r.
func (s *SessionStore) Consume(r display.Readout) error {
	if r.SessionID == "" {
		r.SessionID = s.id
	}
	if err := s.db.RecordReadout(r); err != nil {
		return err
	}
	s.mu.Lock()
	s.frames++
	s.mu.Unlock()
	return nil
}

// Finish ends the session with the number of readouts stored.
func (s *SessionStore) Finish(endedAt time.Time) error {
	s.mu.Lock()
	frames := s.frames
	s.mu.Unlock()
	return s.db.EndSession(s.id, endedAt, frames)
}

// Stats holds row counts for the admin page.
type Stats struct {
	Sessions         int  `json:"sessions"`
	Readouts         int  `json:"readouts"`
	MigrationVersion uint `json:"migration_version"`
	LatestMigration  uint `json:"latest_migration"`
}

// Stats counts the stored rows.
func (db *DB) Stats() (Stats, error) {
	var s Stats
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&s.Sessions); err != nil {
		return s, fmt.Errorf("count sessions: %w", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM readouts`).Scan(&s.Readouts); err != nil {
		return s, fmt.Errorf("count readouts: %w", err)
	}
	v, _, err := db.MigrateVersion()
	if err != nil {
		return s, err
	}
	s.MigrationVersion = v
	if s.LatestMigration, err = LatestMigrationVersion(); err != nil {
		return s, err
	}
	return s, nil
}

// AttachAdminRoutes mounts the debug pages (live SQL, stats and backup)
// under /debug/ on mux.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Stature DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("db-stats", "Row counts per table", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.Stats()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get database stats: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			monitoring.Logf("Failed to encode database stats: %v", err)
		}
	}))

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(db.serveBackup))
}

func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("stature-backup-%d.db", time.Now().Unix())
	backupPath := filepath.Join(os.TempDir(), name)
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		backupFile.Close()
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("Failed to remove backup file: %v", err)
		}
	}()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Encoding", "gzip")

	gzipWriter := gzip.NewWriter(w)
	defer gzipWriter.Close()
	if _, err := io.Copy(gzipWriter, backupFile); err != nil {
		monitoring.Logf("Failed to write backup: %v", err)
	}
}
