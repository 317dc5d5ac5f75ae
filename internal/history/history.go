// Package history keeps a SQLite log of completed rides.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS rides (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    start_ns     INTEGER NOT NULL,
    end_ns       INTEGER NOT NULL,
    device       TEXT NOT NULL,
    distance     REAL NOT NULL,
    samples      INTEGER NOT NULL,
    bad_samples  INTEGER NOT NULL,
    reason       TEXT
);

CREATE INDEX IF NOT EXISTS idx_rides_start ON rides(start_ns);
`

// Ride is one completed polling session.
type Ride struct {
	ID         int64
	Start      time.Time
	End        time.Time
	Device     string
	Distance   float64
	Samples    int
	BadSamples int
	Reason     string // what ended the ride: a signal name or the fatal error
}

// Duration returns how long the ride lasted.
func (r Ride) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Totals aggregates every recorded ride.
type Totals struct {
	Rides    int
	Distance float64
	Duration time.Duration
}

var errEmptyRide = errors.New("ride ends before it starts")

// Store is the SQLite ride log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts r and returns its ID.
func (s *Store) Record(r Ride) (int64, error) {
	if r.End.Before(r.Start) {
		return 0, errEmptyRide
	}

	res, err := s.db.Exec(`
		INSERT INTO rides (start_ns, end_ns, device, distance, samples, bad_samples, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Start.UnixNano(), r.End.UnixNano(), r.Device, r.Distance, r.Samples, r.BadSamples, r.Reason,
	)
	if err != nil {
		return 0, fmt.Errorf("insert ride: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit rides, newest first.
func (s *Store) Recent(limit int) ([]Ride, error) {
	rows, err := s.db.Query(`
		SELECT id, start_ns, end_ns, device, distance, samples, bad_samples, COALESCE(reason, '')
		FROM rides ORDER BY start_ns DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query rides: %w", err)
	}
	defer rows.Close()

	var rides []Ride
	for rows.Next() {
		var r Ride
		var startNs, endNs int64
		if err := rows.Scan(&r.ID, &startNs, &endNs, &r.Device, &r.Distance, &r.Samples, &r.BadSamples, &r.Reason); err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		r.Start = time.Unix(0, startNs)
		r.End = time.Unix(0, endNs)
		rides = append(rides, r)
	}
	return rides, rows.Err()
}

// Totals sums distance and riding time over every recorded ride.
func (s *Store) Totals() (Totals, error) {
	var t Totals
	var durNs int64
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(distance), 0), COALESCE(SUM(end_ns - start_ns), 0)
		FROM rides`).Scan(&t.Rides, &t.Distance, &durNs)
	if err != nil {
		return Totals{}, fmt.Errorf("query totals: %w", err)
	}
	t.Duration = time.Duration(durNs)
	return t, nil
}
