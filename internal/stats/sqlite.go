package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS charity_stats (
	year              INTEGER NOT NULL,
	month             TEXT    NOT NULL,
	premium_downloads INTEGER NOT NULL DEFAULT 0,
	total_raised      INTEGER NOT NULL DEFAULT 0,
	updated_at        TEXT    NOT NULL,
	PRIMARY KEY (year, month)
);
CREATE TABLE IF NOT EXISTS premium_events (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	kind     TEXT NOT NULL,
	url      TEXT NOT NULL DEFAULT '',
	platform TEXT NOT NULL DEFAULT '',
	format   TEXT NOT NULL DEFAULT '',
	quality  TEXT NOT NULL DEFAULT '',
	at       TEXT NOT NULL
);`

// SQLite persists buckets and an event log in a single database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
// ":memory:" is accepted for tests.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating stats directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening stats database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating stats schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) RecordPremiumEvent(ctx context.Context, ev PremiumEvent) error {
	ev = normalize(ev, s.now)
	month, year := bucket(ev.At)
	at := ev.At.UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO charity_stats (year, month, premium_downloads, total_raised, updated_at)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT (year, month) DO UPDATE SET
	premium_downloads = premium_downloads + 1,
	total_raised      = total_raised + excluded.total_raised,
	updated_at        = excluded.updated_at`,
		year, month, AmountPerPremiumEvent, at)
	if err != nil {
		return fmt.Errorf("updating bucket: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO premium_events (kind, url, platform, format, quality, at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Kind, ev.URL, ev.Platform, ev.Format, ev.Quality, at)
	if err != nil {
		return fmt.Errorf("logging event: %w", err)
	}

	return tx.Commit()
}

func (s *SQLite) Current(ctx context.Context) (Snapshot, error) {
	month, year := bucket(s.now())
	snap := Snapshot{Month: month, Year: year}

	var updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT premium_downloads, total_raised, updated_at FROM charity_stats WHERE year = ? AND month = ?`,
		year, month).Scan(&snap.PremiumDownloads, &snap.TotalRaised, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading bucket: %w", err)
	}

	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		snap.UpdatedAt = t
	}
	return snap, nil
}

// EventCount returns how many premium events have been logged.
func (s *SQLite) EventCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM premium_events`).Scan(&n)
	return n, err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
