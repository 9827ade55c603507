package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/sweeney/habit-tracker/internal/stats"
)

// SQLite is a Backend over a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and its schema.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// habitd and habitctl may hold the file at the same time.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer at a time; the driver serializes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}
	return &SQLite{db: db}, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS state_blobs (
			storage_key TEXT PRIMARY KEY,
			blob TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			storage_key TEXT NOT NULL,
			event_type TEXT NOT NULL,
			occurred_at DATETIME NOT NULL,
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_key_time ON notifications(storage_key, occurred_at);`,
	}
	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM state_blobs WHERE storage_key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	return []byte(blob), nil
}

func (s *SQLite) Swap(ctx context.Context, key string, old, value []byte) error {
	now := time.Now().UTC()
	var (
		res sql.Result
		err error
	)
	if old == nil {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO state_blobs (storage_key, blob, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(storage_key) DO NOTHING
		`, key, string(value), now)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE state_blobs SET blob = ?, updated_at = ?
			WHERE storage_key = ? AND blob = ?
		`, string(value), now, key, string(old))
	}
	if err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *SQLite) AppendEvent(ctx context.Context, key string, ev stats.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	query := `
		INSERT INTO notifications (id, storage_key, event_type, occurred_at, payload)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query, ev.ID, key, string(ev.Type), ev.At.UTC(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *SQLite) RecentEvents(ctx context.Context, key string, limit int) ([]stats.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM notifications WHERE storage_key = ? ORDER BY occurred_at DESC, rowid DESC LIMIT ?`,
		key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []stats.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev stats.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
