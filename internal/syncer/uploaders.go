package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweeney/habit-tracker/internal/mqtt"
	"github.com/sweeney/habit-tracker/internal/stats"
)

// MQTTUploader publishes snapshots as retained MQTT messages.
type MQTTUploader struct {
	Publisher mqtt.Publisher
}

// Upload implements Uploader.
func (u MQTTUploader) Upload(_ context.Context, userID string, s stats.State, at time.Time) error {
	if err := u.Publisher.PublishSnapshot(userID, s, at); err != nil {
		return fmt.Errorf("mqtt snapshot: %w", err)
	}
	return nil
}

const insertSnapshot = `INSERT INTO dt_stats_snapshots (student_public_id, snapshot) VALUES ($1, $2)`

const createSnapshots = `
CREATE TABLE IF NOT EXISTS dt_stats_snapshots (
	id BIGSERIAL PRIMARY KEY,
	student_public_id TEXT NOT NULL,
	snapshot JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// execer is the subset of *pgxpool.Pool used for uploads.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresUploader appends one row per snapshot to dt_stats_snapshots.
type PostgresUploader struct {
	db    execer
	close func()
}

// OpenPostgres connects to dsn and ensures the snapshot table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresUploader, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createSnapshots); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}
	return &PostgresUploader{db: pool, close: pool.Close}, nil
}

func newPostgres(db execer) *PostgresUploader {
	return &PostgresUploader{db: db, close: func() {}}
}

// Upload implements Uploader. The snapshot column holds the stored blob.
func (u *PostgresUploader) Upload(ctx context.Context, userID string, s stats.State, _ time.Time) error {
	if userID == "" {
		return fmt.Errorf("postgres snapshot: missing user id")
	}
	blob, err := stats.EncodeBlob(s)
	if err != nil {
		return fmt.Errorf("postgres snapshot: %w", err)
	}
	if _, err := u.db.Exec(ctx, insertSnapshot, userID, string(blob)); err != nil {
		return fmt.Errorf("postgres snapshot: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (u *PostgresUploader) Close() {
	u.close()
}
