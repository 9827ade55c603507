package store

import (
	"context"
	"fmt"

	"github.com/sweeney/habit-tracker/internal/config"
)

// OpenBackend opens the backend selected by d.Store.
func OpenBackend(ctx context.Context, d config.Daemon) (Backend, error) {
	switch d.Store {
	case config.BackendSQLite:
		b, err := OpenSQLite(d.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return b, nil
	case config.BackendRedis:
		b, err := OpenRedis(ctx, d.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		return b, nil
	case config.BackendMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store %q", d.Store)
}
