package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sweeney/habit-tracker/internal/stats"
)

// maxRedisEvents caps the notification list kept per key.
const maxRedisEvents = 500

// redisClient is the subset of *goredis.Client the backend uses.
type redisClient interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	LPush(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *goredis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *goredis.StringSliceCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd
	Close() error
}

// swapScript sets KEYS[1] to ARGV[2] only while it still holds ARGV[1]; an
// empty ARGV[1] means the key must be absent. Returns 1 on success.
const swapScript = `
local cur = redis.call('GET', KEYS[1])
if ARGV[1] == '' then
	if cur then return 0 end
elseif cur ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2])
return 1
`

// Redis is a Backend over a Redis server. The blob lives at the storage key
// and notifications in a list at "<key>:events".
type Redis struct {
	rdb redisClient
}

// OpenRedis connects to addr and verifies the connection.
func OpenRedis(ctx context.Context, addr string) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

func newRedis(rdb redisClient) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (r *Redis) Swap(ctx context.Context, key string, old, value []byte) error {
	ok, err := r.rdb.Eval(ctx, swapScript, []string{key}, string(old), string(value)).Int()
	if err != nil {
		return fmt.Errorf("redis swap: %w", err)
	}
	if ok != 1 {
		return ErrConflict
	}
	return nil
}

func (r *Redis) AppendEvent(ctx context.Context, key string, ev stats.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	listKey := eventsKey(key)
	if err := r.rdb.LPush(ctx, listKey, raw).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	if err := r.rdb.LTrim(ctx, listKey, 0, maxRedisEvents-1).Err(); err != nil {
		return fmt.Errorf("redis ltrim: %w", err)
	}
	return nil
}

func (r *Redis) RecentEvents(ctx context.Context, key string, limit int) ([]stats.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	vals, err := r.rdb.LRange(ctx, eventsKey(key), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	events := make([]stats.Event, 0, len(vals))
	for _, v := range vals {
		var ev stats.Event
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func eventsKey(key string) string {
	return key + ":events"
}
