package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dailyCountPrefix = "pitches:daily:"
	streamEvents     = "getfunded.events"
)

// Event kinds published on the stream.
const (
	EventPitchCreated = "pitch.created"
	EventMessage      = "pitch.message"
	EventVerdict      = "pitch.verdict"
	EventFunded       = "pitch.funded"
)

// OpenRedis parses a redis:// URL. An empty URL disables Redis and returns nil.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Events publishes pitch lifecycle events to a Redis stream. A nil client makes
// every call a no-op so the service runs without Redis.
type Events struct {
	rdb *redis.Client
}

func NewEvents(rdb *redis.Client) *Events {
	return &Events{rdb: rdb}
}

func (e *Events) Publish(ctx context.Context, kind, pitchID string, fields map[string]any) error {
	if e == nil || e.rdb == nil {
		return nil
	}
	values := map[string]any{
		"kind":  kind,
		"pitch": pitchID,
		"time":  time.Now().Unix(),
	}
	for k, v := range fields {
		values[k] = v
	}
	return e.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamEvents,
		MaxLen: 10000,
		Approx: true,
		Values: values,
	}).Err()
}

// Wait blocks until a new event arrives after lastID or block elapses, and
// returns the newest ID seen. Pass "$" to start from the stream tail.
func (e *Events) Wait(ctx context.Context, lastID string, block time.Duration) (string, error) {
	if e == nil || e.rdb == nil {
		t := time.NewTimer(block)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return lastID, ctx.Err()
		case <-t.C:
			return lastID, nil
		}
	}

	streams, err := e.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{streamEvents, lastID},
		Count:   100,
		Block:   block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return lastID, nil
	}
	if err != nil {
		return lastID, err
	}
	for _, s := range streams {
		if n := len(s.Messages); n > 0 {
			lastID = s.Messages[n-1].ID
		}
	}
	return lastID, nil
}

// RedisDailyCounter enforces the daily submission cap with an atomic INCR per
// UTC calendar day.
type RedisDailyCounter struct {
	rdb *redis.Client
}

func NewRedisDailyCounter(rdb *redis.Client) *RedisDailyCounter {
	return &RedisDailyCounter{rdb: rdb}
}

func dailyKey(day time.Time) string {
	return dailyCountPrefix + day.UTC().Format("2006-01-02")
}

func (c *RedisDailyCounter) Acquire(ctx context.Context, day time.Time, limit int) (bool, error) {
	key := dailyKey(day)
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	if incr.Val() > int64(limit) {
		_ = c.rdb.Decr(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

// Release returns a slot taken by Acquire when the submission was not stored.
func (c *RedisDailyCounter) Release(ctx context.Context, day time.Time) error {
	return c.rdb.Decr(ctx, dailyKey(day)).Err()
}

// StoreDailyCounter counts today's stored pitches. Used when Redis is not
// configured; concurrent submissions can overshoot the cap by the number of
// in-flight requests.
type StoreDailyCounter struct {
	store *Store
}

func NewStoreDailyCounter(store *Store) *StoreDailyCounter {
	return &StoreDailyCounter{store: store}
}

func (c *StoreDailyCounter) Acquire(ctx context.Context, day time.Time, limit int) (bool, error) {
	d := day.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	n, err := c.store.CountPitchesSince(ctx, start)
	if err != nil {
		return false, err
	}
	return n < int64(limit), nil
}

func (c *StoreDailyCounter) Release(context.Context, time.Time) error { return nil }
