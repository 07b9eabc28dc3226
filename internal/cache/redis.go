// Package cache keeps computed load series in Redis so repeated dashboard
// queries for the same student and window don't recompute against the store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campus-pulse/load-engine/internal/models"
)

// LoadCache stores computed DailyLoad series with a TTL
type LoadCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a LoadCache over an existing Redis client
func New(client *redis.Client, ttl time.Duration) *LoadCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &LoadCache{
		client: client,
		ttl:    ttl,
	}
}

// GetSeries returns a cached series for the (student, start, days) key.
// A miss or an unreadable entry returns ok=false; cache errors are logged,
// never surfaced, since the caller can always recompute.
func (c *LoadCache) GetSeries(ctx context.Context, studentID string, start time.Time, days int) ([]models.DailyLoad, bool) {
	data, err := c.client.Get(ctx, seriesKey(studentID, start, days)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("load cache read failed", "student", studentID, "error", err)
		}
		return nil, false
	}

	var series []models.DailyLoad
	if err := json.Unmarshal(data, &series); err != nil {
		slog.Warn("load cache entry corrupt", "student", studentID, "error", err)
		return nil, false
	}

	return series, true
}

// SetSeries caches a computed series
func (c *LoadCache) SetSeries(ctx context.Context, studentID string, start time.Time, days int, series []models.DailyLoad) {
	data, err := json.Marshal(series)
	if err != nil {
		slog.Warn("load cache marshal failed", "student", studentID, "error", err)
		return
	}

	if err := c.client.Set(ctx, seriesKey(studentID, start, days), data, c.ttl).Err(); err != nil {
		slog.Warn("load cache write failed", "student", studentID, "error", err)
	}
}

// InvalidateStudents drops every cached series for the given students.
// Called after deadline mutations so stale scores don't outlive a change.
func (c *LoadCache) InvalidateStudents(ctx context.Context, studentIDs ...string) error {
	var deleted int

	for _, id := range studentIDs {
		pattern := fmt.Sprintf("load:%s:*", id)
		var cursor uint64

		for {
			keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return fmt.Errorf("failed to scan cache keys: %w", err)
			}

			if len(keys) > 0 {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					slog.Warn("failed to delete some cache keys", "error", err)
				}
				deleted += len(keys)
			}

			cursor = nextCursor
			if cursor == 0 {
				break
			}
		}
	}

	if deleted > 0 {
		slog.Debug("load cache invalidated", "students", len(studentIDs), "keys_deleted", deleted)
	}

	return nil
}

// Ping verifies Redis connectivity
func (c *LoadCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func seriesKey(studentID string, start time.Time, days int) string {
	return fmt.Sprintf("load:%s:%s:%d", studentID, start.UTC().Format("2006-01-02"), days)
}
