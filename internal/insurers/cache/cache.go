// Package cache is a read-through Redis cache for the line-of-business
// catalog. A cache failure is never fatal; reads fall through to the
// store and the failure is logged.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"polledger/internal/insurers/metrics"
	"polledger/internal/insurers/models"
	"polledger/internal/platform/redis"
)

const catalogKey = "polledger:lines:catalog"

// Source loads the catalog when the cache misses.
type Source interface {
	ListLines(ctx context.Context) ([]models.LineOfBusiness, error)
}

// Catalog serves the lines catalog from Redis with TTL fallback to the
// store. A nil client disables caching entirely.
type Catalog struct {
	client  *redis.Client
	source  Source
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewCatalog(client *redis.Client, source Source, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Catalog {
	return &Catalog{client: client, source: source, ttl: ttl, logger: logger, metrics: m}
}

// Lines returns the catalog, served from cache when possible.
func (c *Catalog) Lines(ctx context.Context) ([]models.LineOfBusiness, error) {
	if c.client == nil {
		return c.source.ListLines(ctx)
	}

	raw, err := c.client.Get(ctx, catalogKey).Bytes()
	if err == nil {
		var lines []models.LineOfBusiness
		if err := json.Unmarshal(raw, &lines); err == nil {
			c.metrics.IncrementCache("hit")
			return lines, nil
		}
		// Corrupt entry: drop it and reload.
		c.client.Del(ctx, catalogKey)
	} else if !errors.Is(err, goredis.Nil) {
		c.logger.Warn("lines cache read failed", "error", err)
	}
	c.metrics.IncrementCache("miss")

	lines, err := c.source.ListLines(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(lines); err == nil {
		if err := c.client.Set(ctx, catalogKey, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("lines cache write failed", "error", err)
		}
	}
	return lines, nil
}

// Invalidate drops the cached catalog, forcing the next read to reload.
func (c *Catalog) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, catalogKey).Err(); err != nil {
		c.logger.Warn("lines cache invalidation failed", "error", err)
	}
}
