package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/grandstand-travel/backoffice/internal/models"
)

const statsKeyPrefix = "booking_stats:"

// NewRedisClient parses a redis:// URL and verifies connectivity
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// RedisStatsCache keeps per-team booking stats in redis.
// Redis failures degrade to cache misses.
type RedisStatsCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisStatsCache creates a new RedisStatsCache
func NewRedisStatsCache(client redis.Cmdable, ttl time.Duration, logger *logrus.Logger) *RedisStatsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisStatsCache{client: client, ttl: ttl, logger: logger}
}

func statsKey(teamID string) string {
	return statsKeyPrefix + teamID
}

func (c *RedisStatsCache) Get(ctx context.Context, teamID string) (*models.BookingStats, bool) {
	raw, err := c.client.Get(ctx, statsKey(teamID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("team_id", teamID).Warn("Stats cache read failed")
		}
		return nil, false
	}

	var stats models.BookingStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.WithError(err).WithField("team_id", teamID).Warn("Discarding corrupt stats cache entry")
		return nil, false
	}
	return &stats, true
}

func (c *RedisStatsCache) Set(ctx context.Context, teamID string, stats *models.BookingStats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statsKey(teamID), raw, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("team_id", teamID).Warn("Stats cache write failed")
	}
}

func (c *RedisStatsCache) Invalidate(ctx context.Context, teamID string) {
	if err := c.client.Del(context.WithoutCancel(ctx), statsKey(teamID)).Err(); err != nil {
		c.logger.WithError(err).WithField("team_id", teamID).Warn("Stats cache invalidation failed")
	}
}

// NoopStatsCache is used when REDIS_URL is not configured
type NoopStatsCache struct{}

func (NoopStatsCache) Get(ctx context.Context, teamID string) (*models.BookingStats, bool) {
	return nil, false
}

func (NoopStatsCache) Set(ctx context.Context, teamID string, stats *models.BookingStats) {}

func (NoopStatsCache) Invalidate(ctx context.Context, teamID string) {}
