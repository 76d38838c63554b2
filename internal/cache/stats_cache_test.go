package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/grandstand-travel/backoffice/internal/models"
)

func TestNoopStatsCache(t *testing.T) {
	var c NoopStatsCache
	ctx := context.Background()

	c.Set(ctx, "team-1", &models.BookingStats{Total: 3})
	stats, ok := c.Get(ctx, "team-1")
	assert.False(t, ok)
	assert.Nil(t, stats)
	c.Invalidate(ctx, "team-1")
}

func TestRedisStatsCache_UnreachableServerIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	logger, hook := test.NewNullLogger()
	c := NewRedisStatsCache(client, time.Minute, logger)
	ctx := context.Background()

	c.Set(ctx, "team-1", &models.BookingStats{Total: 3})
	stats, ok := c.Get(ctx, "team-1")
	assert.False(t, ok)
	assert.Nil(t, stats)
	c.Invalidate(ctx, "team-1")

	assert.Len(t, hook.AllEntries(), 3)
	for _, entry := range hook.AllEntries() {
		assert.Equal(t, logrus.WarnLevel, entry.Level)
		assert.Equal(t, "team-1", entry.Data["team_id"])
	}
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid REDIS_URL")
}

func TestStatsKey(t *testing.T) {
	assert.Equal(t, "booking_stats:abc", statsKey("abc"))
}

func TestNewRedisStatsCache_DefaultTTL(t *testing.T) {
	c := NewRedisStatsCache(nil, 0, logrus.New())
	assert.Equal(t, time.Minute, c.ttl)
}
