package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/platform/redis"
)

type CacheService struct {
	redisClient *redis.Client
}

func NewCacheService(redisClient *redis.Client) *CacheService {
	return &CacheService{
		redisClient: redisClient,
	}
}

// Get получает значение из кэша
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.redisClient.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

// Set сохраняет значение в кэш
func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.redisClient.Set(ctx, key, string(data), ttl).Err()
}

// StatsKey builds the cache key for a giveaway's participant statistics.
func StatsKey(giveawayID int64) string {
	return fmt.Sprintf("giveaway_stats:%d", giveawayID)
}

// ParticipantCountKey builds the cache key for the live participant count
// shown on history pages.
func ParticipantCountKey(giveawayID int64) string {
	return fmt.Sprintf("giveaway_participant_count:%d", giveawayID)
}

// InvalidateGiveawayCache инвалидирует кэш гива
func (c *CacheService) InvalidateGiveawayCache(ctx context.Context, giveawayID int64) error {
	keys := []string{
		StatsKey(giveawayID),
		ParticipantCountKey(giveawayID),
	}
	return c.redisClient.Del(ctx, keys...).Err()
}
