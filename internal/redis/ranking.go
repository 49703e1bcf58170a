package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/menti-activa/backend/internal/config"
	"github.com/menti-activa/backend/internal/domain"
)

// rankingKey holds the single global ranking sorted set. Members are
// user ids, scores are accumulated totals. PostgreSQL stays
// authoritative; this set is a realtime mirror.
const rankingKey = "menti:ranking"

// RankingCache provides Redis-based ranking operations
type RankingCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRankingCache creates a new Redis ranking cache
func NewRankingCache(cfg *config.RedisConfig, logger *slog.Logger) (*RankingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RankingCache{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *RankingCache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client
func (c *RankingCache) Client() *redis.Client {
	return c.client
}

func member(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// IncrementTotal adds delta to a user's mirrored total and returns the new value
func (c *RankingCache) IncrementTotal(ctx context.Context, userID, delta int64) (int64, error) {
	newTotal, err := c.client.ZIncrBy(ctx, rankingKey, float64(delta), member(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing total: %w", err)
	}
	return int64(newTotal), nil
}

// SetTotal sets a user's mirrored total
func (c *RankingCache) SetTotal(ctx context.Context, userID, total int64) error {
	err := c.client.ZAdd(ctx, rankingKey, redis.Z{
		Score:  float64(total),
		Member: member(userID),
	}).Err()
	if err != nil {
		return fmt.Errorf("setting total: %w", err)
	}
	return nil
}

// GetTotal returns a user's mirrored total. The second result is false
// when the user is not present in the mirror.
func (c *RankingCache) GetTotal(ctx context.Context, userID int64) (int64, bool, error) {
	score, err := c.client.ZScore(ctx, rankingKey, member(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("getting total: %w", err)
	}
	return int64(score), true, nil
}

// GetTopN returns the top N users by total, highest first
func (c *RankingCache) GetTopN(ctx context.Context, n int) ([]domain.RankingEntry, error) {
	if n <= 0 {
		return []domain.RankingEntry{}, nil
	}
	results, err := c.client.ZRevRangeWithScores(ctx, rankingKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	entries := make([]domain.RankingEntry, len(results))
	for i, result := range results {
		userID, _ := strconv.ParseInt(result.Member.(string), 10, 64)
		entries[i] = domain.RankingEntry{
			Rank:   int64(i + 1),
			UserID: userID,
			Total:  int64(result.Score),
		}
	}
	return entries, nil
}

// GetCount returns the number of users in the ranking mirror
func (c *RankingCache) GetCount(ctx context.Context) (int64, error) {
	count, err := c.client.ZCard(ctx, rankingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	return count, nil
}

// BatchSetTotals sets multiple totals using pipelining (used by the sync worker)
func (c *RankingCache) BatchSetTotals(ctx context.Context, totals map[int64]int64) error {
	if len(totals) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for userID, total := range totals {
		pipe.ZAdd(ctx, rankingKey, redis.Z{
			Score:  float64(total),
			Member: member(userID),
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("batch setting totals: %w", err)
	}
	return nil
}

// Reset clears the ranking mirror
func (c *RankingCache) Reset(ctx context.Context) error {
	if err := c.client.Del(ctx, rankingKey).Err(); err != nil {
		return fmt.Errorf("resetting ranking: %w", err)
	}
	return nil
}
