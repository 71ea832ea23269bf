// Copyright 2025 AMAS
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================
// Redis-Backed Distributed Rate Limiting — C3's shared-store mode
// ============================================================
//
// spec.md 4.3 keys the sliding window by (principal, scope); this gateway
// only ever enforces a per-principal RPM bucket, so scope is folded into
// the principal string by the caller (HandleGuard) when a tool- or
// provider-scoped quota is needed. State lives in Redis rather than this
// process so replicas of the gateway share one window.

var redisClient *redis.Client

// RateLimitError is C3's RateLimited decision: the window count was at or
// over limitPerMinute, with RetryAfter computed from the oldest surviving
// timestamp in the window (spec.md 4.3: retry_after = window_start +
// window_size - now).
type RateLimitError struct {
	Principal  string
	Count      int64
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests/minute (limit: %d), retry after %s", e.Count, e.Limit, e.RetryAfter.Round(time.Second))
}

// initRedis initializes the Redis connection pool
func initRedis(redisURL string) error {
	// Parse Redis URL (format: redis://host:port or redis://host:port/db)
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Create Redis client with connection pool
	redisClient = redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	fmt.Printf("✅ Redis connected: %s\n", redisURL)
	return nil
}

// checkRateLimitRedis checks rate limit using Redis with sliding window algorithm
// Returns error if rate limit exceeded, nil if within limit
func checkRateLimitRedis(ctx context.Context, customerID string, limitPerMinute int) error {
	if redisClient == nil {
		// Fallback to in-memory rate limiting if Redis unavailable
		return checkRateLimit(customerID, limitPerMinute)
	}

	now := time.Now()
	key := fmt.Sprintf("ratelimit:%s", customerID)

	// Use Redis pipeline for atomic operations
	pipe := redisClient.Pipeline()

	// Remove timestamps older than 1 minute (sliding window)
	minScore := now.Add(-time.Minute).Unix()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", minScore))

	// Count requests in current window (before this one is admitted)
	pipe.ZCard(ctx, key)

	// Oldest surviving timestamp: what retry_after is computed from if the
	// window is full.
	pipe.ZRangeWithScores(ctx, key, 0, 0)

	// Add current request timestamp
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.Unix()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})

	// Set expiration (cleanup old keys)
	pipe.Expire(ctx, key, 2*time.Minute)

	// Execute pipeline
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		// On Redis error, fail open (allow request) and log
		fmt.Printf("Warning: Redis rate limit check failed for %s: %v (failing open)\n", customerID, err)
		return nil
	}

	// Get count from ZCARD result (index 1); it reflects the window before
	// this request's own ZAdd (index 3) is applied.
	count := cmds[1].(*redis.IntCmd).Val()

	if count > int64(limitPerMinute) {
		retryAfter := time.Minute
		if oldest := cmds[2].(*redis.ZSliceCmd).Val(); len(oldest) > 0 {
			windowStart := time.Unix(int64(oldest[0].Score), 0)
			if d := windowStart.Add(time.Minute).Sub(now); d > 0 {
				retryAfter = d
			}
		}
		return &RateLimitError{Principal: customerID, Count: count + 1, Limit: limitPerMinute, RetryAfter: retryAfter}
	}

	return nil
}

// getRateLimitStatusRedis returns current rate limit status from Redis
func getRateLimitStatusRedis(ctx context.Context, customerID string) (int, time.Time, error) {
	if redisClient == nil {
		count, _, resetTime := getRateLimitStatus(customerID)
		return count, resetTime, nil
	}

	key := fmt.Sprintf("ratelimit:%s", customerID)
	now := time.Now()

	// Count requests in current window
	minScore := now.Add(-time.Minute).Unix()
	count, err := redisClient.ZCount(ctx, key, fmt.Sprintf("%d", minScore), "+inf").Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to get rate limit status: %w", err)
	}

	// Rate limit resets at the start of next minute
	resetTime := now.Truncate(time.Minute).Add(time.Minute)

	return int(count), resetTime, nil
}

// getRateLimitStatsRedis retrieves detailed rate limit statistics for monitoring
func getRateLimitStatsRedis(ctx context.Context, customerID string, duration time.Duration) (*RateLimitStats, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis not initialized")
	}

	key := fmt.Sprintf("ratelimit:%s", customerID)
	now := time.Now()
	startTime := now.Add(-duration)

	// Get all timestamps in the duration window
	timestamps, err := redisClient.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", startTime.Unix()),
		Max: "+inf",
	}).Result()

	if err != nil {
		return nil, fmt.Errorf("failed to get rate limit stats: %w", err)
	}

	return &RateLimitStats{
		CustomerID:   customerID,
		RequestCount: len(timestamps),
		WindowStart:  startTime,
		WindowEnd:    now,
		Duration:     duration,
	}, nil
}

// RateLimitStats represents rate limit statistics
type RateLimitStats struct {
	CustomerID   string
	RequestCount int
	WindowStart  time.Time
	WindowEnd    time.Time
	Duration     time.Duration
}

// flushRateLimitRedis removes all rate limit data for a customer (admin operation)
func flushRateLimitRedis(ctx context.Context, customerID string) error {
	if redisClient == nil {
		return fmt.Errorf("redis not initialized")
	}

	key := fmt.Sprintf("ratelimit:%s", customerID)
	if err := redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to flush rate limit data: %w", err)
	}

	return nil
}

// closeRedis closes the Redis connection (cleanup on shutdown)
func closeRedis() error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}
