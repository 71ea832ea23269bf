// Copyright 2025 AMAS
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"amas/kernel/kernel"
)

// RateLimiter enforces a sliding-window quota keyed by (principal, scope) —
// generalized from the donor's single-dimension customer-ID keying so the
// same limiter serves both provider-scoped calls ("principal, provider
// name") and tool-scoped calls ("principal, tool name").
//
// A nil *redis.Client falls back to an in-memory sliding window, declared
// for single-process deployments; the shared-store (Redis) mode is used
// whenever orchestrator replicas must share one quota.
type RateLimiter struct {
	redis *redis.Client

	mu     sync.Mutex
	memory map[string][]time.Time // scope key -> request timestamps, in-memory mode only
}

// NewRateLimiter creates a rate limiter. Pass a non-nil client for
// shared-store mode; pass nil for single-process in-memory mode.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:  client,
		memory: make(map[string][]time.Time),
	}
}

func scopeKey(principal, scope string) string {
	return fmt.Sprintf("ratelimit:%s:%s", principal, scope)
}

// Allow checks and records one request against policy's sliding window for
// (principal, scope). Returns kernel.NewRateLimited when the window's
// count already meets or exceeds policy.Limit.
func (rl *RateLimiter) Allow(ctx context.Context, principal, scope string, policy kernel.RatePolicy) error {
	if policy.Limit <= 0 {
		return nil // unlimited
	}
	if rl.redis != nil {
		return rl.allowRedis(ctx, principal, scope, policy)
	}
	return rl.allowMemory(principal, scope, policy)
}

func (rl *RateLimiter) allowRedis(ctx context.Context, principal, scope string, policy kernel.RatePolicy) error {
	key := scopeKey(principal, scope)
	now := time.Now()

	pipe := rl.redis.Pipeline()
	minScore := now.Add(-policy.Window).UnixNano()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", minScore))
	card := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(now.UnixNano()), Member: fmt.Sprintf("%d", now.UnixNano())})
	pipe.Expire(ctx, key, policy.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open on store unavailability rather than blocking every call.
		return nil
	}

	count := card.Val()
	if count >= int64(policy.Limit) {
		return kernel.NewRateLimited(scope, policy.Window)
	}
	return nil
}

func (rl *RateLimiter) allowMemory(principal, scope string, policy kernel.RatePolicy) error {
	key := scopeKey(principal, scope)
	now := time.Now()
	cutoff := now.Add(-policy.Window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	kept := rl.memory[key][:0]
	for _, t := range rl.memory[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= policy.Limit {
		rl.memory[key] = kept
		return kernel.NewRateLimited(scope, policy.Window)
	}

	rl.memory[key] = append(kept, now)
	return nil
}

// Status returns the current request count within policy's window for
// (principal, scope), without recording a new request.
func (rl *RateLimiter) Status(ctx context.Context, principal, scope string, window time.Duration) (int, error) {
	key := scopeKey(principal, scope)
	now := time.Now()

	if rl.redis != nil {
		minScore := now.Add(-window).UnixNano()
		count, err := rl.redis.ZCount(ctx, key, fmt.Sprintf("%d", minScore), "+inf").Result()
		if err != nil {
			return 0, err
		}
		return int(count), nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := now.Add(-window)
	n := 0
	for _, t := range rl.memory[key] {
		if t.After(cutoff) {
			n++
		}
	}
	return n, nil
}

// Reset clears all recorded requests for (principal, scope); used by admin
// operations and tests.
func (rl *RateLimiter) Reset(ctx context.Context, principal, scope string) error {
	key := scopeKey(principal, scope)
	if rl.redis != nil {
		return rl.redis.Del(ctx, key).Err()
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.memory, key)
	return nil
}
