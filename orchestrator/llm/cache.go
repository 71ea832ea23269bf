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
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pgvector/pgvector-go"
)

// CacheEntry is a generic TTL-bearing cache record, the same shape the
// connector config cache uses (connectors/config/cache.go:CacheEntry).
type CacheEntry[T any] struct {
	Value      T
	ExpiresAt  time.Time
	LastUpdate time.Time
}

func (e *CacheEntry[T]) IsExpired() bool { return time.Now().After(e.ExpiresAt) }

// CacheResult is what a cache lookup returns: the cached completion plus
// whether it was an exact, semantic, or negative (known-failure) hit.
type CacheResult struct {
	Response *CompletionResponse
	Hit      CacheHitKind
	Score    float64 // cosine similarity, only meaningful for HitSemantic
}

type CacheHitKind string

const (
	HitNone     CacheHitKind = "none"
	HitExact    CacheHitKind = "exact"
	HitSemantic CacheHitKind = "semantic"
	HitNegative CacheHitKind = "negative"
)

// ResponseCache is C4: a three-layer cache in front of the router —
// exact (fingerprint hash), semantic (embedding cosine similarity, scoped
// per agent), and negative (short-TTL known-failure markers).
type ResponseCache struct {
	redis *redis.Client
	db    *sql.DB // nil disables the semantic layer

	semanticThreshold float64
	exactTTL          time.Duration
	negativeTTL       time.Duration
}

// CacheOption configures a ResponseCache.
type CacheOption func(*ResponseCache)

func WithSemanticThreshold(threshold float64) CacheOption {
	return func(c *ResponseCache) { c.semanticThreshold = threshold }
}

func WithExactTTL(ttl time.Duration) CacheOption {
	return func(c *ResponseCache) { c.exactTTL = ttl }
}

func WithNegativeTTL(ttl time.Duration) CacheOption {
	return func(c *ResponseCache) { c.negativeTTL = ttl }
}

// NewResponseCache creates a cache. db may be nil to run exact+negative
// layers only (no semantic matching without a vector store).
func NewResponseCache(client *redis.Client, db *sql.DB, opts ...CacheOption) *ResponseCache {
	c := &ResponseCache{
		redis:             client,
		db:                db,
		semanticThreshold: 0.95,
		exactTTL:          1 * time.Hour,
		negativeTTL:       30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fingerprint computes the exact-match cache key for a request scoped to
// agentID: a stable hash over the fields that must match byte-for-byte.
func Fingerprint(agentID string, req CompletionRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d|%.4f|%.4f", agentID, req.Model, req.SystemPrompt, req.Prompt, req.MaxTokens, req.Temperature, req.TopP)
	return hex.EncodeToString(h.Sum(nil))
}

func exactKey(fp string) string    { return "cache:exact:" + fp }
func negativeKey(fp string) string { return "cache:negative:" + fp }

// Lookup checks the exact then negative layers; callers that want semantic
// matching call LookupSemantic separately since it needs an embedding.
func (c *ResponseCache) Lookup(ctx context.Context, agentID string, req CompletionRequest) (CacheResult, error) {
	if c.redis == nil {
		return CacheResult{Hit: HitNone}, nil
	}

	fp := Fingerprint(agentID, req)

	if raw, err := c.redis.Get(ctx, exactKey(fp)).Result(); err == nil {
		var resp CompletionResponse
		if jsonErr := json.Unmarshal([]byte(raw), &resp); jsonErr == nil {
			return CacheResult{Response: &resp, Hit: HitExact, Score: 1.0}, nil
		}
	} else if err != redis.Nil {
		return CacheResult{Hit: HitNone}, err
	}

	if _, err := c.redis.Get(ctx, negativeKey(fp)).Result(); err == nil {
		return CacheResult{Hit: HitNegative}, nil
	} else if err != redis.Nil {
		return CacheResult{Hit: HitNone}, err
	}

	return CacheResult{Hit: HitNone}, nil
}

// LookupSemantic searches the per-agent pgvector partition for the closest
// embedding within the similarity threshold. embedding must be the same
// dimensionality the table was created with. Returns Hit == HitNone on a
// miss (including when the semantic layer is disabled).
func (c *ResponseCache) LookupSemantic(ctx context.Context, agentID string, embedding []float32) (CacheResult, error) {
	if c.db == nil {
		return CacheResult{Hit: HitNone}, nil
	}

	vec := pgvector.NewVector(embedding)

	// Cosine distance operator <=>; similarity = 1 - distance. The agent_id
	// predicate is the enforced partition boundary: a semantic hit never
	// crosses agents even if two agents' prompts embed identically.
	const q = `
		SELECT response_json, 1 - (embedding <=> $1) AS similarity
		FROM semantic_cache
		WHERE agent_id = $2
		ORDER BY embedding <=> $1
		LIMIT 1`

	var responseJSON string
	var similarity float64
	err := c.db.QueryRowContext(ctx, q, vec, agentID).Scan(&responseJSON, &similarity)
	if err == sql.ErrNoRows {
		return CacheResult{Hit: HitNone}, nil
	}
	if err != nil {
		return CacheResult{Hit: HitNone}, err
	}

	if similarity < c.semanticThreshold {
		return CacheResult{Hit: HitNone}, nil
	}

	var resp CompletionResponse
	if err := json.Unmarshal([]byte(responseJSON), &resp); err != nil {
		return CacheResult{Hit: HitNone}, err
	}

	return CacheResult{Response: &resp, Hit: HitSemantic, Score: similarity}, nil
}

// StoreExact writes a successful completion to the exact-match layer.
func (c *ResponseCache) StoreExact(ctx context.Context, agentID string, req CompletionRequest, resp *CompletionResponse) error {
	if c.redis == nil {
		return nil
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, exactKey(Fingerprint(agentID, req)), raw, c.exactTTL).Err()
}

// StoreSemantic writes a successful completion plus its embedding into the
// agent's partition of the semantic cache table.
func (c *ResponseCache) StoreSemantic(ctx context.Context, agentID string, embedding []float32, resp *CompletionResponse) error {
	if c.db == nil {
		return nil
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	vec := pgvector.NewVector(embedding)
	const q = `INSERT INTO semantic_cache (agent_id, embedding, response_json, created_at) VALUES ($1, $2, $3, $4)`
	_, err = c.db.ExecContext(ctx, q, agentID, vec, string(raw), time.Now())
	return err
}

// StoreNegative marks a request fingerprint as a known recent failure so
// repeated callers fail fast instead of re-attempting the full fallback
// chain within the negative TTL window.
func (c *ResponseCache) StoreNegative(ctx context.Context, agentID string, req CompletionRequest) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Set(ctx, negativeKey(Fingerprint(agentID, req)), "1", c.negativeTTL).Err()
}

// Invalidate removes the exact and negative entries for a request; used
// when an agent's contract or a provider's model changes underneath a
// cached response.
func (c *ResponseCache) Invalidate(ctx context.Context, agentID string, req CompletionRequest) error {
	if c.redis == nil {
		return nil
	}
	fp := Fingerprint(agentID, req)
	return c.redis.Del(ctx, exactKey(fp), negativeKey(fp)).Err()
}
