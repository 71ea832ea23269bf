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
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"amas/kernel/kernel"
	"amas/kernel/shared/logger"
)

// Strategy is one of the five provider-selection algorithms spec.md names
// for C1. Distinct from the legacy weighted/round-robin/failover
// RoutingStrategy above (routing_strategy.go), which the donor platform's
// ProviderSelector still serves for its own weighted-random callers;
// Strategy is the vocabulary the governance kernel's callers use.
type Strategy string

const (
	// StrategyPriorityOrder tries providers in ascending ProviderConfig.Priority
	// order (0 = most preferred), breaking ties by health then rolling latency.
	StrategyPriorityOrder Strategy = "priority_order"

	// StrategyFastest tries the provider with the lowest rolling average
	// latency first.
	StrategyFastest Strategy = "fastest"

	// StrategyCostOptimized tries the provider with the lowest EstimateCost
	// for this specific request first.
	StrategyCostOptimized Strategy = "cost_optimized"

	// StrategyRoundRobin cycles through enabled, healthy providers evenly.
	StrategyRoundRobin Strategy = "round_robin"

	// StrategyCapabilityMatch restricts the candidate set to providers
	// advertising RequiredCapability, then falls back to priority order
	// among the matches.
	StrategyCapabilityMatch Strategy = "capability_match"
)

// InvokeRequest is the full C1 invocation contract: what to ask, which
// agent and principal it is asked on behalf of, and how to pick a provider.
type InvokeRequest struct {
	AgentID            string
	Principal          string
	Request            CompletionRequest
	Strategy           Strategy
	RequiredCapability Capability // only consulted for StrategyCapabilityMatch
	DedupKey           string     // empty disables C5 for this call
	SkipCache          bool
	RatePolicy         kernel.RatePolicy // empty (Limit==0) disables C3 for this call
}

// InvokeResult is what Invoke returns on success, including the full
// attempt log even when the first candidate succeeded (a one-entry log).
type InvokeResult struct {
	Response *CompletionResponse
	Provider string
	Attempts []kernel.Attempt
	CacheHit CacheHitKind
}

// Invoker is C1 wired end to end: C5 dedup wraps C4 cache wraps C3 rate
// limit wraps C2 breaker wraps provider selection and invocation, in that
// nesting order, matching spec.md's data-flow description (dedup collapses
// identical concurrent calls before any of them touch the cache; a cache
// hit never consumes rate-limit quota or trips a breaker; a rate-limit
// denial never reaches a provider).
type Invoker struct {
	registry *Registry
	breakers *BreakerSet
	limiter  *RateLimiter
	cache    *ResponseCache
	dedup    *Deduplicator
	log      *logger.Logger

	roundRobinIdx uint64
}

// InvokerOption configures an Invoker at construction.
type InvokerOption func(*Invoker)

func WithBreakers(b *BreakerSet) InvokerOption   { return func(i *Invoker) { i.breakers = b } }
func WithRateLimiter(r *RateLimiter) InvokerOption { return func(i *Invoker) { i.limiter = r } }
func WithResponseCache(c *ResponseCache) InvokerOption { return func(i *Invoker) { i.cache = c } }
func WithDeduplicator(d *Deduplicator) InvokerOption { return func(i *Invoker) { i.dedup = d } }

// NewInvoker creates the C1 pipeline wrapper over an existing Registry.
// Any of the pipeline stages can be nil, in which case that stage is
// skipped entirely (useful for tests that only want to exercise routing).
func NewInvoker(registry *Registry, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		registry: registry,
		breakers: NewBreakerSet(DefaultBreakerConfig(), nil),
		log:      logger.New("llm.invoke"),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke runs the full C1-C5 pipeline for one request.
func (inv *Invoker) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	if inv.dedup != nil && req.DedupKey != "" {
		var shared *InvokeResult
		resp, err, _ := inv.dedup.Do(ctx, req.DedupKey, func(dctx context.Context) (*CompletionResponse, error) {
			result, err := inv.invokeCached(dctx, req)
			if err != nil {
				return nil, err
			}
			shared = result
			return result.Response, nil
		})
		if err != nil {
			return nil, err
		}
		if shared != nil {
			return shared, nil
		}
		// This caller arrived after the shared call's fn already returned
		// and reset `shared` out of scope (a later concurrent Do for the
		// same key) — reconstruct a minimal result from the shared response.
		return &InvokeResult{Response: resp, CacheHit: HitNone}, nil
	}

	return inv.invokeCached(ctx, req)
}

func (inv *Invoker) invokeCached(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	if inv.cache != nil && !req.SkipCache {
		cached, err := inv.cache.Lookup(ctx, req.AgentID, req.Request)
		if err == nil {
			switch cached.Hit {
			case HitExact, HitSemantic:
				return &InvokeResult{Response: cached.Response, CacheHit: cached.Hit}, nil
			case HitNegative:
				return nil, kernel.NewNoProviderAvailable(nil)
			}
		}
	}

	if inv.limiter != nil && req.RatePolicy.Limit > 0 {
		if err := inv.limiter.Allow(ctx, req.Principal, "llm:"+req.AgentID, req.RatePolicy); err != nil {
			return nil, err
		}
	}

	result, err := inv.route(ctx, req)
	if err != nil {
		if inv.cache != nil && !req.SkipCache {
			_ = inv.cache.StoreNegative(ctx, req.AgentID, req.Request)
		}
		return nil, err
	}

	if inv.cache != nil && !req.SkipCache {
		_ = inv.cache.StoreExact(ctx, req.AgentID, req.Request, result.Response)
	}

	return result, nil
}

// route walks the strategy-ordered candidate list, skipping providers
// whose breaker is open, until one returns a validated response or the
// list is exhausted.
func (inv *Invoker) route(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	candidates, err := inv.candidates(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, kernel.NewNoProviderAvailable(nil)
	}

	var attempts []kernel.Attempt

	for _, name := range candidates {
		select {
		case <-ctx.Done():
			return nil, kernel.NewCancelled(ctx.Err().Error())
		default:
		}

		if !inv.breakers.Allow(name) {
			attempts = append(attempts, kernel.Attempt{Provider: name, Outcome: "skipped_breaker_open", At: time.Now()})
			continue
		}

		provider, err := inv.registry.Get(ctx, name)
		if err != nil {
			attempts = append(attempts, kernel.Attempt{Provider: name, Outcome: "skipped_unavailable", At: time.Now()})
			continue
		}

		start := time.Now()
		resp, err := inv.breakers.Execute(name, func() (*CompletionResponse, error) {
			return provider.Complete(ctx, req.Request)
		})
		latency := time.Since(start)

		if err != nil {
			outcome := classifyOutcome(err)
			attempts = append(attempts, kernel.Attempt{Provider: name, Outcome: outcome, LatencyMs: latency.Milliseconds(), At: time.Now()})
			inv.log.Warn("", req.Principal, "provider call failed", map[string]any{"provider": name, "outcome": outcome})
			if outcome == string(kernel.ProviderErrAuth) {
				inv.registry.PermanentlyDisable(name, "401/403 from provider")
			}
			continue
		}

		if valErr := validateResponse(resp); valErr != nil {
			attempts = append(attempts, kernel.Attempt{Provider: name, Outcome: "MalformedResponse", LatencyMs: latency.Milliseconds(), At: time.Now()})
			inv.log.Warn("", req.Principal, "provider response failed bulletproof validation", map[string]any{"provider": name, "reason": valErr.Error()})
			continue
		}

		attempts = append(attempts, kernel.Attempt{Provider: name, Outcome: "ok", LatencyMs: latency.Milliseconds(), At: time.Now()})
		return &InvokeResult{Response: resp, Provider: name, Attempts: attempts}, nil
	}

	return nil, &kernel.Error{Kind: kernel.KindNoProviderAvailable, Message: "no provider available", Fields: map[string]any{"attempts": attempts}}
}

// candidates returns the enabled provider names ordered per req.Strategy.
func (inv *Invoker) candidates(ctx context.Context, req InvokeRequest) ([]string, error) {
	names := inv.registry.ListEnabled()
	if req.Strategy == StrategyCapabilityMatch && req.RequiredCapability != "" {
		names = inv.filterByCapability(ctx, names, req.RequiredCapability)
	}
	if len(names) == 0 {
		return nil, nil
	}

	switch req.Strategy {
	case StrategyPriorityOrder, StrategyCapabilityMatch, "":
		return inv.orderByPriority(names), nil
	case StrategyFastest:
		return inv.orderByLatency(names), nil
	case StrategyCostOptimized:
		return inv.orderByCost(ctx, names, req.Request), nil
	case StrategyRoundRobin:
		return inv.orderRoundRobin(names), nil
	default:
		return inv.orderByPriority(names), nil
	}
}

func (inv *Invoker) filterByCapability(ctx context.Context, names []string, cap Capability) []string {
	var out []string
	for _, name := range names {
		p, err := inv.registry.Get(ctx, name)
		if err != nil {
			continue
		}
		for _, c := range p.Capabilities() {
			if c == cap {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func (inv *Invoker) orderByPriority(names []string) []string {
	type ranked struct {
		name     string
		priority int
		healthy  bool
	}
	ranks := make([]ranked, 0, len(names))
	for _, name := range names {
		cfg, err := inv.registry.GetConfig(name)
		priority := 0
		if err == nil {
			priority = cfg.Priority
		}
		health := inv.registry.GetHealthResult(name)
		healthy := health == nil || health.Status == HealthStatusHealthy || health.Status == HealthStatusUnknown
		ranks = append(ranks, ranked{name: name, priority: priority, healthy: healthy})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].healthy != ranks[j].healthy {
			return ranks[i].healthy // healthy sorts first
		}
		return ranks[i].priority < ranks[j].priority
	})
	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.name
	}
	return out
}

func (inv *Invoker) orderByLatency(names []string) []string {
	type ranked struct {
		name    string
		latency time.Duration
	}
	ranks := make([]ranked, 0, len(names))
	for _, name := range names {
		h := inv.registry.GetHealthResult(name)
		lat := time.Hour // unknown providers sort last
		if h != nil {
			lat = h.Latency
		}
		ranks = append(ranks, ranked{name: name, latency: lat})
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].latency < ranks[j].latency })
	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.name
	}
	return out
}

func (inv *Invoker) orderByCost(ctx context.Context, names []string, req CompletionRequest) []string {
	type ranked struct {
		name string
		cost float64
	}
	ranks := make([]ranked, 0, len(names))
	for _, name := range names {
		p, err := inv.registry.Get(ctx, name)
		cost := -1.0
		if err == nil {
			if est := p.EstimateCost(req); est != nil {
				cost = est.TotalEstimate
			}
		}
		ranks = append(ranks, ranked{name: name, cost: cost})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		// Unknown cost (-1) sorts after every known cost, never first.
		if ranks[i].cost < 0 {
			return false
		}
		if ranks[j].cost < 0 {
			return true
		}
		return ranks[i].cost < ranks[j].cost
	})
	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.name
	}
	return out
}

func (inv *Invoker) orderRoundRobin(names []string) []string {
	if len(names) == 0 {
		return names
	}
	idx := int(atomic.AddUint64(&inv.roundRobinIdx, 1)-1) % len(names)
	return append(append([]string{}, names[idx:]...), names[:idx]...)
}

// validateResponse is the "bulletproof check" spec.md requires before a
// response is treated as a success: non-empty content, a sane minimum
// length, and rejection of provider template-echo artifacts that indicate
// a misconfigured adapter rather than a real completion.
func validateResponse(resp *CompletionResponse) error {
	if resp == nil {
		return errors.New("nil response")
	}
	trimmed := strings.TrimSpace(resp.Content)
	if trimmed == "" {
		return errors.New("empty content")
	}
	if len(trimmed) < 1 {
		return errors.New("content below minimum length")
	}
	for _, marker := range templateFingerprints {
		if strings.Contains(trimmed, marker) {
			return errors.New("content contains unresolved template marker")
		}
	}
	return nil
}

// templateFingerprints are substrings that only ever appear when an
// adapter failed to substitute its wire-format template, never in a real
// model completion.
var templateFingerprints = []string{"{{", "}}", "<|placeholder|>"}

// classifyOutcome maps a provider error to the kernel's Attempt outcome
// vocabulary, preferring the new provider-adapter typed error and falling
// back to the donor's original llm.ProviderError code scheme.
func classifyOutcome(err error) string {
	var kerr *kernel.ProviderError
	if errors.As(err, &kerr) {
		return string(kerr.Kind)
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		switch perr.Code {
		case ErrCodeAuth:
			return string(kernel.ProviderErrAuth)
		case ErrCodeRateLimit:
			return string(kernel.ProviderErrRate)
		case ErrCodeServerError:
			return string(kernel.ProviderErrServer)
		case ErrCodeTimeout:
			return string(kernel.ProviderErrTimeout)
		case ErrCodeUnavailable:
			return string(kernel.ProviderErrNetwork)
		default:
			return string(kernel.ProviderErrMalformedResponse)
		}
	}

	var kernelErr *kernel.Error
	if errors.As(err, &kernelErr) && kernelErr.Kind == kernel.KindProviderTransient {
		return "skipped_breaker_open"
	}

	return string(kernel.ProviderErrNetwork)
}
