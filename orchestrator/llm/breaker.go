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
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"amas/kernel/kernel"
	"amas/kernel/shared/logger"
)

// BreakerState mirrors gobreaker's three states under the kernel's own
// vocabulary, so callers never need to import gobreaker directly.
type BreakerState string

const (
	BreakerClosed   BreakerState = "Closed"
	BreakerOpen     BreakerState = "Open"
	BreakerHalfOpen BreakerState = "HalfOpen"
)

func fromGobreakerState(s gobreaker.State) BreakerState {
	switch s {
	case gobreaker.StateOpen:
		return BreakerOpen
	case gobreaker.StateHalfOpen:
		return BreakerHalfOpen
	default:
		return BreakerClosed
	}
}

// BreakerConfig tunes a single provider's breaker. ConsecutiveFailures and
// ErrorRateThreshold are both evaluated by gobreaker's ReadyToTrip hook;
// either crossing its threshold opens the breaker.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	ErrorRateThreshold  float64 // fraction of requests, e.g. 0.5
	MinRequestsForRate  uint32  // requests observed in the rolling window before ErrorRateThreshold applies
	OpenTimeout         time.Duration
	HalfOpenMaxRequests uint32
}

// DefaultBreakerConfig matches spec.md's suggested defaults: 5 consecutive
// failures or a 50% error rate over at least 10 requests opens the breaker
// for 30s before probing with a single half-open request.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		ErrorRateThreshold:  0.5,
		MinRequestsForRate:  10,
		OpenTimeout:         30 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// ProviderHealth is the mirrored-to-Redis snapshot of one provider's
// breaker state (SPEC_FULL.md "Provider health persistence mirroring").
type ProviderHealth struct {
	Provider            string       `json:"provider"`
	BreakerState        BreakerState `json:"breaker_state"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	LastSuccessAt       time.Time    `json:"last_success_at"`
	LastFailureAt       time.Time    `json:"last_failure_at"`
	RollingErrorRate    float64      `json:"rolling_error_rate"`
	OpenedAt            time.Time    `json:"opened_at,omitempty"`
	RateLimitedUntil    time.Time    `json:"rate_limited_until,omitempty"`
}

// BreakerSet owns one gobreaker.CircuitBreaker per provider (C2 Circuit
// Breaker Set), keyed by provider name. New providers get a breaker lazily
// on first use so the set never needs a startup enumeration step.
type BreakerSet struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
	health   map[string]*ProviderHealth
	cfg      BreakerConfig
	mirror   HealthMirror
	log      *logger.Logger
}

// HealthMirror persists ProviderHealth transitions to the shared fast
// store so a restarted replica does not re-probe a provider the rest of
// the fleet already marked Open. A nil HealthMirror (the default) makes
// mirroring a no-op, which is sufficient for single-process deployments.
type HealthMirror interface {
	SaveHealth(provider string, h ProviderHealth) error
}

// NewBreakerSet creates a breaker set. A nil mirror disables cross-replica
// health mirroring.
func NewBreakerSet(cfg BreakerConfig, mirror HealthMirror) *BreakerSet {
	return &BreakerSet{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		health:   make(map[string]*ProviderHealth),
		cfg:      cfg,
		mirror:   mirror,
		log:      logger.New("llm.breaker"),
	}
}

func (s *BreakerSet) getOrCreate(provider string) *gobreaker.CircuitBreaker {
	s.mu.RLock()
	b, ok := s.breakers[provider]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[provider]; ok {
		return b
	}

	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: s.cfg.HalfOpenMaxRequests,
		Timeout:     s.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= s.cfg.ConsecutiveFailures {
				return true
			}
			if counts.Requests >= s.cfg.MinRequestsForRate {
				rate := float64(counts.TotalFailures) / float64(counts.Requests)
				return rate >= s.cfg.ErrorRateThreshold
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.recordTransition(name, fromGobreakerState(to))
		},
	}

	b = gobreaker.NewCircuitBreaker(settings)
	s.breakers[provider] = b
	s.health[provider] = &ProviderHealth{Provider: provider, BreakerState: BreakerClosed}
	return b
}

func (s *BreakerSet) recordTransition(provider string, to BreakerState) {
	s.mu.Lock()
	h, ok := s.health[provider]
	if !ok {
		h = &ProviderHealth{Provider: provider}
		s.health[provider] = h
	}
	h.BreakerState = to
	if to == BreakerOpen {
		h.OpenedAt = time.Now()
	}
	snapshot := *h
	s.mu.Unlock()

	s.log.Info("", "", "breaker state transition", map[string]any{"provider": provider, "state": string(to)})
	if s.mirror != nil {
		if err := s.mirror.SaveHealth(provider, snapshot); err != nil {
			s.log.Error("", "", "failed to mirror provider health", map[string]any{"provider": provider, "error": err.Error()})
		}
	}
}

// Allow reports whether a call to provider should be attempted right now,
// returning kernel.NewProviderTransient-classified skip reason via the
// returned bool. Callers that get false should record a skipped_breaker_open
// Attempt and move to the next provider in the fallback chain.
func (s *BreakerSet) Allow(provider string) bool {
	b := s.getOrCreate(provider)
	return b.State() != gobreaker.StateOpen
}

// State returns the current BreakerState for provider.
func (s *BreakerSet) State(provider string) BreakerState {
	b := s.getOrCreate(provider)
	return fromGobreakerState(b.State())
}

// Execute runs fn through provider's breaker, translating gobreaker's
// open-circuit rejection into kernel.NewNoProviderAvailable-shaped skip
// semantics at the call site (the router decides what to do with a
// breaker-open skip; Execute itself just enforces the breaker).
func (s *BreakerSet) Execute(provider string, fn func() (*CompletionResponse, error)) (*CompletionResponse, error) {
	b := s.getOrCreate(provider)

	result, err := b.Execute(func() (any, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		return resp, nil
	})

	s.mu.Lock()
	h, ok := s.health[provider]
	if !ok {
		h = &ProviderHealth{Provider: provider}
		s.health[provider] = h
	}
	if err != nil {
		h.ConsecutiveFailures++
		h.LastFailureAt = time.Now()
	} else {
		h.ConsecutiveFailures = 0
		h.LastSuccessAt = time.Now()
	}
	h.BreakerState = fromGobreakerState(b.State())
	s.mu.Unlock()

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, kernel.NewProviderTransient(provider, "breaker open")
		}
		return nil, err
	}
	return result.(*CompletionResponse), nil
}

// Health returns a copy of the current ProviderHealth for provider, or a
// zero-value Closed record if no breaker has been created for it yet.
func (s *BreakerSet) Health(provider string) ProviderHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.health[provider]; ok {
		return *h
	}
	return ProviderHealth{Provider: provider, BreakerState: BreakerClosed}
}

// AllHealth returns a snapshot of every provider's health the set has
// observed so far, keyed by provider name.
func (s *BreakerSet) AllHealth() map[string]ProviderHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ProviderHealth, len(s.health))
	for k, v := range s.health {
		out[k] = *v
	}
	return out
}
