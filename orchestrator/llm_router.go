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

package orchestrator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	kernelllm "amas/kernel/orchestrator/llm"
)

// LLMRouter handles intelligent routing to multiple LLM providers
type LLMRouter struct {
	providers      map[string]LLMProvider
	weights        map[string]float64
	healthChecker  *HealthChecker
	loadBalancer   *LoadBalancer
	metricsTracker *ProviderMetricsTracker
	registry       *kernelllm.Registry
	mu             sync.RWMutex
}

// LLMProvider interface for different LLM implementations
type LLMProvider interface {
	Name() string
	Query(ctx context.Context, prompt string, options QueryOptions) (*LLMResponse, error)
	IsHealthy() bool
	GetCapabilities() []string
	EstimateCost(tokens int) float64
}

// LLMRouterConfig contains configuration for the router
type LLMRouterConfig struct {
	OpenAIKey       string
	OpenAIModel     string
	AnthropicKey    string
	AnthropicModel  string
	BedrockRegion   string
	BedrockModel    string
	OllamaEndpoint  string
	OllamaModel     string
	GeminiKey       string
	GeminiModel     string
	AzureEndpoint   string
	AzureKey        string
	AzureDeployment string
	LocalEndpoint   string // Deprecated: use OllamaEndpoint
}

// QueryOptions contains options for LLM queries
type QueryOptions struct {
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	Model        string  `json:"model"`
	SystemPrompt string  `json:"system_prompt"`
}

// LLMResponse represents a response from an LLM provider
type LLMResponse struct {
	Content      string                 `json:"content"`
	Model        string                 `json:"model"`
	TokensUsed   int                    `json:"tokens_used"`
	Metadata     map[string]interface{} `json:"metadata"`
	ResponseTime time.Duration          `json:"response_time"`
}

// ProviderStatus represents the current status of a provider
type ProviderStatus struct {
	Name         string    `json:"name"`
	Healthy      bool      `json:"healthy"`
	Weight       float64   `json:"weight"`
	RequestCount int64     `json:"request_count"`
	ErrorCount   int64     `json:"error_count"`
	AvgLatency   float64   `json:"avg_latency_ms"`
	LastUsed     time.Time `json:"last_used"`
}

// providerSpec is one candidate provider NewLLMRouter may register, built from
// LLMRouterConfig. Kept as data so registration, status logging, and weight
// assignment all walk the same list instead of three parallel if-chains.
type providerSpec struct {
	name   string
	cfg    kernelllm.ProviderConfig
	weight float64
}

// NewLLMRouter creates a new LLM router instance. Providers are built through
// the kernel's provider factory/registry (orchestrator/llm) instead of talking
// to vendor APIs directly, so every provider here gets the registry's license
// gating, health tracking, and unified request/response shape for free.
func NewLLMRouter(config LLMRouterConfig) *LLMRouter {
	router := &LLMRouter{
		providers:      make(map[string]LLMProvider),
		weights:        make(map[string]float64),
		healthChecker:  NewHealthChecker(),
		loadBalancer:   NewLoadBalancer(),
		metricsTracker: NewProviderMetricsTracker(),
		registry:       kernelllm.NewRegistry(),
	}

	ctx := context.Background()
	var specs []providerSpec

	if config.OpenAIKey != "" {
		specs = append(specs, providerSpec{
			name: "openai",
			cfg: kernelllm.ProviderConfig{
				Type:    kernelllm.ProviderTypeOpenAI,
				APIKey:  config.OpenAIKey,
				Model:   config.OpenAIModel,
				Enabled: true,
			},
			weight: 0.25,
		})
	}

	if config.AnthropicKey != "" {
		specs = append(specs, providerSpec{
			name: "anthropic",
			cfg: kernelllm.ProviderConfig{
				Type:    kernelllm.ProviderTypeAnthropic,
				APIKey:  config.AnthropicKey,
				Model:   config.AnthropicModel,
				Enabled: true,
			},
			weight: 0.25,
		})
	}

	if config.BedrockRegion != "" {
		model := config.BedrockModel
		if model == "" {
			model = "anthropic.claude-3-5-sonnet-20240620-v1:0"
		}
		specs = append(specs, providerSpec{
			name: "bedrock",
			cfg: kernelllm.ProviderConfig{
				Type:    kernelllm.ProviderTypeBedrock,
				Region:  config.BedrockRegion,
				Model:   model,
				Enabled: true,
			},
			weight: 0.25,
		})
	}

	// Support Ollama endpoint (replaces legacy LocalEndpoint)
	ollamaEndpoint := config.OllamaEndpoint
	if ollamaEndpoint == "" && config.LocalEndpoint != "" {
		ollamaEndpoint = config.LocalEndpoint // Backward compatibility
	}
	if ollamaEndpoint != "" {
		specs = append(specs, providerSpec{
			name: "ollama",
			cfg: kernelllm.ProviderConfig{
				Type:     kernelllm.ProviderTypeOllama,
				Endpoint: ollamaEndpoint,
				Model:    config.OllamaModel,
				Enabled:  true,
			},
			weight: 0.25,
		})
	}

	if config.GeminiKey != "" {
		specs = append(specs, providerSpec{
			name: "gemini",
			cfg: kernelllm.ProviderConfig{
				Type:    kernelllm.ProviderTypeGemini,
				APIKey:  config.GeminiKey,
				Model:   config.GeminiModel,
				Enabled: true,
			},
			weight: 0.25,
		})
	}

	if config.AzureEndpoint != "" && config.AzureKey != "" && config.AzureDeployment != "" {
		specs = append(specs, providerSpec{
			name: "azure-openai",
			cfg: kernelllm.ProviderConfig{
				Type:     kernelllm.ProviderTypeAzureOpenAI,
				Endpoint: config.AzureEndpoint,
				APIKey:   config.AzureKey,
				Model:    config.AzureDeployment,
				Enabled:  true,
			},
			weight: 0.25,
		})
	}

	for _, spec := range specs {
		spec.cfg.Name = spec.name
		if err := router.registry.Register(ctx, &spec.cfg); err != nil {
			log.Printf("[LLMRouter] ERROR: Failed to register %s provider: %v", spec.name, err)
			continue
		}

		provider, err := router.registry.Get(ctx, spec.name)
		if err != nil {
			log.Printf("[LLMRouter] ERROR: Failed to initialize %s provider: %v", spec.name, err)
			continue
		}

		router.providers[spec.name] = newKernelProviderAdapter(provider)
		router.weights[spec.name] = spec.weight
	}

	// Log provider status summary at startup
	router.logProviderStatus(config, specs)

	// Start health checking
	go router.healthCheckRoutine()

	return router
}

// logProviderStatus logs a summary of configured vs available providers at startup
func (r *LLMRouter) logProviderStatus(config LLMRouterConfig, specs []providerSpec) {
	log.Printf("[LLMRouter] ========== LLM Provider Status ==========")

	var configured, available, failed []string
	for _, spec := range specs {
		configured = append(configured, spec.name)
		if _, ok := r.providers[spec.name]; ok {
			available = append(available, spec.name)
		} else {
			failed = append(failed, spec.name)
		}
	}

	log.Printf("[LLMRouter] Configured: %v", configured)
	log.Printf("[LLMRouter] Available:  %v", available)
	if len(failed) > 0 {
		log.Printf("[LLMRouter] FAILED:     %v (check logs above for errors)", failed)
	}

	if len(available) == 0 {
		log.Printf("[LLMRouter] WARNING: No LLM providers available! All requests requiring LLM will fail.")
	}

	log.Printf("[LLMRouter] ==========================================")
}

// RouteRequest routes a request to the appropriate LLM provider
func (r *LLMRouter) RouteRequest(ctx context.Context, req OrchestratorRequest) (*LLMResponse, *ProviderInfo, error) {
	provider, err := r.selectProvider(req)
	if err != nil {
		return nil, nil, fmt.Errorf("provider selection failed: %w", err)
	}

	maxTokens := 1000
	if req.Context != nil {
		if contextMaxTokens, ok := req.Context["max_tokens"].(int); ok && contextMaxTokens > 0 {
			maxTokens = contextMaxTokens
		}
	}

	options := QueryOptions{
		MaxTokens:   maxTokens,
		Temperature: 0.7,
		Model:       r.selectModel(provider.Name(), req),
	}

	prompt := r.buildPrompt(req)

	startTime := time.Now()

	response, err := provider.Query(ctx, prompt, options)
	if err != nil {
		r.metricsTracker.RecordError(provider.Name())

		if fallbackProvider := r.getFallbackProvider(provider.Name()); fallbackProvider != nil {
			log.Printf("Failing over from %s to %s", provider.Name(), fallbackProvider.Name())
			fallbackOptions := options
			fallbackOptions.Model = r.selectModel(fallbackProvider.Name(), req)
			response, err = fallbackProvider.Query(ctx, prompt, fallbackOptions)
			if err != nil {
				return nil, nil, fmt.Errorf("all providers failed: %w", err)
			}
			provider = fallbackProvider
		} else {
			return nil, nil, fmt.Errorf("primary provider failed and no fallback available: %w", err)
		}
	}

	responseTime := time.Since(startTime)
	r.metricsTracker.RecordSuccess(provider.Name(), responseTime)

	cost := provider.EstimateCost(response.TokensUsed)

	providerInfo := &ProviderInfo{
		Provider:       provider.Name(),
		Model:          response.Model,
		ResponseTimeMs: responseTime.Milliseconds(),
		TokensUsed:     response.TokensUsed,
		Cost:           cost,
	}

	return response, providerInfo, nil
}

// selectProvider selects the best provider for a request
func (r *LLMRouter) selectProvider(req OrchestratorRequest) (LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if providerName, exists := req.Context["provider"].(string); exists && providerName != "" {
		if provider, providerExists := r.providers[providerName]; providerExists && provider.IsHealthy() {
			return provider, nil
		}
		log.Printf("Warning: Requested provider '%s' not available, falling back to routing rules", providerName)
	}

	var healthyProviders []string
	for name, provider := range r.providers {
		if provider.IsHealthy() {
			healthyProviders = append(healthyProviders, name)
		}
	}

	if len(healthyProviders) == 0 {
		return nil, fmt.Errorf("no healthy providers available")
	}

	if req.RequestType == "complex_analysis" {
		if provider, exists := r.providers["anthropic"]; exists && provider.IsHealthy() {
			return provider, nil
		}
		if provider, exists := r.providers["openai"]; exists && provider.IsHealthy() {
			return provider, nil
		}
	}

	if req.RequestType == "simple_query" && req.Context["allow_local"] == true {
		if provider, exists := r.providers["ollama"]; exists && provider.IsHealthy() {
			return provider, nil
		}
	}

	selected := r.loadBalancer.SelectProvider(healthyProviders, r.weights)
	return r.providers[selected], nil
}

// selectModel selects the appropriate model for a provider
func (r *LLMRouter) selectModel(providerName string, req OrchestratorRequest) string {
	switch providerName {
	case "openai":
		if req.RequestType == "code_generation" {
			return "gpt-4"
		}
		return "gpt-3.5-turbo"
	case "anthropic":
		if req.RequestType == "complex_analysis" || req.RequestType == "code_generation" {
			return "claude-opus-4-20250514"
		}
		return "claude-3-5-sonnet-20241022"
	case "bedrock", "ollama", "gemini", "azure-openai":
		// Return empty string to use the provider's configured default model.
		return ""
	default:
		return ""
	}
}

// buildPrompt builds the prompt for the LLM
func (r *LLMRouter) buildPrompt(req OrchestratorRequest) string {
	var prompt strings.Builder

	prompt.WriteString("You are an AI assistant helping with agent orchestration and governance.\n\n")
	prompt.WriteString(fmt.Sprintf("User Role: %s\n", req.User.Role))
	prompt.WriteString(fmt.Sprintf("User Permissions: %v\n\n", req.User.Permissions))
	prompt.WriteString("Query: ")
	prompt.WriteString(req.Query)

	return prompt.String()
}

// getFallbackProvider returns a fallback provider
func (r *LLMRouter) getFallbackProvider(failedProvider string) LLMProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, provider := range r.providers {
		if name != failedProvider && provider.IsHealthy() {
			return provider
		}
	}
	return nil
}

// GetProviderStatus returns the status of all providers
func (r *LLMRouter) GetProviderStatus() map[string]ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[string]ProviderStatus)

	for name, provider := range r.providers {
		metrics := r.metricsTracker.GetMetrics(name)
		status[name] = ProviderStatus{
			Name:         name,
			Healthy:      provider.IsHealthy(),
			Weight:       r.weights[name],
			RequestCount: metrics.RequestCount,
			ErrorCount:   metrics.ErrorCount,
			AvgLatency:   metrics.AvgResponseTime,
			LastUsed:     time.Now(),
		}
	}

	return status
}

// UpdateProviderWeights updates the routing weights
func (r *LLMRouter) UpdateProviderWeights(weights map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0.0
	for provider, weight := range weights {
		if _, exists := r.providers[provider]; !exists {
			return fmt.Errorf("unknown provider: %s", provider)
		}
		if weight < 0 || weight > 1 {
			return fmt.Errorf("invalid weight for %s: %f", provider, weight)
		}
		total += weight
	}

	if total > 1.01 || total < 0.99 {
		return fmt.Errorf("weights must sum to 1.0, got %f", total)
	}

	for provider, weight := range weights {
		r.weights[provider] = weight
	}

	return nil
}

// IsHealthy checks if the router has any healthy providers
func (r *LLMRouter) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, provider := range r.providers {
		if provider.IsHealthy() {
			return true
		}
	}
	return false
}

// healthCheckRoutine periodically checks provider health
func (r *LLMRouter) healthCheckRoutine() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		r.mu.RLock()
		providers := make([]LLMProvider, 0, len(r.providers))
		for _, p := range r.providers {
			providers = append(providers, p)
		}
		r.mu.RUnlock()

		for _, p := range providers {
			r.healthChecker.CheckProvider(p)
		}
	}
}

// kernelProviderAdapter adapts a kernelllm.Provider (built by the
// orchestrator/llm factory/registry system) to the legacy LLMProvider
// interface the router and its tests were written against. It delegates
// field conversion to kernelllm.ProviderAdapter rather than duplicating it.
type kernelProviderAdapter struct {
	adapter *kernelllm.ProviderAdapter
}

func newKernelProviderAdapter(p kernelllm.Provider) *kernelProviderAdapter {
	return &kernelProviderAdapter{adapter: kernelllm.NewProviderAdapter(p)}
}

func (a *kernelProviderAdapter) Name() string {
	return a.adapter.Name()
}

func (a *kernelProviderAdapter) Query(ctx context.Context, prompt string, options QueryOptions) (*LLMResponse, error) {
	resp, err := a.adapter.Query(ctx, prompt, kernelllm.LegacyQueryOptions{
		MaxTokens:    options.MaxTokens,
		Temperature:  options.Temperature,
		Model:        options.Model,
		SystemPrompt: options.SystemPrompt,
	})
	if err != nil {
		return nil, err
	}

	return &LLMResponse{
		Content:      resp.Content,
		Model:        resp.Model,
		TokensUsed:   resp.TokensUsed,
		Metadata:     resp.Metadata,
		ResponseTime: resp.ResponseTime,
	}, nil
}

func (a *kernelProviderAdapter) IsHealthy() bool {
	return a.adapter.IsHealthy()
}

func (a *kernelProviderAdapter) GetCapabilities() []string {
	return a.adapter.GetCapabilities()
}

func (a *kernelProviderAdapter) EstimateCost(tokens int) float64 {
	return a.adapter.EstimateCost(tokens)
}

// MockProvider is a stand-in LLMProvider used when a real provider cannot be
// constructed (tests, or a missing API key for a provider that still needs an
// entry in the router for routing-rule coverage).
type MockProvider struct {
	name    string
	healthy bool
	apiKey  string
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Query(ctx context.Context, prompt string, options QueryOptions) (*LLMResponse, error) {
	time.Sleep(100 * time.Millisecond)

	return &LLMResponse{
		Content:      fmt.Sprintf("Mock response from %s for: %s", m.name, prompt),
		Model:        options.Model,
		TokensUsed:   len(prompt) / 4,
		ResponseTime: 100 * time.Millisecond,
	}, nil
}

func (m *MockProvider) IsHealthy() bool {
	return m.healthy
}

func (m *MockProvider) GetCapabilities() []string {
	switch m.name {
	case "openai":
		return []string{"chat", "code", "embeddings"}
	case "anthropic":
		return []string{"chat", "analysis", "long_context"}
	case "ollama":
		return []string{"chat", "basic_queries"}
	default:
		return []string{"chat"}
	}
}

func (m *MockProvider) EstimateCost(tokens int) float64 {
	switch m.name {
	case "openai":
		return float64(tokens) * 0.00002
	case "anthropic":
		return float64(tokens) * 0.00003
	case "ollama":
		return 0
	default:
		return 0
	}
}

// Supporting components

type HealthChecker struct{}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

func (h *HealthChecker) CheckProvider(provider LLMProvider) bool {
	return provider.IsHealthy()
}

type LoadBalancer struct {
	random *rand.Rand
	mu     sync.Mutex
}

func NewLoadBalancer() *LoadBalancer {
	return &LoadBalancer{
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (l *LoadBalancer) SelectProvider(providers []string, weights map[string]float64) string {
	if len(providers) == 0 {
		return ""
	}

	totalWeight := 0.0
	for _, p := range providers {
		totalWeight += weights[p]
	}

	if totalWeight <= 0 {
		return providers[0]
	}

	l.mu.Lock()
	r := l.random.Float64() * totalWeight
	l.mu.Unlock()

	for _, p := range providers {
		r -= weights[p]
		if r <= 0 {
			return p
		}
	}

	return providers[0]
}

type ProviderMetricsTracker struct {
	metrics map[string]*ProviderMetrics
	mu      sync.RWMutex
}

func NewProviderMetricsTracker() *ProviderMetricsTracker {
	return &ProviderMetricsTracker{
		metrics: make(map[string]*ProviderMetrics),
	}
}

func (t *ProviderMetricsTracker) RecordSuccess(provider string, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.metrics[provider]; !exists {
		t.metrics[provider] = &ProviderMetrics{}
	}

	m := t.metrics[provider]
	m.RequestCount++
	if m.RequestCount > 0 {
		totalMs := float64(m.RequestCount-1) * m.AvgResponseTime
		totalMs += float64(latency.Milliseconds())
		m.AvgResponseTime = totalMs / float64(m.RequestCount)
	}
}

func (t *ProviderMetricsTracker) RecordError(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.metrics[provider]; !exists {
		t.metrics[provider] = &ProviderMetrics{}
	}

	t.metrics[provider].ErrorCount++
}

func (t *ProviderMetricsTracker) GetMetrics(provider string) ProviderMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if m, exists := t.metrics[provider]; exists {
		return *m
	}
	return ProviderMetrics{}
}
