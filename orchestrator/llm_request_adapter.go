// Copyright 2025 AMAS
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"

	"amas/kernel/orchestrator/llm"
)

// LLMRouterInterface is the routing contract PlanningEngine, ResultAggregator,
// WorkflowEngine, and the examples package depend on, rather than the
// concrete LLMRouter type directly. It lets a caller swap in UnifiedRouter
// (via UnifiedRouterWrapper) or a custom router without touching those
// collaborators.
type LLMRouterInterface interface {
	RouteRequest(ctx context.Context, req OrchestratorRequest) (*LLMResponse, *ProviderInfo, error)
	IsHealthy() bool
	GetProviderStatus() map[string]ProviderStatus
	UpdateProviderWeights(weights map[string]float64) error
}

var _ LLMRouterInterface = (*LLMRouter)(nil)

// UnifiedRouterWrapper adapts llm.UnifiedRouter to LLMRouterInterface so it
// can stand in for the legacy LLMRouter anywhere one is expected.
type UnifiedRouterWrapper struct {
	router *llm.UnifiedRouter
}

// NewUnifiedRouterWrapper wraps an existing UnifiedRouter.
func NewUnifiedRouterWrapper(router *llm.UnifiedRouter) *UnifiedRouterWrapper {
	return &UnifiedRouterWrapper{router: router}
}

// RouteRequest implements LLMRouterInterface by translating to and from the
// UnifiedRouter's request/response shapes.
func (w *UnifiedRouterWrapper) RouteRequest(ctx context.Context, req OrchestratorRequest) (*LLMResponse, *ProviderInfo, error) {
	reqCtx := OrchestratorRequestToLLMContext(req)

	legacyResp, legacyInfo, err := w.router.RouteRequest(ctx, reqCtx)
	if err != nil {
		return nil, nil, err
	}

	return LegacyResponseToLLMResponse(legacyResp), LegacyProviderInfoToProviderInfo(legacyInfo), nil
}

func (w *UnifiedRouterWrapper) IsHealthy() bool {
	return w.router.IsHealthy()
}

func (w *UnifiedRouterWrapper) GetProviderStatus() map[string]ProviderStatus {
	return LegacyStatusToProviderStatus(w.router.GetLegacyProviderStatus())
}

func (w *UnifiedRouterWrapper) UpdateProviderWeights(weights map[string]float64) error {
	return w.router.UpdateProviderWeights(weights)
}

// Underlying exposes the wrapped UnifiedRouter for callers that need its
// extended surface (C12 cost tracking, semantic cache, etc.) beyond
// LLMRouterInterface.
func (w *UnifiedRouterWrapper) Underlying() *llm.UnifiedRouter {
	return w.router
}

// OrchestratorRequestToLLMContext builds the RequestContext UnifiedRouter
// expects from an OrchestratorRequest, pulling provider/model/sampling
// overrides out of the free-form Context map when present.
func OrchestratorRequestToLLMContext(req OrchestratorRequest) llm.RequestContext {
	provider := ""
	model := ""
	maxTokens := 0
	temperature := 0.0
	systemPrompt := ""

	if req.Context != nil {
		if p, ok := req.Context["provider"].(string); ok {
			provider = p
		}
		if m, ok := req.Context["model"].(string); ok {
			model = m
		}
		if mt, ok := req.Context["max_tokens"].(int); ok {
			maxTokens = mt
		}
		if mt, ok := req.Context["max_tokens"].(float64); ok {
			maxTokens = int(mt)
		}
		if t, ok := req.Context["temperature"].(float64); ok {
			temperature = t
		}
		if sp, ok := req.Context["system_prompt"].(string); ok {
			systemPrompt = sp
		}
	}

	return llm.RequestContext{
		Query:           req.Query,
		RequestType:     req.RequestType,
		UserRole:        req.User.Role,
		UserPermissions: req.User.Permissions,
		ClientID:        req.Client.ID,
		OrgID:           req.Client.OrgID,
		TenantID:        req.Client.TenantID,
		Provider:        provider,
		Model:           model,
		MaxTokens:       maxTokens,
		Temperature:     temperature,
		SystemPrompt:    systemPrompt,
		AllowLocal:      true,
		Metadata:        req.Context,
	}
}

// LegacyResponseToLLMResponse converts UnifiedRouter's response shape back to
// the orchestrator package's own LLMResponse.
func LegacyResponseToLLMResponse(resp *llm.LegacyLLMResponse) *LLMResponse {
	if resp == nil {
		return nil
	}
	return &LLMResponse{
		Content:      resp.Content,
		Model:        resp.Model,
		TokensUsed:   resp.TokensUsed,
		Metadata:     resp.Metadata,
		ResponseTime: resp.ResponseTime,
	}
}

// LegacyProviderInfoToProviderInfo converts UnifiedRouter's provider info
// shape back to the orchestrator package's own ProviderInfo.
func LegacyProviderInfoToProviderInfo(info *llm.LegacyProviderInfo) *ProviderInfo {
	if info == nil {
		return nil
	}
	return &ProviderInfo{
		Provider:       info.Provider,
		Model:          info.Model,
		ResponseTimeMs: info.ResponseTimeMs,
		TokensUsed:     info.TokensUsed,
		Cost:           info.Cost,
	}
}

// LegacyStatusToProviderStatus converts UnifiedRouter's per-provider status
// map back to the orchestrator package's own ProviderStatus.
func LegacyStatusToProviderStatus(status map[string]llm.LegacyProviderStatus) map[string]ProviderStatus {
	result := make(map[string]ProviderStatus)
	for name, s := range status {
		result[name] = ProviderStatus{
			Name:         s.Name,
			Healthy:      s.Healthy,
			Weight:       s.Weight,
			RequestCount: s.RequestCount,
			ErrorCount:   s.ErrorCount,
			AvgLatency:   s.AvgLatency,
			LastUsed:     s.LastUsed,
		}
	}
	return result
}
