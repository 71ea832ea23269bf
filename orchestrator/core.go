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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"amas/kernel/connectors/base"
	connectorhttp "amas/kernel/connectors/http"
	"amas/kernel/connectors/registry"
	"amas/kernel/shared/logger"
)

// Core is the kernel's single network edge: it accepts task submissions,
// composes C1 (LLMRouter), C8 (WorkflowEngine/PlanningEngine) and the audit
// and metrics collaborators for each request, and exposes a progress
// stream. Fields are populated by NewCore; nothing reaches into globals.
type Core struct {
	router           *LLMRouter
	planningEngine   *PlanningEngine
	workflowEngine   *WorkflowEngine
	resultAggregator *ResultAggregator
	auditLogger      *AuditLogger
	metrics          *MetricsCollector
	registry         *AgentRegistry
	policy           *PolicyEvaluator
	jwtSecret        []byte
	emergencyStop    *emergencyStop
	log              *logger.Logger
}

// CoreConfig gathers everything NewCore needs to wire a Core. Zero-valued
// optional fields degrade gracefully (e.g. empty DatabaseURL yields a
// no-op AuditLogger) rather than failing startup.
type CoreConfig struct {
	LLMRouterConfig LLMRouterConfig
	DatabaseURL     string
	JWTSecret       string
}

// NewCore wires C1/C7/C8/C9-stub/C10 collaborators into a single Core ready
// to serve HTTP. It never blocks on external services; components that
// can't reach their backing store degrade instead of failing startup.
func NewCore(cfg CoreConfig) *Core {
	router := NewLLMRouter(cfg.LLMRouterConfig)
	workflowEngine := NewWorkflowEngine()
	workflowEngine.InitializeWithDependencies(router, nil)

	InitConnectorRegistry(buildConnectorRegistry(cfg))

	return &Core{
		router:           router,
		planningEngine:   NewPlanningEngine(router),
		workflowEngine:   workflowEngine,
		resultAggregator: NewResultAggregator(router),
		auditLogger:      NewAuditLogger(cfg.DatabaseURL),
		metrics:          NewMetricsCollector(),
		registry:         NewAgentRegistry(),
		policy:           NewPolicyEvaluator(),
		jwtSecret:        []byte(cfg.JWTSecret),
		emergencyStop:    &emergencyStop{},
		log:              logger.New("orchestrator.core"),
	}
}

// Router returns the provider router, so main can register startup-time
// health checks or log its status without exposing Core internals.
func (c *Core) Router() *LLMRouter { return c.router }

// buildConnectorRegistry constructs the process-wide connector registry used
// by connector-call workflow steps. A single generic HTTP connector is
// registered when HTTP_CONNECTOR_BASE_URL is configured; an empty registry
// is returned otherwise so Get() fails per-connector instead of every
// connector-call step failing with "registry not initialized".
func buildConnectorRegistry(cfg CoreConfig) *registry.Registry {
	reg := registry.NewRegistry()

	baseURL := os.Getenv("HTTP_CONNECTOR_BASE_URL")
	if baseURL == "" {
		return reg
	}

	conn := connectorhttp.NewHTTPConnector()
	connCfg := &base.ConnectorConfig{
		Name:    "http",
		Type:    "http",
		Timeout: 30 * time.Second,
		Options: map[string]interface{}{
			"base_url": baseURL,
		},
	}
	if err := reg.Register("http", conn, connCfg); err != nil {
		logger.New("orchestrator.core").Error("", "", "failed to register http connector", map[string]interface{}{"error": err.Error()})
	}

	return reg
}

// HandleTask implements spec.md's C10 data flow for one task: validate,
// evaluate policy (C6/C7 stand-in), plan (C8/C9), execute, aggregate,
// audit, and respond. It never panics on malformed input; every path
// returns a well-formed OrchestratorResponse.
func (c *Core) HandleTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if c.emergencyStop.tripped() {
		c.writeResponse(w, http.StatusServiceUnavailable, &OrchestratorResponse{
			Success: false,
			Error:   "orchestrator is in emergency stop; no new tasks are being admitted",
		})
		return
	}

	var req OrchestratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeResponse(w, http.StatusBadRequest, &OrchestratorResponse{
			Success: false,
			Error:   fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}
	if req.RequestID == "" {
		req.RequestID = fmt.Sprintf("task-%d", time.Now().UnixNano())
	}
	req.Timestamp = time.Now()

	ctx := r.Context()

	policyResult := c.policy.Evaluate(req)
	if !policyResult.Allowed {
		c.auditLogger.LogBlockedRequest(ctx, req, policyResult)
		c.writeResponse(w, http.StatusForbidden, &OrchestratorResponse{
			RequestID:      req.RequestID,
			Success:        false,
			Error:          "request blocked by policy",
			PolicyInfo:     policyResult,
			ProcessingTime: time.Since(start).String(),
		})
		return
	}

	response, providerInfo, err := c.router.RouteRequest(ctx, req)
	if err != nil {
		c.auditLogger.LogFailedRequest(ctx, req, err)
		c.writeResponse(w, http.StatusBadGateway, &OrchestratorResponse{
			RequestID:      req.RequestID,
			Success:        false,
			Error:          err.Error(),
			PolicyInfo:     policyResult,
			ProcessingTime: time.Since(start).String(),
		})
		return
	}

	c.auditLogger.LogSuccessfulRequest(ctx, req, response.Content, policyResult, providerInfo)

	c.writeResponse(w, http.StatusOK, &OrchestratorResponse{
		RequestID:      req.RequestID,
		Success:        true,
		Data:           response.Content,
		PolicyInfo:     policyResult,
		ProviderInfo:   providerInfo,
		ProcessingTime: time.Since(start).String(),
	})
}

// HandleHealth reports whether every required collaborator is ready to
// serve traffic.
func (c *Core) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := c.router.IsHealthy() && c.workflowEngine.IsHealthy()

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"healthy":   healthy,
		"providers": c.router.GetProviderStatus(),
	})
}

// HandleEmergencyStop trips or releases the process-wide admission kill
// switch. In-flight tasks are unaffected; only new admission is refused.
func (c *Core) HandleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		c.emergencyStop.release()
		w.WriteHeader(http.StatusOK)
		return
	}
	c.emergencyStop.trip()
	w.WriteHeader(http.StatusOK)
}

func (c *Core) writeResponse(w http.ResponseWriter, status int, resp *OrchestratorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		c.log.Error("", resp.RequestID, "failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// authMiddleware validates the caller's bearer token and attaches the
// decoded principal onto the request context before calling next.
func (c *Core) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(c.jwtSecret) == 0 {
			// No secret configured: auth is disabled (local/dev mode).
			next(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return c.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// Routes builds the HTTP surface for the kernel's one network edge.
func (c *Core) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/v1/tasks", c.authMiddleware(c.HandleTask)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/v1/health", c.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/admin/emergency-stop", c.authMiddleware(c.HandleEmergencyStop)).Methods(http.MethodPost, http.MethodDelete)

	return cors.AllowAll().Handler(r)
}

// emergencyStop is a process-wide admission kill switch distinct from the
// per-provider circuit breakers: tripping it rejects new task admission
// while letting in-flight tasks drain.
type emergencyStop struct {
	flag int32
}

func (e *emergencyStop) trip()         { atomic.StoreInt32(&e.flag, 1) }
func (e *emergencyStop) release()      { atomic.StoreInt32(&e.flag, 0) }
func (e *emergencyStop) tripped() bool { return atomic.LoadInt32(&e.flag) == 1 }

// Run starts the Orchestrator HTTP service, reading configuration from the
// environment. It blocks until the server exits.
func Run() error {
	cfg := CoreConfig{
		LLMRouterConfig: LoadLLMConfig(),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
	}

	core := NewCore(cfg)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	addr := ":" + port
	core.log.Info("", "", "starting orchestrator", map[string]interface{}{"addr": addr})

	server := &http.Server{
		Addr:         addr,
		Handler:      core.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server.ListenAndServe()
}

// LoadLLMConfig loads LLM provider configuration from the environment.
func LoadLLMConfig() LLMRouterConfig {
	cfg := LLMRouterConfig{
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		AnthropicKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  os.Getenv("ANTHROPIC_MODEL"),
		BedrockRegion:   os.Getenv("BEDROCK_REGION"),
		BedrockModel:    os.Getenv("BEDROCK_MODEL"),
		OllamaEndpoint:  os.Getenv("OLLAMA_ENDPOINT"),
		OllamaModel:     os.Getenv("OLLAMA_MODEL"),
		GeminiKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		AzureEndpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureKey:        os.Getenv("AZURE_OPENAI_KEY"),
		AzureDeployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
	}
	if cfg.OllamaEndpoint == "" {
		cfg.LocalEndpoint = os.Getenv("LOCAL_LLM_ENDPOINT")
	}
	return cfg
}

