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

package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"amas/kernel/shared/logger"
)

// Gateway is the sub-10ms policy enforcement front door a tool call passes
// through ahead of the orchestrator's contract validation and routing: it
// runs the static policy engine (spec.md C6 steps 1-3), checks the rate
// bucket (C3), and creates or resolves HITL approvals (C6 step 5).
type Gateway struct {
	statics    *StaticPolicyEngine
	hitl       *HITLBridge
	defaultRPM int
	log        *logger.Logger
}

// GuardRequest is one tool-call admission check.
type GuardRequest struct {
	Principal   string   `json:"principal"`
	Statement   string   `json:"statement"`
	Permissions []string `json:"permissions"`
	RateLimit   int      `json:"rate_limit_per_minute,omitempty"`
}

// GuardResponse reports the combined static-policy and rate-limit verdict.
type GuardResponse struct {
	Allowed         bool                `json:"allowed"`
	Reason          string              `json:"reason,omitempty"`
	PolicyResult    *StaticPolicyResult `json:"policy_result"`
	RateLimited     bool                `json:"rate_limited"`
	RetryAfterMs    int64               `json:"retry_after_ms,omitempty"`
}

// NewGateway wires a Gateway from its collaborators. hitlService may be nil,
// in which case approvals auto-resolve via NoOpHITLService (community mode).
func NewGateway(hitlService HITLService, defaultRPM int) *Gateway {
	if hitlService == nil {
		hitlService = &NoOpHITLService{}
	}
	return &Gateway{
		statics:    NewStaticPolicyEngine(),
		hitl:       NewHITLBridge(hitlService),
		defaultRPM: defaultRPM,
		log:        logger.New("agent.gateway"),
	}
}

func hasPermission(permissions []string, permission string) bool {
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// HandleGuard runs the static policy and rate-limit checks for one tool
// call and reports whether it may proceed.
func (g *Gateway) HandleGuard(w http.ResponseWriter, r *http.Request) {
	var req GuardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Principal == "" {
		http.Error(w, "principal is required", http.StatusBadRequest)
		return
	}

	policyResult := g.statics.EvaluateStatement(req.Statement, hasPermission(req.Permissions, "admin"))

	resp := GuardResponse{PolicyResult: policyResult}
	if policyResult.Blocked {
		resp.Allowed = false
		resp.Reason = policyResult.Reason
		g.writeJSON(w, http.StatusOK, resp)
		return
	}

	limit := req.RateLimit
	if limit <= 0 {
		limit = g.defaultRPM
	}
	if err := checkRateLimitRedis(r.Context(), req.Principal, limit); err != nil {
		resp.Allowed = false
		resp.RateLimited = true
		resp.Reason = err.Error()
		var rle *RateLimitError
		if errors.As(err, &rle) {
			resp.RetryAfterMs = rle.RetryAfter.Milliseconds()
		}
		g.writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Allowed = true
	g.writeJSON(w, http.StatusOK, resp)
}

// HandleRateLimitStatus reports the current window count for a principal.
func (g *Gateway) HandleRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	principal := mux.Vars(r)["principal"]
	count, resetTime, err := getRateLimitStatusRedis(r.Context(), principal)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]interface{}{
		"principal":  principal,
		"count":      count,
		"reset_time": resetTime,
	})
}

// CreateApprovalRequest is the request body for HandleCreateApproval.
type CreateApprovalRequest struct {
	OrgID               string `json:"org_id"`
	TenantID            string `json:"tenant_id"`
	ClientID            string `json:"client_id"`
	UserID              string `json:"user_id"`
	Query               string `json:"query"`
	RequestType         string `json:"request_type"`
	PolicyID            string `json:"policy_id"`
	PolicyName          string `json:"policy_name"`
	TriggerReason       string `json:"trigger_reason"`
	Severity            string `json:"severity"`
	ComplianceFramework string `json:"compliance_framework,omitempty"`
	ComplianceArticle   string `json:"compliance_article,omitempty"`
}

// HandleCreateApproval creates a PendingApproval for a tool call flagged by
// the caller as requiring human sign-off (spec.md §4.6 step 5).
func (g *Gateway) HandleCreateApproval(w http.ResponseWriter, r *http.Request) {
	var req CreateApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	approval, err := g.hitl.CreateApprovalFromPolicy(
		r.Context(),
		req.OrgID, req.TenantID, req.ClientID, req.UserID,
		req.Query, req.RequestType,
		req.PolicyID, req.PolicyName, req.TriggerReason, req.Severity,
		req.ComplianceFramework, req.ComplianceArticle,
	)
	if err != nil {
		g.log.Error(req.ClientID, "", "failed to create approval request", map[string]interface{}{"error": err.Error()})
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	g.writeJSON(w, http.StatusCreated, approval)
}

// HandleApprovalStatus reports the current status of a PendingApproval.
func (g *Gateway) HandleApprovalStatus(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid approval id", http.StatusBadRequest)
		return
	}

	status, err := g.hitl.GetApprovalStatus(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]interface{}{"approval_id": id, "status": status})
}

// HandleHealth reports the gateway's loaded policy counts.
func (g *Gateway) HandleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]interface{}{
		"healthy": true,
		"policies": g.statics.GetPolicyStats(),
	})
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.log.Error("", "", "failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// Routes builds the gateway's HTTP surface.
func (g *Gateway) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/v1/guard", g.HandleGuard).Methods(http.MethodPost)
	r.HandleFunc("/v1/ratelimit/{principal}", g.HandleRateLimitStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/approvals", g.HandleCreateApproval).Methods(http.MethodPost)
	r.HandleFunc("/v1/approvals/{id}", g.HandleApprovalStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/health", g.HandleHealth).Methods(http.MethodGet)
	return r
}

// Run starts the Agent policy-enforcement gateway, reading configuration
// from the environment. It blocks until the server exits.
func Run() error {
	log := logger.New("agent")

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		if err := initRedis(redisURL); err != nil {
			log.Error("", "", "redis unavailable, falling back to in-memory rate limiting", map[string]interface{}{"error": err.Error()})
		}
	}
	defer closeRedis()

	defaultRPM := 600
	if v := os.Getenv("DEFAULT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			defaultRPM = parsed
		}
	}

	gateway := NewGateway(nil, defaultRPM)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	addr := ":" + port
	log.Info("", "", "starting agent gateway", map[string]interface{}{"addr": addr})

	server := &http.Server{
		Addr:         addr,
		Handler:      gateway.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
