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

import "time"

// OrchestratorRequest is the normalized shape every inbound request is
// converted to before it reaches policy evaluation, planning, or the LLM
// router. RequestID ties logs, audit entries, and provider info together.
type OrchestratorRequest struct {
	RequestID   string                 `json:"request_id"`
	Query       string                 `json:"query"`
	RequestType string                 `json:"request_type"`
	SkipLLM     bool                   `json:"skip_llm,omitempty"`
	User        UserContext            `json:"user"`
	Client      ClientContext          `json:"client"`
	Context     map[string]interface{} `json:"context"`
	Timestamp   time.Time              `json:"timestamp"`
}

// UserContext carries the identity and authorization facts a request
// executes under. Role and Permissions drive policy evaluation; TenantID
// scopes storage and audit lookups.
type UserContext struct {
	ID          int      `json:"id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	TenantID    string   `json:"tenant_id"`
}

// ClientContext identifies the calling application/integration, distinct
// from the human or service account acting through it.
type ClientContext struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	OrgID    string `json:"org_id"`
	TenantID string `json:"tenant_id"`
}

// ProviderInfo describes which LLM provider actually served a request, for
// audit trails and cost tracking.
type ProviderInfo struct {
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	ResponseTimeMs int64   `json:"response_time_ms"`
	TokensUsed     int     `json:"tokens_used,omitempty"`
	Cost           float64 `json:"cost,omitempty"`
}

// RedactionInfo records what, if anything, was redacted from a response
// before it reached the caller. Set on the request context by a
// collaborator that inspects response content; absent when nothing was
// redacted.
type RedactionInfo struct {
	HasRedactions  bool     `json:"has_redactions"`
	RedactedFields []string `json:"redacted_fields"`
	RedactionCount int      `json:"redaction_count"`
}

// PolicyEvaluationResult is C7/C6's verdict on a request: whether it's
// allowed to proceed, which policies/contracts applied, and a coarse risk
// score used for audit and alerting.
type PolicyEvaluationResult struct {
	Allowed          bool     `json:"allowed"`
	AppliedPolicies  []string `json:"applied_policies"`
	RiskScore        float64  `json:"risk_score"`
	RequiredActions  []string `json:"required_actions"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	DatabaseAccessed bool     `json:"database_accessed,omitempty"`
}

// OrchestratorResponse is the HTTP-facing result of handling one
// OrchestratorRequest end to end.
type OrchestratorResponse struct {
	RequestID      string                  `json:"request_id"`
	Success        bool                    `json:"success"`
	Data           interface{}             `json:"data,omitempty"`
	Error          string                  `json:"error,omitempty"`
	Redacted       bool                    `json:"redacted"`
	RedactedFields []string                `json:"redacted_fields,omitempty"`
	PolicyInfo     *PolicyEvaluationResult `json:"policy_info"`
	ProviderInfo   *ProviderInfo           `json:"provider_info,omitempty"`
	ProcessingTime string                  `json:"processing_time"`
}
