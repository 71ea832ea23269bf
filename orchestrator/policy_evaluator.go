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

// PolicyEvaluator is Core's request-admission gate: a coarse check that
// runs before a task is handed to the provider router. It is deliberately
// simple — per-tool contract and rate-limit enforcement live in C6/C7, not
// here; this only decides whether the request is allowed to reach them.
type PolicyEvaluator struct {
	blockedRoles map[string]bool
}

// NewPolicyEvaluator builds an evaluator with the default blocked-role set.
func NewPolicyEvaluator() *PolicyEvaluator {
	return &PolicyEvaluator{
		blockedRoles: map[string]bool{
			"suspended": true,
			"banned":    true,
		},
	}
}

// Evaluate decides whether req may proceed. A missing TenantID or a blocked
// role denies the request outright; everything else is allowed with a risk
// score derived from how much of the request is unauthenticated.
func (p *PolicyEvaluator) Evaluate(req OrchestratorRequest) *PolicyEvaluationResult {
	start := time.Now()

	result := &PolicyEvaluationResult{
		Allowed:         true,
		AppliedPolicies: []string{"role-check", "tenant-check"},
	}

	if p.blockedRoles[req.User.Role] {
		result.Allowed = false
		result.RequiredActions = append(result.RequiredActions, "contact_administrator")
		result.RiskScore = 1.0
	}

	if req.User.TenantID == "" {
		result.Allowed = false
		result.RequiredActions = append(result.RequiredActions, "attach_tenant_context")
		result.RiskScore = 1.0
	}

	if result.Allowed && len(req.User.Permissions) == 0 {
		result.RiskScore = 0.5
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result
}
