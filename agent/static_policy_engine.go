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
	"fmt"
	"regexp"
	"strings"
	"time"
)

// StaticPolicyEngine is the first, fastest stage of the tool-call guard:
// rule-based checks that run without any external lookup, ahead of contract
// and rate-limit checks. It screens a tool's statement/parameters for
// dangerous patterns and a calling principal's permissions for restricted
// resource access.
type StaticPolicyEngine struct {
	dangerousStatementPatterns []*PolicyPattern
	restrictedResourcePatterns []*PolicyPattern
	piiPatterns                []*PolicyPattern
}

// PolicyPattern is one named, independently toggleable rule.
type PolicyPattern struct {
	ID          string
	Name        string
	Pattern     *regexp.Regexp
	PatternStr  string
	Severity    string // "low", "medium", "high", "critical"
	Description string
	Enabled     bool
}

// StaticPolicyResult is the outcome of one EvaluateStatement call.
type StaticPolicyResult struct {
	Blocked           bool
	Reason            string
	TriggeredPolicies []string
	ChecksPerformed   []string
	ProcessingTimeMs  int64
	Severity          string
}

// NewStaticPolicyEngine builds an engine with the default rule set.
func NewStaticPolicyEngine() *StaticPolicyEngine {
	engine := &StaticPolicyEngine{}
	engine.loadDefaultPolicies()
	return engine
}

// EvaluateStatement screens a tool call's statement/parameters and the
// calling principal's permissions ahead of contract validation (C7) and
// rate-limit admission (C3). hasAdmin reports whether the principal holds
// the "admin" permission, which exempts it from restricted-resource checks.
func (spe *StaticPolicyEngine) EvaluateStatement(statement string, hasAdmin bool) *StaticPolicyResult {
	start := time.Now()

	result := &StaticPolicyResult{
		Blocked:           false,
		TriggeredPolicies: []string{},
		ChecksPerformed:   []string{},
	}

	lower := strings.ToLower(strings.TrimSpace(statement))

	if pattern := spe.checkPatterns(lower, spe.dangerousStatementPatterns); pattern != nil {
		result.Blocked = true
		result.Reason = fmt.Sprintf("dangerous statement detected: %s", pattern.Description)
		result.TriggeredPolicies = append(result.TriggeredPolicies, pattern.ID)
		result.Severity = pattern.Severity
		result.ChecksPerformed = append(result.ChecksPerformed, "dangerous_statement")
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result
	}
	result.ChecksPerformed = append(result.ChecksPerformed, "dangerous_statement")

	if !hasAdmin {
		if pattern := spe.checkPatterns(lower, spe.restrictedResourcePatterns); pattern != nil {
			result.Blocked = true
			result.Reason = fmt.Sprintf("restricted resource access: %s", pattern.Description)
			result.TriggeredPolicies = append(result.TriggeredPolicies, pattern.ID)
			result.Severity = pattern.Severity
			result.ChecksPerformed = append(result.ChecksPerformed, "restricted_resource")
			result.ProcessingTimeMs = time.Since(start).Milliseconds()
			return result
		}
	}
	result.ChecksPerformed = append(result.ChecksPerformed, "restricted_resource")

	if strings.TrimSpace(statement) == "" {
		result.Blocked = true
		result.Reason = "empty statement not allowed"
		result.Severity = "low"
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result
	}
	result.ChecksPerformed = append(result.ChecksPerformed, "basic_validation")

	// PII never blocks here; it's surfaced so the caller can route the
	// request through redaction (the orchestrator's response path), not
	// the guard's job to redact.
	if pattern := spe.checkPatterns(statement, spe.piiPatterns); pattern != nil {
		result.TriggeredPolicies = append(result.TriggeredPolicies, pattern.ID)
	}
	result.ChecksPerformed = append(result.ChecksPerformed, "pii_detection")

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result
}

func (spe *StaticPolicyEngine) checkPatterns(statement string, patterns []*PolicyPattern) *PolicyPattern {
	for _, pattern := range patterns {
		if !pattern.Enabled {
			continue
		}
		if pattern.Pattern.MatchString(statement) {
			return pattern
		}
	}
	return nil
}

// GetPolicyStats reports how many rules are loaded, for a health/status
// endpoint.
func (spe *StaticPolicyEngine) GetPolicyStats() map[string]interface{} {
	return map[string]interface{}{
		"dangerous_statement_patterns": len(spe.dangerousStatementPatterns),
		"restricted_resource_patterns": len(spe.restrictedResourcePatterns),
		"pii_patterns":                 len(spe.piiPatterns),
		"total_patterns":               len(spe.dangerousStatementPatterns) + len(spe.restrictedResourcePatterns) + len(spe.piiPatterns),
	}
}

func (spe *StaticPolicyEngine) loadDefaultPolicies() {
	spe.dangerousStatementPatterns = []*PolicyPattern{
		{
			ID:          "sql_injection_union",
			Name:        "SQL Injection - UNION Attack",
			Pattern:     regexp.MustCompile(`union\s+select`),
			PatternStr:  `union\s+select`,
			Severity:    "critical",
			Description: "UNION-based SQL injection attempt",
			Enabled:     true,
		},
		{
			ID:          "sql_injection_comment",
			Name:        "SQL Injection - Comment Bypass",
			Pattern:     regexp.MustCompile(`--|\*/|/\*`),
			PatternStr:  `--|\*/|/\*`,
			Severity:    "critical",
			Description: "SQL comment injection attempt",
			Enabled:     true,
		},
		{
			ID:          "drop_prevention",
			Name:        "DROP Prevention",
			Pattern:     regexp.MustCompile(`drop\s+(table|database)`),
			PatternStr:  `drop\s+(table|database)`,
			Severity:    "critical",
			Description: "DROP operations are not allowed through a tool call",
			Enabled:     true,
		},
		{
			ID:          "truncate_prevention",
			Name:        "TRUNCATE Prevention",
			Pattern:     regexp.MustCompile(`truncate\s+table`),
			PatternStr:  `truncate\s+table`,
			Severity:    "critical",
			Description: "TRUNCATE operations are not allowed through a tool call",
			Enabled:     true,
		},
		{
			ID:          "path_traversal",
			Name:        "Path Traversal",
			Pattern:     regexp.MustCompile(`\.\./|\.\.\\`),
			PatternStr:  `\.\./|\.\.\\`,
			Severity:    "high",
			Description: "path traversal sequence detected in a path-style tool parameter",
			Enabled:     true,
		},
		{
			ID:          "grant_revoke_prevention",
			Name:        "GRANT/REVOKE Prevention",
			Pattern:     regexp.MustCompile(`(grant|revoke)\s`),
			PatternStr:  `(grant|revoke)\s`,
			Severity:    "high",
			Description: "permission changes are not allowed through a tool call",
			Enabled:     true,
		},
	}

	spe.restrictedResourcePatterns = []*PolicyPattern{
		{
			ID:          "users_table_access",
			Name:        "Users Table Access",
			Pattern:     regexp.MustCompile(`\busers\b`),
			PatternStr:  `\busers\b`,
			Severity:    "high",
			Description: "access to the users table requires the admin capability",
			Enabled:     true,
		},
		{
			ID:          "audit_log_access",
			Name:        "Audit Log Access",
			Pattern:     regexp.MustCompile(`audit_log`),
			PatternStr:  `audit_log`,
			Severity:    "high",
			Description: "access to audit logs requires the admin capability",
			Enabled:     true,
		},
		{
			ID:          "system_config_access",
			Name:        "System Configuration Access",
			Pattern:     regexp.MustCompile(`config_|admin_|system_`),
			PatternStr:  `config_|admin_|system_`,
			Severity:    "high",
			Description: "access to system configuration requires the admin capability",
			Enabled:     true,
		},
		{
			ID:          "information_schema_access",
			Name:        "Information Schema Access",
			Pattern:     regexp.MustCompile(`information_schema|pg_catalog|mysql\.user`),
			PatternStr:  `information_schema|pg_catalog|mysql\.user`,
			Severity:    "medium",
			Description: "system catalog access requires the admin capability",
			Enabled:     true,
		},
	}

	spe.piiPatterns = []*PolicyPattern{
		{
			ID:          "credit_card_detection",
			Name:        "Credit Card Number Detection",
			Pattern:     regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b`),
			PatternStr:  `\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b`,
			Severity:    "critical",
			Description: "credit card number detected",
			Enabled:     true,
		},
		{
			ID:          "ssn_detection",
			Name:        "SSN Detection",
			Pattern:     regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			PatternStr:  `\b\d{3}-\d{2}-\d{4}\b`,
			Severity:    "critical",
			Description: "social security number detected",
			Enabled:     true,
		},
	}
}
