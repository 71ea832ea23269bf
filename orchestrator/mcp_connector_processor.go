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
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"amas/kernel/agent/license"
	"amas/kernel/agent/policy"
	"amas/kernel/connectors/base"
	"amas/kernel/connectors/registry"
)

// permissionEvaluator gates connector-call steps on the calling user
// context's granted MCP permissions, ahead of dispatch.
var permissionEvaluator = policy.NewPermissionEvaluator()

// connectorRegistry is the process-wide registry of connectors a
// connector-call step can target. Set during startup wiring; nil until then.
var connectorRegistry *registry.Registry

// InitConnectorRegistry installs the registry that connector-call steps
// dispatch against. Call once during startup wiring.
func InitConnectorRegistry(r *registry.Registry) {
	connectorRegistry = r
}

var (
	promConnectorCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amas_connector_calls_total",
			Help: "Total number of connector-call steps executed",
		},
		[]string{"connector", "operation", "status"},
	)
	promConnectorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "amas_connector_duration_milliseconds",
			Help:    "Connector call duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"connector", "operation"},
	)
	promConnectorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amas_connector_errors_total",
			Help: "Total number of connector-call errors",
		},
		[]string{"connector", "operation", "error_type"},
	)
)

func init() {
	prometheus.MustRegister(promConnectorCalls)
	prometheus.MustRegister(promConnectorDuration)
	prometheus.MustRegister(promConnectorErrors)
}

// MCPConnectorProcessor handles workflow steps of type "connector-call",
// dispatching to whatever tool is registered under step.Connector in the
// process-wide connector registry.
type MCPConnectorProcessor struct{}

func NewMCPConnectorProcessor() *MCPConnectorProcessor {
	return &MCPConnectorProcessor{}
}

func (p *MCPConnectorProcessor) ExecuteStep(ctx context.Context, step WorkflowStep, input map[string]interface{}, execution *WorkflowExecution) (map[string]interface{}, error) {
	connectorName := step.Connector
	if connectorName == "" {
		promConnectorErrors.WithLabelValues("unknown", "unknown", "missing_connector_name").Inc()
		return nil, fmt.Errorf("connector name not specified in step %s", step.Name)
	}

	if connectorRegistry == nil {
		promConnectorErrors.WithLabelValues(connectorName, "unknown", "registry_not_initialized").Inc()
		return nil, fmt.Errorf("connector registry not initialized")
	}

	connector, err := connectorRegistry.Get(connectorName)
	if err != nil {
		promConnectorErrors.WithLabelValues(connectorName, "unknown", "connector_not_found").Inc()
		return nil, fmt.Errorf("failed to get connector '%s': %v", connectorName, err)
	}

	operation := step.Operation
	if operation == "" {
		operation = "query"
	}

	grant := &license.ValidationResult{
		Valid:       true,
		OrgID:       execution.UserContext.TenantID,
		ServiceName: execution.UserContext.Email,
		ServiceType: execution.UserContext.Role,
		Permissions: execution.UserContext.Permissions,
	}
	if allowed, permErr := permissionEvaluator.EvaluateMCPPermission(grant, connectorName, operation); !allowed {
		promConnectorErrors.WithLabelValues(connectorName, operation, "permission_denied").Inc()
		return nil, fmt.Errorf("connector-call denied: %w", permErr)
	}

	params := p.buildParameters(step, input, execution)

	log.Printf("[connector] executing '%s' operation '%s' for step '%s'", connectorName, operation, step.Name)

	startTime := time.Now()
	var output map[string]interface{}
	var execErr error

	if operation == "execute" || operation == "write" {
		cmd := &base.Command{
			Action:     step.Action,
			Statement:  step.Statement,
			Parameters: params,
		}

		result, cmdErr := connector.Execute(ctx, cmd)
		execErr = cmdErr
		if cmdErr != nil {
			log.Printf("connector execute failed: %v", cmdErr)
		} else {
			output = map[string]interface{}{
				"success":       result.Success,
				"rows_affected": result.RowsAffected,
				"duration":      result.Duration.String(),
				"message":       result.Message,
				"connector":     result.Connector,
			}
		}
	} else {
		query := &base.Query{
			Statement:  step.Statement,
			Parameters: params,
		}

		result, queryErr := connector.Query(ctx, query)
		execErr = queryErr
		if queryErr != nil {
			log.Printf("connector query failed: %v", queryErr)
		} else {
			output = map[string]interface{}{
				"rows":      result.Rows,
				"row_count": result.RowCount,
				"duration":  result.Duration.String(),
				"cached":    result.Cached,
				"connector": result.Connector,
			}
			if len(result.Rows) > 0 {
				output["response"] = p.formatResponse(result.Rows)
			}
		}
	}

	duration := time.Since(startTime)
	promConnectorDuration.WithLabelValues(connectorName, operation).Observe(float64(duration.Milliseconds()))

	if execErr != nil {
		promConnectorCalls.WithLabelValues(connectorName, operation, "error").Inc()
		promConnectorErrors.WithLabelValues(connectorName, operation, "execution_failed").Inc()
		return nil, execErr
	}

	promConnectorCalls.WithLabelValues(connectorName, operation, "success").Inc()
	log.Printf("[connector] '%s' operation completed in %v", connectorName, duration)
	return output, nil
}

// buildParameters merges the step's configured parameters with runtime
// input, then resolves template placeholders in any string values.
func (p *MCPConnectorProcessor) buildParameters(step WorkflowStep, input map[string]interface{}, execution *WorkflowExecution) map[string]interface{} {
	params := make(map[string]interface{})

	for k, v := range step.Parameters {
		params[k] = v
	}
	for k, v := range input {
		params[k] = v
	}

	for k, v := range params {
		if strVal, ok := v.(string); ok {
			params[k] = p.replaceTemplateVars(strVal, input, execution)
		}
	}

	return params
}

func (p *MCPConnectorProcessor) replaceTemplateVars(template string, stepInput map[string]interface{}, execution *WorkflowExecution) string {
	result := template

	for key, value := range stepInput {
		placeholder := fmt.Sprintf("{{input.%s}}", key)
		if str, ok := value.(string); ok {
			result = strings.ReplaceAll(result, placeholder, str)
		}
	}

	for _, stepExec := range execution.Steps {
		if stepExec.Status == "completed" {
			for key, value := range stepExec.Output {
				placeholder := fmt.Sprintf("{{steps.%s.output.%s}}", stepExec.Name, key)
				if str, ok := value.(string); ok {
					result = strings.ReplaceAll(result, placeholder, str)
				}
			}
		}
	}

	for key, value := range execution.Input {
		placeholder := fmt.Sprintf("{{workflow.input.%s}}", key)
		if str, ok := value.(string); ok {
			result = strings.ReplaceAll(result, placeholder, str)
		}
	}

	return result
}

// formatResponse renders connector rows into a human-readable summary for
// steps that feed a result straight into a synthesis prompt.
func (p *MCPConnectorProcessor) formatResponse(rows []map[string]interface{}) string {
	if len(rows) == 0 {
		return "No results found"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(rows)))

	for i, row := range rows {
		builder.WriteString(fmt.Sprintf("%d. ", i+1))
		for k, v := range row {
			builder.WriteString(fmt.Sprintf("%s: %v, ", k, v))
		}
		builder.WriteString("\n")
	}

	return builder.String()
}
