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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ExternalAPIClient calls a single directly-configured third-party API (as
// opposed to a registered connector-call tool). Used for one-off
// integrations a workflow step needs without the overhead of registering a
// full connector, e.g. a sanctions-screening or enrichment endpoint.
type ExternalAPIClient struct {
	Name       string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewExternalAPIClient builds a client for the given base URL. A nil-valued
// *ExternalAPIClient is valid and treated as "not configured" by
// APICallProcessor, which falls back to a mock response.
func NewExternalAPIClient(name, baseURL, apiKey string) *ExternalAPIClient {
	return &ExternalAPIClient{
		Name:    name,
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *ExternalAPIClient) IsConfigured() bool {
	return c != nil && c.BaseURL != ""
}

// Call issues an HTTP request to path relative to BaseURL and decodes a JSON
// object response.
func (c *ExternalAPIClient) Call(ctx context.Context, method, path string, params map[string]interface{}) (map[string]interface{}, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("external API client %q is not configured", c.Name)
	}

	var body io.Reader
	if method != http.MethodGet && len(params) > 0 {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", c.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s returned status %d: %s", c.Name, resp.StatusCode, string(respBody))
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", c.Name, err)
	}

	return result, nil
}

// APICallProcessor handles workflow steps of type "api-call" — a direct
// call to a single configured ExternalAPIClient, as distinct from
// "connector-call" steps which dispatch through the connector registry.
type APICallProcessor struct {
	client *ExternalAPIClient
}

// NewAPICallProcessor creates a new API call processor. client may be nil,
// in which case steps fall back to a mock response.
func NewAPICallProcessor(client *ExternalAPIClient) *APICallProcessor {
	return &APICallProcessor{client: client}
}

func (p *APICallProcessor) ExecuteStep(ctx context.Context, step WorkflowStep, input map[string]interface{}, execution *WorkflowExecution) (map[string]interface{}, error) {
	if step.Provider == "" {
		return nil, fmt.Errorf("API call step must specify provider")
	}

	log.Printf("[api-call] executing %s call for step '%s'", step.Provider, step.Name)

	if p.client == nil || !p.client.IsConfigured() {
		log.Printf("[api-call] %s not configured, returning mock response", step.Provider)
		return p.mockResponse(step), nil
	}

	if step.Function == "" {
		return nil, fmt.Errorf("api-call step must specify function (the endpoint path)")
	}

	params := p.buildParameters(step, input, execution)

	method := step.Action
	if method == "" {
		method = http.MethodPost
	}

	startTime := time.Now()
	result, err := p.client.Call(ctx, method, step.Function, params)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", step.Provider, err)
	}
	duration := time.Since(startTime)

	return map[string]interface{}{
		"provider":      step.Provider,
		"function":      step.Function,
		"status":        "success",
		"response_time": duration.Milliseconds(),
		"result":        result,
	}, nil
}

func (p *APICallProcessor) buildParameters(step WorkflowStep, input map[string]interface{}, execution *WorkflowExecution) map[string]interface{} {
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

func (p *APICallProcessor) replaceTemplateVars(template string, input map[string]interface{}, execution *WorkflowExecution) string {
	result := template

	for key, value := range input {
		placeholder := fmt.Sprintf("{{input.%s}}", key)
		if str, ok := value.(string); ok {
			result = strings.ReplaceAll(result, placeholder, str)
		}
	}

	for key, value := range execution.Input {
		placeholder := fmt.Sprintf("{{workflow.input.%s}}", key)
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

	return result
}

func (p *APICallProcessor) mockResponse(step WorkflowStep) map[string]interface{} {
	return map[string]interface{}{
		"provider":      step.Provider,
		"function":      step.Function,
		"status":        "mock",
		"response_time": 150,
		"message":       fmt.Sprintf("mock response - %s API client not configured", step.Provider),
	}
}

// IsHealthy reports whether the processor can serve requests. It always
// can: an unconfigured client degrades to mock responses rather than failing.
func (p *APICallProcessor) IsHealthy() bool {
	return true
}
