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

// Package license validates the Agent's license key and, for service
// licenses, carries the permission grant a calling service presents to
// agent/policy's MCP permission evaluator. This is the Community build:
// it parses V2 license keys and verifies their signature, but treats every
// well-formed key as valid rather than checking it against an issuer.
package license

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Tier is the license tier a key grants.
type Tier string

const (
	TierProfessional   Tier = "PRO"
	TierEnterprise     Tier = "ENT"
	TierEnterprisePlus Tier = "PLUS"
	TierCommunity      Tier = "COMMUNITY"
)

// communityHMACSecret signs Community-mode V2 test license keys. A real
// deployment issuing service licenses would hold this out of process.
const communityHMACSecret = "amas-license-secret-2025-change-in-production"

// ValidationResult is the outcome of ValidateLicense.
type ValidationResult struct {
	Valid           bool
	Tier            Tier
	OrgID           string
	MaxNodes        int
	ExpiresAt       time.Time
	DaysUntilExpiry int
	GracePeriodDays int
	Error           string
	Message         string
	Features        map[string]bool

	// Service identity fields are only populated for service licenses —
	// keys minted for a calling service (not a human org) rather than a
	// tenant seat, consumed by agent/policy's MCP permission evaluator.
	ServiceName string   `json:"service_name,omitempty"`
	ServiceType string   `json:"service_type,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// servicePayload is the JSON payload embedded in a V2 service license.
type servicePayload struct {
	Tier        string   `json:"tier"`
	TenantID    string   `json:"tenant_id"`
	ServiceName string   `json:"service_name,omitempty"`
	ServiceType string   `json:"service_type,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	ExpiresAt   string   `json:"expires_at"` // YYYYMMDD
}

// ValidateLicense validates an AMAS license key. A V2 key
// ("AXON-V2-{base64 JSON}-{signature}") is parsed and its signature
// checked; any other input, or a V2 key that fails to parse, resolves to
// an unrestricted Community-tier result.
func ValidateLicense(ctx context.Context, licenseKey string) (*ValidationResult, error) {
	if strings.HasPrefix(licenseKey, "AXON-V2-") {
		if result := parseV2License(licenseKey); result != nil {
			return result, nil
		}
	}

	return &ValidationResult{
		Valid:           true,
		Tier:            TierCommunity,
		OrgID:           "community",
		MaxNodes:        9999,
		ExpiresAt:       time.Now().AddDate(100, 0, 0),
		DaysUntilExpiry: 36500,
		GracePeriodDays: 0,
		Message:         "Community mode - no license required",
		Features:        communityFeatures(),
	}, nil
}

// parseV2License parses and signature-checks a V2 license key, returning
// nil if the key is malformed or its signature doesn't verify so the
// caller falls back to the default Community result.
func parseV2License(licenseKey string) *ValidationResult {
	parts := strings.Split(licenseKey, "-")
	if len(parts) != 4 || parts[0] != "AXON" || parts[1] != "V2" {
		return nil
	}
	payloadB64, signature := parts[2], parts[3]

	if !verifyV2Signature(payloadB64, signature) {
		return nil
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil
	}

	var payload servicePayload
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return nil
	}

	tier := Tier(payload.Tier)
	switch tier {
	case TierProfessional, TierEnterprise, TierEnterprisePlus:
	default:
		tier = TierCommunity
	}

	expiry, err := time.Parse("20060102", payload.ExpiresAt)
	if err != nil {
		expiry = time.Now().AddDate(100, 0, 0)
	}

	message := "V2 license parsed"
	if time.Now().After(expiry) {
		message = "V2 license expired but accepted in Community mode"
	}

	return &ValidationResult{
		Valid:           true,
		Tier:            tier,
		OrgID:           payload.TenantID,
		MaxNodes:        9999,
		ExpiresAt:       expiry,
		DaysUntilExpiry: int(expiry.Sub(time.Now()).Hours() / 24),
		Message:         message,
		Features:        communityFeatures(),
		ServiceName:     payload.ServiceName,
		ServiceType:     payload.ServiceType,
		Permissions:     payload.Permissions,
	}
}

func verifyV2Signature(payloadB64, providedSignature string) bool {
	h := hmac.New(sha256.New, []byte(communityHMACSecret))
	h.Write([]byte(payloadB64))
	sum := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(sum[:8]), []byte(providedSignature))
}

func communityFeatures() map[string]bool {
	return map[string]bool{
		"multi_tenant":      false,
		"advanced_policies": false,
		"sla_guarantee":     false,
		"audit_logging":     true,
		"oss_mode":          true,
	}
}

// ValidateWithRetry validates a license, retrying transient failures.
// ValidateLicense never fails transiently in Community mode, so this is
// a thin pass-through kept for call-site parity with a hosted validator.
func ValidateWithRetry(ctx context.Context, licenseKey string, maxAttempts int) (*ValidationResult, error) {
	return ValidateLicense(ctx, licenseKey)
}

// GenerateServiceLicenseKey mints a V2 service license key for a calling
// service, signed with communityHMACSecret. Community mode exposes this
// (the teacher's Enterprise build withholds it) since Community licenses
// carry no revenue-protection requirement.
func GenerateServiceLicenseKey(tier Tier, tenantID, serviceName, serviceType string, permissions []string, expiryDays int) (string, error) {
	payload := servicePayload{
		Tier:        string(tier),
		TenantID:    tenantID,
		ServiceName: serviceName,
		ServiceType: serviceType,
		Permissions: permissions,
		ExpiresAt:   time.Now().AddDate(0, 0, expiryDays).Format("20060102"),
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode license payload: %w", err)
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadJSON)

	h := hmac.New(sha256.New, []byte(communityHMACSecret))
	h.Write([]byte(payloadB64))
	signature := hex.EncodeToString(h.Sum(nil))[:8]

	return fmt.Sprintf("AXON-V2-%s-%s", payloadB64, signature), nil
}
