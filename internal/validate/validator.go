// Package validate replays declared response code behaviors against a
// live endpoint and reports where the persisted context disagrees with
// observed reality.
package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/specmint/specmint-cli/internal/knowledge"
	"github.com/specmint/specmint-cli/internal/log"
)

// Validator issues verification requests with a fixed inter-request
// delay. The delay is politeness, not retry; nothing here retries.
type Validator struct {
	baseURL    string
	delay      time.Duration
	httpClient *http.Client
}

// Mismatch is one observed disagreement with the declared behavior.
type Mismatch struct {
	Code     string `json:"code"`
	Field    string `json:"field"`
	Declared string `json:"declared"`
	Observed string `json:"observed"`
	Pattern  string `json:"pattern"`
	Diff     string `json:"diff,omitempty"`
}

// Report summarizes one validation run.
type Report struct {
	Checks     int        `json:"checks"`
	Skipped    int        `json:"skipped"`
	Mismatches []Mismatch `json:"mismatches"`
}

// verifyResponse is the live endpoint's response shape, reduced to the
// fields compared against the declared behavior.
type verifyResponse struct {
	ResponseCode            string          `json:"responseCode"`
	ValidatedAddress        json.RawMessage `json:"validatedAddress"`
	RequestAddressSanitized json.RawMessage `json:"requestAddressSanitized"`
}

// New creates a Validator for the given live endpoint base URL.
func New(baseURL string, timeout, delay time.Duration) *Validator {
	return &Validator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		delay:      delay,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Validate replays each declared behavior using a representative test
// pattern and compares the observed response against the declaration.
// Behaviors with no matching pattern are counted as skipped.
func (v *Validator) Validate(ctx context.Context, kctx *knowledge.Context) (*Report, error) {
	report := &Report{}

	for _, endpoint := range kctx.Endpoints {
		for _, behavior := range endpoint.ResponseCodeBehaviors {
			pattern := representativePattern(endpoint, behavior.Code)
			if pattern == nil {
				report.Skipped++
				continue
			}

			if report.Checks > 0 {
				select {
				case <-time.After(v.delay):
				case <-ctx.Done():
					return report, ctx.Err()
				}
			}

			observed, err := v.replay(ctx, endpoint.Path, pattern.Data)
			if err != nil {
				return report, fmt.Errorf("replay of %s failed: %w", pattern.Name, err)
			}
			report.Checks++
			report.Mismatches = append(report.Mismatches, compare(behavior, pattern.Name, observed)...)
		}
	}

	log.Debug("Validation complete", "checks", report.Checks,
		"skipped", report.Skipped, "mismatches", len(report.Mismatches))
	return report, nil
}

// representativePattern returns the first test pattern expecting the
// given code, or nil.
func representativePattern(endpoint knowledge.EndpointContext, code string) *knowledge.TestDataPattern {
	for i := range endpoint.TestPatterns {
		if endpoint.TestPatterns[i].ExpectedResponseCode == code {
			return &endpoint.TestPatterns[i]
		}
	}
	return nil
}

func (v *Validator) replay(ctx context.Context, path string, payload map[string]any) (*verifyResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn("Failed to close response body", "error", err)
		}
	}()

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// compare checks the observed response code and both address states
// against the declaration.
func compare(behavior knowledge.ResponseCodeBehavior, patternName string, observed *verifyResponse) []Mismatch {
	var mismatches []Mismatch

	observedValidated := stateOf(observed.ValidatedAddress)
	observedSanitized := stateOf(observed.RequestAddressSanitized)

	if observed.ResponseCode != behavior.Code {
		mismatches = append(mismatches, Mismatch{
			Code:     behavior.Code,
			Field:    "responseCode",
			Declared: behavior.Code,
			Observed: observed.ResponseCode,
			Pattern:  patternName,
		})
	}
	if observedValidated != behavior.ValidatedAddressState {
		mismatches = append(mismatches, Mismatch{
			Code:     behavior.Code,
			Field:    "validatedAddressState",
			Declared: behavior.ValidatedAddressState,
			Observed: observedValidated,
			Pattern:  patternName,
		})
	}
	if observedSanitized != behavior.SanitizedAddressState {
		mismatches = append(mismatches, Mismatch{
			Code:     behavior.Code,
			Field:    "sanitizedAddressState",
			Declared: behavior.SanitizedAddressState,
			Observed: observedSanitized,
			Pattern:  patternName,
		})
	}

	if len(mismatches) > 0 {
		diff := behaviorDiff(behavior, observed, observedValidated, observedSanitized)
		for i := range mismatches {
			mismatches[i].Diff = diff
		}
	}
	return mismatches
}

// stateOf maps a raw JSON field to the populated/null state vocabulary.
func stateOf(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return knowledge.StateNull
	}
	return knowledge.StatePopulated
}

// behaviorDiff renders a unified diff between the declared and observed
// behavior lines for mismatch reporting.
func behaviorDiff(behavior knowledge.ResponseCodeBehavior, observed *verifyResponse, validated, sanitized string) string {
	declared := fmt.Sprintf("responseCode: %s\nvalidatedAddress: %s\nrequestAddressSanitized: %s\n",
		behavior.Code, behavior.ValidatedAddressState, behavior.SanitizedAddressState)
	actual := fmt.Sprintf("responseCode: %s\nvalidatedAddress: %s\nrequestAddressSanitized: %s\n",
		observed.ResponseCode, validated, sanitized)

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(declared),
		B:        difflib.SplitLines(actual),
		FromFile: "declared",
		ToFile:   "observed",
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return out
}
