// Package legacy converts hand-authored rules/config documents into the
// canonical knowledge model. It is the fallback build path when no
// persisted context exists.
package legacy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/specmint/specmint-cli/internal/knowledge"
	"github.com/specmint/specmint-cli/internal/log"
)

// RulesDocument is the hand-authored rules file shape.
type RulesDocument struct {
	ServiceName           string                  `json:"serviceName"`
	ResponseCodeBehaviors map[string]RuleBehavior `json:"responseCodeBehaviors"`
	Endpoints             map[string]RuleEndpoint `json:"endpoints"`
	TestData              RuleTestData            `json:"testData"`
	Terminology           map[string]string       `json:"terminology"`
}

// RuleBehavior is one declared response code entry in the rules file.
type RuleBehavior struct {
	Description             string   `json:"description"`
	ValidatedAddress        string   `json:"validatedAddress"`
	RequestAddressSanitized string   `json:"requestAddressSanitized"`
	Triggers                []string `json:"triggers"`
}

// RuleEndpoint is one declared endpoint entry in the rules file.
type RuleEndpoint struct {
	Method      string `json:"method"`
	Description string `json:"description"`
}

// RuleTestData holds hand-curated example payloads.
type RuleTestData struct {
	WorkingAddresses map[string]map[string]any `json:"workingAddresses"`
	InvalidAddresses map[string]map[string]any `json:"invalidAddresses"`
}

// ConfigDocument is the informational team config file shape.
type ConfigDocument struct {
	Team               string `json:"team"`
	ServiceName        string `json:"serviceName"`
	ServiceDescription string `json:"serviceDescription"`
}

// defaultEndpointPath is the domain's single well-known endpoint, used
// when the rules file declares none.
const defaultEndpointPath = "/address/verify"

// requiredFieldsByPath is the side table of required request fields per
// known endpoint path.
var requiredFieldsByPath = map[string][]string{
	defaultEndpointPath: {"streets", "city", "stateOrProvince", "country"},
}

// optionalFieldsByPath mirrors requiredFieldsByPath for optional fields.
var optionalFieldsByPath = map[string][]string{
	defaultEndpointPath: {"postalCode", "urbanization"},
}

// correctedExamplePayload is the illustrative payload for the CORRECTED
// test pattern: a real deliverable address with the postal code left
// blank so the service has to fill it in.
var correctedExamplePayload = map[string]any{
	"streets":         []any{"600 HARLAN CT"},
	"city":            "Bonaire",
	"stateOrProvince": "GA",
	"postalCode":      "",
	"country":         "US",
}

// Build assembles a full Context from the optional rules and config
// documents. Missing files are not an error: the result degrades down to
// an empty-but-valid Context.
func Build(team, rulesPath, configPath string) (*knowledge.Context, error) {
	rules, err := readRules(rulesPath)
	if err != nil {
		return nil, err
	}
	cfg, err := readConfig(configPath)
	if err != nil {
		return nil, err
	}

	ctx := knowledge.NewContext(team)
	ctx.Domain.ServiceName = firstNonEmpty(cfg.ServiceName, rules.ServiceName, "Address Verification API")
	ctx.Domain.ServiceDescription = firstNonEmpty(cfg.ServiceDescription,
		"Validates, corrects and standardizes postal addresses")
	ctx.Domain.Terminology = map[string]string{
		"validatedAddress":        "The fully verified address returned when verification succeeds",
		"requestAddressSanitized": "The cleaned-up input address returned when full verification fails",
	}
	for term, def := range rules.Terminology {
		ctx.Domain.Terminology[term] = def
	}

	codes := orderedCodes(rules.ResponseCodeBehaviors)
	behaviors := buildBehaviors(codes, rules.ResponseCodeBehaviors)
	ctx.Domain.BusinessRules = buildBusinessRules(codes, rules.ResponseCodeBehaviors)
	ctx.Domain.EdgeCases = buildEdgeCases(codes)

	ctx.Endpoints = buildEndpoints(rules, behaviors)
	ctx.GlobalTestData = buildGlobalTestData(rules.TestData)
	ctx.GenerationHints = buildHints(behaviors)

	if rulesPath != "" {
		log.Debug("Built context from legacy rules", "team", team,
			"behaviors", len(behaviors), "endpoints", len(ctx.Endpoints))
	}
	return ctx, nil
}

func readRules(path string) (*RulesDocument, error) {
	var rules RulesDocument
	if path == "" {
		return &rules, nil
	}
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		if os.IsNotExist(err) {
			return &rules, nil
		}
		return nil, fmt.Errorf("failed to read rules document: %w", err)
	}
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("malformed rules document %s: %w", path, err)
	}
	return &rules, nil
}

func readConfig(path string) (*ConfigDocument, error) {
	var cfg ConfigDocument
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config document: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("malformed config document %s: %w", path, err)
	}
	return &cfg, nil
}

// orderedCodes returns the rule map's keys with known codes first (in
// their fixed priority order), then any others alphabetically. Map
// iteration order must never leak into built output.
func orderedCodes(m map[string]RuleBehavior) []string {
	var codes []string
	for _, code := range knowledge.ResponseCodes {
		if _, ok := m[code]; ok {
			codes = append(codes, code)
		}
	}
	var extra []string
	for code := range m {
		if !knowledge.IsKnownResponseCode(code) {
			extra = append(extra, code)
		}
	}
	sort.Strings(extra)
	return append(codes, extra...)
}

func buildBehaviors(codes []string, m map[string]RuleBehavior) []knowledge.ResponseCodeBehavior {
	var out []knowledge.ResponseCodeBehavior
	for _, code := range codes {
		src := m[code]
		b := knowledge.ResponseCodeBehavior{
			Code:                  code,
			Description:           src.Description,
			ValidatedAddressState: stateFromLiteral(src.ValidatedAddress),
			SanitizedAddressState: stateFromLiteral(src.RequestAddressSanitized),
			Triggers:              src.Triggers,
		}
		for _, trigger := range src.Triggers {
			b.TestScenarios = append(b.TestScenarios,
				fmt.Sprintf("Verify address with %s returns %s", strings.ToLower(trigger), code))
		}
		out = append(out, b)
	}
	return out
}

// stateFromLiteral maps a rule file state onto the canonical constants.
// This is a strict string match: anything other than "populated" means
// "null".
func stateFromLiteral(s string) string {
	if s == knowledge.StatePopulated {
		return knowledge.StatePopulated
	}
	return knowledge.StateNull
}

func buildBusinessRules(codes []string, m map[string]RuleBehavior) []knowledge.BusinessRule {
	var out []knowledge.BusinessRule
	for _, code := range codes {
		src := m[code]
		impact := knowledge.ImpactMedium
		if code == "NOT_VERIFIED" {
			impact = knowledge.ImpactHigh
		}
		rule := knowledge.BusinessRule{
			ID:          "rule_" + code,
			Name:        code + " handling",
			Description: firstNonEmpty(src.Description, "Behavior for response code "+code),
			Impact:      impact,
		}
		for _, trigger := range src.Triggers {
			rule.TestRecommendations = append(rule.TestRecommendations, "Test with: "+trigger)
		}
		out = append(out, rule)
	}
	return out
}

// buildEdgeCases synthesizes edge cases for the two codes where a
// concrete illustrative payload is known. Deliberately narrow; other
// codes get no synthesized edge case.
func buildEdgeCases(codes []string) []knowledge.EdgeCase {
	var out []knowledge.EdgeCase
	for _, code := range codes {
		switch code {
		case "STREET_PARTIAL":
			out = append(out, knowledge.EdgeCase{
				Name:        "Street number not found",
				Description: "Street exists but the premises number cannot be matched",
				TestData: map[string]any{
					"streets":         []any{"99999 HARLAN CT"},
					"city":            "Bonaire",
					"stateOrProvince": "GA",
					"postalCode":      "31005",
					"country":         "US",
				},
				ExpectedBehavior: "Returns STREET_PARTIAL with requestAddressSanitized populated",
				Priority:         knowledge.ImpactMedium,
			})
		case "NOT_VERIFIED":
			out = append(out, knowledge.EdgeCase{
				Name:        "Unknown street",
				Description: "No part of the address can be matched against reference data",
				TestData: map[string]any{
					"streets":         []any{"1 NOWHERE BLVD"},
					"city":            "Bonaire",
					"stateOrProvince": "GA",
					"postalCode":      "31005",
					"country":         "US",
				},
				ExpectedBehavior: "Returns NOT_VERIFIED with both address fields null",
				Priority:         knowledge.ImpactHigh,
			})
		}
	}
	return out
}

func buildEndpoints(rules *RulesDocument, behaviors []knowledge.ResponseCodeBehavior) []knowledge.EndpointContext {
	declared := rules.Endpoints
	if len(declared) == 0 {
		// The well-known endpoint is only worth synthesizing when there
		// is knowledge to hang off it. With an entirely empty rules
		// document, an endpoint-less Context is the terminal state.
		if len(behaviors) == 0 && len(rules.TestData.WorkingAddresses) == 0 {
			return nil
		}
		declared = map[string]RuleEndpoint{
			defaultEndpointPath: {Method: "POST", Description: "Verify and standardize a postal address"},
		}
	}

	paths := make([]string, 0, len(declared))
	for path := range declared {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var out []knowledge.EndpointContext
	for _, path := range paths {
		ep := declared[path]
		method := strings.ToUpper(firstNonEmpty(ep.Method, "POST"))
		endpoint := knowledge.EndpointContext{
			Path:                  path,
			Method:                method,
			Description:           ep.Description,
			RequiredFields:        requiredFieldsByPath[path],
			OptionalFields:        optionalFieldsByPath[path],
			ResponseCodeBehaviors: behaviors,
			AssertionTemplates:    knowledge.AssertionTemplates(behaviors),
			TestPatterns:          buildTestPatterns(path, rules),
		}
		out = append(out, endpoint)
	}
	return out
}

// buildTestPatterns synthesizes patterns for the VERIFIED baseline (when
// a known-good payload exists) and for CORRECTED. Patterns for the
// remaining codes are intentionally not synthesized here; the mining
// pipeline covers those when a source repository is available.
func buildTestPatterns(path string, rules *RulesDocument) []knowledge.TestDataPattern {
	var out []knowledge.TestDataPattern

	if working := workingPayload(rules.TestData); working != nil {
		out = append(out, knowledge.TestDataPattern{
			Name:                 "Known good address",
			Description:          "Baseline payload that verifies cleanly",
			Endpoint:             path,
			Data:                 working,
			ExpectedResponseCode: "VERIFIED",
			ExpectedHTTPStatus:   200,
			Assertions: []string{
				"Response code is VERIFIED",
				"validatedAddress is populated",
			},
		})
	}

	if _, ok := rules.ResponseCodeBehaviors["CORRECTED"]; ok {
		out = append(out, knowledge.TestDataPattern{
			Name:                 "Address requiring correction",
			Description:          "Deliverable address with the postal code left blank",
			Endpoint:             path,
			Data:                 copyPayload(correctedExamplePayload),
			ExpectedResponseCode: "CORRECTED",
			ExpectedHTTPStatus:   200,
			Assertions: []string{
				"Response code is CORRECTED",
				"requestAddressSanitized is populated",
				"requestAddressSanitized.postalCode is non-empty",
			},
		})
	}

	return out
}

// workingPayload returns the first known-good payload by sorted key
// order, or nil when none exist.
func workingPayload(td RuleTestData) map[string]any {
	if len(td.WorkingAddresses) == 0 {
		return nil
	}
	keys := make([]string, 0, len(td.WorkingAddresses))
	for k := range td.WorkingAddresses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return copyPayload(td.WorkingAddresses[keys[0]])
}

func buildGlobalTestData(td RuleTestData) knowledge.GlobalTestData {
	var out knowledge.GlobalTestData
	for _, key := range sortedKeys(td.WorkingAddresses) {
		out.Valid = append(out.Valid, copyPayload(td.WorkingAddresses[key]))
	}
	for _, key := range sortedKeys(td.InvalidAddresses) {
		out.Invalid = append(out.Invalid, copyPayload(td.InvalidAddresses[key]))
	}
	return out
}

func buildHints(behaviors []knowledge.ResponseCodeBehavior) []knowledge.GenerationHint {
	var hints []knowledge.GenerationHint
	for _, b := range behaviors {
		hints = append(hints, knowledge.GenerationHint{
			Category: "response_code",
			Hint: fmt.Sprintf("%s: validatedAddress %s, requestAddressSanitized %s",
				b.Code, b.ValidatedAddressState, b.SanitizedAddressState),
		})
	}

	hints = append(hints,
		knowledge.GenerationHint{
			Category: "validation_order",
			Hint:     "Assert the HTTP status first, then the response code, then the address fields",
		},
		knowledge.GenerationHint{
			Category: "data_shape",
			Hint:     "Request bodies use a streets array plus city, stateOrProvince, postalCode and country",
			Example:  `{"streets":["600 HARLAN CT"],"city":"Bonaire","stateOrProvince":"GA","postalCode":"31005","country":"US"}`,
		},
		knowledge.GenerationHint{
			Category: "assertion_pattern",
			Hint:     "Every scenario checks responseCode and the population of validatedAddress or requestAddressSanitized",
		},
		knowledge.GenerationHint{
			Category: "naming",
			Hint:     "Scenario titles follow 'Verify address with <condition> returns <code>'",
		},
	)
	return hints
}

func sortedKeys(m map[string]map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyPayload(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
