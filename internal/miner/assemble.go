package miner

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/specmint/specmint-cli/internal/knowledge"
	"github.com/specmint/specmint-cli/internal/utils"
)

// minedEndpointPath is the endpoint mined contexts attach their
// knowledge to.
const minedEndpointPath = "/address/verify"

// categoryAssertions is the fixed assertion template per response code
// category.
var categoryAssertions = map[string][]string{
	"VERIFIED":         {"Response code is VERIFIED", "validatedAddress is populated"},
	"CORRECTED":        {"Response code is CORRECTED", "requestAddressSanitized is populated"},
	"STREET_PARTIAL":   {"Response code is STREET_PARTIAL", "requestAddressSanitized is populated"},
	"PREMISES_PARTIAL": {"Response code is PREMISES_PARTIAL", "requestAddressSanitized is populated"},
	"NOT_VERIFIED":     {"Response code is NOT_VERIFIED", "validatedAddress is null"},
}

// behaviorSkeleton describes the fixed five-entry response code behavior
// set emitted for every mined context.
var behaviorSkeleton = []knowledge.ResponseCodeBehavior{
	{
		Code:                  "VERIFIED",
		Description:           "Address matched reference data exactly",
		ValidatedAddressState: knowledge.StatePopulated,
		SanitizedAddressState: knowledge.StateNull,
		Triggers:              []string{"complete deliverable address"},
	},
	{
		Code:                  "CORRECTED",
		Description:           "Address was deliverable after correction",
		ValidatedAddressState: knowledge.StateNull,
		SanitizedAddressState: knowledge.StatePopulated,
		Triggers:              []string{"minor correctable defect in the input"},
	},
	{
		Code:                  "STREET_PARTIAL",
		Description:           "Street matched but the premises number did not",
		ValidatedAddressState: knowledge.StateNull,
		SanitizedAddressState: knowledge.StatePopulated,
		Triggers:              []string{"street number cannot be matched"},
	},
	{
		Code:                  "PREMISES_PARTIAL",
		Description:           "Premises matched but secondary information did not",
		ValidatedAddressState: knowledge.StateNull,
		SanitizedAddressState: knowledge.StatePopulated,
		Triggers:              []string{"missing or wrong secondary information"},
	},
	{
		Code:                  "NOT_VERIFIED",
		Description:           "Address could not be matched at all",
		ValidatedAddressState: knowledge.StateNull,
		SanitizedAddressState: knowledge.StateNull,
		Triggers:              []string{"address cannot be matched to reference data"},
	},
}

// interestingConfigKeys selects which mined configuration keys become
// hints.
var interestingConfigKeys = []string{"url", "endpoint", "timeout", "name", "version", "port"}

// assemble runs phase 5: convert the accumulated samples, rules, edge
// cases, config values and documentation into the final Context.
func assemble(team string, acc accumulator, maxHints int) *knowledge.Context {
	ctx := knowledge.NewContext(team)
	ctx.Domain.ServiceName = serviceNameFromConfig(acc)
	ctx.Domain.ServiceDescription = "Knowledge mined from the service source repository"
	ctx.Domain.BusinessRules = assembleRules(acc)
	ctx.Domain.EdgeCases = acc.edgeCases

	behaviors := assembleBehaviors(acc)
	endpoint := knowledge.EndpointContext{
		Path:                  minedEndpointPath,
		Method:                "POST",
		Description:           "Verify and standardize a postal address",
		ResponseCodeBehaviors: behaviors,
		AssertionTemplates:    knowledge.AssertionTemplates(behaviors),
		TestPatterns:          assemblePatterns(acc),
		CommonErrors:          dedupeStrings(acc.commonErrors),
	}
	ctx.Endpoints = []knowledge.EndpointContext{endpoint}

	ctx.GlobalTestData = assembleGlobalTestData(acc)
	ctx.GenerationHints = capHints(assembleHints(acc), maxHints)
	return ctx
}

func serviceNameFromConfig(acc accumulator) string {
	for _, key := range []string{"service.name", "spring.application.name", "app.name", "name"} {
		if v, ok := acc.configValues[key]; ok && v != "" {
			return v
		}
	}
	return "Address Verification API"
}

// assembleRules appends the aggregate validation rule to the mined
// corrected-condition rules.
func assembleRules(acc accumulator) []knowledge.BusinessRule {
	rules := acc.rules
	if acc.validationChecks > 0 {
		rules = append(rules, knowledge.BusinessRule{
			ID:          fmt.Sprintf("br_validation_%d", len(rules)),
			Name:        "Input validation enforced",
			Description: fmt.Sprintf("Source performs %d null/empty/required checks on request fields", acc.validationChecks),
			Impact:      knowledge.ImpactLow,
			TestRecommendations: []string{
				"Test with missing and empty values for each required field",
			},
		})
	}
	return rules
}

// assembleBehaviors emits the fixed skeleton, populating the CORRECTED
// triggers from mined business rules that mention the code.
func assembleBehaviors(acc accumulator) []knowledge.ResponseCodeBehavior {
	behaviors := make([]knowledge.ResponseCodeBehavior, len(behaviorSkeleton))
	copy(behaviors, behaviorSkeleton)

	var correctedTriggers []string
	for _, rule := range acc.rules {
		if strings.Contains(rule.Name, "CORRECTED") {
			correctedTriggers = append(correctedTriggers, utils.TruncateWithEllipsis(rule.Description, 60))
		}
	}

	for i := range behaviors {
		if behaviors[i].Code == "CORRECTED" && len(correctedTriggers) > 0 {
			behaviors[i].Triggers = correctedTriggers
		}
		for _, trigger := range behaviors[i].Triggers {
			behaviors[i].TestScenarios = append(behaviors[i].TestScenarios,
				fmt.Sprintf("Verify address with %s returns %s", strings.ToLower(trigger), behaviors[i].Code))
		}
	}
	return behaviors
}

// assemblePatterns converts each accumulated sample into a test pattern
// named from its category and index.
func assemblePatterns(acc accumulator) []knowledge.TestDataPattern {
	var patterns []knowledge.TestDataPattern
	for _, code := range knowledge.ResponseCodes {
		for i, sample := range acc.samples[code] {
			description := "Extracted from repository test fixtures"
			if sample.Note != "" {
				description = sample.Note
			}
			patterns = append(patterns, knowledge.TestDataPattern{
				Name:                 fmt.Sprintf("%s_address_%d", strings.ToLower(code), i+1),
				Description:          description,
				Endpoint:             minedEndpointPath,
				Data:                 sample.Payload(),
				ExpectedResponseCode: code,
				ExpectedHTTPStatus:   200,
				Assertions:           categoryAssertions[code],
			})
		}
	}
	return patterns
}

// assembleGlobalTestData buckets sample payloads: verified addresses are
// valid, unverifiable ones invalid, everything correctable boundary.
func assembleGlobalTestData(acc accumulator) knowledge.GlobalTestData {
	var out knowledge.GlobalTestData
	for _, sample := range acc.samples["VERIFIED"] {
		out.Valid = append(out.Valid, sample.Payload())
	}
	for _, sample := range acc.samples["NOT_VERIFIED"] {
		out.Invalid = append(out.Invalid, sample.Payload())
	}
	for _, code := range []string{"CORRECTED", "STREET_PARTIAL", "PREMISES_PARTIAL"} {
		for _, sample := range acc.samples[code] {
			out.Boundary = append(out.Boundary, sample.Payload())
		}
	}
	return out
}

// assembleHints merges hints from the assertion, configuration and
// documentation passes in that fixed order.
func assembleHints(acc accumulator) []knowledge.GenerationHint {
	hints := append([]knowledge.GenerationHint{}, acc.assertionHints...)

	for _, key := range acc.configOrder {
		if !interestingConfigKey(key) {
			continue
		}
		hints = append(hints, knowledge.GenerationHint{
			Category: "configuration",
			Hint:     fmt.Sprintf("Service configuration sets %s=%s", key, acc.configValues[key]),
		})
	}

	return append(hints, acc.docHints...)
}

func interestingConfigKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range interestingConfigKeys {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// capHints bounds the hint list to keep prompt size in check. Before
// cutting, near-duplicate hint texts (within a small edit distance) are
// suppressed so the surviving slots carry distinct information.
func capHints(hints []knowledge.GenerationHint, maxHints int) []knowledge.GenerationHint {
	if maxHints <= 0 {
		maxHints = 10
	}

	var kept []knowledge.GenerationHint
	for _, h := range hints {
		dup := false
		for _, k := range kept {
			if h.Category == k.Category && levenshtein.ComputeDistance(h.Hint, k.Hint) <= 3 {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, h)
		}
	}

	if len(kept) > maxHints {
		kept = kept[:maxHints]
	}
	return kept
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
