package knowledge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatBriefing renders a Context into the natural-language briefing
// consumed by the downstream generator. Section order and headers are
// fixed so output is diff-stable across repeated calls on the same
// Context; callers rely on that for prompt reproducibility.
func FormatBriefing(ctx *Context) string {
	var b strings.Builder

	b.WriteString("## API DOMAIN CONTEXT\n\n")
	if ctx.Domain.ServiceName != "" {
		fmt.Fprintf(&b, "Service: %s\n", ctx.Domain.ServiceName)
	}
	if ctx.Domain.ServiceDescription != "" {
		fmt.Fprintf(&b, "Description: %s\n", ctx.Domain.ServiceDescription)
	}
	fmt.Fprintf(&b, "Team: %s\n", ctx.Team)

	if len(ctx.Domain.BusinessRules) > 0 {
		b.WriteString("\n## BUSINESS RULES\n\n")
		for _, rule := range ctx.Domain.BusinessRules {
			fmt.Fprintf(&b, "- %s (impact: %s): %s\n", rule.Name, rule.Impact, rule.Description)
			for _, rec := range rule.TestRecommendations {
				fmt.Fprintf(&b, "  - %s\n", rec)
			}
		}
	}

	behaviors := collectBehaviors(ctx)
	if len(behaviors) > 0 {
		b.WriteString("\n## RESPONSE CODE BEHAVIORS\n\n")
		for _, behavior := range behaviors {
			fmt.Fprintf(&b, "### %s\n", behavior.Code)
			if behavior.Description != "" {
				fmt.Fprintf(&b, "%s\n", behavior.Description)
			}
			fmt.Fprintf(&b, "- validatedAddress: %s\n", behavior.ValidatedAddressState)
			fmt.Fprintf(&b, "- requestAddressSanitized: %s\n", behavior.SanitizedAddressState)
			for _, trigger := range behavior.Triggers {
				fmt.Fprintf(&b, "- Trigger: %s\n", trigger)
			}
		}
	}

	if len(ctx.GenerationHints) > 0 {
		b.WriteString("\n## GENERATION HINTS\n\n")
		for _, hint := range ctx.GenerationHints {
			fmt.Fprintf(&b, "- [%s] %s\n", hint.Category, hint.Hint)
			if hint.Example != "" {
				fmt.Fprintf(&b, "  Example: %s\n", hint.Example)
			}
		}
	}

	patterns := collectPatterns(ctx)
	if len(patterns) > 0 {
		b.WriteString("\n## KNOWN TEST PATTERNS\n\n")
		for _, p := range patterns {
			fmt.Fprintf(&b, "### %s\n", p.Name)
			if p.Description != "" {
				fmt.Fprintf(&b, "%s\n", p.Description)
			}
			fmt.Fprintf(&b, "Expected: %s (HTTP %d)\n", p.ExpectedResponseCode, p.ExpectedHTTPStatus)
			fmt.Fprintf(&b, "Data: %s\n", marshalStable(p.Data))
		}
	}

	return b.String()
}

// collectBehaviors flattens endpoint behaviors in declaration order.
func collectBehaviors(ctx *Context) []ResponseCodeBehavior {
	var out []ResponseCodeBehavior
	for _, ep := range ctx.Endpoints {
		out = append(out, ep.ResponseCodeBehaviors...)
	}
	return out
}

// collectPatterns flattens endpoint test patterns in declaration order.
func collectPatterns(ctx *Context) []TestDataPattern {
	var out []TestDataPattern
	for _, ep := range ctx.Endpoints {
		out = append(out, ep.TestPatterns...)
	}
	return out
}

// marshalStable serializes a payload with sorted keys. encoding/json
// already sorts map keys, which keeps the briefing diff-stable.
func marshalStable(data map[string]any) string {
	if len(data) == 0 {
		return "{}"
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}
