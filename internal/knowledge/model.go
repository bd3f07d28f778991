// Package knowledge defines the canonical entities describing one team's
// API domain knowledge: response code behaviors, business rules, edge
// cases, and known-good test data. A Context is the unit of persistence
// and the input to briefing generation.
package knowledge

import "time"

// ContextVersion is stamped on every freshly built Context.
const ContextVersion = "1.0"

// Address-result field states used by ResponseCodeBehavior.
const (
	StatePopulated = "populated"
	StateNull      = "null"
)

// Impact / priority ratings.
const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
)

// ResponseCodes lists every known verification outcome, in the order
// behaviors and patterns are emitted.
var ResponseCodes = []string{
	"VERIFIED",
	"CORRECTED",
	"STREET_PARTIAL",
	"PREMISES_PARTIAL",
	"NOT_VERIFIED",
}

// IsKnownResponseCode reports whether code is one of the five known
// verification outcomes.
func IsKnownResponseCode(code string) bool {
	for _, c := range ResponseCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Context is the root persisted document describing one team's API
// domain knowledge.
type Context struct {
	Version         string            `json:"version"`
	LastUpdated     time.Time         `json:"lastUpdated"`
	Team            string            `json:"team"`
	Domain          DomainContext     `json:"domain"`
	Endpoints       []EndpointContext `json:"endpoints"`
	GlobalTestData  GlobalTestData    `json:"globalTestData"`
	GenerationHints []GenerationHint  `json:"generationHints"`
}

// DomainContext describes the service itself, independent of any single
// endpoint.
type DomainContext struct {
	ServiceName            string            `json:"serviceName"`
	ServiceDescription     string            `json:"serviceDescription"`
	BusinessRules          []BusinessRule    `json:"businessRules"`
	Terminology            map[string]string `json:"terminology"`
	EdgeCases              []EdgeCase        `json:"edgeCases"`
	SecurityConsiderations []string          `json:"securityConsiderations"`
}

// GlobalTestData holds cross-endpoint example payloads in three buckets.
type GlobalTestData struct {
	Valid    []map[string]any `json:"valid"`
	Invalid  []map[string]any `json:"invalid"`
	Boundary []map[string]any `json:"boundary"`
}

// EndpointContext describes one path+method pair.
type EndpointContext struct {
	Path                  string                     `json:"path"`
	Method                string                     `json:"method"`
	Description           string                     `json:"description"`
	RequiredFields        []string                   `json:"requiredFields"`
	OptionalFields        []string                   `json:"optionalFields"`
	RequestSchema         map[string]FieldValidation `json:"requestSchema"`
	ResponseCodeBehaviors []ResponseCodeBehavior     `json:"responseCodeBehaviors"`
	TestPatterns          []TestDataPattern          `json:"testPatterns"`
	AssertionTemplates    []string                   `json:"assertionTemplates"`
	CommonErrors          []string                   `json:"commonErrors"`
}

// FieldValidation describes one request-body property.
type FieldValidation struct {
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Description string   `json:"description,omitempty"`
	Example     any      `json:"example,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// ResponseCodeBehavior maps a verification outcome to the expected
// population state of the two address-result fields and the conditions
// that trigger it. The two states are mutually exclusive: a response is
// either verified (validatedAddress populated) or sanitized/corrected
// input is echoed back (sanitizedAddress populated), never both.
type ResponseCodeBehavior struct {
	Code                  string   `json:"code"`
	Description           string   `json:"description"`
	ValidatedAddressState string   `json:"validatedAddressState"`
	SanitizedAddressState string   `json:"sanitizedAddressState"`
	Triggers              []string `json:"triggers"`
	TestScenarios         []string `json:"testScenarios"`
}

// TestDataPattern pairs a concrete example payload with its expected
// outcome.
type TestDataPattern struct {
	Name                 string         `json:"name"`
	Description          string         `json:"description"`
	Endpoint             string         `json:"endpoint"`
	Data                 map[string]any `json:"data"`
	ExpectedResponseCode string         `json:"expectedResponseCode"`
	ExpectedHTTPStatus   int            `json:"expectedHttpStatus"`
	Assertions           []string       `json:"assertions"`
}

// BusinessRule is a natural-language statement of a behavioral condition.
type BusinessRule struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	Impact              string   `json:"impact"`
	TestRecommendations []string `json:"testRecommendations"`
}

// EdgeCase is a named scenario with example input and an informally
// described expected behavior.
type EdgeCase struct {
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	TestData         map[string]any `json:"testData"`
	ExpectedBehavior string         `json:"expectedBehavior"`
	Priority         string         `json:"priority"`
}

// GenerationHint is free-form guidance for the downstream generator.
type GenerationHint struct {
	Category string `json:"category"`
	Hint     string `json:"hint"`
	Example  string `json:"example,omitempty"`
}

// NewContext returns an empty-but-valid Context for a team. An
// endpoint-less Context is a valid terminal state when no knowledge
// sources exist.
func NewContext(team string) *Context {
	return &Context{
		Version:     ContextVersion,
		LastUpdated: time.Now().UTC(),
		Team:        team,
		Domain: DomainContext{
			Terminology: map[string]string{},
		},
		GlobalTestData: GlobalTestData{},
	}
}

// AssertionTemplates derives one assertion template per declared response
// code behavior. Output order follows the behavior list so repeated calls
// are stable.
func AssertionTemplates(behaviors []ResponseCodeBehavior) []string {
	var templates []string
	for _, b := range behaviors {
		t := "Assert responseCode equals '" + b.Code + "'"
		if b.ValidatedAddressState == StatePopulated {
			t += " and validatedAddress is populated"
		} else {
			t += " and validatedAddress is null"
		}
		if b.SanitizedAddressState == StatePopulated {
			t += " and requestAddressSanitized is populated"
		}
		templates = append(templates, t)
	}
	return templates
}
