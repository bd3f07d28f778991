package miner

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Sample is one address payload recovered from fixture text, before
// category assignment. Line is the zero-based line of the match, used by
// the caller to classify against surrounding markers.
type Sample struct {
	Streets []string
	City    string
	State   string
	Zip     string
	Country string
	Line    int
	Note    string
}

// Payload converts a sample to the request-body shape used by test
// patterns.
func (s Sample) Payload() map[string]any {
	streets := make([]any, 0, len(s.Streets))
	for _, st := range s.Streets {
		streets = append(streets, st)
	}
	country := s.Country
	if country == "" {
		country = "US"
	}
	return map[string]any{
		"streets":         streets,
		"city":            s.City,
		"stateOrProvince": s.State,
		"postalCode":      s.Zip,
		"country":         country,
	}
}

// Extractor recognizes one fixture dialect. Implementations are
// independent and non-exclusive: the same file runs through all of them
// and duplicates are tolerated as advisory noise.
type Extractor interface {
	Name() string
	Extract(lines []string) []Sample
}

// DefaultExtractors returns the three fixture dialect extractors in
// their fixed execution order.
func DefaultExtractors() []Extractor {
	return []Extractor{
		constructorExtractor{},
		jsonLiteralExtractor{},
		relaxedLiteralExtractor{},
	}
}

// regionCodes is the allow-list of two-letter region codes used to
// disambiguate constructor arity: US states and territories plus
// Canadian provinces.
var regionCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "FL": true, "GA": true, "HI": true, "ID": true,
	"IL": true, "IN": true, "IA": true, "KS": true, "KY": true, "LA": true,
	"ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true, "OK": true,
	"OR": true, "PA": true, "RI": true, "SC": true, "SD": true, "TN": true,
	"TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "DC": true, "PR": true, "VI": true, "GU": true,
	"AB": true, "BC": true, "MB": true, "NB": true, "NL": true, "NS": true,
	"NT": true, "NU": true, "ON": true, "PE": true, "QC": true, "SK": true,
	"YT": true,
}

// IsRegionCode reports whether s is a recognized two-letter region code.
func IsRegionCode(s string) bool {
	return regionCodes[strings.ToUpper(s)] && len(s) == 2 && s == strings.ToUpper(s)
}

// constructorExtractor matches the fixed-arity address-building idiom:
//
//	new Address("street", "city", "ST", "zip")
//	buildAddress("street1", "street2", "city", "ST", "zip")
//
// A five-argument call is ambiguous: the second argument is either a
// second street line or, when it is a recognized two-letter region code,
// the state of a four-component call carrying a trailing country.
type constructorExtractor struct{}

var constructorRe = regexp.MustCompile(
	`(?i)(?:new\s+)?(?:Address|buildAddress|createAddress|anAddress|makeAddress)\s*\(` +
		`\s*"([^"]*)"\s*,\s*"([^"]*)"\s*,\s*"([^"]*)"\s*,\s*"([^"]*)"(?:\s*,\s*"([^"]*)")?\s*\)`)

func (constructorExtractor) Name() string { return "constructor" }

func (constructorExtractor) Extract(lines []string) []Sample {
	var samples []Sample
	for i, line := range lines {
		for _, m := range constructorRe.FindAllStringSubmatch(line, -1) {
			args := m[1:]
			s := Sample{Line: i, Note: trailingComment(line)}
			// Arguments cannot contain quotes, so the quote count gives
			// the exact arity: 8 quotes for four arguments, 10 for five.
			if strings.Count(m[0], `"`) == 8 {
				// Four arguments: street, city, state, zip.
				s.Streets = []string{args[0]}
				s.City = args[1]
				s.State = args[2]
				s.Zip = args[3]
			} else if IsRegionCode(args[1]) {
				// Second argument is a region code, so this is the
				// four-component form: street, state, city, zip, country.
				s.Streets = []string{args[0]}
				s.State = args[1]
				s.City = args[2]
				s.Zip = args[3]
				s.Country = args[4]
			} else {
				// Five arguments: street1, street2, city, state, zip.
				s.Streets = []string{args[0], args[1]}
				s.City = args[2]
				s.State = args[3]
				s.Zip = args[4]
			}
			samples = append(samples, s)
		}
	}
	return samples
}

// jsonLiteralExtractor scans for strict JSON object literals containing
// a "streets" key.
type jsonLiteralExtractor struct{}

func (jsonLiteralExtractor) Name() string { return "json-literal" }

func (jsonLiteralExtractor) Extract(lines []string) []Sample {
	return scanObjectLiterals(lines, false)
}

// relaxedLiteralExtractor scans for object literals with unquoted keys
// or single quotes and coerces them to the same shape.
type relaxedLiteralExtractor struct{}

func (relaxedLiteralExtractor) Name() string { return "relaxed-literal" }

func (relaxedLiteralExtractor) Extract(lines []string) []Sample {
	return scanObjectLiterals(lines, true)
}

var (
	unquotedKeyRe = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	singleQuoteRe = regexp.MustCompile(`'([^']*)'`)
)

// scanObjectLiterals brace-matches candidate objects mentioning streets
// and tries to decode each one. The nearest brace before the key can
// belong to a sibling object that already closed, so the scan walks
// outward until it finds a brace that actually encloses the key.
// Non-decodable candidates are skipped, not reported: heuristic
// non-matches are not errors.
func scanObjectLiterals(lines []string, relaxed bool) []Sample {
	text := strings.Join(lines, "\n")
	var samples []Sample

	for start := 0; ; {
		idx := strings.Index(text[start:], "streets")
		if idx < 0 {
			break
		}
		idx += start
		start = idx + len("streets")

		for open := strings.LastIndex(text[:idx], "{"); open >= 0; open = strings.LastIndex(text[:open], "{") {
			end := matchBrace(text, open)
			if end < idx {
				// Closed before the key (or unbalanced): not enclosing.
				continue
			}

			literal := text[open : end+1]
			if relaxed {
				literal = singleQuoteRe.ReplaceAllString(literal, `"$1"`)
				literal = unquotedKeyRe.ReplaceAllString(literal, `$1"$2":`)
			}

			var obj map[string]any
			if err := json.Unmarshal([]byte(literal), &obj); err != nil {
				continue
			}
			sample, ok := sampleFromObject(obj)
			if !ok {
				continue
			}
			lineNo := strings.Count(text[:open], "\n")
			sample.Line = lineNo
			if lineNo < len(lines) {
				sample.Note = trailingComment(lines[lineNo])
			}
			samples = append(samples, sample)
			break
		}
	}
	return samples
}

// matchBrace returns the index of the brace closing the one at open, or
// -1 when unbalanced.
func matchBrace(text string, open int) int {
	depth := 0
	inString := false
	for i := open; i < len(text); i++ {
		c := text[i]
		switch {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func sampleFromObject(obj map[string]any) (Sample, bool) {
	rawStreets, ok := obj["streets"]
	if !ok {
		return Sample{}, false
	}

	var s Sample
	switch v := rawStreets.(type) {
	case []any:
		for _, street := range v {
			if str, ok := street.(string); ok {
				s.Streets = append(s.Streets, str)
			}
		}
	case string:
		s.Streets = []string{v}
	}
	if len(s.Streets) == 0 {
		return Sample{}, false
	}

	s.City = stringField(obj, "city")
	s.State = stringField(obj, "stateOrProvince", "state")
	s.Zip = stringField(obj, "postalCode", "zip", "zipCode")
	s.Country = stringField(obj, "country")
	return s, true
}

func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := obj[key].(string); ok {
			return v
		}
	}
	return ""
}

// trailingComment returns a trailing same-line comment, if present, as a
// human readable note.
func trailingComment(line string) string {
	for _, marker := range []string{"//", "#"} {
		if idx := strings.Index(line, marker); idx >= 0 {
			note := strings.TrimSpace(line[idx+len(marker):])
			if note != "" {
				return note
			}
		}
	}
	return ""
}
