package miner

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/specmint/specmint-cli/internal/knowledge"
	"github.com/specmint/specmint-cli/internal/log"
)

// conventionalTestDirs are the directories walked during fixture mining.
var conventionalTestDirs = []string{
	"test", "tests", "spec", "specs", "__tests__",
	filepath.Join("src", "test"), filepath.Join("src", "tests"),
}

// testNameMarkers classify a file as a test file by name alone.
var testNameMarkers = []string{"test", "spec", ".feature"}

// testContentMarkers classify a file as a test file by content. A cheap
// heuristic, not a language-aware classifier.
var testContentMarkers = []string{
	"@Test", "it(", "describe(", "def test_", "func Test", "Scenario:",
}

// categoryMarkers maps each response code category to the vocabulary
// that marks it in fixture text. Matching is a case-insensitive
// substring test against the nearest preceding marker line.
var categoryMarkers = map[string][]string{
	"VERIFIED":         {"verified address", "known good", "happy path", "valid address", "verified"},
	"CORRECTED":        {"corrected", "correction", "needs fixing", "missing postal", "missing zip"},
	"STREET_PARTIAL":   {"street partial", "street_partial", "partial street", "bad street number"},
	"PREMISES_PARTIAL": {"premises partial", "premises_partial", "partial premises", "suite", "apartment"},
	"NOT_VERIFIED":     {"not verified", "not_verified", "unverifiable", "invalid", "bogus", "nonexistent"},
}

// assertionRe captures the response code identifier compared in common
// assertion idioms across fixture dialects.
var assertionRe = regexp.MustCompile(
	`(?:responseCode|ResponseCode|getResponseCode\(\))\s*(?:===|==|,|\)?\.(?:toBe|toEqual|equals)\()\s*['"]?([A-Z_]+)['"]?`)

// edgeCaseVocabulary marks comment lines that introduce edge case
// discussion.
var edgeCaseVocabulary = []string{"edge case", "special", "when ", "if "}

// edgeCaseWindow is how many lines below a marker comment are searched
// for an address literal.
const edgeCaseWindow = 5

// classificationOrder fixes the priority of category matching, most
// specific first. "not verified" contains "verified" as a substring, so
// NOT_VERIFIED must be tested before VERIFIED.
var classificationOrder = []string{
	"NOT_VERIFIED", "PREMISES_PARTIAL", "STREET_PARTIAL", "CORRECTED", "VERIFIED",
}

// isTestFile applies the name/content heuristic.
func isTestFile(path string, content string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, marker := range testNameMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	for _, marker := range testContentMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// mineFixtures runs phase 1: walk conventional test directories and run
// the extraction passes over every recognized test file. The accumulator
// is threaded through and returned, never shared.
func mineFixtures(root string, extractors []Extractor, acc accumulator) accumulator {
	for _, dir := range conventionalTestDirs {
		base := filepath.Join(root, dir)
		if info, err := os.Stat(base); err != nil || !info.IsDir() {
			continue
		}
		_ = filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			data, err := os.ReadFile(path) // #nosec G304
			if err != nil {
				log.Debug("Skipping unreadable file", "path", path, "error", err)
				return nil
			}
			content := string(data)
			acc.filesScanned++
			if !isTestFile(path, content) {
				return nil
			}
			acc.testFiles++
			acc = mineTestFile(content, extractors, acc)
			return nil
		})
	}
	return acc
}

// mineTestFile runs the three independent passes over one test file:
// address extraction with category assignment, assertion idioms, and
// edge case comments.
func mineTestFile(content string, extractors []Extractor, acc accumulator) accumulator {
	lines := strings.Split(content, "\n")

	seen := map[string]bool{}
	for _, ex := range extractors {
		for _, sample := range ex.Extract(lines) {
			key := sampleKey(sample)
			if seen[key] {
				continue
			}
			seen[key] = true
			category := classifySample(lines, sample.Line)
			acc.samples[category] = append(acc.samples[category], sample)
		}
	}

	acc = mineAssertions(lines, acc)
	acc = mineEdgeCaseComments(lines, extractors, acc)
	return acc
}

// classifySample scans backward from the sample's line for the most
// recent line matching a category marker. Unmarked samples default to
// VERIFIED.
func classifySample(lines []string, from int) string {
	if from >= len(lines) {
		from = len(lines) - 1
	}
	for i := from; i >= 0; i-- {
		lower := strings.ToLower(lines[i])
		for _, code := range classificationOrder {
			for _, marker := range categoryMarkers[code] {
				if strings.Contains(lower, marker) {
					return code
				}
			}
		}
	}
	return "VERIFIED"
}

// mineAssertions records a test_assertion hint for each assertion idiom
// comparing against a known response code.
func mineAssertions(lines []string, acc accumulator) accumulator {
	for _, line := range lines {
		for _, m := range assertionRe.FindAllStringSubmatch(line, -1) {
			code := m[1]
			if !knowledge.IsKnownResponseCode(code) {
				continue
			}
			acc.assertionHints = append(acc.assertionHints, knowledge.GenerationHint{
				Category: "test_assertion",
				Hint:     "Existing tests assert responseCode " + code,
				Example:  strings.TrimSpace(line),
			})
		}
	}
	return acc
}

// mineEdgeCaseComments scans comments for edge case vocabulary and, when
// a recognizable address literal appears within the next few lines,
// records an edge case. The expected behavior is inferred by testing the
// surrounding text for each known response code in priority order.
func mineEdgeCaseComments(lines []string, extractors []Extractor, acc accumulator) accumulator {
	for i, line := range lines {
		comment := commentText(line)
		if comment == "" {
			continue
		}
		lower := strings.ToLower(comment)
		marked := false
		for _, word := range edgeCaseVocabulary {
			if strings.Contains(lower, word) {
				marked = true
				break
			}
		}
		if !marked {
			continue
		}

		end := i + 1 + edgeCaseWindow
		if end > len(lines) {
			end = len(lines)
		}
		window := lines[i+1 : end]

		var sample *Sample
		for _, ex := range extractors {
			if found := ex.Extract(window); len(found) > 0 {
				sample = &found[0]
				break
			}
		}
		if sample == nil {
			continue
		}

		surrounding := comment + " " + strings.Join(window, " ")
		expected := "Behavior documented in test comments"
		for _, code := range classificationOrder {
			if strings.Contains(surrounding, code) {
				expected = "Returns " + code
				break
			}
		}

		acc.edgeCases = append(acc.edgeCases, knowledge.EdgeCase{
			Name:             nameFromComment(comment),
			Description:      comment,
			TestData:         sample.Payload(),
			ExpectedBehavior: expected,
			Priority:         knowledge.ImpactMedium,
		})
	}
	return acc
}

// commentText returns a line's comment content, or "" for non-comments.
func commentText(line string) string {
	trimmed := strings.TrimSpace(line)
	for _, marker := range []string{"//", "#", "/*", "*"} {
		if strings.HasPrefix(trimmed, marker) {
			return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(trimmed, marker), "*/"))
		}
	}
	return ""
}

// nameFromComment derives a short edge case name from the comment text.
func nameFromComment(comment string) string {
	name := strings.TrimSpace(comment)
	if len(name) > 60 {
		name = name[:57] + "..."
	}
	return name
}

func sampleKey(s Sample) string {
	return strings.Join(s.Streets, "|") + "|" + s.City + "|" + s.State + "|" + s.Zip
}
