package miner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/specmint/specmint-cli/internal/knowledge"
	"github.com/specmint/specmint-cli/internal/utils"
)

// conventionalSourceDirs are walked during business-logic mining. The
// repository root itself is included for flat layouts.
var conventionalSourceDirs = []string{"src", "lib", "app", "main", "."}

// sourceExtensions limits phase 2 to likely source files.
var sourceExtensions = map[string]bool{
	".java": true, ".js": true, ".ts": true, ".py": true, ".go": true,
	".rb": true, ".cs": true, ".kt": true, ".scala": true, ".php": true,
}

// responseCodeMarker gates the response-code scan: a file without it is
// not scanned for code-related logic at all.
var responseCodeMarker = "responseCode"

var (
	// correctedFlagRe matches the idiom of a boolean flag being set to
	// record a corrected outcome.
	correctedFlagRe = regexp.MustCompile(`(?i)(?:is)?correct(?:ed)?\s*(?:=|\()\s*true`)

	// validationRe matches null checks, emptiness checks and required
	// markers.
	validationRe = regexp.MustCompile(`(?i)(?:==\s*null|!=\s*null|\.isEmpty\(\)|isBlank\(\)|=== undefined|\brequired\b)`)

	// thrownErrorRe matches declared exception/error construction with a
	// literal message.
	thrownErrorRe = regexp.MustCompile(`(?:throw new|raise|errors\.New\(|panic\()\s*([A-Za-z][A-Za-z0-9_.]*)?\s*\(?\s*"([^"]+)"`)
)

// conditionContextLines is how many preceding lines are captured as the
// best-effort condition summary for a corrected-flag assignment.
const conditionContextLines = 3

// summaryKeywords are tested against condition text in priority order to
// derive a short human-readable summary.
var summaryKeywords = []struct {
	substr  string
	summary string
}{
	{"state", "state or province was corrected"},
	{"postal", "postal code was corrected"},
	{"zip", "postal code was corrected"},
	{"city", "city name was corrected"},
	{"street", "street line was corrected"},
}

// mineBusinessLogic runs phase 2 over source directories outside the
// test trees. Three independent scans: corrected-flag conditions,
// validation idioms, thrown errors.
func mineBusinessLogic(root string, acc accumulator) accumulator {
	visited := map[string]bool{}
	for _, dir := range conventionalSourceDirs {
		base := filepath.Join(root, dir)
		if info, err := os.Stat(base); err != nil || !info.IsDir() {
			continue
		}
		_ = filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if insideTestTree(path) || filepath.Base(path) == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			if visited[path] || !sourceExtensions[filepath.Ext(path)] || insideTestTree(path) {
				return nil
			}
			visited[path] = true

			data, err := os.ReadFile(path) // #nosec G304
			if err != nil {
				return nil
			}
			content := string(data)
			acc.filesScanned++

			if strings.Contains(content, responseCodeMarker) {
				acc = mineCorrectedConditions(content, acc)
			}
			acc = mineValidationIdioms(content, acc)
			acc = mineThrownErrors(content, acc)
			return nil
		})
	}
	return acc
}

// insideTestTree reports whether a path sits under a conventional test
// directory.
func insideTestTree(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		switch part {
		case "test", "tests", "spec", "specs", "__tests__":
			return true
		}
	}
	return false
}

// mineCorrectedConditions extracts the lines immediately preceding a
// corrected-flag assignment as a best-effort condition summary and
// records a business rule quoting the raw condition text.
func mineCorrectedConditions(content string, acc accumulator) accumulator {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if !correctedFlagRe.MatchString(line) {
			continue
		}
		start := i - conditionContextLines
		if start < 0 {
			start = 0
		}
		condition := strings.TrimSpace(strings.Join(lines[start:i], " "))
		if condition == "" {
			condition = strings.TrimSpace(line)
		}

		acc.rules = append(acc.rules, knowledge.BusinessRule{
			ID:          fmt.Sprintf("br_corrected_%d", len(acc.rules)),
			Name:        "CORRECTED when " + summarizeCondition(condition),
			Description: fmt.Sprintf("Source marks the result corrected under: %q", condition),
			Impact:      knowledge.ImpactMedium,
			TestRecommendations: []string{
				"Test an address where " + summarizeCondition(condition),
			},
		})
	}
	return acc
}

// summarizeCondition derives a short summary by testing the condition
// text for known keywords in priority order, falling back to a
// truncated excerpt.
func summarizeCondition(condition string) string {
	lower := strings.ToLower(condition)
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw.substr) {
			return kw.summary
		}
	}
	return utils.TruncateWithEllipsis(condition, 40)
}

// mineValidationIdioms counts validation checks. A single aggregate
// business rule is emitted at assembly time when any were seen.
func mineValidationIdioms(content string, acc accumulator) accumulator {
	acc.validationChecks += len(validationRe.FindAllString(content, -1))
	return acc
}

// mineThrownErrors records declared error messages as common errors.
func mineThrownErrors(content string, acc accumulator) accumulator {
	for _, m := range thrownErrorRe.FindAllStringSubmatch(content, -1) {
		errType := m[1]
		if errType == "" {
			errType = "Error"
		}
		acc.commonErrors = append(acc.commonErrors, fmt.Sprintf("%s: %s", errType, m[2]))
	}
	return acc
}
