package miner

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/specmint/specmint-cli/internal/knowledge"
)

// conventionalReadmeFiles is the fixed set of documentation filenames
// searched during phase 4.
var conventionalReadmeFiles = []string{
	"README.md",
	"README.rst",
	"README.txt",
	"readme.md",
	filepath.Join("docs", "README.md"),
	filepath.Join("docs", "api.md"),
}

// endpointDocRe matches an HTTP verb plus path mention in documentation.
var endpointDocRe = regexp.MustCompile(`\b(GET|POST|PUT|PATCH|DELETE)\s+(/[^\s` + "`" + `)]*)`)

// mineDocumentation runs phase 4: record each documented verb+path line
// as a documentation hint.
func mineDocumentation(root string, acc accumulator) accumulator {
	for _, name := range conventionalReadmeFiles {
		path := filepath.Join(root, name)
		data, err := os.ReadFile(path) // #nosec G304
		if err != nil {
			continue
		}
		acc.filesScanned++

		for _, line := range strings.Split(string(data), "\n") {
			for _, m := range endpointDocRe.FindAllStringSubmatch(line, -1) {
				acc.docHints = append(acc.docHints, knowledge.GenerationHint{
					Category: "documentation",
					Hint:     "Documented endpoint: " + m[1] + " " + m[2],
					Example:  strings.TrimSpace(line),
				})
			}
		}
	}
	return acc
}
