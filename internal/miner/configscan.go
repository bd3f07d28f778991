package miner

import (
	"os"
	"path/filepath"
	"strings"
)

// conventionalConfigFiles is the fixed set of configuration filenames
// searched during phase 3, in scan order. Later files win on key
// collisions.
var conventionalConfigFiles = []string{
	"application.properties",
	"config.properties",
	".env",
	"application.yml",
	"application.yaml",
	"config.yml",
	"config.yaml",
	filepath.Join("src", "main", "resources", "application.properties"),
	filepath.Join("src", "main", "resources", "application.yml"),
}

// mineConfiguration runs phase 3: parse line-oriented key=value pairs
// (properties/env dialect) and simple top-level "key: value" pairs (yaml
// dialect) into a flat table.
func mineConfiguration(root string, acc accumulator) accumulator {
	for _, name := range conventionalConfigFiles {
		path := filepath.Join(root, name)
		data, err := os.ReadFile(path) // #nosec G304
		if err != nil {
			continue
		}
		acc.filesScanned++

		yamlDialect := strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")
		for _, line := range strings.Split(string(data), "\n") {
			key, value, ok := parseConfigLine(line, yamlDialect)
			if !ok {
				continue
			}
			if _, exists := acc.configValues[key]; !exists {
				acc.configOrder = append(acc.configOrder, key)
			}
			acc.configValues[key] = value
		}
	}
	return acc
}

// parseConfigLine parses one configuration line. Comments, section
// headers and nested yaml keys are skipped.
func parseConfigLine(line string, yamlDialect bool) (string, string, bool) {
	if strings.TrimSpace(line) == "" {
		return "", "", false
	}
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
		return "", "", false
	}

	if yamlDialect {
		// Top-level keys only: indented lines belong to nested blocks.
		if line != trimmed {
			return "", "", false
		}
		key, value, found := strings.Cut(trimmed, ":")
		if !found {
			return "", "", false
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			return "", "", false
		}
		return key, strings.Trim(value, `"'`), true
	}

	key, value, found := strings.Cut(trimmed, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	return key, strings.Trim(strings.TrimSpace(value), `"'`), true
}
