package miner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigLineProperties(t *testing.T) {
	tests := []struct {
		line    string
		key     string
		value   string
		ok      bool
	}{
		{"service.name=verify-svc", "service.name", "verify-svc", true},
		{"service.url = http://localhost:8080 ", "service.url", "http://localhost:8080", true},
		{`quoted="value"`, "quoted", "value", true},
		{"empty.value=", "empty.value", "", true},
		{"# a comment", "", "", false},
		{"! properties comment", "", "", false},
		{"", "", "", false},
		{"no-separator", "", "", false},
	}
	for _, tt := range tests {
		key, value, ok := parseConfigLine(tt.line, false)
		assert.Equal(t, tt.ok, ok, "line %q", tt.line)
		assert.Equal(t, tt.key, key, "line %q", tt.line)
		assert.Equal(t, tt.value, value, "line %q", tt.line)
	}
}

func TestParseConfigLineYAML(t *testing.T) {
	tests := []struct {
		line  string
		key   string
		value string
		ok    bool
	}{
		{"name: verify-svc", "name", "verify-svc", true},
		{"port: '8080'", "port", "8080", true},
		{"  nested: value", "", "", false},
		{"block:", "", "", false},
		{"# comment", "", "", false},
	}
	for _, tt := range tests {
		key, value, ok := parseConfigLine(tt.line, true)
		assert.Equal(t, tt.ok, ok, "line %q", tt.line)
		assert.Equal(t, tt.key, key, "line %q", tt.line)
		assert.Equal(t, tt.value, value, "line %q", tt.line)
	}
}

func TestMineConfigurationLastWriteWins(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "application.properties"),
		[]byte("service.name=first\nservice.timeout=30\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "application.yml"),
		[]byte("service.name: second\n"), 0o600))

	acc := mineConfiguration(root, newAccumulator())
	assert.Equal(t, "second", acc.configValues["service.name"])
	assert.Equal(t, "30", acc.configValues["service.timeout"])
	// First-seen order is preserved even when the value is overwritten.
	assert.Equal(t, []string{"service.name", "service.timeout"}, acc.configOrder)
	assert.Equal(t, 2, acc.filesScanned)
}

func TestMineConfigurationNestedResources(t *testing.T) {
	root := t.TempDir()
	resources := filepath.Join(root, "src", "main", "resources")
	require.NoError(t, os.MkdirAll(resources, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(resources, "application.properties"),
		[]byte("spring.application.name=address-verify\n"), 0o600))

	acc := mineConfiguration(root, newAccumulator())
	assert.Equal(t, "address-verify", acc.configValues["spring.application.name"])
}
