package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextSubcommands(t *testing.T) {
	var names []string
	for _, sub := range contextCmd.Commands() {
		names = append(names, sub.Name())
	}

	// No cache-management subcommand: the in-memory cache lives and dies
	// with the process, so a CLI invocation always starts cold.
	assert.ElementsMatch(t, []string{"build", "mine", "spec", "show", "validate"}, names)
}
