// Package miner extracts domain knowledge from a service's source
// repository: test fixtures, business logic, configuration and
// documentation. Everything here is best-effort heuristics over text;
// a pass that extracts nothing is a normal outcome, never an error, and
// one phase's failure to match must never abort a later phase.
package miner

import (
	"context"
	"time"

	"github.com/specmint/specmint-cli/internal/knowledge"
	"github.com/specmint/specmint-cli/internal/log"
)

// accumulator threads the mining state through the phases explicitly.
// Phases receive it by value and return the updated copy; nothing is
// shared between phases except through this value.
type accumulator struct {
	samples          map[string][]Sample
	assertionHints   []knowledge.GenerationHint
	edgeCases        []knowledge.EdgeCase
	rules            []knowledge.BusinessRule
	commonErrors     []string
	validationChecks int
	configValues     map[string]string
	configOrder      []string
	docHints         []knowledge.GenerationHint
	filesScanned     int
	testFiles        int
}

func newAccumulator() accumulator {
	return accumulator{
		samples:      map[string][]Sample{},
		configValues: map[string]string{},
	}
}

// Stats summarizes one mining run.
type Stats struct {
	FilesScanned      int            `json:"filesScanned"`
	TestFiles         int            `json:"testFiles"`
	SamplesByCategory map[string]int `json:"samplesByCategory"`
	BusinessRules     int            `json:"businessRules"`
	EdgeCases         int            `json:"edgeCases"`
	ConfigValues      int            `json:"configValues"`
	Hints             int            `json:"hints"`
}

// Options configures a mining run.
type Options struct {
	Branch          string
	CheckoutTimeout time.Duration
	MaxHints        int
}

// Miner runs the five-phase extraction pipeline over a repository
// checkout.
type Miner struct {
	extractors []Extractor
	opts       Options
}

// New creates a Miner with the default fixture extractors.
func New(opts Options) *Miner {
	if opts.CheckoutTimeout <= 0 {
		opts.CheckoutTimeout = 120 * time.Second
	}
	return &Miner{extractors: DefaultExtractors(), opts: opts}
}

// Mine clones (or opens) the repository at location and runs the
// pipeline, returning the assembled Context and run statistics. The
// temporary checkout is removed on every exit path.
func (m *Miner) Mine(ctx context.Context, location, team string) (*knowledge.Context, *Stats, error) {
	checkout, err := acquireCheckout(ctx, location, m.opts.Branch, m.opts.CheckoutTimeout)
	if err != nil {
		return nil, nil, err
	}
	// Statistics are computed from the checkout, so cleanup must not run
	// before assembly.
	defer checkout.Cleanup()

	acc := newAccumulator()

	acc = mineFixtures(checkout.Dir, m.extractors, acc)
	log.Debug("Fixture mining complete", "testFiles", acc.testFiles, "categories", len(acc.samples))

	acc = mineBusinessLogic(checkout.Dir, acc)
	log.Debug("Business logic mining complete", "rules", len(acc.rules))

	acc = mineConfiguration(checkout.Dir, acc)
	log.Debug("Configuration mining complete", "values", len(acc.configValues))

	acc = mineDocumentation(checkout.Dir, acc)
	log.Debug("Documentation mining complete", "hints", len(acc.docHints))

	result := assemble(team, acc, m.opts.MaxHints)
	stats := statsFrom(acc, result)
	return result, stats, nil
}

func statsFrom(acc accumulator, ctx *knowledge.Context) *Stats {
	byCategory := map[string]int{}
	for _, code := range knowledge.ResponseCodes {
		byCategory[code] = len(acc.samples[code])
	}
	return &Stats{
		FilesScanned:      acc.filesScanned,
		TestFiles:         acc.testFiles,
		SamplesByCategory: byCategory,
		BusinessRules:     len(ctx.Domain.BusinessRules),
		EdgeCases:         len(ctx.Domain.EdgeCases),
		ConfigValues:      len(acc.configValues),
		Hints:             len(ctx.GenerationHints),
	}
}
