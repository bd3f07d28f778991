// Package store owns the load/save/cache lifecycle of team contexts:
// a bounded in-memory cache keyed by team, JSON persistence under the
// teams directory, and the fallback order when both are absent.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/specmint/specmint-cli/internal/knowledge"
	"github.com/specmint/specmint-cli/internal/legacy"
	"github.com/specmint/specmint-cli/internal/log"
	"github.com/specmint/specmint-cli/internal/utils"
)

const (
	contextSubDir   = "context"
	contextFileName = "api-context.json"
	rulesFileName   = "rules.json"
	configFileName  = "config.json"
)

// ErrInvalidTeam is returned when a team name contains path traversal characters.
var ErrInvalidTeam = errors.New("invalid team: contains path traversal characters")

// ErrMalformed is returned when a persisted document cannot be parsed.
// The caller decides whether to rebuild; the document is never silently
// coerced into a partial Context.
var ErrMalformed = errors.New("malformed context document")

// isValidPathComponent checks that a team name is safe to use as a single
// path component. It rejects names containing path separators or parent
// directory references.
func isValidPathComponent(team string) bool {
	if team == "" || team == "." || team == ".." {
		return false
	}
	if strings.ContainsAny(team, `/\`) {
		return false
	}
	if strings.Contains(team, "..") {
		return false
	}
	return true
}

// Store manages persisted contexts for all teams. A single caller
// process is assumed; concurrent Load/Save for the same team must be
// serialized by the caller.
type Store struct {
	teamsDir string
	cache    *lru.Cache[string, *knowledge.Context]
}

// New creates a Store rooted at teamsDir with a bounded context cache.
func New(teamsDir string, cacheSize int) (*Store, error) {
	if cacheSize < 1 {
		cacheSize = 32
	}
	cache, err := lru.New[string, *knowledge.Context](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create context cache: %w", err)
	}
	return &Store{teamsDir: teamsDir, cache: cache}, nil
}

// ContextPath returns the canonical document path for a team.
func (s *Store) ContextPath(team string) string {
	return filepath.Join(s.teamsDir, team, contextSubDir, contextFileName)
}

// RulesPath returns the legacy rules document path for a team.
func (s *Store) RulesPath(team string) string {
	return filepath.Join(s.teamsDir, team, rulesFileName)
}

// ConfigPath returns the legacy config document path for a team.
func (s *Store) ConfigPath(team string) string {
	return filepath.Join(s.teamsDir, team, configFileName)
}

// Load returns the team's Context. Resolution order: in-memory cache,
// persisted document, legacy rules build. Absence of every source is not
// an error: the legacy adapter then yields an empty-but-valid Context.
func (s *Store) Load(team string) (*knowledge.Context, error) {
	if !isValidPathComponent(team) {
		return nil, fmt.Errorf("invalid team %q: %w", team, ErrInvalidTeam)
	}

	if ctx, ok := s.cache.Get(team); ok {
		log.Debug("Context cache hit", "team", team)
		return ctx, nil
	}

	path := s.ContextPath(team)
	data, err := os.ReadFile(path) // #nosec G304
	if err == nil {
		var ctx knowledge.Context
		if err := json.Unmarshal(data, &ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
		}
		s.cache.Add(team, &ctx)
		log.Debug("Context loaded from disk", "team", team, "path", path)
		return &ctx, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read context document: %w", err)
	}

	// No persisted document. Fall back to the legacy rules build, which
	// itself tolerates missing inputs.
	log.Debug("No persisted context, building from legacy rules", "team", team)
	ctx, err := legacy.Build(team, s.RulesPath(team), s.ConfigPath(team))
	if err != nil {
		return nil, err
	}
	if err := s.Save(team, ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Save persists the Context as the canonical document and updates the
// cache to the same object. LastUpdated is regenerated on every save.
func (s *Store) Save(team string, ctx *knowledge.Context) error {
	if !isValidPathComponent(team) {
		return fmt.Errorf("invalid team %q: %w", team, ErrInvalidTeam)
	}

	ctx.LastUpdated = time.Now().UTC()

	path := s.ContextPath(team)
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create context directory: %w", err)
	}

	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize context: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write context document: %w", err)
	}

	s.cache.Add(team, ctx)
	log.Debug("Context saved", "team", team, "path", path)
	return nil
}

// ClearCache drops every cached Context. The next Load re-reads from disk.
func (s *Store) ClearCache() {
	s.cache.Purge()
}

// PatchBehaviorState rewrites one address-state field of one response
// code behavior in the persisted document. This is the only mutation
// path after creation; everything else in the document is left intact.
// field must be "validatedAddressState" or "sanitizedAddressState".
func (s *Store) PatchBehaviorState(team, code, field, value string) error {
	if value != knowledge.StatePopulated && value != knowledge.StateNull {
		return fmt.Errorf("invalid state value %q", value)
	}

	ctx, err := s.Load(team)
	if err != nil {
		return err
	}

	patched := false
	for ei := range ctx.Endpoints {
		for bi := range ctx.Endpoints[ei].ResponseCodeBehaviors {
			b := &ctx.Endpoints[ei].ResponseCodeBehaviors[bi]
			if b.Code != code {
				continue
			}
			switch field {
			case "validatedAddressState":
				b.ValidatedAddressState = value
			case "sanitizedAddressState":
				b.SanitizedAddressState = value
			default:
				return fmt.Errorf("unknown behavior field %q", field)
			}
			patched = true
		}
	}
	if !patched {
		return fmt.Errorf("no behavior with code %q for team %q", code, team)
	}

	log.Info("Patching behavior state", "team", team, "code", code, "field", field, "value", value)
	return s.Save(team, ctx)
}
