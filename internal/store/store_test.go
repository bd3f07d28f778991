package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specmint/specmint-cli/internal/knowledge"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), 4)
	require.NoError(t, err)
	return s
}

func sampleContext(team string) *knowledge.Context {
	ctx := knowledge.NewContext(team)
	ctx.Domain.ServiceName = "Address Verification API"
	ctx.Endpoints = []knowledge.EndpointContext{
		{
			Path:   "/address/verify",
			Method: "POST",
			ResponseCodeBehaviors: []knowledge.ResponseCodeBehavior{
				{
					Code:                  "VERIFIED",
					ValidatedAddressState: knowledge.StatePopulated,
					SanitizedAddressState: knowledge.StateNull,
				},
				{
					Code:                  "CORRECTED",
					ValidatedAddressState: knowledge.StateNull,
					SanitizedAddressState: knowledge.StatePopulated,
				},
			},
		},
	}
	return ctx
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	original := sampleContext("alpha")

	require.NoError(t, s.Save("alpha", original))

	// Read past the cache so the test exercises disk deserialization.
	s.ClearCache()
	loaded, err := s.Load("alpha")
	require.NoError(t, err)

	assert.Equal(t, original.Version, loaded.Version)
	assert.Equal(t, original.Team, loaded.Team)
	assert.Equal(t, original.Domain, loaded.Domain)
	assert.Equal(t, original.Endpoints, loaded.Endpoints)
}

func TestLoadUsesCache(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("alpha", sampleContext("alpha")))

	first, err := s.Load("alpha")
	require.NoError(t, err)

	// Delete the persisted file; a cached Load must still succeed and
	// return the identical object.
	require.NoError(t, os.Remove(s.ContextPath("alpha")))

	second, err := s.Load("alpha")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestClearCacheForcesReRead(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("alpha", sampleContext("alpha")))

	// Rewrite the document behind the cache's back.
	loaded, err := s.Load("alpha")
	require.NoError(t, err)
	loaded.Domain.ServiceName = "changed on disk"
	data, err := json.Marshal(loaded)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.ContextPath("alpha"), data, 0o600))

	s.ClearCache()
	fresh, err := s.Load("alpha")
	require.NoError(t, err)
	assert.Equal(t, "changed on disk", fresh.Domain.ServiceName)
}

func TestLoadMalformedDocument(t *testing.T) {
	s := newTestStore(t)
	path := s.ContextPath("alpha")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := s.Load("alpha")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestLoadFallsBackToLegacyBuild(t *testing.T) {
	s := newTestStore(t)

	rules := `{
		"serviceName": "Address Verification API",
		"responseCodeBehaviors": {
			"VERIFIED": {
				"description": "Full match",
				"validatedAddress": "populated",
				"requestAddressSanitized": "null",
				"triggers": ["complete valid address"]
			}
		}
	}`
	require.NoError(t, os.MkdirAll(filepath.Dir(s.RulesPath("alpha")), 0o750))
	require.NoError(t, os.WriteFile(s.RulesPath("alpha"), []byte(rules), 0o600))

	ctx, err := s.Load("alpha")
	require.NoError(t, err)
	require.Len(t, ctx.Endpoints, 1)
	assert.Equal(t, "VERIFIED", ctx.Endpoints[0].ResponseCodeBehaviors[0].Code)

	// The fallback build is persisted as the canonical document.
	assert.FileExists(t, s.ContextPath("alpha"))
}

func TestLoadEmptyTeamYieldsValidContext(t *testing.T) {
	s := newTestStore(t)

	ctx, err := s.Load("brand-new")
	require.NoError(t, err)
	assert.Equal(t, knowledge.ContextVersion, ctx.Version)
	assert.Equal(t, "brand-new", ctx.Team)
	assert.Empty(t, ctx.Endpoints)
}

func TestInvalidTeamNames(t *testing.T) {
	s := newTestStore(t)

	for _, team := range []string{"", ".", "..", "a/b", `a\b`, "..secret"} {
		_, err := s.Load(team)
		assert.ErrorIs(t, err, ErrInvalidTeam, "team %q", team)

		err = s.Save(team, sampleContext("x"))
		assert.ErrorIs(t, err, ErrInvalidTeam, "team %q", team)
	}
}

func TestPatchBehaviorState(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("alpha", sampleContext("alpha")))

	require.NoError(t, s.PatchBehaviorState("alpha", "VERIFIED", "validatedAddressState", knowledge.StateNull))

	s.ClearCache()
	ctx, err := s.Load("alpha")
	require.NoError(t, err)

	behaviors := ctx.Endpoints[0].ResponseCodeBehaviors
	assert.Equal(t, knowledge.StateNull, behaviors[0].ValidatedAddressState)
	// The sibling field and the other behavior are untouched.
	assert.Equal(t, knowledge.StateNull, behaviors[0].SanitizedAddressState)
	assert.Equal(t, knowledge.StateNull, behaviors[1].ValidatedAddressState)
	assert.Equal(t, knowledge.StatePopulated, behaviors[1].SanitizedAddressState)
}

func TestPatchBehaviorStateRejectsBadInput(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("alpha", sampleContext("alpha")))

	tests := []struct {
		name  string
		code  string
		field string
		value string
	}{
		{"bad value", "VERIFIED", "validatedAddressState", "maybe"},
		{"unknown field", "VERIFIED", "responseCode", knowledge.StateNull},
		{"unknown code", "BOGUS", "validatedAddressState", knowledge.StateNull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.PatchBehaviorState("alpha", tt.code, tt.field, tt.value)
			assert.Error(t, err)
		})
	}
}
