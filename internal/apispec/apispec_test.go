package apispec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specmint/specmint-cli/internal/knowledge"
)

const specJSON = `{
	"info": {"title": "Address Verification API", "description": "Validates postal addresses"},
	"paths": {
		"/address/verify": {
			"post": {
				"summary": "Verify an address",
				"requestBody": {
					"content": {
						"application/json": {
							"schema": {"$ref": "#/components/schemas/AddressRequest"}
						}
					}
				}
			}
		}
	},
	"components": {
		"schemas": {
			"AddressRequest": {
				"type": "object",
				"required": ["streets", "city", "stateOrProvince", "country"],
				"properties": {
					"streets": {"type": "array", "description": "Street lines"},
					"city": {"type": "string"},
					"stateOrProvince": {"type": "string"},
					"postalCode": {"type": "string", "example": "31005"},
					"urbanization": {"type": "string"},
					"country": {"type": "string", "enum": ["US", "CA"]}
				}
			}
		}
	}
}`

func writeSpec(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDocumentJSON(t *testing.T) {
	doc, err := LoadDocument(writeSpec(t, "spec.json", specJSON))
	require.NoError(t, err)
	assert.Equal(t, "Address Verification API", doc.Info.Title)
	assert.Contains(t, doc.Paths, "/address/verify")
}

func TestLoadDocumentYAML(t *testing.T) {
	content := `
info:
  title: Address Verification API
paths:
  /address/verify:
    post:
      summary: Verify an address
`
	doc, err := LoadDocument(writeSpec(t, "spec.yaml", content))
	require.NoError(t, err)
	assert.Equal(t, "Address Verification API", doc.Info.Title)
	assert.Equal(t, "Verify an address", doc.Paths["/address/verify"]["post"].Summary)
}

func TestLoadDocumentMalformed(t *testing.T) {
	_, err := LoadDocument(writeSpec(t, "spec.json", "{oops"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed JSON specification")

	_, err = LoadDocument(writeSpec(t, "spec.yaml", "info:\n\ttitle: tabs are not indentation"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed YAML specification")
}

func TestBuildPartitionsFields(t *testing.T) {
	doc, err := LoadDocument(writeSpec(t, "spec.json", specJSON))
	require.NoError(t, err)

	ctx := Build("alpha", doc)
	assert.Equal(t, "Address Verification API", ctx.Domain.ServiceName)
	require.Len(t, ctx.Endpoints, 1)

	ep := ctx.Endpoints[0]
	assert.Equal(t, "/address/verify", ep.Path)
	assert.Equal(t, "POST", ep.Method)
	assert.Equal(t, "Verify an address", ep.Description)
	// Fields come out in sorted property order within each partition.
	assert.Equal(t, []string{"city", "country", "stateOrProvince", "streets"}, ep.RequiredFields)
	assert.Equal(t, []string{"postalCode", "urbanization"}, ep.OptionalFields)

	streets := ep.RequestSchema["streets"]
	assert.Equal(t, "array", streets.Type)
	assert.True(t, streets.Required)
	assert.Equal(t, "Street lines", streets.Description)

	postal := ep.RequestSchema["postalCode"]
	assert.False(t, postal.Required)
	assert.Equal(t, "31005", postal.Example)

	country := ep.RequestSchema["country"]
	assert.Equal(t, []string{"US", "CA"}, country.Enum)
}

func TestBuildEnumHints(t *testing.T) {
	doc, err := LoadDocument(writeSpec(t, "spec.json", specJSON))
	require.NoError(t, err)

	ctx := Build("alpha", doc)
	require.Len(t, ctx.GenerationHints, 1)
	assert.Equal(t, "schema_enum", ctx.GenerationHints[0].Category)
	assert.Equal(t, "AddressRequest.country only accepts: US, CA", ctx.GenerationHints[0].Hint)
}

func TestBuildSkipsUnrecognizedKeys(t *testing.T) {
	content := `{
		"paths": {
			"/address/verify": {
				"post": {"summary": "Verify"},
				"parameters": {},
				"options": {"summary": "never walked"}
			}
		}
	}`
	doc, err := LoadDocument(writeSpec(t, "spec.json", content))
	require.NoError(t, err)

	ctx := Build("alpha", doc)
	require.Len(t, ctx.Endpoints, 1)
	assert.Equal(t, "POST", ctx.Endpoints[0].Method)
}

func TestResolveSingleHopOnly(t *testing.T) {
	doc := &Document{
		Components: Components{Schemas: map[string]*Schema{
			"A": {Ref: "#/components/schemas/B"},
			"B": {Type: "object"},
		}},
	}

	// One hop resolves.
	got := resolve(doc, &Schema{Ref: "#/components/schemas/B"})
	require.NotNil(t, got)
	assert.Equal(t, "object", got.Type)

	// A reference to a reference is returned as-is, not chased.
	got = resolve(doc, &Schema{Ref: "#/components/schemas/A"})
	require.NotNil(t, got)
	assert.Equal(t, "#/components/schemas/B", got.Ref)

	// Foreign reference shapes resolve to nothing.
	assert.Nil(t, resolve(doc, &Schema{Ref: "#/definitions/X"}))
}

func TestMergeUpdatesStructureOnly(t *testing.T) {
	existing := knowledge.NewContext("alpha")
	existing.Endpoints = []knowledge.EndpointContext{
		{
			Path:   "/address/verify",
			Method: "POST",
			ResponseCodeBehaviors: []knowledge.ResponseCodeBehavior{
				{Code: "VERIFIED", ValidatedAddressState: knowledge.StatePopulated},
			},
			RequiredFields: []string{"old"},
		},
	}
	existing.GenerationHints = []knowledge.GenerationHint{
		{Category: "naming", Hint: "existing hint"},
	}

	baseline := knowledge.NewContext("alpha")
	baseline.Domain.ServiceName = "Address Verification API"
	baseline.Endpoints = []knowledge.EndpointContext{
		{
			Path:           "/address/verify",
			Method:         "POST",
			Description:    "Verify an address",
			RequiredFields: []string{"city", "country", "stateOrProvince", "streets"},
			OptionalFields: []string{"postalCode"},
			RequestSchema:  map[string]knowledge.FieldValidation{"city": {Type: "string", Required: true}},
		},
		{Path: "/address/batch", Method: "POST"},
	}
	baseline.GenerationHints = []knowledge.GenerationHint{
		{Category: "naming", Hint: "existing hint"},
		{Category: "schema_enum", Hint: "AddressRequest.country only accepts: US, CA"},
	}

	Merge(existing, baseline)

	require.Len(t, existing.Endpoints, 2)
	ep := existing.Endpoints[0]
	assert.Equal(t, []string{"city", "country", "stateOrProvince", "streets"}, ep.RequiredFields)
	assert.Equal(t, "Verify an address", ep.Description)
	// Behavioral knowledge survives the merge untouched.
	require.Len(t, ep.ResponseCodeBehaviors, 1)
	assert.Equal(t, "VERIFIED", ep.ResponseCodeBehaviors[0].Code)

	assert.Equal(t, "/address/batch", existing.Endpoints[1].Path)

	// Duplicate hints are not appended twice.
	require.Len(t, existing.GenerationHints, 2)
	assert.Equal(t, "schema_enum", existing.GenerationHints[1].Category)

	assert.Equal(t, "Address Verification API", existing.Domain.ServiceName)
}
