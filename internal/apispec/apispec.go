// Package apispec builds baseline endpoint contexts from a resolved API
// specification document. It supplies structural shape only (fields,
// types, enums); behavioral knowledge comes from the legacy rules or
// repository mining paths.
package apispec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/specmint/specmint-cli/internal/knowledge"
	"github.com/specmint/specmint-cli/internal/log"
	"github.com/specmint/specmint-cli/internal/utils"
)

// recognizedMethods is the verb set walked per path. Keys outside this
// set (parameters, servers, extensions) are skipped.
var recognizedMethods = []string{"get", "post", "put", "patch", "delete"}

// Document is the resolved specification shape this adapter consumes.
// Wire-format concerns (reference resolution beyond one hop, discriminators)
// are out of scope; only what is declared here is read.
type Document struct {
	Info       Info                            `json:"info" yaml:"info"`
	Paths      map[string]map[string]Operation `json:"paths" yaml:"paths"`
	Components Components                      `json:"components" yaml:"components"`
}

type Info struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

type Components struct {
	Schemas map[string]*Schema `json:"schemas" yaml:"schemas"`
}

type Operation struct {
	Summary     string       `json:"summary" yaml:"summary"`
	Description string       `json:"description" yaml:"description"`
	RequestBody *RequestBody `json:"requestBody" yaml:"requestBody"`
}

type RequestBody struct {
	Content map[string]MediaType `json:"content" yaml:"content"`
}

type MediaType struct {
	Schema *Schema `json:"schema" yaml:"schema"`
}

// Schema is a deliberately loose schema node: enough for property
// partitioning and enum extraction, nothing more.
type Schema struct {
	Ref         string             `json:"$ref" yaml:"$ref"`
	Type        string             `json:"type" yaml:"type"`
	Description string             `json:"description" yaml:"description"`
	Example     any                `json:"example" yaml:"example"`
	Enum        []any              `json:"enum" yaml:"enum"`
	Properties  map[string]*Schema `json:"properties" yaml:"properties"`
	Required    []string           `json:"required" yaml:"required"`
}

// LoadDocument reads a specification document from disk, parsing JSON or
// YAML by extension.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read specification: %w", err)
	}

	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("malformed YAML specification %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("malformed JSON specification %s: %w", path, err)
		}
	}
	return &doc, nil
}

// Build produces a Context holding one baseline endpoint per declared
// path+method pair, plus one schema_enum hint per enum-constrained
// property in the shared definitions.
func Build(team string, doc *Document) *knowledge.Context {
	ctx := knowledge.NewContext(team)
	ctx.Domain.ServiceName = doc.Info.Title
	ctx.Domain.ServiceDescription = doc.Info.Description

	for _, path := range sortedPathKeys(doc.Paths) {
		ops := doc.Paths[path]
		for _, method := range recognizedMethods {
			op, ok := ops[method]
			if !ok {
				continue
			}
			ctx.Endpoints = append(ctx.Endpoints, buildEndpoint(doc, path, method, op))
		}
	}

	ctx.GenerationHints = enumHints(doc)
	log.Debug("Built baseline context from specification",
		"team", team, "endpoints", len(ctx.Endpoints), "hints", len(ctx.GenerationHints))
	return ctx
}

func buildEndpoint(doc *Document, path, method string, op Operation) knowledge.EndpointContext {
	endpoint := knowledge.EndpointContext{
		Path:   path,
		Method: strings.ToUpper(method),
		// Descriptions can be multi-paragraph; the endpoint description
		// keeps only the leading line.
		Description:   firstNonEmpty(op.Summary, utils.FirstNonEmptyLine(op.Description)),
		RequestSchema: map[string]knowledge.FieldValidation{},
	}

	schema := requestSchema(doc, op)
	if schema == nil {
		return endpoint
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	for _, name := range sortedSchemaKeys(schema.Properties) {
		prop := resolve(doc, schema.Properties[name])
		if prop == nil {
			continue
		}
		if required[name] {
			endpoint.RequiredFields = append(endpoint.RequiredFields, name)
		} else {
			endpoint.OptionalFields = append(endpoint.OptionalFields, name)
		}
		endpoint.RequestSchema[name] = knowledge.FieldValidation{
			Type:        prop.Type,
			Required:    required[name],
			Description: prop.Description,
			Example:     prop.Example,
			Enum:        enumStrings(prop.Enum),
		}
	}

	return endpoint
}

// requestSchema resolves the JSON request-body schema of an operation,
// following at most one reference indirection.
func requestSchema(doc *Document, op Operation) *Schema {
	if op.RequestBody == nil {
		return nil
	}
	media, ok := op.RequestBody.Content["application/json"]
	if !ok || media.Schema == nil {
		return nil
	}
	return resolve(doc, media.Schema)
}

// resolve follows a single #/components/schemas/<name> indirection.
// Deeper chains are not followed.
func resolve(doc *Document, s *Schema) *Schema {
	if s == nil || s.Ref == "" {
		return s
	}
	name := strings.TrimPrefix(s.Ref, "#/components/schemas/")
	if name == s.Ref {
		return nil
	}
	return doc.Components.Schemas[name]
}

// enumHints emits one hint per enum-constrained property found anywhere
// in the shared schema definitions, in stable name order.
func enumHints(doc *Document) []knowledge.GenerationHint {
	var hints []knowledge.GenerationHint
	for _, schemaName := range sortedSchemaKeys(doc.Components.Schemas) {
		schema := doc.Components.Schemas[schemaName]
		if schema == nil {
			continue
		}
		for _, propName := range sortedSchemaKeys(schema.Properties) {
			prop := schema.Properties[propName]
			if prop == nil || len(prop.Enum) == 0 {
				continue
			}
			hints = append(hints, knowledge.GenerationHint{
				Category: "schema_enum",
				Hint: fmt.Sprintf("%s.%s only accepts: %s",
					schemaName, propName, strings.Join(enumStrings(prop.Enum), ", ")),
			})
		}
	}
	return hints
}

// Merge folds structural shape from a freshly built baseline into an
// existing Context: matching endpoints get their schema fields updated,
// unseen endpoints and hints are appended. Behavioral fields of the
// existing Context are never touched.
func Merge(existing, baseline *knowledge.Context) {
	for _, built := range baseline.Endpoints {
		merged := false
		for i := range existing.Endpoints {
			ep := &existing.Endpoints[i]
			if ep.Path != built.Path || ep.Method != built.Method {
				continue
			}
			ep.RequiredFields = built.RequiredFields
			ep.OptionalFields = built.OptionalFields
			ep.RequestSchema = built.RequestSchema
			if ep.Description == "" {
				ep.Description = built.Description
			}
			merged = true
			break
		}
		if !merged {
			existing.Endpoints = append(existing.Endpoints, built)
		}
	}

	seen := make(map[string]bool, len(existing.GenerationHints))
	for _, h := range existing.GenerationHints {
		seen[h.Category+"|"+h.Hint] = true
	}
	for _, h := range baseline.GenerationHints {
		if !seen[h.Category+"|"+h.Hint] {
			existing.GenerationHints = append(existing.GenerationHints, h)
		}
	}

	if existing.Domain.ServiceName == "" {
		existing.Domain.ServiceName = baseline.Domain.ServiceName
	}
	if existing.Domain.ServiceDescription == "" {
		existing.Domain.ServiceDescription = baseline.Domain.ServiceDescription
	}
}

func enumStrings(enum []any) []string {
	var out []string
	for _, v := range enum {
		out = append(out, fmt.Sprintf("%v", v))
	}
	return out
}

func sortedPathKeys(m map[string]map[string]Operation) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSchemaKeys(m map[string]*Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
