// Package tool implements the tool registry and dispatcher (spec §4.C): the
// unified interface both native Go tools and Vibe-defined `tool`
// declarations implement, a JSON-Schema-backed parameter contract, and the
// parent/view registry that lets a single call frame layer extra tools on
// top of the program-wide set without mutating it.
package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Tool is the unified interface for all tools, whether native or
// Vibe-defined (spec §4.C "two executor kinds").
type Tool interface {
	Name() string
	Description() string
	InputSchema() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage) (Result, error)
}

// Result is a tool execution outcome. Exactly one of Output/Err is set; a
// non-empty Err is surfaced to the AI as a `[error]` observation and is
// never fatal to the program (spec §7's ToolError policy).
type Result struct {
	Output json.RawMessage
	Err    string
}

// Param describes one named parameter for BuildSchema. Type is a Vibe type
// annotation string ("text", "number[]", "json", ...), translated to the
// corresponding JSON Schema fragment.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// BuildSchema generates a full JSON Schema object (spec §4.C), unlike the
// teacher corpus's flat string/enum-only schema, so it can describe the
// richer parameter type set (text|number|boolean|json|array<T>).
func BuildSchema(params ...Param) json.RawMessage {
	properties := make(map[string]any, len(params))
	var required []string

	for _, p := range params {
		properties[p.Name] = schemaFragment(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	data, _ := json.Marshal(schema)
	return data
}

func schemaFragment(p Param) map[string]any {
	frag := map[string]any{"description": p.Description}
	base := p.Type
	depth := 0
	for len(base) >= 2 && base[len(base)-2:] == "[]" {
		depth++
		base = base[:len(base)-2]
	}
	leaf := jsonSchemaType(base)
	if len(p.Enum) > 0 {
		leaf["enum"] = p.Enum
	}
	cur := leaf
	for i := 0; i < depth; i++ {
		cur = map[string]any{"type": "array", "items": cur}
	}
	for k, v := range cur {
		frag[k] = v
	}
	return frag
}

func jsonSchemaType(base string) map[string]any {
	switch base {
	case "number":
		return map[string]any{"type": "number"}
	case "boolean":
		return map[string]any{"type": "boolean"}
	case "json":
		return map[string]any{"type": "object"}
	default: // text, prompt, and anything unrecognized fall back to string
		return map[string]any{"type": "string"}
	}
}

// CompileSchema compiles a tool's InputSchema for argument validation,
// mirroring re-cinq-wave's use of santhosh-tekuri/jsonschema/v6 to validate
// structured payloads against a schema built at registration time.
func CompileSchema(schema json.RawMessage) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	const resourceURL = "mem://tool-schema.json"
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}

// ValidateArgs validates raw JSON tool-call arguments against a compiled
// schema, surfacing violations as a ToolError observation rather than a
// fatal program error.
func ValidateArgs(schema *jsonschema.Schema, args json.RawMessage) error {
	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("invalid json arguments: %w", err)
	}
	return schema.Validate(v)
}
