// Package value implements the Vibe value domain: the tagged value union,
// type annotations, assignability rules, and coercion used at every
// assignment and tool-argument boundary (spec §3, §4.A).
//
// The registry-of-descriptors shape mirrors tool.BuildSchema's declarative
// table construction in the teacher corpus: each base type is one entry
// naming how to validate, coerce, and post-validate it, rather than a
// hand-written type-switch sprawled across the codebase.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Kind is the Vibe base type tag. Array types are represented by Type,
// not by a distinct Kind — see Type.Depth.
type Kind string

const (
	KindText    Kind = "text"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindJSON    Kind = "json"
	KindNull    Kind = "null"
	KindPrompt  Kind = "prompt"
	KindModel   Kind = "model"
	KindTool    Kind = "tool"
	KindAIResult Kind = "ai_result"
	KindAny     Kind = "any"
)

// Type is a base kind plus an array depth (the number of trailing `[]`
// suffixes in the source annotation).
type Type struct {
	Base  Kind
	Depth int
}

// Elem returns the element type one array level down. Depth must be > 0.
func (t Type) Elem() Type { return Type{Base: t.Base, Depth: t.Depth - 1} }

func (t Type) String() string {
	return string(t.Base) + strings.Repeat("[]", t.Depth)
}

func (t Type) IsArray() bool { return t.Depth > 0 }

// ParseType parses an annotation like "text", "number[]", "json[][]".
func ParseType(annotation string) (Type, error) {
	depth := 0
	base := annotation
	for strings.HasSuffix(base, "[]") {
		depth++
		base = strings.TrimSuffix(base, "[]")
	}
	if base == "" {
		return Type{}, fmt.Errorf("empty type annotation")
	}
	k := Kind(base)
	if _, ok := registry[k]; !ok {
		return Type{}, fmt.Errorf("unknown type %q", base)
	}
	return Type{Base: k, Depth: depth}, nil
}

// ToolCall is an entry in an ai_result's call history.
type ToolCall struct {
	Name   string
	Args   json.RawMessage
	Result json.RawMessage
	Err    string
}

// Value is a single Vibe runtime value. Exactly one of the payload fields
// is meaningful, selected by Type.Base (and Type.Depth for arrays).
type Value struct {
	Type Type

	Text    string
	Number  float64
	Bool    bool
	JSON    map[string]any // KindJSON payload; always an object, never an array
	Array   []Value        // Depth > 0
	// Model/Tool carry opaque payloads the interpreter never inspects
	// directly; they are round-tripped through the host language's own
	// representation via Opaque.
	Opaque any

	// ai_result augmentation
	ToolCalls []ToolCall
	AIErr     string
}

func Text(s string) Value   { return Value{Type: Type{Base: KindText}, Text: s} }
func Prompt(s string) Value { return Value{Type: Type{Base: KindPrompt}, Text: s} }
func Number(n float64) Value { return Value{Type: Type{Base: KindNumber}, Number: n} }
func Bool(b bool) Value      { return Value{Type: Type{Base: KindBoolean}, Bool: b} }
func Null() Value            { return Value{Type: Type{Base: KindNull}} }
func JSONObject(m map[string]any) Value {
	return Value{Type: Type{Base: KindJSON}, JSON: m}
}
func Array(elemBase Kind, elemDepth int, elems []Value) Value {
	return Value{Type: Type{Base: elemBase, Depth: elemDepth + 1}, Array: elems}
}

// descriptor describes how to validate/coerce/post-validate a base type.
type descriptor struct {
	acceptsNull    bool
	validate       func(v Value) error
	coerceFromText func(s string) (Value, error)
	postValidate   func(v Value) error
}

var registry = map[Kind]descriptor{
	KindText: {
		acceptsNull: true,
		validate:    func(v Value) error { return nil },
	},
	KindPrompt: {
		acceptsNull: true,
		validate:    func(v Value) error { return nil },
	},
	KindNumber: {
		acceptsNull: true,
		validate:    func(v Value) error { return nil },
		postValidate: func(v Value) error {
			if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
				return fmt.Errorf("number must be finite, got %v", v.Number)
			}
			return nil
		},
	},
	KindBoolean: {
		acceptsNull: false,
		validate:    func(v Value) error { return nil },
	},
	KindJSON: {
		acceptsNull: true,
		validate:    func(v Value) error { return nil },
		coerceFromText: func(s string) (Value, error) {
			var raw any
			if err := json.Unmarshal([]byte(s), &raw); err != nil {
				return Value{}, fmt.Errorf("invalid json: %w", err)
			}
			m, ok := raw.(map[string]any)
			if !ok {
				return Value{}, fmt.Errorf("expected a json object, got array or scalar")
			}
			return JSONObject(m), nil
		},
		postValidate: func(v Value) error {
			if v.JSON == nil && v.Type.Depth == 0 {
				return nil
			}
			return nil
		},
	},
	KindNull:  {acceptsNull: true, validate: func(v Value) error { return nil }},
	KindModel: {acceptsNull: true, validate: func(v Value) error { return nil }},
	KindTool:  {acceptsNull: true, validate: func(v Value) error { return nil }},
	KindAIResult: {
		acceptsNull: true,
		validate:    func(v Value) error { return nil },
	},
	KindAny: {acceptsNull: true, validate: func(v Value) error { return nil }},
}

// IsValidType reports whether annotation parses against the registry.
func IsValidType(annotation string) bool {
	_, err := ParseType(annotation)
	return err == nil
}

// AssignableFrom reports whether a value of type src may be stored into a
// slot declared as tgt, per spec §3/§8's compatibility table.
func AssignableFrom(src, tgt Type) bool {
	if src.Depth != tgt.Depth {
		// null (depth 0, base "null") is the only cross-depth exception,
		// handled by the caller inspecting the actual value, not the type.
		return false
	}
	if src.Base == tgt.Base {
		return true
	}
	if tgt.Base == KindAny || src.Base == KindAny {
		return true
	}
	if src.Base == KindNull {
		return tgt.Base != KindBoolean
	}
	if (src.Base == KindText && tgt.Base == KindPrompt) || (src.Base == KindPrompt && tgt.Base == KindText) {
		return true
	}
	if src.Base == KindText && tgt.Base == KindJSON {
		return true // via coercion at validation time
	}
	return false
}

// ValidateValue checks v against the declared annotation, applying
// text→json coercion and recursing into arrays element-wise. It returns the
// (possibly coerced) value on success.
func ValidateValue(v Value, target Type) (Value, error) {
	if v.Type.Base == KindNull && v.Type.Depth == 0 {
		if target.Base == KindBoolean && target.Depth == 0 {
			return Value{}, fmt.Errorf("cannot assign null to boolean")
		}
		return Value{Type: target}, nil
	}

	if target.Depth > 0 {
		if v.Type.Depth != target.Depth || v.Array == nil && v.Type.Base != KindNull {
			if v.Type.Depth != target.Depth {
				return Value{}, fmt.Errorf("expected %s, got %s", target, v.Type)
			}
		}
		out := make([]Value, len(v.Array))
		for i, elem := range v.Array {
			validated, err := ValidateValue(elem, target.Elem())
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = validated
		}
		return Value{Type: target, Array: out}, nil
	}

	if v.Type.Base == target.Base {
		return postValidate(v, target)
	}

	// text → non-text coercion
	if v.Type.Base == KindText && target.Base != KindText && target.Base != KindPrompt {
		d, ok := registry[target.Base]
		if ok && d.coerceFromText != nil {
			coerced, err := d.coerceFromText(v.Text)
			if err != nil {
				return Value{}, err
			}
			return postValidate(coerced, target)
		}
		return Value{}, fmt.Errorf("expected %s, got text (no coercion available)", target)
	}

	if (v.Type.Base == KindText && target.Base == KindPrompt) || (v.Type.Base == KindPrompt && target.Base == KindText) {
		cp := v
		cp.Type = target
		return postValidate(cp, target)
	}

	if target.Base == KindAny {
		return v, nil
	}

	return Value{}, fmt.Errorf("expected %s, got %s", target, v.Type)
}

func postValidate(v Value, target Type) (Value, error) {
	d := registry[target.Base]
	if d.validate != nil {
		if err := d.validate(v); err != nil {
			return Value{}, err
		}
	}
	if d.postValidate != nil {
		if err := d.postValidate(v); err != nil {
			return Value{}, err
		}
	}
	cp := v
	cp.Type = target
	return cp, nil
}

// InferFromHostValue infers a Vibe type annotation for an untyped
// declaration's initializer, when the initializer produced a primitive
// host value (e.g. the result of a ts_eval or AI call with no declared
// target type).
func InferFromHostValue(v Value) (Type, bool) {
	switch v.Type.Base {
	case KindText, KindNumber, KindBoolean, KindJSON, KindPrompt:
		return v.Type, true
	default:
		return Type{}, false
	}
}

// ToJSON converts a Value into a plain `any` for JSON marshalling (used
// when formatting context entries and building AI structured-output
// requests).
func ToJSON(v Value) any {
	switch v.Type.Base {
	case KindText, KindPrompt:
		return v.Text
	case KindNumber:
		return v.Number
	case KindBoolean:
		return v.Bool
	case KindJSON:
		return v.JSON
	case KindNull:
		return nil
	default:
		if v.Type.Depth > 0 {
			arr := make([]any, len(v.Array))
			for i, e := range v.Array {
				arr[i] = ToJSON(e)
			}
			return arr
		}
		return v.Opaque
	}
}

// MarshalJSON renders a Value the way the context formatter does:
// JSON.stringify semantics over ToJSON's plain representation.
func MarshalJSON(v Value) (string, error) {
	b, err := json.Marshal(ToJSON(v))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DetectCycle does a bounded traversal to reject cyclic JSON-shaped data
// returned by tools or host code before it crosses into §4.A validation,
// per spec §9's "Cyclic references in values" design note. Go's value
// types can't form true reference cycles in JSON/Array fields (they are
// copied, not pointers), so this only guards the Opaque payload, which may
// wrap a host-language reference type.
func DetectCycle(v any, seen map[any]bool) error {
	switch t := v.(type) {
	case map[string]any:
		if seen[fmt.Sprintf("%p", t)] {
			return fmt.Errorf("cyclic reference detected")
		}
		seen2 := cloneSeen(seen)
		seen2[fmt.Sprintf("%p", t)] = true
		for _, elem := range t {
			if err := DetectCycle(elem, seen2); err != nil {
				return err
			}
		}
	case []any:
		for _, elem := range t {
			if err := DetectCycle(elem, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func cloneSeen(seen map[any]bool) map[any]bool {
	out := make(map[any]bool, len(seen)+1)
	for k, v := range seen {
		out[k] = v
	}
	return out
}
