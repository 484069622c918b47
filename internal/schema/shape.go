// Package schema describes tool payload contracts as declarative shapes and
// validates arbitrary JSON values against them.
//
// A Shape is a small tagged description (kind, fields, items, bounds, default)
// that renders to JSON Schema for advertising and for validation through
// gojsonschema. Validation also normalizes the value: unknown object keys are
// dropped and declared defaults are filled in for absent optional fields.
package schema

import "encoding/json"

// Kind is the JSON type a Shape accepts.
type Kind string

const (
	KindAny     Kind = ""
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Field is a named member of an object shape.
type Field struct {
	Name     string
	Shape    Shape
	Required bool
}

// Shape is a declarative description of an accepted value.
type Shape struct {
	Kind        Kind
	Description string
	Fields      []Field
	Items       *Shape
	Enum        []any
	Default     any
	Minimum     *float64
	Maximum     *float64
	MinLength   *int
	hasConst    bool
	constValue  any
}

// Any accepts every JSON value.
func Any() Shape { return Shape{Kind: KindAny} }

// String accepts JSON strings.
func String() Shape { return Shape{Kind: KindString} }

// Integer accepts JSON numbers without a fractional part.
func Integer() Shape { return Shape{Kind: KindInteger} }

// Number accepts any JSON number.
func Number() Shape { return Shape{Kind: KindNumber} }

// Boolean accepts true and false.
func Boolean() Shape { return Shape{Kind: KindBoolean} }

// ArrayOf accepts arrays whose elements all match items.
func ArrayOf(items Shape) Shape { return Shape{Kind: KindArray, Items: &items} }

// Object accepts JSON objects with the given fields.
func Object(fields ...Field) Shape { return Shape{Kind: KindObject, Fields: fields} }

// Required declares a field that must be present.
func Required(name string, s Shape) Field { return Field{Name: name, Shape: s, Required: true} }

// Optional declares a field that may be absent. If s carries a default, the
// normalized value will contain it.
func Optional(name string, s Shape) Field { return Field{Name: name, Shape: s} }

// Describe attaches a human readable description.
func (s Shape) Describe(text string) Shape {
	s.Description = text
	return s
}

// WithDefault sets the value substituted when the field is absent.
func (s Shape) WithDefault(v any) Shape {
	s.Default = v
	return s
}

// Min sets an inclusive lower bound for numeric shapes.
func (s Shape) Min(v float64) Shape {
	s.Minimum = &v
	return s
}

// Max sets an inclusive upper bound for numeric shapes.
func (s Shape) Max(v float64) Shape {
	s.Maximum = &v
	return s
}

// MinLen sets the minimum string length in characters.
func (s Shape) MinLen(n int) Shape {
	s.MinLength = &n
	return s
}

// OneOf restricts the value to a fixed set.
func (s Shape) OneOf(values ...any) Shape {
	s.Enum = append([]any(nil), values...)
	return s
}

// Literal restricts the value to exactly v.
func (s Shape) Literal(v any) Shape {
	s.hasConst = true
	s.constValue = v
	return s
}

// JSONSchema renders the shape as a JSON Schema document.
func (s Shape) JSONSchema() map[string]any {
	out := map[string]any{}
	if s.Kind != KindAny {
		out["type"] = string(s.Kind)
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.hasConst {
		out["const"] = s.constValue
	}
	if s.Default != nil {
		out["default"] = s.Default
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		out["maximum"] = *s.Maximum
	}
	if s.MinLength != nil {
		out["minLength"] = *s.MinLength
	}
	switch s.Kind {
	case KindArray:
		if s.Items != nil {
			out["items"] = s.Items.JSONSchema()
		}
	case KindObject:
		props := make(map[string]any, len(s.Fields))
		var required []string
		for _, f := range s.Fields {
			props[f.Name] = f.Shape.JSONSchema()
			if f.Required {
				required = append(required, f.Name)
			}
		}
		out["properties"] = props
		if len(required) > 0 {
			out["required"] = required
		}
	}
	return out
}

// MarshalJSON advertises the shape as JSON Schema.
func (s Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.JSONSchema())
}

// MarshalYAML renders the shape as JSON Schema for YAML output.
func (s Shape) MarshalYAML() (any, error) {
	return s.JSONSchema(), nil
}
