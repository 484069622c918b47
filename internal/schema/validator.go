package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FieldError identifies one offending location in a validated value.
type FieldError struct {
	Path     string `json:"path"`
	Rule     string `json:"rule"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Message  string `json:"message"`
}

// ValidationError reports every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Path, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Schema is a compiled Shape ready for repeated validation.
type Schema struct {
	shape    Shape
	compiled *gojsonschema.Schema
}

// Compile renders and compiles a shape. Compilation errors indicate a
// malformed shape declaration, never bad data.
func Compile(shape Shape) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(shape.JSONSchema()))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{shape: shape, compiled: compiled}, nil
}

// MustCompile is Compile for package-level shape declarations.
func MustCompile(shape Shape) *Schema {
	s, err := Compile(shape)
	if err != nil {
		panic(err)
	}
	return s
}

// Shape returns the declaration the schema was compiled from.
func (s *Schema) Shape() Shape { return s.shape }

// Validate checks value and returns its normalized form: a generic JSON value
// with defaults applied and undeclared object keys removed. A data mismatch is
// returned as *ValidationError.
func (s *Schema) Validate(value any) (any, error) {
	generic, err := toGeneric(value)
	if err != nil {
		return nil, &ValidationError{Fields: []FieldError{{
			Path:    "(root)",
			Rule:    "encoding",
			Message: err.Error(),
		}}}
	}
	normalized := normalize(s.shape, generic)

	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(normalized))
	if err != nil {
		return nil, &ValidationError{Fields: []FieldError{{
			Path:    "(root)",
			Rule:    "encoding",
			Message: err.Error(),
		}}}
	}
	if result.Valid() {
		return normalized, nil
	}
	return nil, newValidationError(result.Errors())
}

// Validate compiles shape and validates value once.
func Validate(shape Shape, value any) (any, error) {
	s, err := Compile(shape)
	if err != nil {
		return nil, err
	}
	return s.Validate(value)
}

// Decode converts a normalized value into a typed struct.
func Decode(value any, out any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

func newValidationError(errs []gojsonschema.ResultError) *ValidationError {
	fields := make([]FieldError, 0, len(errs))
	for _, re := range errs {
		fields = append(fields, fieldError(re))
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Path < fields[j].Path
	})
	return &ValidationError{Fields: fields}
}

func fieldError(re gojsonschema.ResultError) FieldError {
	details := re.Details()
	fe := FieldError{
		Path:    re.Field(),
		Rule:    re.Type(),
		Message: re.Description(),
	}
	switch re.Type() {
	case "required":
		if prop, ok := details["property"].(string); ok {
			fe.Path = joinPath(re.Field(), prop)
		}
		fe.Expected = "present"
		fe.Actual = "missing"
	case "invalid_type":
		fe.Expected = fmt.Sprint(details["expected"])
		fe.Actual = fmt.Sprint(details["given"])
	case "enum":
		fe.Expected = "one of " + fmt.Sprint(details["allowed"])
		fe.Actual = describeValue(re.Value())
	case "const":
		fe.Expected = fmt.Sprint(details["allowed"])
		fe.Actual = describeValue(re.Value())
	default:
		fe.Actual = describeValue(re.Value())
	}
	return fe
}

func joinPath(parent, child string) string {
	if parent == "" || parent == "(root)" {
		return child
	}
	return parent + "." + child
}

func describeValue(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	if len(data) > 80 {
		return string(data[:77]) + "..."
	}
	return string(data)
}

// toGeneric turns any Go value into the map/slice/float64 form produced by
// encoding/json so structs and decoded payloads are handled identically.
func toGeneric(value any) (any, error) {
	switch value.(type) {
	case nil, string, bool, float64:
		return value, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalize(shape Shape, value any) any {
	switch shape.Kind {
	case KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return value
		}
		if len(shape.Fields) == 0 {
			return obj
		}
		out := make(map[string]any, len(shape.Fields))
		for _, f := range shape.Fields {
			v, present := obj[f.Name]
			switch {
			case present && v != nil:
				out[f.Name] = normalize(f.Shape, v)
			case present && f.Required:
				out[f.Name] = nil
			case f.Shape.Default != nil:
				if def, err := toGeneric(f.Shape.Default); err == nil {
					out[f.Name] = def
				}
			}
		}
		return out
	case KindArray:
		items, ok := value.([]any)
		if !ok || shape.Items == nil {
			return value
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = normalize(*shape.Items, item)
		}
		return out
	default:
		return value
	}
}
