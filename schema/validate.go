// Package schema builds JSON Schemas for request bodies and validates decoded
// JSON documents against them.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// ValidationError reports the first keyword a document violates.
type ValidationError struct {
	Path string // JSON path of the offending value, rooted at "$"
	Msg  string
}

func (e *ValidationError) Error() string {
	return e.Path + ": " + e.Msg
}

func fail(path, format string, args ...any) error {
	return &ValidationError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// Validate checks a decoded JSON document against a JSON Schema (draft-07
// subset). A nil schema accepts everything.
//
// Supported keywords:
//   - type
//   - properties, required, additionalProperties
//   - minimum, maximum
//   - minLength, maxLength
func Validate(schema map[string]any, doc map[string]any) error {
	if schema == nil {
		return nil
	}
	return validateValue(schema, doc, "$")
}

func validateValue(schema map[string]any, value any, path string) error {
	if err := checkType(schema["type"], value, path); err != nil {
		return err
	}
	switch v := value.(type) {
	case map[string]any:
		return validateObject(schema, v, path)
	case string:
		return validateString(schema, v, path)
	case float64:
		return validateNumber(schema, v, path)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return fail(path, "invalid number %q", v)
		}
		return validateNumber(schema, f, path)
	}
	return nil
}

func checkType(t any, value any, path string) error {
	want, ok := t.(string)
	if !ok {
		return nil
	}
	got := jsonType(value)
	if want == got || (want == "number" && got == "integer") {
		return nil
	}
	return fail(path, "expected type %s, got %q", want, got)
}

// jsonType names the JSON type of a decoded value. Whole numbers report as
// "integer".
func jsonType(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return "integer"
		}
		return "number"
	case json.Number:
		if _, err := n.Int64(); err == nil {
			return "integer"
		}
		return "number"
	}
	return reflect.TypeOf(v).String()
}

func validateObject(schema map[string]any, obj map[string]any, path string) error {
	if req, ok := schema["required"].([]any); ok {
		for _, r := range req {
			field, ok := r.(string)
			if !ok {
				continue
			}
			if _, exists := obj[field]; !exists {
				return fail(path, "missing required field %q", field)
			}
		}
	}

	props, _ := schema["properties"].(map[string]any)
	// Sorted so the reported error does not depend on map order.
	fields := make([]string, 0, len(obj))
	for field := range obj {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		ps, ok := props[field].(map[string]any)
		if !ok {
			continue
		}
		if err := validateValue(ps, obj[field], path+"."+field); err != nil {
			return err
		}
	}

	if ap, ok := schema["additionalProperties"].(bool); ok && !ap {
		var extra []string
		for _, field := range fields {
			if _, defined := props[field]; !defined {
				extra = append(extra, field)
			}
		}
		if len(extra) > 0 {
			return fail(path, "additional properties not allowed: %s", strings.Join(extra, ", "))
		}
	}
	return nil
}

func validateString(schema map[string]any, s string, path string) error {
	n := float64(len([]rune(s)))
	if v, ok := toFloat(schema["minLength"]); ok && n < v {
		return fail(path, "string length %v is less than minLength %v", n, v)
	}
	if v, ok := toFloat(schema["maxLength"]); ok && n > v {
		return fail(path, "string length %v is greater than maxLength %v", n, v)
	}
	return nil
}

func validateNumber(schema map[string]any, n float64, path string) error {
	if v, ok := toFloat(schema["minimum"]); ok && n < v {
		return fail(path, "%v is less than minimum %v", n, v)
	}
	if v, ok := toFloat(schema["maximum"]); ok && n > v {
		return fail(path, "%v is greater than maximum %v", n, v)
	}
	return nil
}

// toFloat reads a numeric keyword. For decodes schemas without UseNumber, so
// keywords are always float64.
func toFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}
