// Package validate checks incoming request bodies against a JSON Schema
// subset before they reach the store.
package validate

import (
	"fmt"
	"reflect"
)

// Product is the schema applied to catalog record bodies.
var Product = map[string]any{
	"type":     "object",
	"required": []any{"title", "price"},
	"properties": map[string]any{
		"id":          map[string]any{"type": "string"},
		"title":       map[string]any{"type": "string", "minLength": 1},
		"price":       map[string]any{"type": "number", "minimum": 0},
		"description": map[string]any{"type": "string"},
		"imageUrl":    map[string]any{"type": "string"},
	},
}

// CartItem is the schema applied to cart add bodies. The product id may be
// a string or a number, so only presence is required.
var CartItem = map[string]any{
	"type":     "object",
	"required": []any{"productId"},
}

// Against checks a document against a JSON Schema (draft-07 subset).
// Returns nil if validation passes or the schema is nil.
//
// Supported keywords: type (string, number, integer, boolean, object, null),
// properties, required, enum, minimum, maximum, minLength.
func Against(schema map[string]any, doc map[string]any) error {
	if schema == nil {
		return nil
	}
	return validateValue(schema, doc, "$")
}

func validateValue(schema map[string]any, value any, path string) error {
	if t, ok := schema["type"].(string); ok {
		if err := checkType(t, value, path); err != nil {
			return err
		}
	}
	if enumList, ok := schema["enum"].([]any); ok {
		if err := checkEnum(enumList, value, path); err != nil {
			return err
		}
	}
	switch v := value.(type) {
	case map[string]any:
		return validateObject(schema, v, path)
	case string:
		return validateString(schema, v, path)
	case float64:
		return validateNumber(schema, v, path)
	}
	return nil
}

func checkType(expected string, value any, path string) error {
	actual := jsonType(value)
	if actual == expected {
		return nil
	}
	if expected == "integer" {
		if f, ok := value.(float64); ok && f == float64(int64(f)) {
			return nil
		}
	}
	if expected == "number" && actual == "integer" {
		return nil
	}
	return fmt.Errorf("%s: expected type %q, got %q", path, expected, actual)
}

func jsonType(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case int, int64:
		return "integer"
	default:
		return reflect.TypeOf(v).String()
	}
}

func checkEnum(allowed []any, value any, path string) error {
	for _, a := range allowed {
		if reflect.DeepEqual(a, value) {
			return nil
		}
	}
	return fmt.Errorf("%s: value not in enum %v", path, allowed)
}

func validateObject(schema map[string]any, obj map[string]any, path string) error {
	if reqList, ok := schema["required"].([]any); ok {
		for _, r := range reqList {
			if field, ok := r.(string); ok {
				if _, exists := obj[field]; !exists {
					return fmt.Errorf("%s: missing required field %q", path, field)
				}
			}
		}
	}
	if propsMap, ok := schema["properties"].(map[string]any); ok {
		for field, propSchema := range propsMap {
			val, exists := obj[field]
			if !exists {
				continue
			}
			ps, ok := propSchema.(map[string]any)
			if !ok {
				continue
			}
			if err := validateValue(ps, val, path+"."+field); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateString(schema map[string]any, s string, path string) error {
	if v, ok := toFloat(schema["minLength"]); ok {
		if float64(len(s)) < v {
			return fmt.Errorf("%s: string length %d is less than minLength %v", path, len(s), v)
		}
	}
	return nil
}

func validateNumber(schema map[string]any, n float64, path string) error {
	if v, ok := toFloat(schema["minimum"]); ok {
		if n < v {
			return fmt.Errorf("%s: %v is less than minimum %v", path, n, v)
		}
	}
	if v, ok := toFloat(schema["maximum"]); ok {
		if n > v {
			return fmt.Errorf("%s: %v is greater than maximum %v", path, n, v)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
