// Package params normalizes the loosely typed payloads that reach the action
// dispatcher. Callers (chat loops, MCP clients, HTTP bridges) hand us values
// that may be real maps, JSON text, or comma-separated strings; everything is
// coerced into canonical list/map forms before any handler sees it.
package params

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValidationError marks input that failed shape or required-field validation
// before any provider call was made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a *ValidationError with a formatted message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Bag is the schema-less parameter container handed to action handlers.
// Handlers extract their own typed view immediately on entry.
type Bag map[string]any

// CoercePayload accepts the outer {action, params} envelope as a map or as
// JSON text and returns it as a map.
func CoercePayload(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, Validationf("payload cannot be empty")
	case map[string]any:
		return v, nil
	case Bag:
		return map[string]any(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, Validationf("payload string is empty")
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
			return nil, Validationf("payload must be a JSON object with 'action' and 'params'")
		}
		return parsed, nil
	default:
		return nil, Validationf("payload must be an object or JSON string, got %T", raw)
	}
}

// CoerceParams accepts the params field as a map, JSON object text, or
// nothing at all, and returns a Bag. Non-object JSON is rejected.
func CoerceParams(raw any) (Bag, error) {
	switch v := raw.(type) {
	case nil:
		return Bag{}, nil
	case map[string]any:
		return Bag(v), nil
	case Bag:
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return Bag{}, nil
		}
		var parsed any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
			return nil, Validationf("params must be a JSON object")
		}
		obj, ok := parsed.(map[string]any)
		if !ok {
			return nil, Validationf("params JSON must decode to an object")
		}
		return Bag(obj), nil
	default:
		return nil, Validationf("params must be an object or JSON string, got %T", raw)
	}
}

// EnsureList coerces a value into a list. JSON array text is parsed,
// comma-separated text is split and trimmed, any other scalar becomes a
// single-element list. nil and blank strings yield nil.
func EnsureList(value any) ([]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, nil
		}
		if strings.HasPrefix(trimmed, "[") {
			var parsed []any
			if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
				return nil, Validationf("invalid JSON array: %v", err)
			}
			return parsed, nil
		}
		var out []any
		for _, part := range strings.Split(trimmed, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return []any{value}, nil
	}
}

// EnsureStringList is EnsureList with every element rendered as a string.
func EnsureStringList(value any) ([]string, error) {
	list, err := EnsureList(value)
	if err != nil || list == nil {
		return nil, err
	}
	out := make([]string, len(list))
	for i, item := range list {
		out[i] = Stringify(item)
	}
	return out, nil
}

// EnsureMap coerces a value into a map. JSON object text is parsed; any other
// string (or non-map scalar) is rejected. nil and blank strings yield nil.
func EnsureMap(value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case Bag:
		return map[string]any(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, nil
		}
		if strings.HasPrefix(trimmed, "{") {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
				return nil, Validationf("invalid JSON object: %v", err)
			}
			return parsed, nil
		}
		return nil, Validationf("expected a dictionary-compatible value")
	default:
		return nil, Validationf("expected a dictionary-compatible value")
	}
}

// Stringify renders any scalar as its string form. Strings pass through,
// everything else goes through fmt. Floats that are whole numbers (the usual
// JSON number decoding) drop the trailing ".0" so identifiers survive.
func Stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// String returns the string form of a key's value, or "" when absent or nil.
func (b Bag) String(key string) string {
	v, ok := b[key]
	if !ok || v == nil {
		return ""
	}
	return Stringify(v)
}

// Has reports whether a key is present, even with a nil or empty value.
func (b Bag) Has(key string) bool {
	_, ok := b[key]
	return ok
}

// Int returns the key's value coerced to an int, or def when absent. Numbers
// arriving as JSON floats or numeric strings are accepted.
func (b Bag) Int(key string, def int) (int, error) {
	v, ok := b[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return def, nil
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, Validationf("'%s' must be an integer, got %q", key, n)
		}
		return parsed, nil
	default:
		return 0, Validationf("'%s' must be an integer, got %T", key, v)
	}
}

// Bool returns the truthiness of a key's value. Absent keys are false.
// Strings "true"/"1"/"yes" (any case) and non-zero numbers count as true.
func (b Bag) Bool(key string) bool {
	return truthy(b[key])
}

// PopBool removes the key and returns its truthiness. Used for control flags
// like 'confirm' that must not leak into provider requests.
func (b Bag) PopBool(key string) bool {
	v, ok := b[key]
	if ok {
		delete(b, key)
	}
	return truthy(v)
}

// BoolDefault is Bool with an explicit default for absent keys.
func (b Bag) BoolDefault(key string, def bool) bool {
	v, ok := b[key]
	if !ok || v == nil {
		return def
	}
	return truthy(v)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		}
		return false
	default:
		return false
	}
}
