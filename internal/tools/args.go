package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

func stringArg(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

// stringArgOr returns def when key is absent or empty.
func stringArgOr(args map[string]any, key, def string) string {
	if s := stringArg(args, key); s != "" {
		return s
	}
	return def
}

func boolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// intArg returns def when key is absent or zero. Fractional numbers and
// values outside the int32 range are rejected.
func intArg(args map[string]any, key string, def int) (int, error) {
	var f float64
	switch v := args[key].(type) {
	case nil:
		return def, nil
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s must be a number", key)
		}
		f = parsed
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%s is out of range", key)
	}
	if f == 0 {
		return def, nil
	}
	return int(f), nil
}

func mapArg(args map[string]any, key string) map[string]any {
	m, _ := args[key].(map[string]any)
	return m
}

func sliceArg(args map[string]any, key string) []any {
	s, _ := args[key].([]any)
	return s
}

// without returns a shallow copy of args minus the given keys.
func without(args map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(args))
	for key, value := range args {
		out[key] = value
	}
	for _, key := range keys {
		delete(out, key)
	}
	return out
}

// renderJSON pretty-prints a backend reply with two-space indentation.
func renderJSON(raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "null", nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("format response: %w", err)
	}
	return buf.String(), nil
}
