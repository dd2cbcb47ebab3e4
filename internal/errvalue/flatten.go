package errvalue

import (
	"encoding/json"
	"strings"
)

// NoErrors is returned by Describe when a payload yields no messages.
const NoErrors = "No errors found"

// Flatten walks v depth-first and returns every message it finds, in order.
// It never fails; unrecognised shapes contribute nothing.
func Flatten(v Value) []string {
	switch t := v.(type) {
	case Sequence:
		var out []string
		for _, item := range t {
			out = append(out, Flatten(item)...)
		}
		return out
	case Record:
		return flattenRecord(t)
	case String:
		return []string{string(t)}
	default:
		return nil
	}
}

// Describe joins the flattened messages of v with newlines.
func Describe(v Value) string {
	messages := Flatten(v)
	if len(messages) == 0 {
		return NoErrors
	}
	return strings.Join(messages, "\n")
}

func flattenRecord(r Record) []string {
	data, hasData := r.Get("data")
	hasData = hasData && truthy(data)

	if msg, ok := r.Get("message"); ok {
		if s, isString := msg.(String); isString && s != "" {
			out := []string{string(s)}
			if hasData {
				out = append(out, Flatten(data)...)
			}
			return out
		}
	}

	if hasData {
		var out []string
		for _, child := range children(data) {
			switch child.(type) {
			case Record, Sequence:
				out = append(out, Flatten(child)...)
			}
		}
		// Only a non-empty result short-circuits the full walk below.
		if len(out) > 0 {
			return out
		}
	}

	var out []string
	for _, field := range r {
		out = append(out, Flatten(field.Value)...)
	}
	return out
}

func children(v Value) []Value {
	switch t := v.(type) {
	case Record:
		out := make([]Value, 0, len(t))
		for _, field := range t {
			out = append(out, field.Value)
		}
		return out
	case Sequence:
		return t
	default:
		return nil
	}
}

func truthy(v Value) bool {
	switch t := v.(type) {
	case Record, Sequence:
		return true
	case String:
		return t != ""
	case Other:
		switch s := t.Value.(type) {
		case nil:
			return false
		case bool:
			return s
		case json.Number:
			f, err := s.Float64()
			return err != nil || f != 0
		case float64:
			return s != 0
		case int:
			return s != 0
		default:
			return true
		}
	default:
		return false
	}
}
