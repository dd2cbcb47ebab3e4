// Package errvalue models loosely shaped error payloads returned by
// PocketBase and flattens them into ordered, human-readable messages.
package errvalue

import (
	"errors"
	"sort"
)

// Value is a decoded error payload. It is one of Sequence, Record, String or
// Other.
type Value interface {
	isValue()
}

// Sequence is an ordered list of values.
type Sequence []Value

// Field is a single key of a Record.
type Field struct {
	// Key is the object key.
	Key string
	// Value is the value stored under Key.
	Value Value
}

// Record is a keyed mapping that keeps the source key order.
type Record []Field

// String is a plain string payload.
type String string

// Other holds numbers, booleans, null and any other scalar.
type Other struct {
	// Value is the decoded scalar (json.Number, bool, nil, ...).
	Value any
}

func (Sequence) isValue() {}
func (Record) isValue()   {}
func (String) isValue()   {}
func (Other) isValue()    {}

// Get returns the value stored under key.
func (r Record) Get(key string) (Value, bool) {
	for _, field := range r {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Carrier is implemented by errors that carry a structured payload.
type Carrier interface {
	ErrorValue() Value
}

// FromError converts err into a Value. Errors carrying a payload yield that
// payload; any other error becomes a record with a message field.
func FromError(err error) Value {
	if err == nil {
		return Other{}
	}
	var carrier Carrier
	if errors.As(err, &carrier) {
		if v := carrier.ErrorValue(); v != nil {
			return v
		}
	}
	return Record{{Key: "message", Value: String(err.Error())}}
}

// FromAny converts already decoded Go values. Go maps carry no order, so
// their keys are visited sorted.
func FromAny(value any) Value {
	switch v := value.(type) {
	case Value:
		return v
	case string:
		return String(v)
	case []any:
		out := make(Sequence, 0, len(v))
		for _, item := range v {
			out = append(out, FromAny(item))
		}
		return out
	case []string:
		out := make(Sequence, 0, len(v))
		for _, item := range v {
			out = append(out, String(item))
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		out := make(Record, 0, len(keys))
		for _, key := range keys {
			out = append(out, Field{Key: key, Value: FromAny(v[key])})
		}
		return out
	case error:
		return FromError(v)
	default:
		return Other{Value: v}
	}
}
