package errvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxDepth bounds JSON nesting accepted by Decode.
const maxDepth = 10000

var errTooDeep = errors.New("error payload nested too deeply")

// Decode parses a JSON document into a Value, keeping object keys in the
// order they appear. A repeated key keeps its first position and last value.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	value, err := decodeValue(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode error payload: trailing data")
	}
	return value, nil
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	if depth > maxDepth {
		return nil, errTooDeep
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode error payload: %w", err)
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			return decodeSequence(dec, depth)
		case '{':
			return decodeRecord(dec, depth)
		default:
			return nil, fmt.Errorf("decode error payload: unexpected %q", t)
		}
	case string:
		return String(t), nil
	default:
		return Other{Value: t}, nil
	}
}

func decodeSequence(dec *json.Decoder, depth int) (Value, error) {
	out := Sequence{}
	for dec.More() {
		item, err := decodeValue(dec, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode error payload: %w", err)
	}
	return out, nil
}

func decodeRecord(dec *json.Decoder, depth int) (Value, error) {
	out := Record{}
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode error payload: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decode error payload: object key is %T", tok)
		}
		item, err := decodeValue(dec, depth+1)
		if err != nil {
			return nil, err
		}
		if pos, seen := index[key]; seen {
			out[pos].Value = item
			continue
		}
		index[key] = len(out)
		out = append(out, Field{Key: key, Value: item})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode error payload: %w", err)
	}
	return out, nil
}
