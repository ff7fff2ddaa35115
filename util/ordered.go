package util

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OrderedObject is a JSON object whose keys keep their source order.
type OrderedObject struct {
	Keys   []string
	Values map[string]json.RawMessage
}

// DecodeOrdered reads the top-level keys of a JSON object in document order.
// Duplicate keys keep their first position and last value.
func DecodeOrdered(data []byte) (OrderedObject, error) {
	obj := OrderedObject{Values: make(map[string]json.RawMessage)}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return obj, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return obj, fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return obj, err
		}
		key, ok := tok.(string)
		if !ok {
			return obj, fmt.Errorf("expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return obj, fmt.Errorf("value for %q: %w", key, err)
		}
		if _, seen := obj.Values[key]; !seen {
			obj.Keys = append(obj.Keys, key)
		}
		obj.Values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return obj, err
	}
	return obj, nil
}
