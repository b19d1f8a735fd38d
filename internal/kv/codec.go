package kv

import (
	"encoding/json"
	"fmt"
)

// Encode serializes a record for storage. Values are opaque JSON blobs;
// the store never inspects them.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return b, nil
}

// Decode deserializes a stored pair's value into v.
func Decode(p Pair, v any) error {
	if err := json.Unmarshal(p.Value, v); err != nil {
		return fmt.Errorf("failed to decode %q: %w", p.Key, err)
	}
	return nil
}
