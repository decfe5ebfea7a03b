// Package jsonutil provides generic JSON helpers for the common
// decode-into-T call sites.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// Decode unmarshals data into a T. Decode errors include a short excerpt
// of the offending payload.
func Decode[T any](data []byte) (T, error) {
	var v T

	if len(data) == 0 {
		return v, fmt.Errorf("no JSON data provided")
	}

	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decoding JSON (%s): %w", excerpt(data), err)
	}
	return v, nil
}

// DecodeString unmarshals a JSON string into a T.
func DecodeString[T any](data string) (T, error) {
	return Decode[T]([]byte(data))
}

// DecodeReader reads r to the end and unmarshals the content into a T.
// Closing r stays with the caller.
func DecodeReader[T any](r io.Reader) (T, error) {
	var zero T

	data, err := io.ReadAll(r)
	if err != nil {
		return zero, fmt.Errorf("reading JSON body: %w", err)
	}
	return Decode[T](data)
}

// Encode marshals v.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return data, nil
}

// EncodeIndent marshals v with two-space indentation, for logs and
// fixtures.
func EncodeIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return data, nil
}

// Clone deep-copies v through a JSON round trip. Only JSON-visible state
// survives, which is exactly right for plain data types.
func Clone[T any](v T) (T, error) {
	var out T

	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("encoding JSON: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding JSON: %w", err)
	}
	return out, nil
}

func excerpt(data []byte) string {
	const max = 40
	if len(data) <= max {
		return string(data)
	}
	return string(data[:max]) + "..."
}
