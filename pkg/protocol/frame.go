// Package protocol defines the actions and responses exchanged with the ng server
// and their JSON text frame encoding.
//
// Every frame is a single externally tagged value: unit variants are a bare
// string ("Suicide"), newtype variants wrap their value ({"Send":"hi"}) and
// struct variants wrap an object ({"Login":{"name":"alice"}}).
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame is returned when a frame is not a single tagged JSON value.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrUnknownVariant is returned when a frame tag names no known variant.
	ErrUnknownVariant = errors.New("unknown variant")
)

// DecodeError reports a frame that could not be decoded. It is never fatal:
// callers drop the frame and move on.
type DecodeError struct {
	Frame []byte
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// splitFrame returns the variant tag and its body. Body is nil for a bare
// string frame.
func splitFrame(data []byte) (string, json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}

	switch data[0] {
	case '"':
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return tag, nil, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if len(obj) != 1 {
			return "", nil, fmt.Errorf("%w: expected exactly one tag, got %d", ErrMalformedFrame, len(obj))
		}
		for tag, body := range obj {
			return tag, body, nil
		}
	}

	return "", nil, fmt.Errorf("%w: unexpected leading byte %q", ErrMalformedFrame, data[0])
}

// isNullBody reports whether a body carries no payload.
func isNullBody(body json.RawMessage) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func encodeUnit(tag string) ([]byte, error) {
	return json.Marshal(tag)
}

func encodeTagged(tag string, body any) ([]byte, error) {
	data, err := json.Marshal(map[string]any{tag: body})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", tag, err)
	}
	return data, nil
}
