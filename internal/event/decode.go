package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"unicode/utf8"
)

var (
	// ErrEncoding means the body is not valid UTF-8.
	ErrEncoding = errors.New("invalid request encoding")
	// ErrNotObject means the body is not a single JSON object.
	ErrNotObject = errors.New("body is not a JSON object")
)

// Decode parses a webhook body. A nil event with a nil error means the
// body carried no data (blank, null or {}).
func Decode(body []byte) (RawEvent, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if !utf8.Valid(body) {
		return nil, ErrEncoding
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw RawEvent
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Join(ErrNotObject, err)
	}
	// Anything after the object, including a stray } or ], is rejected.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrNotObject
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}
