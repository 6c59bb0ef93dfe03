package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupportedEncoding is returned for encodings other than json and cbor.
var ErrUnsupportedEncoding = errors.New("unsupported record encoding")

// ErrNotAnObject is returned when a record value is not a map.
var ErrNotAnObject = errors.New("record value is not an object")

// DecodeValue decodes a record value into a generic map. encoding is
// "json" or "cbor"; the empty string sniffs the first byte.
//
// JSON numbers decode as json.Number so integer fields survive unchanged.
func DecodeValue(data []byte, encoding string) (map[string]any, error) {
	if encoding == "" {
		encoding = sniff(data)
	}

	var out map[string]any
	switch encoding {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decoding json record: %w", err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, ErrNotAnObject
		}
		out = m
	case "cbor":
		var v any
		if err := Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decoding cbor record: %w", err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, ErrNotAnObject
		}
		out = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encoding)
	}
	return out, nil
}

// sniff guesses the encoding from the first non-space byte: JSON objects
// start with '{', CBOR maps with major type 5 (0xa0-0xbf).
func sniff(data []byte) string {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return "json"
	}
	return "cbor"
}
