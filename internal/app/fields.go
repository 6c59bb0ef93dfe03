package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// fieldReader reads typed fields out of a decoded record value and collects
// every problem instead of stopping at the first one.
type fieldReader struct {
	raw    map[string]any
	parser ports.IdentifierParser

	errs  []string
	warns []string
}

func newFieldReader(raw map[string]any, parser ports.IdentifierParser) *fieldReader {
	return &fieldReader{raw: raw, parser: parser}
}

func (r *fieldReader) fail(format string, args ...any) {
	r.errs = append(r.errs, fmt.Sprintf(format, args...))
}

// recommend warns when field is absent. An empty list counts as absent.
func (r *fieldReader) recommend(field string) {
	if items, ok := r.raw[field].([]any); ok && len(items) == 0 {
		r.warns = append(r.warns, fmt.Sprintf("recommended field %q is empty", field))
		return
	}
	if !r.has(field) {
		r.warns = append(r.warns, fmt.Sprintf("recommended field %q is absent", field))
	}
}

func (r *fieldReader) has(field string) bool {
	v, ok := r.raw[field]
	return ok && v != nil
}

func (r *fieldReader) kindTag(kind domain.RecordKind) {
	v, ok := r.raw["$type"]
	if !ok || v == nil {
		r.fail("missing required field %q", "$type")
		return
	}
	s, ok := v.(string)
	if !ok || s != string(kind) {
		r.fail("field %q: expected %q, got %v", "$type", kind, v)
	}
}

func (r *fieldReader) requiredString(field string) string {
	if !r.has(field) {
		r.fail("missing required field %q", field)
		return ""
	}
	s, ok := r.raw[field].(string)
	if !ok {
		r.fail("field %q: expected a string", field)
		return ""
	}
	if strings.TrimSpace(s) == "" {
		r.fail("field %q must not be empty", field)
	}
	return s
}

func (r *fieldReader) optionalString(field string) string {
	if !r.has(field) {
		return ""
	}
	s, ok := r.raw[field].(string)
	if !ok {
		r.fail("field %q: expected a string", field)
	}
	return s
}

// enumString returns a present enum field for the caller to parse. An empty
// string is not a member of any declared set and is rejected here.
func (r *fieldReader) enumString(field string) (string, bool) {
	if !r.has(field) {
		return "", false
	}
	s, ok := r.raw[field].(string)
	switch {
	case !ok:
		r.fail("field %q: expected a string", field)
		return "", false
	case s == "":
		r.fail("field %q: empty value is not allowed", field)
		return "", false
	}
	return s, true
}

func (r *fieldReader) requiredIdentifier(field string) domain.Identifier {
	if !r.has(field) {
		r.fail("missing required field %q", field)
		return ""
	}
	s, ok := r.raw[field].(string)
	if !ok {
		r.fail("field %q: expected an identifier string", field)
		return ""
	}
	return r.identifier(field, s)
}

func (r *fieldReader) identifier(field, s string) domain.Identifier {
	id, err := r.parser.ParseIdentifier(s)
	if err != nil {
		r.fail("field %q: %v", field, err)
		return ""
	}
	return id
}

func (r *fieldReader) requiredTime(field string) time.Time {
	if !r.has(field) {
		r.fail("missing required field %q", field)
		return time.Time{}
	}
	t, err := parseTimestamp(r.raw[field])
	if err != nil {
		r.fail("field %q: %v", field, err)
	}
	return t
}

func (r *fieldReader) optionalTime(field string) *time.Time {
	return r.timeIn(r.raw, field, field)
}

// timeIn reads an optional timestamp from m, reporting problems under name.
func (r *fieldReader) timeIn(m map[string]any, key, name string) *time.Time {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	t, err := parseTimestamp(v)
	if err != nil {
		r.fail("field %q: %v", name, err)
		return nil
	}
	return &t
}

func (r *fieldReader) stringList(field string) []string {
	if !r.has(field) {
		return nil
	}
	items, ok := r.raw[field].([]any)
	if !ok {
		r.fail("field %q: expected a list of strings", field)
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			r.fail("field %q[%d]: expected a string", field, i)
			continue
		}
		out = append(out, s)
	}
	return out
}

func (r *fieldReader) optionalRef(field string) *domain.RecordRef {
	if !r.has(field) {
		return nil
	}
	var s string
	switch v := r.raw[field].(type) {
	case string:
		s = v
	case map[string]any:
		// strong ref: {uri, cid}
		s, _ = v["uri"].(string)
	}
	ref, err := domain.ParseRecordRef(s)
	if err != nil {
		r.fail("field %q: %v", field, err)
		return nil
	}
	return &ref
}

func (r *fieldReader) object(field string) (map[string]any, bool) {
	if !r.has(field) {
		return nil, false
	}
	m, ok := r.raw[field].(map[string]any)
	if !ok {
		r.fail("field %q: expected an object", field)
	}
	return m, ok
}

func (r *fieldReader) list(field string) ([]any, bool) {
	if !r.has(field) {
		return nil, false
	}
	items, ok := r.raw[field].([]any)
	if !ok {
		r.fail("field %q: expected a list", field)
	}
	return items, ok
}

// parseTimestamp accepts RFC 3339 strings and CBOR-decoded time values.
func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("not an RFC 3339 timestamp: %q", t)
		}
		return parsed.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("expected a timestamp, got %T", v)
	}
}
