package domain

import (
	"fmt"
	"strings"
)

const recordRefScheme = "at://"

// RecordRef locates a record: (repository identifier, collection, record key).
//
// A RecordRef is provenance, not semantic content. Two records with
// different refs may carry identical content (the same record observed via
// two channels, or a mirror copy).
//
// Format: at://<repo>/<collection>/<key>
//
// Example:
//
//	ref, err := ParseRecordRef("at://did:plc:w1/network.witness.attestation/3kabc")
//	// ref.Repo == "did:plc:w1"
type RecordRef struct {
	Repo       Identifier
	Collection string
	Key        string
}

// ParseRecordRef parses a reference in at://repo/collection/key form.
//
// Repositories named by SPIFFE IDs contain slashes themselves, so the
// collection and key are taken from the last two path segments.
//
// Returns ErrInvalidRecordRef if the scheme is missing or any component is empty.
func ParseRecordRef(s string) (RecordRef, error) {
	if !strings.HasPrefix(s, recordRefScheme) {
		return RecordRef{}, fmt.Errorf("%w: %q lacks %s scheme", ErrInvalidRecordRef, s, recordRefScheme)
	}
	rest := strings.TrimPrefix(s, recordRefScheme)

	keyIdx := strings.LastIndex(rest, "/")
	if keyIdx <= 0 {
		return RecordRef{}, fmt.Errorf("%w: %q has no record key", ErrInvalidRecordRef, s)
	}
	key := rest[keyIdx+1:]
	rest = rest[:keyIdx]

	collIdx := strings.LastIndex(rest, "/")
	if collIdx <= 0 {
		return RecordRef{}, fmt.Errorf("%w: %q has no collection", ErrInvalidRecordRef, s)
	}
	collection := rest[collIdx+1:]
	repo := rest[:collIdx]

	if repo == "" || collection == "" || key == "" {
		return RecordRef{}, fmt.Errorf("%w: %q has an empty component", ErrInvalidRecordRef, s)
	}

	return RecordRef{Repo: Identifier(repo), Collection: collection, Key: key}, nil
}

// String returns the at:// form, or "" for the zero ref
func (r RecordRef) String() string {
	if r.IsZero() {
		return ""
	}
	return recordRefScheme + string(r.Repo) + "/" + r.Collection + "/" + r.Key
}

// IsZero reports whether the ref is unset
func (r RecordRef) IsZero() bool {
	return r.Repo == "" && r.Collection == "" && r.Key == ""
}

// MarshalText encodes the ref in at:// form
func (r RecordRef) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes an at:// ref. The empty string decodes to the zero ref.
func (r *RecordRef) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = RecordRef{}
		return nil
	}
	parsed, err := ParseRecordRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
