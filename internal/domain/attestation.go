package domain

import (
	"strings"
	"time"
)

// CanonicalKey is a content-derived identity for a record. Two observations
// of the same underlying record share a canonical key regardless of which
// channel or mirror they came from.
type CanonicalKey string

// TemporalBounds scopes when the attested behavior was observed or holds.
type TemporalBounds struct {
	ObservedAt *time.Time `json:"observedAt,omitempty"`
	ValidFrom  *time.Time `json:"validFrom,omitempty"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
}

// IsZero reports whether no bound is set
func (b TemporalBounds) IsZero() bool {
	return b.ObservedAt == nil && b.ValidFrom == nil && b.ValidUntil == nil
}

// Evidence is a typed reference backing a claim (a URI, a record, a hash).
type Evidence struct {
	Type        string `json:"type"`
	URI         string `json:"uri,omitempty"`
	Description string `json:"description,omitempty"`
}

// Provenance records one observation of a record: which channel surfaced it
// and under which ref.
type Provenance struct {
	Channel Channel   `json:"channel"`
	Ref     RecordRef `json:"uri"`
}

// AttestationRecord is a witness's claim about a subject.
//
// Attestations are append-only: a correction or dispute is a new
// attestation whose ContestsRecord points at the earlier one. Nothing in
// this package mutates an AttestationRecord after it has been built.
type AttestationRecord struct {
	// Ref is where the record was read from (provenance only)
	Ref RecordRef `json:"uri"`
	// Witness is the identifier of the repository that holds the record
	Witness Identifier `json:"witnessId"`

	SubjectID      Identifier     `json:"subjectId"`
	Claim          string         `json:"claim"`
	ClaimCategory  ClaimCategory  `json:"claimCategory,omitempty"`
	TemporalBounds TemporalBounds `json:"temporalBounds,omitzero"`
	Sentiment      Sentiment      `json:"sentiment,omitempty"`
	Evidence       []Evidence     `json:"evidence,omitempty"`
	ContestsRecord *RecordRef     `json:"contestsRecord,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`

	// Key is stamped by the decoder from (subject, claim, createdAt)
	Key CanonicalKey `json:"key,omitempty"`
	// Warnings are semantic caveats from validation (missing recommended fields)
	Warnings []string `json:"warnings,omitempty"`
	// SeenVia lists every observation of this record when deduplicated output retains provenance
	SeenVia []Provenance `json:"seenVia,omitempty"`
}

// CanonicalKey returns the stamped key, or a readable composite of the
// canonical tuple when the record was built without going through a decoder.
func (a AttestationRecord) CanonicalKey() CanonicalKey {
	if a.Key != "" {
		return a.Key
	}
	return compositeKey(string(a.SubjectID), a.Claim, a.CreatedAt)
}

// CanonicalTuple returns the content fields the canonical key is derived from.
func (a AttestationRecord) CanonicalTuple() [3]string {
	return [3]string{string(a.SubjectID), a.Claim, FormatTimestamp(a.CreatedAt)}
}

// IsContesting reports whether the attestation disputes or supplements another record
func (a AttestationRecord) IsContesting() bool {
	return a.ContestsRecord != nil && !a.ContestsRecord.IsZero()
}

// FormatTimestamp normalizes a timestamp for canonical keys and output.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func compositeKey(subject, content string, createdAt time.Time) CanonicalKey {
	return CanonicalKey(strings.Join([]string{subject, content, FormatTimestamp(createdAt)}, "\x1f"))
}
