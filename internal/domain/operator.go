package domain

import (
	"strings"
	"time"
)

// OperatorRecord declares who operates a subject entity.
//
// Operator records are never edited. A change of operator is a new record
// whose Supersedes points at the record it replaces, in the same
// repository and collection.
type OperatorRecord struct {
	// Ref is where the record was read from
	Ref RecordRef `json:"uri"`
	// Subject is the entity being operated (the repository holding the record)
	Subject Identifier `json:"subject"`

	OperatorID           Identifier `json:"operatorId"`
	OperatorName         string     `json:"operatorName,omitempty"`
	Constraints          []string   `json:"constraints,omitempty"`
	DelegatedPermissions []string   `json:"delegatedPermissions,omitempty"`
	EffectiveDate        *time.Time `json:"effectiveDate,omitempty"`
	ExpirationDate       *time.Time `json:"expirationDate,omitempty"`
	Supersedes           *RecordRef `json:"supersedes,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`

	Key      CanonicalKey `json:"key,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// CommitmentContent is the content an operator record commits to. It is the
// second element of the canonical tuple, the operator analogue of an
// attestation's claim text.
func (o OperatorRecord) CommitmentContent() string {
	parts := []string{
		string(o.OperatorID),
		o.OperatorName,
		strings.Join(o.Constraints, ","),
		strings.Join(o.DelegatedPermissions, ","),
	}
	if o.Supersedes != nil {
		parts = append(parts, o.Supersedes.String())
	}
	return strings.Join(parts, "|")
}

// CanonicalKey returns the stamped key or a readable composite fallback
func (o OperatorRecord) CanonicalKey() CanonicalKey {
	if o.Key != "" {
		return o.Key
	}
	return compositeKey(string(o.Subject), o.CommitmentContent(), o.CreatedAt)
}

// CanonicalTuple returns the content fields the canonical key is derived from.
func (o OperatorRecord) CanonicalTuple() [3]string {
	return [3]string{string(o.Subject), o.CommitmentContent(), FormatTimestamp(o.CreatedAt)}
}

// SupersedesRef returns the superseded ref, or the zero ref
func (o OperatorRecord) SupersedesRef() RecordRef {
	if o.Supersedes == nil {
		return RecordRef{}
	}
	return *o.Supersedes
}

// ActiveAt reports whether t falls within [EffectiveDate, ExpirationDate).
// Unset bounds are open.
func (o OperatorRecord) ActiveAt(t time.Time) bool {
	if o.EffectiveDate != nil && t.Before(*o.EffectiveDate) {
		return false
	}
	if o.ExpirationDate != nil && !t.Before(*o.ExpirationDate) {
		return false
	}
	return true
}
