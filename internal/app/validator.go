package app

import (
	"fmt"
	"strings"

	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

const (
	fullSignal    = 1.0
	warningWeight = 0.1
	minSignal     = 0.5
)

// ValidationResult reports whether a record value is structurally valid.
// Errors reject the record; Warnings keep it but lower its SignalWeight.
type ValidationResult struct {
	Kind         domain.RecordKind `json:"kind"`
	Valid        bool              `json:"valid"`
	Errors       []string          `json:"errors"`
	Warnings     []string          `json:"warnings"`
	SignalWeight float64           `json:"signalWeight"`
}

// Err returns nil for a valid record and otherwise a wrapped sentinel
// listing every error.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	sentinel := domain.ErrRecordInvalid
	switch r.Kind {
	case domain.KindAttestation:
		sentinel = domain.ErrAttestationInvalid
	case domain.KindOperator:
		sentinel = domain.ErrOperatorInvalid
	}
	return fmt.Errorf("%w: %s", sentinel, strings.Join(r.Errors, "; "))
}

// Validator checks raw record values against the record kinds the engine
// understands. It performs no I/O; identifier syntax is delegated to the
// IdentifierParser port.
type Validator struct {
	parser ports.IdentifierParser
}

// NewValidator creates a validator using parser for identifier fields
func NewValidator(parser ports.IdentifierParser) *Validator {
	return &Validator{parser: parser}
}

// Validate checks raw against kind. The same input always yields the same result.
func (v *Validator) Validate(kind domain.RecordKind, raw map[string]any) ValidationResult {
	var r *fieldReader
	switch kind {
	case domain.KindAttestation:
		_, r = v.readAttestation(raw)
	case domain.KindOperator:
		_, r = v.readOperator(raw)
	case domain.KindRegistry:
		_, r = v.readRegistry(raw)
	case domain.KindFollow:
		_, r = v.readFollow(raw)
	default:
		return ValidationResult{
			Kind:   kind,
			Errors: []string{fmt.Sprintf("unsupported record kind %q", kind)},
		}
	}
	return result(kind, r.errs, r.warns)
}

func result(kind domain.RecordKind, errs, warns []string) ValidationResult {
	res := ValidationResult{
		Kind:     kind,
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	if res.Valid {
		res.SignalWeight = max(minSignal, fullSignal-warningWeight*float64(len(warns)))
	}
	return res
}

func (v *Validator) readAttestation(raw map[string]any) (domain.AttestationRecord, *fieldReader) {
	r := newFieldReader(raw, v.parser)
	r.kindTag(domain.KindAttestation)

	rec := domain.AttestationRecord{
		SubjectID: r.requiredIdentifier("subjectId"),
		Claim:     r.requiredString("claim"),
		CreatedAt: r.requiredTime("createdAt"),
	}

	if s, ok := r.enumString("claimCategory"); ok {
		cat, err := domain.ParseClaimCategory(s)
		if err != nil {
			r.fail("field %q: %v", "claimCategory", err)
		}
		rec.ClaimCategory = cat
	}
	if s, ok := r.enumString("sentiment"); ok {
		sent, err := domain.ParseSentiment(s)
		if err != nil {
			r.fail("field %q: %v", "sentiment", err)
		}
		rec.Sentiment = sent
	}
	if bounds, ok := r.object("temporalBounds"); ok {
		rec.TemporalBounds = domain.TemporalBounds{
			ObservedAt: r.timeIn(bounds, "observedAt", "temporalBounds.observedAt"),
			ValidFrom:  r.timeIn(bounds, "validFrom", "temporalBounds.validFrom"),
			ValidUntil: r.timeIn(bounds, "validUntil", "temporalBounds.validUntil"),
		}
		if from, until := rec.TemporalBounds.ValidFrom, rec.TemporalBounds.ValidUntil; from != nil && until != nil && from.After(*until) {
			r.fail("field %q: validFrom is after validUntil", "temporalBounds")
		}
	}
	if items, ok := r.list("evidence"); ok {
		rec.Evidence = readEvidence(r, items)
	}
	rec.ContestsRecord = r.optionalRef("contestsRecord")

	r.recommend("claimCategory")
	r.recommend("evidence")
	r.recommend("sentiment")
	r.recommend("temporalBounds")

	return rec, r
}

func readEvidence(r *fieldReader, items []any) []domain.Evidence {
	out := make([]domain.Evidence, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			r.fail("field %q[%d]: expected an object", "evidence", i)
			continue
		}
		ev := domain.Evidence{}
		ev.Type, _ = m["type"].(string)
		ev.URI, _ = m["uri"].(string)
		ev.Description, _ = m["description"].(string)
		if ev.Type == "" {
			r.fail("field %q[%d]: missing required field %q", "evidence", i, "type")
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (v *Validator) readOperator(raw map[string]any) (domain.OperatorRecord, *fieldReader) {
	r := newFieldReader(raw, v.parser)
	r.kindTag(domain.KindOperator)

	rec := domain.OperatorRecord{
		OperatorID:           r.requiredIdentifier("operatorId"),
		CreatedAt:            r.requiredTime("createdAt"),
		OperatorName:         r.optionalString("operatorName"),
		Constraints:          r.stringList("constraints"),
		DelegatedPermissions: r.stringList("delegatedPermissions"),
		EffectiveDate:        r.optionalTime("effectiveDate"),
		ExpirationDate:       r.optionalTime("expirationDate"),
		Supersedes:           r.optionalRef("supersedes"),
	}
	if rec.EffectiveDate != nil && rec.ExpirationDate != nil && rec.EffectiveDate.After(*rec.ExpirationDate) {
		r.fail("field %q: effectiveDate is after expirationDate", "expirationDate")
	}

	r.recommend("constraints")
	r.recommend("operatorName")
	r.recommend("delegatedPermissions")

	return rec, r
}

// registryRecord is the membership list a registry publishes.
type registryRecord struct {
	Name      string
	Witnesses []domain.Identifier
}

func (v *Validator) readRegistry(raw map[string]any) (registryRecord, *fieldReader) {
	r := newFieldReader(raw, v.parser)
	r.kindTag(domain.KindRegistry)

	rec := registryRecord{Name: r.optionalString("name")}
	items, ok := r.list("witnesses")
	if !r.has("witnesses") {
		r.fail("missing required field %q", "witnesses")
	}
	if ok {
		for i, item := range items {
			s, isString := item.(string)
			if !isString {
				r.fail("field %q[%d]: expected an identifier string", "witnesses", i)
				continue
			}
			if id := r.identifier(fmt.Sprintf("witnesses[%d]", i), s); id != "" {
				rec.Witnesses = append(rec.Witnesses, id)
			}
		}
	}
	r.optionalTime("createdAt")
	r.recommend("name")

	return rec, r
}

func (v *Validator) readFollow(raw map[string]any) (domain.Identifier, *fieldReader) {
	r := newFieldReader(raw, v.parser)
	r.kindTag(domain.KindFollow)
	subject := r.requiredIdentifier("subject")
	r.requiredTime("createdAt")
	return subject, r
}
