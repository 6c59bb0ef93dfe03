package app

import (
	"github.com/pennyhailey/witness-protocol/internal/codec"
	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// DecodeAttestation decodes and validates an attestation envelope. The
// witness is the repository the record was read from. A non-nil error means
// the record is malformed and must be dropped.
func (v *Validator) DecodeAttestation(env ports.RecordEnvelope) (domain.AttestationRecord, ValidationResult, error) {
	raw, err := codec.DecodeValue(env.Value, string(env.Encoding))
	if err != nil {
		res := result(domain.KindAttestation, []string{err.Error()}, nil)
		return domain.AttestationRecord{}, res, res.Err()
	}

	rec, r := v.readAttestation(raw)
	res := result(domain.KindAttestation, r.errs, r.warns)
	if !res.Valid {
		return domain.AttestationRecord{}, res, res.Err()
	}

	rec.Ref = env.Ref
	rec.Witness = env.Ref.Repo
	rec.Warnings = res.Warnings
	rec.Key = domain.CanonicalKey(codec.MustDigest(rec.CanonicalTuple()))
	return rec, res, nil
}

// DecodeIndexed validates an attestation reported by an indexer. The
// indexer's witnessId must agree with the repository named in its uri.
func (v *Validator) DecodeIndexed(ia ports.IndexedAttestation) (domain.AttestationRecord, ValidationResult, error) {
	raw := map[string]any{
		"$type":     string(domain.KindAttestation),
		"subjectId": ia.SubjectID,
		"claim":     ia.Claim,
		"createdAt": ia.CreatedAt,
		"witnessId": ia.WitnessID,
	}
	if ia.Sentiment != "" {
		raw["sentiment"] = ia.Sentiment
	}

	rec, r := v.readAttestation(raw)
	witness := r.requiredIdentifier("witnessId")
	ref, err := domain.ParseRecordRef(ia.URI)
	if err != nil {
		r.fail("field %q: %v", "uri", err)
	} else if witness != "" && ref.Repo != witness {
		r.fail("field %q: repository %s does not match witnessId %s", "uri", ref.Repo, witness)
	}

	res := result(domain.KindAttestation, r.errs, r.warns)
	if !res.Valid {
		return domain.AttestationRecord{}, res, res.Err()
	}

	rec.Ref = ref
	rec.Witness = witness
	rec.Warnings = res.Warnings
	rec.Key = domain.CanonicalKey(codec.MustDigest(rec.CanonicalTuple()))
	return rec, res, nil
}

// DecodeOperator decodes and validates an operator envelope. The subject is
// the repository holding the record; supersedes must stay within it.
func (v *Validator) DecodeOperator(env ports.RecordEnvelope) (domain.OperatorRecord, ValidationResult, error) {
	raw, err := codec.DecodeValue(env.Value, string(env.Encoding))
	if err != nil {
		res := result(domain.KindOperator, []string{err.Error()}, nil)
		return domain.OperatorRecord{}, res, res.Err()
	}

	rec, r := v.readOperator(raw)
	if sup := rec.Supersedes; sup != nil && (sup.Repo != env.Ref.Repo || sup.Collection != string(domain.KindOperator)) {
		r.fail("field %q: %v: %s", "supersedes", domain.ErrForeignSupersedes, sup)
	}
	res := result(domain.KindOperator, r.errs, r.warns)
	if !res.Valid {
		return domain.OperatorRecord{}, res, res.Err()
	}

	rec.Ref = env.Ref
	rec.Subject = env.Ref.Repo
	rec.Warnings = res.Warnings
	rec.Key = domain.CanonicalKey(codec.MustDigest(rec.CanonicalTuple()))
	return rec, res, nil
}

// ValidateEnvelope decodes env and validates it against kind.
func (v *Validator) ValidateEnvelope(kind domain.RecordKind, env ports.RecordEnvelope) ValidationResult {
	raw, err := codec.DecodeValue(env.Value, string(env.Encoding))
	if err != nil {
		return result(kind, []string{err.Error()}, nil)
	}
	return v.Validate(kind, raw)
}
