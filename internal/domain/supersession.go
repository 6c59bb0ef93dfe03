package domain

import (
	"fmt"
	"sort"

	"github.com/pennyhailey/witness-protocol/internal/assert"
)

// Resolution is the outcome of resolving an operator supersession chain.
//
// Ambiguity is data, not an error: concurrent chains show up in
// Conflicting, and anything that forced a fallback shows up in Warnings.
type Resolution struct {
	// Current is the effective operator record
	Current OperatorRecord `json:"current"`
	// Conflicting holds the other candidate tips when chains diverged
	Conflicting []OperatorRecord `json:"conflicting,omitempty"`
	// Chain walks Supersedes back from Current through records present in the input
	Chain []OperatorRecord `json:"chain,omitempty"`
	// Warnings explain fallbacks and tie-breaks
	Warnings []string `json:"warnings,omitempty"`
}

// ResolveCurrentOperator returns the current operator record for subject.
//
// Algorithm:
//  1. Collect every ref that appears as a Supersedes target (the superseded set).
//  2. Candidate tips are records whose own ref is not superseded.
//  3. One candidate is the tip. Several candidates are concurrent chains:
//     the latest CreatedAt wins, ties broken by the smallest canonical key.
//  4. No candidates (a cycle, or every record superseded by something
//     outside the input) falls back to the overall latest record, with a
//     warning that the chain could not be fully resolved.
//
// Records for other subjects are ignored. The input is never modified; the
// second return value is false when no record for subject was given.
func ResolveCurrentOperator(subject Identifier, records []OperatorRecord) (Resolution, bool) {
	set := uniqueOperators(subject, records)
	if len(set) == 0 {
		return Resolution{}, false
	}

	superseded := make(map[string]struct{}, len(set))
	for _, rec := range set {
		if ref := rec.SupersedesRef(); !ref.IsZero() {
			superseded[ref.String()] = struct{}{}
		}
	}

	var candidates []OperatorRecord
	for _, rec := range set {
		if _, ok := superseded[rec.Ref.String()]; ok && !rec.Ref.IsZero() {
			continue
		}
		candidates = append(candidates, rec)
	}

	var res Resolution
	switch {
	case len(candidates) == 1:
		res.Current = candidates[0]

	case len(candidates) > 1:
		sortLatestFirst(candidates)
		res.Current = candidates[0]
		res.Conflicting = append([]OperatorRecord(nil), candidates[1:]...)
		if candidates[1].CreatedAt.Equal(candidates[0].CreatedAt) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"operator chain for %s has %d concurrent tips with equal createdAt; chose %s by canonical key",
				subject, len(candidates), refOrKey(res.Current)))
		}

	default:
		all := append([]OperatorRecord(nil), set...)
		sortLatestFirst(all)
		res.Current = all[0]
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"operator chain for %s could not be fully resolved (cycle or missing superseded record); fell back to latest record %s",
			subject, refOrKey(res.Current)))
	}

	chain, chainWarning := walkChain(res.Current, set)
	res.Chain = chain
	if chainWarning != "" {
		res.Warnings = append(res.Warnings, chainWarning)
	}
	assert.Invariant(len(res.Chain) > 0 && res.Chain[0].CanonicalKey() == res.Current.CanonicalKey(),
		"resolution chain must start at the current record")

	return res, true
}

// uniqueOperators filters to subject and drops repeated observations of the
// same ref (or the same content when the ref is unknown). The result is in
// a deterministic order independent of input order.
func uniqueOperators(subject Identifier, records []OperatorRecord) []OperatorRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]OperatorRecord, 0, len(records))
	for _, rec := range records {
		if rec.Subject != subject {
			continue
		}
		id := rec.Ref.String()
		if id == "" {
			id = "key:" + string(rec.CanonicalKey())
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, rec)
	}
	sortLatestFirst(out)
	return out
}

// sortLatestFirst orders by CreatedAt descending, then canonical key
// ascending, then ref ascending.
func sortLatestFirst(recs []OperatorRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if ka, kb := a.CanonicalKey(), b.CanonicalKey(); ka != kb {
			return ka < kb
		}
		return a.Ref.String() < b.Ref.String()
	})
}

// walkChain follows Supersedes from tip through records present in set.
func walkChain(tip OperatorRecord, set []OperatorRecord) ([]OperatorRecord, string) {
	byRef := make(map[string]OperatorRecord, len(set))
	for _, rec := range set {
		if !rec.Ref.IsZero() {
			byRef[rec.Ref.String()] = rec
		}
	}

	chain := []OperatorRecord{tip}
	visited := map[string]struct{}{tip.Ref.String(): {}}
	cur := tip
	for {
		next := cur.SupersedesRef()
		if next.IsZero() {
			return chain, ""
		}
		key := next.String()
		if _, loop := visited[key]; loop {
			return chain, fmt.Sprintf("operator chain for %s contains a cycle at %s", tip.Subject, key)
		}
		rec, ok := byRef[key]
		if !ok {
			return chain, fmt.Sprintf("operator chain for %s references %s, which was not observed", tip.Subject, key)
		}
		visited[key] = struct{}{}
		chain = append(chain, rec)
		cur = rec
	}
}

func refOrKey(rec OperatorRecord) string {
	if !rec.Ref.IsZero() {
		return rec.Ref.String()
	}
	return string(rec.CanonicalKey())
}
