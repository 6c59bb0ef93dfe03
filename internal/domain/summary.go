package domain

import (
	"sort"
	"time"

	"github.com/pennyhailey/witness-protocol/internal/assert"
)

// Summary is a statistical rollup of the attestations about one subject.
type Summary struct {
	Subject           Identifier     `json:"subject"`
	TotalAttestations int            `json:"totalAttestations"`
	PositiveCount     int            `json:"positiveCount"`
	NegativeCount     int            `json:"negativeCount"`
	NeutralCount      int            `json:"neutralCount"`
	ByCategory        map[string]int `json:"byCategory"`
	DistinctWitnesses int            `json:"distinctWitnesses"`
	ContestedCount    int            `json:"contestedCount"`
	RecordWarnings    int            `json:"recordWarnings"`
	Earliest          *time.Time     `json:"earliest,omitempty"`
	Latest            *time.Time     `json:"latest,omitempty"`
}

// Summarize folds the attestations about subject into a Summary.
//
// The fold is set-level: records are first collapsed by canonical key, so
// the result is the same for any ordering of the input and for repeated
// observations of the same record. Attestations about other subjects are
// ignored. Sentiment counts may sum to less than TotalAttestations because
// sentiment is optional; ByCategory always sums to exactly TotalAttestations.
func Summarize(attestations []AttestationRecord, subject Identifier) Summary {
	unique := make(map[CanonicalKey]AttestationRecord, len(attestations))
	witnesses := make(map[Identifier]struct{})
	for _, a := range attestations {
		if a.SubjectID != subject {
			continue
		}
		if !a.Witness.IsZero() {
			witnesses[a.Witness] = struct{}{}
		}
		key := a.CanonicalKey()
		if prev, ok := unique[key]; ok && prev.Ref.String() <= a.Ref.String() {
			continue
		}
		unique[key] = a
	}

	s := Summary{
		Subject: subject,
		ByCategory: map[string]int{
			string(CategoryFactual):    0,
			string(CategorySubjective): 0,
			string(CategoryPredictive): 0,
			CategoryUnknownLabel:       0,
		},
		DistinctWitnesses: len(witnesses),
	}

	for _, a := range unique {
		s.TotalAttestations++
		switch a.Sentiment {
		case SentimentPositive:
			s.PositiveCount++
		case SentimentNegative:
			s.NegativeCount++
		case SentimentNeutral:
			s.NeutralCount++
		}
		s.ByCategory[a.ClaimCategory.Label()]++
		if a.IsContesting() {
			s.ContestedCount++
		}
		s.RecordWarnings += len(a.Warnings)

		created := a.CreatedAt
		if s.Earliest == nil || created.Before(*s.Earliest) {
			s.Earliest = &created
		}
		if s.Latest == nil || created.After(*s.Latest) {
			latest := created
			s.Latest = &latest
		}
	}

	categorized := 0
	for _, n := range s.ByCategory {
		categorized += n
	}
	assert.Invariantf(categorized == s.TotalAttestations,
		"category counts sum to %d, want %d", categorized, s.TotalAttestations)
	assert.Invariant(s.PositiveCount+s.NegativeCount+s.NeutralCount <= s.TotalAttestations,
		"sentiment counts exceed total")

	return s
}

// Contests groups attestations by the record they contest. Keys are
// at:// refs; each group is ordered by CreatedAt then ref.
func Contests(attestations []AttestationRecord) map[string][]AttestationRecord {
	out := make(map[string][]AttestationRecord)
	for _, a := range attestations {
		if !a.IsContesting() {
			continue
		}
		target := a.ContestsRecord.String()
		out[target] = append(out[target], a)
	}
	for _, group := range out {
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].Ref.String() < group[j].Ref.String()
		})
	}
	return out
}
