package app

import (
	"sort"

	"github.com/pennyhailey/witness-protocol/internal/assert"
	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// Merger folds (record, channel) observations into a unique record set.
//
// With deduplication on, the first observation of a canonical key is kept
// and credited to its channel; later observations only extend the kept
// record's SeenVia. With deduplication off every observation is kept and
// counted. A Merger is not safe for concurrent use.
type Merger struct {
	dedupe  bool
	index   map[domain.CanonicalKey]int
	records []domain.AttestationRecord
	sources ports.Sources
}

// NewMerger creates an empty merger
func NewMerger(dedupe bool) *Merger {
	return &Merger{
		dedupe: dedupe,
		index:  make(map[domain.CanonicalKey]int),
	}
}

// Add folds one observation of rec through channel ch.
func (m *Merger) Add(rec domain.AttestationRecord, ch domain.Channel) {
	seen := domain.Provenance{Channel: ch, Ref: rec.Ref}
	key := rec.CanonicalKey()

	if m.dedupe {
		if i, ok := m.index[key]; ok {
			kept := &m.records[i]
			kept.SeenVia = append(kept.SeenVia, seen)
			return
		}
		m.index[key] = len(m.records)
	}

	rec.SeenVia = []domain.Provenance{seen}
	m.records = append(m.records, rec)
	m.sources.Add(ch)
	assert.Invariantf(m.sources.Total() == len(m.records),
		"first-seen counts %d disagree with %d kept records", m.sources.Total(), len(m.records))
}

// Len returns the number of records kept so far
func (m *Merger) Len() int {
	return len(m.records)
}

// Result returns the kept records ordered by (createdAt, canonical key, ref)
// together with the first-seen counts per channel. The returned slice is a
// copy; the merger can keep accepting observations.
func (m *Merger) Result() ([]domain.AttestationRecord, ports.Sources) {
	out := make([]domain.AttestationRecord, len(m.records))
	for i, rec := range m.records {
		rec.SeenVia = append([]domain.Provenance(nil), rec.SeenVia...)
		out[i] = rec
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if ka, kb := a.CanonicalKey(), b.CanonicalKey(); ka != kb {
			return ka < kb
		}
		return a.Ref.String() < b.Ref.String()
	})
	return out, m.sources
}
