package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyhailey/witness-protocol/internal/app"
	"github.com/pennyhailey/witness-protocol/internal/domain"
)

func record(witness domain.Identifier, key, claim string, createdAt time.Time) domain.AttestationRecord {
	return domain.AttestationRecord{
		Ref:       domain.RecordRef{Repo: witness, Collection: domain.KindAttestation.String(), Key: key},
		Witness:   witness,
		SubjectID: "did:plc:subject",
		Claim:     claim,
		CreatedAt: createdAt,
	}
}

func TestMerger_DeduplicatesByContent(t *testing.T) {
	t.Parallel()

	// Arrange
	t0 := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	viaSocial := record("did:plc:w1", "3k1", "reliable", t0)
	viaRegistry := record("did:plc:w1", "3k1", "reliable", t0)
	viaIndexer := record("did:plc:w1", "3k1", "reliable", t0)
	merger := app.NewMerger(true)

	// Act
	merger.Add(viaSocial, domain.ChannelSocial)
	merger.Add(viaRegistry, domain.ChannelRegistry)
	merger.Add(viaIndexer, domain.ChannelIndexer)
	records, sources := merger.Result()

	// Assert
	require.Len(t, records, 1)
	assert.Equal(t, 1, sources.Social)
	assert.Equal(t, 0, sources.Registry)
	assert.Equal(t, 0, sources.Indexer)
	assert.Equal(t, 1, sources.Total())
	assert.Equal(t, []domain.Channel{domain.ChannelSocial, domain.ChannelRegistry, domain.ChannelIndexer},
		channels(records[0].SeenVia))
}

func TestMerger_RawModeKeepsEverything(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	merger := app.NewMerger(false)

	merger.Add(record("did:plc:w1", "3k1", "reliable", t0), domain.ChannelSocial)
	merger.Add(record("did:plc:w1", "3k1", "reliable", t0), domain.ChannelRegistry)
	records, sources := merger.Result()

	assert.Len(t, records, 2)
	assert.Equal(t, 2, sources.Total())
	assert.Equal(t, 1, sources.Social)
	assert.Equal(t, 1, sources.Registry)
}

func TestMerger_DistinctContentIsKept(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	merger := app.NewMerger(true)

	merger.Add(record("did:plc:w1", "3k1", "reliable", t0), domain.ChannelSocial)
	merger.Add(record("did:plc:w1", "3k2", "reliable", t0.Add(time.Second)), domain.ChannelSocial)
	merger.Add(record("did:plc:w1", "3k3", "unreliable", t0), domain.ChannelSocial)

	assert.Equal(t, 3, merger.Len())
}

func TestMerger_ResultIsOrderIndependent(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	recs := []domain.AttestationRecord{
		record("did:plc:w1", "3k1", "c", t0.Add(2*time.Hour)),
		record("did:plc:w2", "3k1", "a", t0),
		record("did:plc:w3", "3k1", "b", t0.Add(time.Hour)),
		record("did:plc:w4", "3k1", "d", t0),
	}

	forward := app.NewMerger(true)
	for _, r := range recs {
		forward.Add(r, domain.ChannelSocial)
	}
	backward := app.NewMerger(true)
	for i := len(recs) - 1; i >= 0; i-- {
		backward.Add(recs[i], domain.ChannelSocial)
	}

	a, _ := forward.Result()
	b, _ := backward.Result()
	assert.Equal(t, a, b)
	assert.True(t, a[0].CreatedAt.Equal(t0))
	assert.True(t, a[3].CreatedAt.Equal(t0.Add(2*time.Hour)))
}

func TestMerger_ResultDoesNotAlias(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	merger := app.NewMerger(true)
	merger.Add(record("did:plc:w1", "3k1", "reliable", t0), domain.ChannelSocial)

	first, _ := merger.Result()
	merger.Add(record("did:plc:w1", "3k1", "reliable", t0), domain.ChannelIndexer)
	second, _ := merger.Result()

	assert.Len(t, first[0].SeenVia, 1)
	assert.Len(t, second[0].SeenVia, 2)
}

func channels(seen []domain.Provenance) []domain.Channel {
	out := make([]domain.Channel, len(seen))
	for i, p := range seen {
		out[i] = p.Channel
	}
	return out
}
