package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/identity"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/inmemory"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/registry"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/social"
	"github.com/pennyhailey/witness-protocol/internal/app"
	"github.com/pennyhailey/witness-protocol/internal/bg"
	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

const (
	subjectID domain.Identifier = "did:plc:subject"
	w1        domain.Identifier = "did:plc:w1"
	w2        domain.Identifier = "did:plc:w2"
	w3        domain.Identifier = "did:plc:w3"
	reg       domain.Identifier = "did:web:registry.example.org"
)

var t0 = time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)

func attestationValue(subject domain.Identifier, claim string, createdAt time.Time) map[string]any {
	return map[string]any{
		"$type":     domain.KindAttestation.String(),
		"subjectId": subject.String(),
		"claim":     claim,
		"sentiment": "positive",
		"createdAt": createdAt.Format(time.RFC3339),
	}
}

func putAttestation(t *testing.T, repo *inmemory.Repository, witness domain.Identifier, key string, value map[string]any) {
	t.Helper()
	ref := domain.RecordRef{Repo: witness, Collection: domain.KindAttestation.String(), Key: key}
	require.NoError(t, repo.Put(ref, value))
}

func putRegistry(t *testing.T, repo *inmemory.Repository, registryID domain.Identifier, members ...domain.Identifier) {
	t.Helper()
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.String()
	}
	ref := domain.RecordRef{Repo: registryID, Collection: domain.KindRegistry.String(), Key: "self"}
	require.NoError(t, repo.Put(ref, map[string]any{
		"$type":     domain.KindRegistry.String(),
		"witnesses": ids,
	}))
}

func newDiscoverer(repo *inmemory.Repository, idx *inmemory.Indexer, opts ...app.Option) *app.Discoverer {
	parser := identity.NewParser()
	base := []app.Option{
		app.WithLogger(nil),
		app.WithRegistryReader(registry.NewReader(repo, parser)),
		app.WithSocialGraph(social.NewGraph(repo, parser)),
		app.WithIndexerClient(idx),
	}
	return app.NewDiscoverer(repo, app.NewValidator(parser), append(base, opts...)...)
}

func TestDiscover_KnownWitnessesWithOneUnreachable(t *testing.T) {
	t.Parallel()

	// Arrange
	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
	repo.Fail(w2, errors.New("dial tcp: connection refused"))
	d := newDiscoverer(repo, inmemory.NewIndexer())

	// Act
	result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1, w2},
		Deduplicate:    true,
	})

	// Assert
	require.Len(t, result.Attestations, 1)
	assert.Equal(t, 1, result.Sources.Social)
	assert.Equal(t, 0, result.Sources.Registry)
	assert.Equal(t, 0, result.Sources.Indexer)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], w2.String())

	got := result.Attestations[0]
	assert.Equal(t, w1, got.Witness)
	assert.Equal(t, domain.SentimentPositive, got.Sentiment)
	assert.True(t, got.CreatedAt.Equal(t0))
}

func TestDiscover_SameRecordViaTwoChannels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		deduplicate bool
		wantRecords int
		wantTotal   int
	}{
		{"deduplicated", true, 1, 1},
		{"raw", false, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			repo := inmemory.NewRepository()
			putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
			putRegistry(t, repo, reg, w1)
			d := newDiscoverer(repo, inmemory.NewIndexer())

			// Act
			result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
				KnownWitnesses: []domain.Identifier{w1},
				Registries:     []domain.Identifier{reg},
				Deduplicate:    tt.deduplicate,
			})

			// Assert
			assert.Empty(t, result.Warnings)
			assert.Len(t, result.Attestations, tt.wantRecords)
			assert.Equal(t, tt.wantTotal, result.Sources.Total())
			assert.Equal(t, 2, repo.Calls(w1), "a witness reached by two channels is fetched once per channel")
		})
	}
}

func TestDiscover_DeduplicatedRecordKeepsProvenance(t *testing.T) {
	t.Parallel()

	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
	putRegistry(t, repo, reg, w1)
	d := newDiscoverer(repo, inmemory.NewIndexer())

	result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1},
		Registries:     []domain.Identifier{reg},
		Deduplicate:    true,
	})

	require.Len(t, result.Attestations, 1)
	assert.Equal(t, []domain.Channel{domain.ChannelSocial, domain.ChannelRegistry},
		channels(result.Attestations[0].SeenVia))
}

func TestDiscover_RegistryFailureIsIsolated(t *testing.T) {
	t.Parallel()

	// Arrange
	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
	putAttestation(t, repo, w3, "3k1", attestationValue(subjectID, "answered audits", t0.Add(time.Hour)))
	const other domain.Identifier = "did:web:other-registry.example.org"
	putRegistry(t, repo, other, w3)
	repo.Fail(reg, errors.New("503 Service Unavailable"))
	d := newDiscoverer(repo, inmemory.NewIndexer())

	// Act
	result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1},
		Registries:     []domain.Identifier{reg, other},
		Deduplicate:    true,
	})

	// Assert
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], reg.String())
	assert.Contains(t, result.Warnings[0], "registry")
	assert.Len(t, result.Attestations, 2)
	assert.Equal(t, 1, result.Sources.Social)
	assert.Equal(t, 1, result.Sources.Registry)
}

func TestDiscover_IndexerChannel(t *testing.T) {
	t.Parallel()

	// Arrange
	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
	idx := inmemory.NewIndexer()
	idx.Add("https://index.example.org",
		ports.IndexedAttestation{
			URI:       "at://did:plc:w1/network.witness.attestation/3k1",
			WitnessID: w1.String(),
			SubjectID: subjectID.String(),
			Claim:     "kept its commitments",
			Sentiment: "positive",
			CreatedAt: t0.Format(time.RFC3339),
		},
		ports.IndexedAttestation{
			URI:       "at://did:plc:w3/network.witness.attestation/3k9",
			WitnessID: w3.String(),
			SubjectID: subjectID.String(),
			Claim:     "missed a deadline",
			Sentiment: "negative",
			CreatedAt: t0.Add(time.Hour).Format(time.RFC3339),
		},
		ports.IndexedAttestation{
			URI:       "at://did:plc:w3/network.witness.attestation/3k8",
			WitnessID: w3.String(),
			SubjectID: subjectID.String(),
			Claim:     "",
			CreatedAt: t0.Format(time.RFC3339),
		},
	)
	idx.Fail("https://down.example.org", errors.New("502 Bad Gateway"))
	d := newDiscoverer(repo, idx)

	// Act
	result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1},
		Indexers: []ports.IndexerTarget{
			{BaseURL: "https://index.example.org/"},
			{BaseURL: "https://down.example.org"},
		},
		Deduplicate: true,
	})

	// Assert
	require.Len(t, result.Attestations, 2)
	assert.Equal(t, 1, result.Sources.Social)
	assert.Equal(t, 1, result.Sources.Indexer)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "https://down.example.org")
	assert.True(t, strings.HasPrefix(result.Warnings[0], "indexer:"))
}

func TestDiscover_SocialCandidates(t *testing.T) {
	t.Parallel()

	repo := inmemory.NewRepository()
	putAttestation(t, repo, w3, "3k1", attestationValue(subjectID, "answered audits", t0))
	followRef := domain.RecordRef{Repo: subjectID, Collection: domain.KindFollow.String(), Key: "3f1"}
	require.NoError(t, repo.Put(followRef, map[string]any{
		"$type":     domain.KindFollow.String(),
		"subject":   w3.String(),
		"createdAt": t0.Format(time.RFC3339),
	}))
	d := newDiscoverer(repo, inmemory.NewIndexer())

	result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
		DiscoverWitnessesSocially: true,
		Deduplicate:               true,
	})

	assert.Empty(t, result.Warnings)
	require.Len(t, result.Attestations, 1)
	assert.Equal(t, w3, result.Attestations[0].Witness)
	assert.Equal(t, 1, result.Sources.Social)
}

func TestDiscover_FiltersAndDropsRecords(t *testing.T) {
	t.Parallel()

	// Arrange
	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
	putAttestation(t, repo, w1, "3k2", attestationValue("did:plc:someone-else", "unrelated", t0))
	bad := attestationValue(subjectID, "angry", t0)
	bad["sentiment"] = "angry"
	putAttestation(t, repo, w1, "3k3", bad)
	noDate := attestationValue(subjectID, "undated", t0)
	delete(noDate, "createdAt")
	putAttestation(t, repo, w1, "3k4", noDate)
	d := newDiscoverer(repo, inmemory.NewIndexer())

	// Act
	result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1},
		Deduplicate:    true,
	})

	// Assert
	require.Len(t, result.Attestations, 1)
	assert.Equal(t, "kept its commitments", result.Attestations[0].Claim)
	assert.Empty(t, result.Warnings, "malformed records are dropped without a discovery warning")
	assert.NotEmpty(t, result.Attestations[0].Warnings, "semantic warnings stay on the record")
}

func TestDiscover_Timeout(t *testing.T) {
	t.Parallel()

	// Arrange
	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
	putAttestation(t, repo, w2, "3k1", attestationValue(subjectID, "slow but fine", t0))
	repo.Delay(w2, 5*time.Second)
	d := newDiscoverer(repo, inmemory.NewIndexer(), app.WithFetchTimeout(50*time.Millisecond))

	// Act
	start := time.Now()
	result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1, w2},
		Deduplicate:    true,
	})

	// Assert
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, result.Attestations, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], w2.String())
	assert.Contains(t, result.Warnings[0], "timed out")
}

func TestDiscover_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
	d := newDiscoverer(repo, inmemory.NewIndexer())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := d.Discover(ctx, subjectID, ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1, w2},
		Registries:     []domain.Identifier{reg},
		Deduplicate:    true,
	})

	assert.Empty(t, result.Attestations)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "cancelled")
	assert.Zero(t, repo.Calls(w1))
}

func TestDiscover_CancelledInFlightKeepsCompletedResults(t *testing.T) {
	t.Parallel()

	// Arrange
	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
	putAttestation(t, repo, w2, "3k1", attestationValue(subjectID, "slow", t0))
	repo.Delay(w2, 10*time.Second)
	d := newDiscoverer(repo, inmemory.NewIndexer(), app.WithMaxConcurrency(2))
	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(100*time.Millisecond, cancel)
	defer timer.Stop()

	// Act
	result := d.Discover(ctx, subjectID, ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1, w2},
		Deduplicate:    true,
	})

	// Assert
	require.Len(t, result.Attestations, 1)
	assert.Equal(t, w1, result.Attestations[0].Witness)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "cancelled")
}

func TestDiscover_PaginationCap(t *testing.T) {
	t.Parallel()

	repo := inmemory.NewRepository()
	for i, key := range []string{"3k1", "3k2", "3k3"} {
		putAttestation(t, repo, w1, key, attestationValue(subjectID, "claim "+key, t0.Add(time.Duration(i)*time.Minute)))
	}
	d := newDiscoverer(repo, inmemory.NewIndexer(), app.WithPageSize(1), app.WithMaxPages(2))

	result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1},
		Deduplicate:    true,
	})

	assert.Len(t, result.Attestations, 2)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "truncated")
}

func TestDiscover_MissingPortIsAWarning(t *testing.T) {
	t.Parallel()

	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
	d := app.NewDiscoverer(repo, app.NewValidator(identity.NewParser()), app.WithLogger(nil))

	result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1},
		Registries:     []domain.Identifier{reg},
		Deduplicate:    true,
	})

	assert.Len(t, result.Attestations, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], ports.ErrNotConfigured.Error())
}

func TestDiscover_InvalidSubject(t *testing.T) {
	t.Parallel()

	repo := inmemory.NewRepository()
	d := newDiscoverer(repo, inmemory.NewIndexer())

	result := d.Discover(context.Background(), "not-an-identifier", ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1},
	})

	assert.Empty(t, result.Attestations)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "invalid subject")
	assert.Zero(t, repo.Calls(w1))
}

func TestDiscover_InvalidKnownWitness(t *testing.T) {
	t.Parallel()

	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
	d := newDiscoverer(repo, inmemory.NewIndexer())

	result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1, "bob"},
		Deduplicate:    true,
	})

	assert.Len(t, result.Attestations, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], `"bob"`)
}

func TestDiscover_StateTransitions(t *testing.T) {
	t.Parallel()

	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))

	var mu sync.Mutex
	var states []app.DiscoveryState
	d := newDiscoverer(repo, inmemory.NewIndexer(), app.WithStateHook(func(s app.DiscoveryState) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	}))

	d.Discover(context.Background(), subjectID, ports.DiscoverOptions{KnownWitnesses: []domain.Identifier{w1}})

	assert.Equal(t, []app.DiscoveryState{app.StateIdle, app.StateFetching, app.StateMerging, app.StateDone}, states)
	assert.Equal(t, "merging", app.StateMerging.String())
}

func TestDiscover_ResultIndependentOfScheduling(t *testing.T) {
	t.Parallel()

	repo := inmemory.NewRepository()
	witnesses := []domain.Identifier{w1, w2, w3}
	for i, w := range witnesses {
		putAttestation(t, repo, w, "3k1", attestationValue(subjectID, "shared claim", t0))
		putAttestation(t, repo, w, "3k2", attestationValue(subjectID, "own claim "+w.String(), t0.Add(time.Duration(i)*time.Hour)))
	}
	putRegistry(t, repo, reg, w3, w2, w1)
	opts := ports.DiscoverOptions{
		KnownWitnesses: witnesses,
		Registries:     []domain.Identifier{reg},
		Deduplicate:    true,
	}

	sequential := newDiscoverer(repo, inmemory.NewIndexer(), app.WithRunner(bg.SyncFactory)).
		Discover(context.Background(), subjectID, opts)
	concurrent := newDiscoverer(repo, inmemory.NewIndexer(), app.WithMaxConcurrency(3)).
		Discover(context.Background(), subjectID, opts)

	assert.Equal(t, sequential.Attestations, concurrent.Attestations)
	assert.Equal(t, sequential.Sources, concurrent.Sources)
	assert.Len(t, sequential.Attestations, 4)
}

// stalledIndexer never answers before its fetch times out. It records
// whether the witness repository was listed while the query was in flight.
type stalledIndexer struct {
	repo       *inmemory.Repository
	witness    domain.Identifier
	sawWitness atomic.Bool
}

func (s *stalledIndexer) QueryAttestations(ctx context.Context, _ string, _ ports.IndexerQuery) (*ports.IndexerPage, error) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if s.repo.Calls(s.witness) > 0 {
			s.sawWitness.Store(true)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func TestDiscover_KnownWitnessNotBlockedBySlowIndexer(t *testing.T) {
	t.Parallel()

	// Arrange
	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
	idx := &stalledIndexer{repo: repo, witness: w1}
	d := newDiscoverer(repo, inmemory.NewIndexer(),
		app.WithIndexerClient(idx),
		app.WithFetchTimeout(300*time.Millisecond))

	// Act
	start := time.Now()
	result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
		KnownWitnesses: []domain.Identifier{w1},
		Indexers:       []ports.IndexerTarget{{BaseURL: "https://indexer.example.org"}},
		Deduplicate:    true,
	})

	// Assert
	assert.True(t, idx.sawWitness.Load(), "known witness must be fetched while the indexer query is in flight")
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, result.Attestations, 1)
	assert.Equal(t, 1, result.Sources.Social)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "indexer.example.org")
	assert.Contains(t, result.Warnings[0], "timed out")
}

func TestDiscover_TruncatedRegistryKeepsMembers(t *testing.T) {
	t.Parallel()

	// Arrange
	repo := inmemory.NewRepository()
	putAttestation(t, repo, w1, "3k1", attestationValue(subjectID, "kept its commitments", t0))
	for _, key := range []string{"a", "b"} {
		ref := domain.RecordRef{Repo: reg, Collection: domain.KindRegistry.String(), Key: key}
		require.NoError(t, repo.Put(ref, map[string]any{
			"$type":     domain.KindRegistry.String(),
			"witnesses": []string{w1.String()},
		}))
	}
	parser := identity.NewParser()
	d := newDiscoverer(repo, inmemory.NewIndexer(),
		app.WithRegistryReader(registry.NewReader(repo, parser, registry.WithPaging(1, 1))))

	// Act
	result := d.Discover(context.Background(), subjectID, ports.DiscoverOptions{
		Registries:  []domain.Identifier{reg},
		Deduplicate: true,
	})

	// Assert
	require.Len(t, result.Attestations, 1)
	assert.Equal(t, 1, result.Sources.Registry)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], reg.String())
	assert.Contains(t, result.Warnings[0], "truncated")
}
