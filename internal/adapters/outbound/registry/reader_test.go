package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/identity"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/inmemory"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/registry"
	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

const reg domain.Identifier = "did:web:registry.example.org"

func registryRef(key string) domain.RecordRef {
	return domain.RecordRef{Repo: reg, Collection: domain.KindRegistry.String(), Key: key}
}

func TestReader_ListWitnesses(t *testing.T) {
	t.Parallel()

	// Arrange
	repo := inmemory.NewRepository()
	require.NoError(t, repo.Put(registryRef("a"), map[string]any{
		"$type":     domain.KindRegistry.String(),
		"name":      "Example registry",
		"witnesses": []string{"did:plc:w1", "did:plc:w2", "bogus"},
	}))
	require.NoError(t, repo.PutCBOR(registryRef("b"), map[string]any{
		"$type":     domain.KindRegistry.String(),
		"witnesses": []string{"did:plc:w2", "did:plc:w3"},
	}))
	require.NoError(t, repo.Put(registryRef("c"), map[string]any{
		"$type": domain.KindRegistry.String(),
	}))
	reader := registry.NewReader(repo, identity.NewParser(), registry.WithPaging(1, 10))

	// Act
	got, err := reader.ListWitnesses(context.Background(), reg)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []domain.Identifier{"did:plc:w1", "did:plc:w2", "did:plc:w3"}, got)
}

func TestReader_UnknownRegistry(t *testing.T) {
	t.Parallel()

	_, err := registry.NewReader(inmemory.NewRepository(), identity.NewParser()).
		ListWitnesses(context.Background(), reg)

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrRepositoryNotFound)
	assert.Contains(t, err.Error(), string(reg))
}

func TestReader_MaxPages(t *testing.T) {
	t.Parallel()

	repo := inmemory.NewRepository()
	for i, key := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Put(registryRef(key), map[string]any{
			"$type":     domain.KindRegistry.String(),
			"witnesses": []string{[]string{"did:plc:w1", "did:plc:w2", "did:plc:w3"}[i]},
		}))
	}

	got, err := registry.NewReader(repo, identity.NewParser(), registry.WithPaging(1, 2)).
		ListWitnesses(context.Background(), reg)

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrTruncated)
	assert.Contains(t, err.Error(), string(reg))
	assert.Equal(t, []domain.Identifier{"did:plc:w1", "did:plc:w2"}, got)
}

func TestReader_LastPageWithinLimit(t *testing.T) {
	t.Parallel()

	repo := inmemory.NewRepository()
	require.NoError(t, repo.Put(registryRef("a"), map[string]any{
		"$type":     domain.KindRegistry.String(),
		"witnesses": []string{"did:plc:w1"},
	}))

	got, err := registry.NewReader(repo, identity.NewParser(), registry.WithPaging(1, 1)).
		ListWitnesses(context.Background(), reg)

	require.NoError(t, err)
	assert.Equal(t, []domain.Identifier{"did:plc:w1"}, got)
}
