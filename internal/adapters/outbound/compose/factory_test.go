package compose_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/compose"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/inmemory"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/mirror"
	"github.com/pennyhailey/witness-protocol/internal/config"
	"github.com/pennyhailey/witness-protocol/internal/domain"
)

func TestBuild_XRPC(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	require.NoError(t, config.Validate(cfg))

	a, err := compose.Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "xrpc", a.Mode)
	assert.NotNil(t, a.Repos)
	assert.NotNil(t, a.Registries)
	assert.NotNil(t, a.Social)
	assert.NotNil(t, a.Indexer)
	assert.NotNil(t, a.Parser)
}

func TestBuild_MirrorWiresGraphs(t *testing.T) {
	t.Parallel()

	// Arrange: a registry listing one witness, stored in the mirror
	root := t.TempDir()
	reg := domain.Identifier("did:web:registry.example.org")
	dir := filepath.Join(mirror.RepoDir(root, reg), domain.KindRegistry.String())
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "self.jsonc"), []byte(`{
		"$type": "network.witness.registry",
		// curated by hand
		"witnesses": ["did:plc:w1"],
	}`), 0o644))

	cfg := config.Default()
	cfg.Repository.ServiceURL = ""
	cfg.Repository.MirrorDir = root
	require.NoError(t, config.Validate(cfg))

	// Act
	a, err := compose.Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	members, err := a.Registries.ListWitnesses(context.Background(), reg)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "mirror", a.Mode)
	assert.Equal(t, []domain.Identifier{"did:plc:w1"}, members)
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	missing := config.Default()
	missing.Repository.ServiceURL = ""
	missing.Repository.MirrorDir = filepath.Join(t.TempDir(), "missing")
	_, err := compose.Build(context.Background(), missing, nil)
	assert.Error(t, err)

	noPolicy := config.Default()
	noPolicy.SPIFFE.WorkloadSocket = "unix:///tmp/agent.sock"
	_, err = compose.Build(context.Background(), noPolicy, nil)
	assert.Error(t, err)
}

func TestInMemory(t *testing.T) {
	t.Parallel()

	repo := inmemory.NewRepository()
	subject := domain.Identifier("did:plc:agent")
	require.NoError(t, repo.Put(domain.RecordRef{Repo: subject, Collection: domain.KindFollow.String(), Key: "f1"},
		map[string]any{"$type": domain.KindFollow.String(), "subject": "did:plc:w1", "createdAt": "2026-01-01T00:00:00Z"}))

	a := compose.InMemory(repo, inmemory.NewIndexer())
	candidates, err := a.Social.CandidateWitnesses(context.Background(), subject)

	require.NoError(t, err)
	assert.Equal(t, "inmemory", a.Mode)
	assert.Equal(t, []domain.Identifier{"did:plc:w1"}, candidates)
	assert.NoError(t, a.Close())
}
