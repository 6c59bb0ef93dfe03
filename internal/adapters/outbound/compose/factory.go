package compose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/httpclient"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/identity"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/indexer"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/inmemory"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/mirror"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/registry"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/social"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/xrpc"
	"github.com/pennyhailey/witness-protocol/internal/config"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// Adapters holds the outbound ports of one engine.
type Adapters struct {
	Repos      ports.RepositoryReader
	Registries ports.RegistryReader
	Social     ports.SocialGraph
	Indexer    ports.IndexerClient
	Parser     ports.IdentifierParser

	// Mode names the repository source: "xrpc", "mirror" or "inmemory"
	Mode string

	closers []io.Closer
}

// Close releases the X509Source and idle connections, if any
func (a *Adapters) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build creates adapters for cfg, which must have passed config.Validate.
//
// With spiffe.workload_socket set, ctx bounds only the initial SVID fetch;
// the source keeps rotating in the background until Close.
func Build(ctx context.Context, cfg config.FileConfig, logger *slog.Logger) (*Adapters, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := newHTTPClient(ctx, cfg.SPIFFE)
	if err != nil {
		return nil, err
	}

	a := &Adapters{
		Parser:  identity.NewParser(),
		Indexer: indexer.New(client),
		closers: []io.Closer{client},
	}

	repoCfg := cfg.Repository
	if repoCfg.MirrorDir != "" {
		r, err := mirror.NewReader(repoCfg.MirrorDir)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Repos = r
		a.Mode = "mirror"
	} else {
		r, err := xrpc.NewReader(repoCfg.ServiceURL, client,
			xrpc.WithRateLimit(repoCfg.RequestsPerSecond, max(int(repoCfg.RequestsPerSecond), 1)),
			xrpc.WithLogger(logger.With(slog.String("adapter", "xrpc"))))
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Repos = r
		a.Mode = "xrpc"
	}

	a.wireGraphs(repoCfg.PageSize, repoCfg.MaxPages, logger)
	logger.Debug("adapters composed",
		slog.String("mode", a.Mode),
		slog.Bool("mtls", cfg.SPIFFE.Enabled()))
	return a, nil
}

// InMemory wires the engine-facing ports over in-memory fixtures.
func InMemory(repos *inmemory.Repository, idx *inmemory.Indexer) *Adapters {
	a := &Adapters{
		Repos:   repos,
		Parser:  identity.NewParser(),
		Indexer: idx,
		Mode:    "inmemory",
	}
	a.wireGraphs(0, 0, nil)
	return a
}

func (a *Adapters) wireGraphs(pageSize, maxPages int, logger *slog.Logger) {
	a.Registries = registry.NewReader(a.Repos, a.Parser,
		registry.WithPaging(pageSize, maxPages),
		registry.WithLogger(logger))
	a.Social = social.NewGraph(a.Repos, a.Parser,
		social.WithPaging(pageSize, maxPages),
		social.WithLogger(logger))
}

func newHTTPClient(ctx context.Context, s config.SPIFFESection) (*httpclient.Client, error) {
	if !s.Enabled() {
		return httpclient.New(), nil
	}

	authorizer, err := httpclient.Authorizer(s.ExpectedServerSPIFFEID, s.ExpectedServerTrustDomain)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.InitialFetch())
	defer cancel()
	client, err := httpclient.NewSPIFFE(fetchCtx, s.WorkloadSocket, authorizer)
	if err != nil {
		return nil, fmt.Errorf("failed to create SPIFFE http client: %w", err)
	}
	return client, nil
}
