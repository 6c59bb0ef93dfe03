package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	witness "github.com/pennyhailey/witness-protocol"
	"github.com/pennyhailey/witness-protocol/internal/adapters/inbound/httpapi"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/httpclient"
	"github.com/pennyhailey/witness-protocol/internal/config"
	"github.com/pennyhailey/witness-protocol/internal/debug"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(args []string) error {
	fs := newFlagSet("serve", `Serve the discovery HTTP API

USAGE:
    witness serve [flags]

ENDPOINTS:
    GET /v1/subjects/{subject}/attestations   DiscoveryResult
    GET /v1/subjects/{subject}/summary        Summary with contest counts
    GET /v1/subjects/{subject}/operator       Operator resolution
    GET /healthz

Query parameters witness, registry, indexer, social and raw select sources
the same way the discover flags do.

Setting http.allowed_client_spiffe_id or http.allowed_client_trust_domain
serves over mTLS with the SVID from spiffe.workload_socket.

EXAMPLES:
    witness serve --config witness.yaml
    witness serve --listen 127.0.0.1:9090`)
	configPath := addConfigFlag(fs)
	listen := fs.StringP("listen", "l", "", "Listen address (overrides http.listen_addr)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return fmt.Errorf("serve takes no arguments")
	}

	cfg, err := witness.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *listen != "" {
		cfg.HTTP.ListenAddr = *listen
	}
	if err := config.ValidateServe(cfg); err != nil {
		return err
	}

	logger, err := debug.NewLogger(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := witness.New(ctx, cfg, witness.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	srv, err := newServer(ctx, cfg, engine, logger)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down", slog.String("addr", srv.Addr()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func newServer(ctx context.Context, cfg witness.Config, engine *witness.Engine, logger *slog.Logger) (*httpapi.Server, error) {
	serverLogger := httpapi.WithServerLogger(logger.With(slog.String("component", "server")))
	if !cfg.HTTP.MTLS() {
		return httpapi.NewServer(cfg.HTTP.ListenAddr, engine.Handler(), serverLogger)
	}

	authorizer, err := httpclient.Authorizer(cfg.HTTP.AllowedClientSPIFFEID, cfg.HTTP.AllowedClientTrustDomain)
	if err != nil {
		return nil, fmt.Errorf("invalid client policy: %w", err)
	}
	fetchCtx, cancel := context.WithTimeout(ctx, cfg.SPIFFE.InitialFetch())
	defer cancel()
	return httpapi.NewMTLSServer(fetchCtx, cfg.HTTP.ListenAddr, cfg.SPIFFE.WorkloadSocket, authorizer, engine.Handler(), serverLogger)
}
