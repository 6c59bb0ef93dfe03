// Package witness discovers, validates and aggregates Witness Protocol
// attestations about a subject.
//
// An Engine reads witness repositories over XRPC (or from a local mirror),
// follows registries and the subject's social graph to find witnesses,
// queries indexers, and merges everything into one deduplicated result.
// Discovery never fails as a whole: unreachable hosts and malformed records
// become warnings on the result.
//
// Quick Start:
//
//	engine, err := witness.Open(ctx, "witness.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	opts := engine.DiscoverOptions()
//	opts.KnownWitnesses = append(opts.KnownWitnesses, "did:plc:w1")
//	result := engine.Discover(ctx, "did:plc:subject", opts)
//	summary := witness.Summarize(result.Attestations, result.Subject)
//
// Operator supersession chains are resolved with DiscoverOperator, or with
// ResolveCurrentOperator over records obtained elsewhere.
package witness

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/pennyhailey/witness-protocol/internal/adapters/inbound/httpapi"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/compose"
	"github.com/pennyhailey/witness-protocol/internal/app"
	"github.com/pennyhailey/witness-protocol/internal/bg"
	"github.com/pennyhailey/witness-protocol/internal/config"
	"github.com/pennyhailey/witness-protocol/internal/debug"
	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

type (
	// Config is the engine configuration as read from a YAML file
	Config = config.FileConfig

	Identifier        = domain.Identifier
	RecordRef         = domain.RecordRef
	AttestationRecord = domain.AttestationRecord
	OperatorRecord    = domain.OperatorRecord
	Resolution        = domain.Resolution
	Summary           = domain.Summary

	DiscoverOptions = ports.DiscoverOptions
	DiscoveryResult = ports.DiscoveryResult
	OperatorResult  = ports.OperatorResult
	IndexerTarget   = ports.IndexerTarget
	Sources         = ports.Sources
)

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads and validates a config file. An empty path loads the
// defaults with environment overrides applied.
func LoadConfig(path string) (Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return Config{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Engine is a configured discovery engine. It is safe for concurrent use;
// each call builds its result from scratch.
type Engine struct {
	cfg        Config
	adapters   *compose.Adapters
	discoverer *app.Discoverer
	logger     *slog.Logger
}

type engineOptions struct {
	logger     *slog.Logger
	sequential bool
}

// Option configures an Engine
type Option func(*engineOptions)

// WithLogger sets the engine's logger. Without it the logger is built from
// the log section of the config and writes to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithSequentialFetches runs every remote fetch on the calling goroutine.
// Results are identical; only the wall time changes.
func WithSequentialFetches() Option {
	return func(o *engineOptions) {
		o.sequential = true
	}
}

// Open loads the config file at path and creates an engine from it.
func Open(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, opts...)
}

// New creates an engine from cfg. ctx bounds only the initial SVID fetch
// when SPIFFE mTLS is configured.
func New(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	o := engineOptions{sequential: debug.Active.SingleThreaded}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		logger, err := debug.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
		if err != nil {
			return nil, err
		}
		o.logger = logger
	}

	adapters, err := compose.Build(ctx, cfg, o.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build adapters: %w", err)
	}
	return newEngine(cfg, adapters, o), nil
}

func newEngine(cfg Config, adapters *compose.Adapters, o engineOptions) *Engine {
	runner := bg.BoundedFactory
	if o.sequential {
		runner = bg.SyncFactory
	}
	logger := o.logger
	if logger == nil {
		logger = debug.Discard()
	}

	d := app.NewDiscoverer(adapters.Repos, app.NewValidator(adapters.Parser),
		app.WithRegistryReader(adapters.Registries),
		app.WithSocialGraph(adapters.Social),
		app.WithIndexerClient(adapters.Indexer),
		app.WithLogger(logger),
		app.WithMaxConcurrency(cfg.Discovery.MaxConcurrency),
		app.WithFetchTimeout(cfg.Discovery.Timeout()),
		app.WithPageSize(cfg.Repository.PageSize),
		app.WithMaxPages(cfg.Repository.MaxPages),
		app.WithRunner(runner))

	return &Engine{
		cfg:        cfg,
		adapters:   adapters,
		discoverer: d,
		logger:     logger,
	}
}

// Config returns the configuration the engine was created with
func (e *Engine) Config() Config {
	return e.cfg
}

// Mode names the repository source: "xrpc", "mirror" or "inmemory"
func (e *Engine) Mode() string {
	return e.adapters.Mode
}

// DiscoverOptions returns the discovery defaults of the discovery section.
// Callers may extend or replace any field before passing them to Discover.
func (e *Engine) DiscoverOptions() DiscoverOptions {
	d := e.cfg.Discovery
	opts := DiscoverOptions{
		KnownWitnesses:            toIdentifiers(d.KnownWitnesses),
		DiscoverWitnessesSocially: d.Social,
		Registries:                toIdentifiers(d.Registries),
		Deduplicate:               d.DeduplicateEnabled(),
	}
	for _, u := range d.Indexers {
		opts.Indexers = append(opts.Indexers, IndexerTarget{BaseURL: u})
	}
	return opts
}

// ParseIdentifier checks s against the DID and SPIFFE ID grammars
func (e *Engine) ParseIdentifier(s string) (Identifier, error) {
	return e.adapters.Parser.ParseIdentifier(s)
}

// Discover finds attestations about subject through the channels opts selects.
func (e *Engine) Discover(ctx context.Context, subject Identifier, opts DiscoverOptions) DiscoveryResult {
	return e.discoverer.Discover(ctx, subject, opts)
}

// DiscoverOperator reads the operator records in subject's repository and
// resolves the current one.
func (e *Engine) DiscoverOperator(ctx context.Context, subject Identifier) OperatorResult {
	return e.discoverer.DiscoverOperator(ctx, subject)
}

// Handler returns the HTTP API over this engine, using the engine's
// discovery defaults for requests that name no sources.
func (e *Engine) Handler() http.Handler {
	return httpapi.NewHandler(e.discoverer, e.adapters.Parser,
		httpapi.WithDefaults(e.DiscoverOptions()),
		httpapi.WithLogger(e.logger.With(slog.String("component", "httpapi"))))
}

// Logger returns the engine's logger
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Close releases network resources held by the engine
func (e *Engine) Close() error {
	return e.adapters.Close()
}

// ResolveCurrentOperator returns the effective operator record for subject.
// The second return value is false when records holds nothing for subject.
func ResolveCurrentOperator(subject Identifier, records []OperatorRecord) (Resolution, bool) {
	return domain.ResolveCurrentOperator(subject, records)
}

// Summarize folds the attestations about subject into a Summary
func Summarize(attestations []AttestationRecord, subject Identifier) Summary {
	return domain.Summarize(attestations, subject)
}

// Contests maps each contested record ref to the attestations contesting it
func Contests(attestations []AttestationRecord) map[string][]AttestationRecord {
	return domain.Contests(attestations)
}

func toIdentifiers(ss []string) []Identifier {
	var out []Identifier
	for _, s := range ss {
		out = append(out, Identifier(s))
	}
	return out
}
