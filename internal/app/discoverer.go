package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pennyhailey/witness-protocol/internal/bg"
	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// Defaults applied when the corresponding option is not given.
const (
	DefaultMaxConcurrency = 8
	DefaultFetchTimeout   = 10 * time.Second
	DefaultPageSize       = 100
	DefaultMaxPages       = 10
)

// DiscoveryState is the phase of one discovery invocation.
type DiscoveryState int

const (
	StateIdle DiscoveryState = iota
	StateFetching
	StateMerging
	StateDone
)

func (s DiscoveryState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateMerging:
		return "merging"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("DiscoveryState(%d)", int(s))
	}
}

// Discoverer orchestrates attestation discovery across the social, registry
// and indexer channels.
//
// Every remote fetch is one task with its own timeout. Tasks share no
// mutable state: each writes only its own ChannelResult, and results are
// folded in task order once every task has finished.
type Discoverer struct {
	repos      ports.RepositoryReader
	registries ports.RegistryReader
	social     ports.SocialGraph
	indexer    ports.IndexerClient
	validator  *Validator
	logger     *slog.Logger

	maxConcurrency int
	fetchTimeout   time.Duration
	pageSize       int
	maxPages       int
	runner         bg.Factory
	stateHook      func(DiscoveryState)
}

// Option configures a Discoverer
type Option func(*Discoverer)

// WithRegistryReader enables the registry channel
func WithRegistryReader(r ports.RegistryReader) Option {
	return func(d *Discoverer) {
		d.registries = r
	}
}

// WithSocialGraph enables social candidate derivation
func WithSocialGraph(g ports.SocialGraph) Option {
	return func(d *Discoverer) {
		d.social = g
	}
}

// WithIndexerClient enables the indexer channel
func WithIndexerClient(c ports.IndexerClient) Option {
	return func(d *Discoverer) {
		d.indexer = c
	}
}

// WithLogger sets a structured logger for the discoverer
// If logger is nil, uses io.Discard for silent operation
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discoverer) {
		if logger != nil {
			d.logger = logger
		} else {
			d.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
	}
}

// WithMaxConcurrency bounds the number of fetches in flight. Values below 1 are ignored.
func WithMaxConcurrency(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.maxConcurrency = n
		}
	}
}

// WithFetchTimeout sets the timeout of each remote fetch. Values below 1ns are ignored.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(d *Discoverer) {
		if timeout > 0 {
			d.fetchTimeout = timeout
		}
	}
}

// WithPageSize sets the limit passed to each page request
func WithPageSize(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.pageSize = n
		}
	}
}

// WithMaxPages caps the pages followed per target
func WithMaxPages(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.maxPages = n
		}
	}
}

// WithRunner replaces the task runner factory (bg.SyncFactory for deterministic tests)
func WithRunner(f bg.Factory) Option {
	return func(d *Discoverer) {
		if f != nil {
			d.runner = f
		}
	}
}

// WithStateHook registers a callback invoked on every state transition
func WithStateHook(hook func(DiscoveryState)) Option {
	return func(d *Discoverer) {
		d.stateHook = hook
	}
}

// NewDiscoverer creates a discoverer reading witness repositories through repos.
func NewDiscoverer(repos ports.RepositoryReader, validator *Validator, opts ...Option) *Discoverer {
	d := &Discoverer{
		repos:     repos,
		validator: validator,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})),
		maxConcurrency: DefaultMaxConcurrency,
		fetchTimeout:   DefaultFetchTimeout,
		pageSize:       DefaultPageSize,
		maxPages:       DefaultMaxPages,
		runner:         bg.BoundedFactory,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover finds attestations about subject through every channel opts selects.
//
// Discover is total. Unreachable repositories, failed registries, slow
// indexers and cancellation all show up in Warnings, and whatever was
// collected before is still returned.
func (d *Discoverer) Discover(ctx context.Context, subject domain.Identifier, opts ports.DiscoverOptions) ports.DiscoveryResult {
	started := time.Now()
	d.setState(StateIdle)
	defer d.setState(StateDone)

	log := d.logger.With(
		slog.String("discovery_id", uuid.NewString()),
		slog.String("subject", subject.String()))

	result := ports.DiscoveryResult{
		Subject:      subject,
		Attestations: []domain.AttestationRecord{},
		Warnings:     []string{},
	}
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		log.Warn("discovery warning", slog.String("warning", msg))
		result.Warnings = append(result.Warnings, msg)
	}

	if _, err := d.validator.parser.ParseIdentifier(subject.String()); err != nil {
		warn("invalid subject %q: %v", subject, err)
		return result
	}

	log.Info("discovery started",
		slog.Int("known_witnesses", len(opts.KnownWitnesses)),
		slog.Bool("social", opts.DiscoverWitnessesSocially),
		slog.Int("registries", len(opts.Registries)),
		slog.Int("indexers", len(opts.Indexers)))

	d.setState(StateFetching)

	// Phase one fetches the known witnesses alongside the fetches that
	// resolve further targets, so a slow registry or indexer never holds
	// back a direct fetch.
	known := d.witnessTargets(opts.KnownWitnesses, warn)
	var firstTasks []task
	for _, w := range known {
		firstTasks = append(firstTasks, d.witnessTask(domain.ChannelSocial, subject, w, log))
	}
	firstTasks = append(firstTasks, d.sourceTasks(subject, opts)...)
	firstResults := d.runTasks(ctx, firstTasks)
	knownResults, sourceResults := firstResults[:len(known)], firstResults[len(known):]

	var socialCandidates []domain.Identifier
	var members []domain.Identifier
	for _, res := range sourceResults {
		if res.Err != nil || res.Abandoned {
			continue
		}
		switch res.Channel {
		case domain.ChannelSocial:
			socialCandidates = append(socialCandidates, res.Witnesses...)
		case domain.ChannelRegistry:
			members = append(members, res.Witnesses...)
		}
	}

	// Phase two fetches the witnesses found in phase one, once per channel.
	// Social candidates already fetched as known witnesses are skipped.
	var candidateTasks []task
	for _, w := range appendUnique(append([]domain.Identifier(nil), known...), socialCandidates...)[len(known):] {
		candidateTasks = append(candidateTasks, d.witnessTask(domain.ChannelSocial, subject, w, log))
	}
	for _, w := range appendUnique(nil, members...) {
		candidateTasks = append(candidateTasks, d.witnessTask(domain.ChannelRegistry, subject, w, log))
	}
	candidateResults := d.runTasks(ctx, candidateTasks)

	d.setState(StateMerging)

	merger := NewMerger(opts.Deduplicate)
	completed, abandoned := 0, 0
	fold := func(res ChannelResult) {
		switch {
		case res.Abandoned:
			abandoned++
			return
		case res.Err != nil:
			warn("%s", res.describeFailure())
		case res.Truncated:
			warn("%s: results from %s may be truncated after %d pages", res.Channel, res.Target, d.maxPages)
		}
		completed++
		for _, rec := range res.Attestations {
			merger.Add(rec, res.Channel)
		}
	}
	// Repository copies fold before indexer copies: known witnesses, then
	// social candidates, then registry members.
	for _, res := range knownResults {
		fold(res)
	}
	for _, res := range candidateResults {
		fold(res)
	}
	for _, res := range sourceResults {
		switch {
		case res.Channel == domain.ChannelIndexer:
			fold(res)
		case res.Abandoned:
			abandoned++
		case res.Err != nil:
			warn("%s", res.describeFailure())
		case res.Truncated:
			warn("%s: witnesses listed by %s may be truncated", res.Channel, res.Target)
		}
	}

	if err := ctx.Err(); err != nil {
		warn("discovery cancelled (%v): returning partial results, %d fetches abandoned", err, abandoned)
	}

	result.Attestations, result.Sources = merger.Result()

	log.Info("discovery finished",
		slog.Int("attestations", len(result.Attestations)),
		slog.Int("fetches", completed),
		slog.Int("warnings", len(result.Warnings)),
		slog.Duration("elapsed", time.Since(started)))

	return result
}

// witnessTargets validates the explicitly known witnesses and drops duplicates.
func (d *Discoverer) witnessTargets(known []domain.Identifier, warn func(string, ...any)) []domain.Identifier {
	var out []domain.Identifier
	for _, w := range known {
		id, err := d.validator.parser.ParseIdentifier(w.String())
		if err != nil {
			warn("%s: skipping known witness %q: %v", domain.ChannelSocial, w, err)
			continue
		}
		out = appendUnique(out, id)
	}
	return out
}

func (d *Discoverer) setState(s DiscoveryState) {
	if d.stateHook != nil {
		d.stateHook(s)
	}
}

func appendUnique(dst []domain.Identifier, ids ...domain.Identifier) []domain.Identifier {
	seen := make(map[domain.Identifier]struct{}, len(dst)+len(ids))
	for _, id := range dst {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		dst = append(dst, id)
	}
	return dst
}
