// Package registry implements the RegistryReader port over a repository:
// a registry is a repository whose network.witness.registry records list
// member witnesses.
package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pennyhailey/witness-protocol/internal/codec"
	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

const (
	defaultPageSize = 100
	defaultMaxPages = 10
)

// Reader lists registry members by reading the registry's repository.
type Reader struct {
	repos    ports.RepositoryReader
	parser   ports.IdentifierParser
	pageSize int
	maxPages int
	logger   *slog.Logger
}

// Option configures a Reader
type Option func(*Reader)

// WithPaging sets the page size and the maximum number of pages read
func WithPaging(pageSize, maxPages int) Option {
	return func(r *Reader) {
		if pageSize > 0 {
			r.pageSize = pageSize
		}
		if maxPages > 0 {
			r.maxPages = maxPages
		}
	}
}

// WithLogger sets a structured logger
// If logger is nil, uses io.Discard for silent operation
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		} else {
			r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
	}
}

// NewReader creates a registry reader over repos
func NewReader(repos ports.RepositoryReader, parser ports.IdentifierParser, opts ...Option) *Reader {
	r := &Reader{
		repos:    repos,
		parser:   parser,
		pageSize: defaultPageSize,
		maxPages: defaultMaxPages,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ListWitnesses returns the members listed by every registry record of
// registry, in first-listed order without duplicates. Malformed records and
// invalid identifiers are skipped. When the page limit is reached first the
// members read so far are returned with ErrTruncated.
func (r *Reader) ListWitnesses(ctx context.Context, registry domain.Identifier) ([]domain.Identifier, error) {
	var members []domain.Identifier
	seen := make(map[domain.Identifier]struct{})

	cursor := ""
	for page := 0; page < r.maxPages; page++ {
		p, err := r.repos.ListRecords(ctx, registry, domain.KindRegistry.String(), cursor, r.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list registry %s: %w", registry, err)
		}
		for _, env := range p.Records {
			for _, id := range r.members(env) {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				members = append(members, id)
			}
		}
		cursor = p.Cursor
		if cursor == "" {
			break
		}
	}

	if cursor != "" {
		r.logger.Warn("registry listing truncated",
			slog.String("registry", registry.String()),
			slog.Int("max_pages", r.maxPages),
			slog.Int("members", len(members)))
		return members, fmt.Errorf("%w: registry %s after %d pages", ports.ErrTruncated, registry, r.maxPages)
	}

	r.logger.Debug("registry members listed",
		slog.String("registry", registry.String()),
		slog.Int("members", len(members)))
	return members, nil
}

func (r *Reader) members(env ports.RecordEnvelope) []domain.Identifier {
	raw, err := codec.DecodeValue(env.Value, string(env.Encoding))
	if err != nil {
		r.skip(env, err.Error())
		return nil
	}
	if kind, _ := raw["$type"].(string); kind != domain.KindRegistry.String() {
		r.skip(env, fmt.Sprintf("unexpected $type %q", kind))
		return nil
	}
	items, ok := raw["witnesses"].([]any)
	if !ok {
		r.skip(env, `missing required field "witnesses"`)
		return nil
	}

	out := make([]domain.Identifier, 0, len(items))
	for _, item := range items {
		s, _ := item.(string)
		id, err := r.parser.ParseIdentifier(s)
		if err != nil {
			r.skip(env, err.Error())
			continue
		}
		out = append(out, id)
	}
	return out
}

func (r *Reader) skip(env ports.RecordEnvelope, reason string) {
	r.logger.Debug("skipped registry entry",
		slog.String("ref", env.Ref.String()),
		slog.String("reason", reason))
}

var _ ports.RegistryReader = (*Reader)(nil)
