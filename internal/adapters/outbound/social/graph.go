// Package social implements the SocialGraph port: the witnesses a subject
// follows are candidate witnesses for that subject.
package social

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

// Graph derives candidate witnesses from the follow records in a subject's repository.
type Graph struct {
	repos    ports.RepositoryReader
	parser   ports.IdentifierParser
	pageSize int
	maxPages int
	logger   *slog.Logger
}

// Option configures a Graph
type Option func(*Graph)

// WithPaging sets the page size and the maximum number of pages read
func WithPaging(pageSize, maxPages int) Option {
	return func(g *Graph) {
		if pageSize > 0 {
			g.pageSize = pageSize
		}
		if maxPages > 0 {
			g.maxPages = maxPages
		}
	}
}

// WithLogger sets a structured logger
// If logger is nil, uses io.Discard for silent operation
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		} else {
			g.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
	}
}

// NewGraph creates a social graph over repos
func NewGraph(repos ports.RepositoryReader, parser ports.IdentifierParser, opts ...Option) *Graph {
	g := &Graph{
		repos:    repos,
		parser:   parser,
		pageSize: defaultPageSize,
		maxPages: defaultMaxPages,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CandidateWitnesses returns the identifiers subject follows, in first-seen
// order, excluding subject itself. When the page limit is reached first the
// candidates read so far are returned with ErrTruncated.
func (g *Graph) CandidateWitnesses(ctx context.Context, subject domain.Identifier) ([]domain.Identifier, error) {
	var out []domain.Identifier
	seen := map[domain.Identifier]struct{}{subject: {}}

	cursor := ""
	for page := 0; page < g.maxPages; page++ {
		p, err := g.repos.ListRecords(ctx, subject, domain.KindFollow.String(), cursor, g.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list follows of %s: %w", subject, err)
		}
		for _, env := range p.Records {
			id, ok := g.followed(env)
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
		cursor = p.Cursor
		if cursor == "" {
			break
		}
	}

	if cursor != "" {
		g.logger.Warn("follow listing truncated",
			slog.String("subject", subject.String()),
			slog.Int("max_pages", g.maxPages),
			slog.Int("candidates", len(out)))
		return out, fmt.Errorf("%w: follows of %s after %d pages", ports.ErrTruncated, subject, g.maxPages)
	}

	g.logger.Debug("candidate witnesses derived",
		slog.String("subject", subject.String()),
		slog.Int("candidates", len(out)))
	return out, nil
}

func (g *Graph) followed(env ports.RecordEnvelope) (domain.Identifier, bool) {
	raw, err := codec.DecodeValue(env.Value, string(env.Encoding))
	if err != nil {
		g.skip(env, err.Error())
		return "", false
	}
	if kind, _ := raw["$type"].(string); kind != domain.KindFollow.String() {
		g.skip(env, fmt.Sprintf("unexpected $type %q", kind))
		return "", false
	}
	s, _ := raw["subject"].(string)
	id, err := g.parser.ParseIdentifier(s)
	if err != nil {
		g.skip(env, err.Error())
		return "", false
	}
	return id, true
}

func (g *Graph) skip(env ports.RecordEnvelope, reason string) {
	g.logger.Debug("skipped follow record",
		slog.String("ref", env.Ref.String()),
		slog.String("reason", reason))
}

var _ ports.SocialGraph = (*Graph)(nil)
