// Package xrpc implements the RepositoryReader port against an ATProto-style
// repository host through com.atproto.repo.listRecords.
package xrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/httpclient"
	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// ListRecordsMethod is the XRPC method used to page through a collection.
const ListRecordsMethod = "com.atproto.repo.listRecords"

// Reader reads records from one repository host (PDS).
//
// Requests are paced by a token bucket so that a discovery fanning out to
// many witnesses on the same host stays polite.
type Reader struct {
	serviceURL string
	client     *httpclient.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Reader
type Option func(*Reader)

// WithRateLimit paces requests to rps per second with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(r *Reader) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
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

// NewReader creates a reader for the host at serviceURL
func NewReader(serviceURL string, client *httpclient.Client, opts ...Option) (*Reader, error) {
	u, err := url.Parse(serviceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid repository service URL %q", serviceURL)
	}
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}

	r := &Reader{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client:     client,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type listRecordsResponse struct {
	Records []struct {
		URI   string          `json:"uri"`
		CID   string          `json:"cid"`
		Value json.RawMessage `json:"value"`
	} `json:"records"`
	Cursor string `json:"cursor,omitempty"`
}

type xrpcError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ListRecords fetches one page of collection from repo.
func (r *Reader) ListRecords(ctx context.Context, repo domain.Identifier, collection string, cursor string, limit int) (*ports.RecordPage, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	q := url.Values{}
	q.Set("repo", repo.String())
	q.Set("collection", collection)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := r.serviceURL + "/xrpc/" + ListRecordsMethod + "?" + q.Encode()

	resp, err := r.client.Get(ctx, endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrRepositoryUnavailable, repo, err)
	}

	if !resp.OK() {
		var xe xrpcError
		_ = resp.DecodeJSON(&xe)
		if xe.Error == "RepoNotFound" || resp.StatusCode == 404 {
			return nil, fmt.Errorf("%w: %s on %s", ports.ErrRepositoryNotFound, repo, r.serviceURL)
		}
		detail := strings.TrimSpace(xe.Error + " " + xe.Message)
		if detail == "" {
			detail = "no error body"
		}
		return nil, fmt.Errorf("%w: %s: status %d: %s", ports.ErrRepositoryUnavailable, repo, resp.StatusCode, detail)
	}

	var body listRecordsResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrMalformedResponse, repo, err)
	}

	page := &ports.RecordPage{
		Records: make([]ports.RecordEnvelope, 0, len(body.Records)),
		Cursor:  body.Cursor,
	}
	for _, rec := range body.Records {
		ref, err := domain.ParseRecordRef(rec.URI)
		if err != nil || ref.Repo != repo {
			r.logger.Debug("skipped record with unexpected uri",
				slog.String("repo", repo.String()),
				slog.String("uri", rec.URI))
			continue
		}
		page.Records = append(page.Records, ports.RecordEnvelope{
			Ref:      ref,
			CID:      rec.CID,
			Value:    rec.Value,
			Encoding: ports.EncodingJSON,
		})
	}
	// An empty page ends pagination even if the host sent a cursor
	if len(page.Records) == 0 && len(body.Records) == 0 {
		page.Cursor = ""
	}
	return page, nil
}

var _ ports.RepositoryReader = (*Reader)(nil)
