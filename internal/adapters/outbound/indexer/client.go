// Package indexer implements the IndexerClient port over an indexer's HTTP API.
//
// An indexer exposes GET {base}/attestations?subject=&limit=&cursor=&sentiment=
// and answers with {"attestations": [...], "cursor": "..."}.
package indexer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/httpclient"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// AttestationsPath is the query endpoint relative to an indexer's base URL.
const AttestationsPath = "/attestations"

// Client queries indexers over HTTP. One Client serves any number of base URLs.
type Client struct {
	http *httpclient.Client
}

// New creates an indexer client on top of c
func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

// QueryAttestations fetches one page of attestations from the indexer at baseURL.
func (c *Client) QueryAttestations(ctx context.Context, baseURL string, query ports.IndexerQuery) (*ports.IndexerPage, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL %q", ports.ErrIndexerUnavailable, baseURL)
	}

	q := url.Values{}
	q.Set("subject", query.Subject.String())
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Cursor != "" {
		q.Set("cursor", query.Cursor)
	}
	if query.Sentiment != "" {
		q.Set("sentiment", string(query.Sentiment))
	}
	base.Path += AttestationsPath
	base.RawQuery = q.Encode()

	resp, err := c.http.Get(ctx, base.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrIndexerUnavailable, baseURL, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %s: status %d", ports.ErrIndexerUnavailable, baseURL, resp.StatusCode)
	}

	var page ports.IndexerPage
	if err := resp.DecodeJSON(&page); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrMalformedResponse, baseURL, err)
	}
	if page.Attestations == nil {
		page.Attestations = []ports.IndexedAttestation{}
	}
	if len(page.Attestations) == 0 {
		page.Cursor = ""
	}
	return &page, nil
}

var _ ports.IndexerClient = (*Client)(nil)
