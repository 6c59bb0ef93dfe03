package inmemory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// Indexer is an in-memory implementation of ports.IndexerClient keyed by base URL.
type Indexer struct {
	mu       sync.RWMutex
	entries  map[string][]ports.IndexedAttestation
	failures map[string]error
}

// NewIndexer creates an empty indexer
func NewIndexer() *Indexer {
	return &Indexer{
		entries:  make(map[string][]ports.IndexedAttestation),
		failures: make(map[string]error),
	}
}

// Add appends attestations to the index served at baseURL
func (i *Indexer) Add(baseURL string, attestations ...ports.IndexedAttestation) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[baseURL] = append(i.entries[baseURL], attestations...)
}

// Fail makes every query to baseURL fail with ErrIndexerUnavailable wrapping cause
func (i *Indexer) Fail(baseURL string, cause error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.failures[baseURL] = cause
}

// QueryAttestations pages through the attestations stored for baseURL that
// match the query's subject and sentiment. The cursor is an offset.
func (i *Indexer) QueryAttestations(ctx context.Context, baseURL string, query ports.IndexerQuery) (*ports.IndexerPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if cause, ok := i.failures[baseURL]; ok {
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrIndexerUnavailable, baseURL, cause)
	}
	all, ok := i.entries[baseURL]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no such indexer", ports.ErrIndexerUnavailable, baseURL)
	}

	var matched []ports.IndexedAttestation
	for _, a := range all {
		if query.Subject != "" && a.SubjectID != query.Subject.String() {
			continue
		}
		if query.Sentiment != "" && a.Sentiment != string(query.Sentiment) {
			continue
		}
		matched = append(matched, a)
	}

	offset := 0
	if query.Cursor != "" {
		n, err := strconv.Atoi(query.Cursor)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s: bad cursor %q", ports.ErrIndexerUnavailable, baseURL, query.Cursor)
		}
		offset = min(n, len(matched))
	}
	end := len(matched)
	if query.Limit > 0 && offset+query.Limit < end {
		end = offset + query.Limit
	}

	page := &ports.IndexerPage{Attestations: append([]ports.IndexedAttestation{}, matched[offset:end]...)}
	if end < len(matched) {
		page.Cursor = strconv.Itoa(end)
	}
	return page, nil
}

var _ ports.IndexerClient = (*Indexer)(nil)
