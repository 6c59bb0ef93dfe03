package inmemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pennyhailey/witness-protocol/internal/codec"
	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// ErrSealed is returned when seeding a repository after Seal.
var ErrSealed = errors.New("repository is sealed")

// Repository is an in-memory implementation of ports.RepositoryReader.
//
// Records are seeded with Put/PutCBOR and listed in record-key order.
// Individual repositories can be made to fail or respond slowly, which is
// how engine tests simulate unreachable and slow hosts.
type Repository struct {
	mu       sync.RWMutex
	repos    map[domain.Identifier]map[string]map[string]ports.RecordEnvelope // repo -> collection -> key -> envelope
	failures map[domain.Identifier]error
	delays   map[domain.Identifier]time.Duration
	calls    map[domain.Identifier]int
	sealed   bool
}

// NewRepository creates an empty, unsealed repository
func NewRepository() *Repository {
	return &Repository{
		repos:    make(map[domain.Identifier]map[string]map[string]ports.RecordEnvelope),
		failures: make(map[domain.Identifier]error),
		delays:   make(map[domain.Identifier]time.Duration),
		calls:    make(map[domain.Identifier]int),
	}
}

// Put stores value JSON-encoded under ref
func (r *Repository) Put(ref domain.RecordRef, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", ref, err)
	}
	return r.PutEnvelope(ports.RecordEnvelope{Ref: ref, Value: data, Encoding: ports.EncodingJSON})
}

// PutCBOR stores value CBOR-encoded under ref
func (r *Repository) PutCBOR(ref domain.RecordRef, value any) error {
	data, err := codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", ref, err)
	}
	return r.PutEnvelope(ports.RecordEnvelope{Ref: ref, Value: data, Encoding: ports.EncodingCBOR})
}

// PutEnvelope stores a raw envelope, replacing any record with the same ref
func (r *Repository) PutEnvelope(env ports.RecordEnvelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}
	if env.Ref.Repo.IsZero() || env.Ref.Collection == "" || env.Ref.Key == "" {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRecordRef, env.Ref.String())
	}

	r.ensureRepo(env.Ref.Repo)
	coll := r.repos[env.Ref.Repo][env.Ref.Collection]
	if coll == nil {
		coll = make(map[string]ports.RecordEnvelope)
		r.repos[env.Ref.Repo][env.Ref.Collection] = coll
	}
	coll[env.Ref.Key] = env
	return nil
}

// AddRepo registers an empty repository so that listing it succeeds
func (r *Repository) AddRepo(repo domain.Identifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureRepo(repo)
}

func (r *Repository) ensureRepo(repo domain.Identifier) {
	if r.repos[repo] == nil {
		r.repos[repo] = make(map[string]map[string]ports.RecordEnvelope)
	}
}

// Fail makes every listing of repo fail with ErrRepositoryUnavailable wrapping cause.
// A nil cause clears the failure.
func (r *Repository) Fail(repo domain.Identifier, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cause == nil {
		delete(r.failures, repo)
		return
	}
	r.failures[repo] = cause
}

// Delay makes every listing of repo wait d, or until the context is done
func (r *Repository) Delay(repo domain.Identifier, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays[repo] = d
}

// Seal prevents further seeding
func (r *Repository) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Calls returns how many times repo was listed
func (r *Repository) Calls(repo domain.Identifier) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls[repo]
}

// ListRecords returns up to limit records of collection after cursor, in key order.
// The cursor is the key of the last record of the previous page.
func (r *Repository) ListRecords(ctx context.Context, repo domain.Identifier, collection string, cursor string, limit int) (*ports.RecordPage, error) {
	r.mu.Lock()
	r.calls[repo]++
	delay := r.delays[repo]
	r.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if cause, ok := r.failures[repo]; ok {
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrRepositoryUnavailable, repo, cause)
	}
	collections, ok := r.repos[repo]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrRepositoryNotFound, repo)
	}

	coll := collections[collection]
	keys := make([]string, 0, len(coll))
	for k := range coll {
		if k > cursor {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	page := &ports.RecordPage{Records: []ports.RecordEnvelope{}}
	if limit <= 0 || limit > len(keys) {
		limit = len(keys)
	}
	for _, k := range keys[:limit] {
		page.Records = append(page.Records, coll[k])
	}
	if limit < len(keys) {
		page.Cursor = keys[limit-1]
	}
	return page, nil
}

var _ ports.RepositoryReader = (*Repository)(nil)
