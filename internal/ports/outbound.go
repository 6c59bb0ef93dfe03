package ports

import (
	"context"

	"github.com/pennyhailey/witness-protocol/internal/domain"
)

// RepositoryReader fetches pages of records from a repository.
//
// Error Contract:
// - Returns ErrRepositoryUnavailable (wrapped) if the host is unreachable or answers non-2xx
// - Returns ErrRepositoryNotFound (wrapped) if the host does not know the repository
// - Returns ErrMalformedResponse (wrapped) if the page cannot be decoded
// - Returns the context error when ctx is cancelled or times out
type RepositoryReader interface {
	// ListRecords returns one page of records of collection from repo.
	// An empty cursor starts from the beginning. The returned page's Cursor
	// is empty when there are no more records.
	ListRecords(ctx context.Context, repo domain.Identifier, collection string, cursor string, limit int) (*RecordPage, error)
}

// RegistryReader fetches the member witnesses of a registry.
//
// Error Contract:
// - Returns the underlying RepositoryReader errors (wrapped)
// - Returns ErrTruncated (wrapped) with the members read so far when the page limit is hit
type RegistryReader interface {
	// ListWitnesses returns the registry's members in first-listed order, without duplicates
	ListWitnesses(ctx context.Context, registry domain.Identifier) ([]domain.Identifier, error)
}

// SocialGraph derives candidate witnesses for a subject from its social graph.
//
// Error Contract:
// - Returns the underlying RepositoryReader errors (wrapped)
// - Returns ErrTruncated (wrapped) with the candidates read so far when the page limit is hit
type SocialGraph interface {
	// CandidateWitnesses returns identifiers the subject follows, in first-seen order
	CandidateWitnesses(ctx context.Context, subject domain.Identifier) ([]domain.Identifier, error)
}

// IndexerClient queries an external attestation indexer.
//
// Error Contract:
// - Returns ErrIndexerUnavailable (wrapped) on transport errors and non-2xx statuses
// - Returns ErrMalformedResponse (wrapped) if the body cannot be decoded
type IndexerClient interface {
	// QueryAttestations fetches one page of attestations from the indexer at baseURL
	QueryAttestations(ctx context.Context, baseURL string, query IndexerQuery) (*IndexerPage, error)
}

// IdentifierParser validates identifier syntax.
// This port abstracts the supported identifier schemes (DID methods, SPIFFE IDs)
// so the validator stays free of SDK-specific parsing.
//
// Error Contract:
// - Returns domain.ErrInvalidIdentifier (wrapped) for empty or unsupported identifiers
type IdentifierParser interface {
	ParseIdentifier(s string) (domain.Identifier, error)
}
