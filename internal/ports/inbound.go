package ports

import (
	"context"

	"github.com/pennyhailey/witness-protocol/internal/domain"
)

// DiscoveryService represents the engine's use cases as driven by inbound
// adapters (HTTP API, CLI).
//
// Both methods are total: unreachable hosts and malformed records are
// reported through Warnings, never as an error.
type DiscoveryService interface {
	// Discover finds, validates and deduplicates attestations about subject
	Discover(ctx context.Context, subject domain.Identifier, opts DiscoverOptions) DiscoveryResult

	// DiscoverOperator reads the operator records in the subject's own
	// repository and resolves the current one
	DiscoverOperator(ctx context.Context, subject domain.Identifier) OperatorResult
}
