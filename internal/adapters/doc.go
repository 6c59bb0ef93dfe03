// Package adapters contains infrastructure implementations of port interfaces.
//
// This package is the ADAPTER LAYER in hexagonal architecture - it implements
// the port interfaces defined in internal/ports using concrete technologies
// (XRPC over HTTP, a filesystem mirror, go-spiffe, chi). Adapters translate
// between the discovery engine and the hosts that hold witness records.
//
// Hexagonal Architecture Boundaries:
//   - Adapters implement: internal/ports interfaces
//   - Adapters import from: internal/domain, internal/ports, internal/codec, external SDKs
//   - Adapters are instantiated: by outbound/compose and cmd/witness (composition roots)
//   - Domain/App layers: NEVER import concrete adapters directly
//
// Inbound Adapters (Driving Adapters)
//
// Example: httpapi (inbound/httpapi/)
//   - Drives: ports.DiscoveryService
//   - Technology: chi router over net/http, optional SPIFFE mTLS
//   - Purpose: exposes discovery, summaries and operator resolution as JSON
//
// Outbound Adapters (Driven Adapters)
//
// Example: xrpc (outbound/xrpc/)
//   - Implements: ports.RepositoryReader
//   - Technology: com.atproto.repo.listRecords over HTTP, paced by x/time/rate
//
// Example: mirror (outbound/mirror/)
//   - Implements: ports.RepositoryReader
//   - Technology: JSON, JSONC and CBOR files under a local directory
//
// Example: registry, social (outbound/registry/, outbound/social/)
//   - Implement: ports.RegistryReader, ports.SocialGraph
//   - Built on top of any RepositoryReader
//
// Example: indexer (outbound/indexer/)
//   - Implements: ports.IndexerClient
//
// Example: httpclient (outbound/httpclient/)
//   - Plain or SPIFFE mTLS http.Client with zstd/gzip response decoding,
//     shared by xrpc and indexer
//
// Example: identity (outbound/identity/)
//   - Implements: ports.IdentifierParser for DIDs and SPIFFE IDs
//
// Example: inmemory (outbound/inmemory/)
//   - Implements: ports.RepositoryReader, ports.IndexerClient over fixtures
//
// Composition: compose (outbound/compose/) builds all of the above from config.
package adapters
