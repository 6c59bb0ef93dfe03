// Package ports defines the inbound and outbound ports (interfaces and types)
// used to decouple the discovery engine from the hosts it reads records from.
//
// Purpose
// -------
// Ports are the boundary between the domain/application and the
// infrastructure (adapters). The engine only ever sees these interfaces;
// adapters implement them over XRPC, a filesystem mirror, an indexer's
// HTTP API, or in-memory fixtures.
//
// Files and responsibilities
// --------------------------
//   - outbound.go
//   - Ports the engine calls out through: `RepositoryReader`,
//     `RegistryReader`, `SocialGraph`, `IndexerClient`, `IdentifierParser`.
//   - Each interface includes an "Error Contract" in comments describing
//     sentinel errors returned by implementations.
//   - inbound.go
//   - `DiscoveryService`, the use case driven by the HTTP API and CLI.
//   - types.go
//   - Transport objects crossing the boundary: record envelopes and pages,
//     indexer queries, discovery options and results.
//
// notes
// ------------
//   - Every failure of an outbound port is a soft failure for that one
//     fetch. The engine turns it into a warning; it never aborts siblings.
//   - Keep domain and application logic free of adapter concerns. Payloads
//     cross this boundary still encoded; decoding happens in the app layer.
package ports
