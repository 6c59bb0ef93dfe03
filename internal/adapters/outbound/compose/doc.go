// Package compose builds the outbound adapters the discovery engine needs
// from a validated configuration.
//
// Build chooses the repository reader (XRPC host or local mirror), the HTTP
// client (plain HTTPS or SPIFFE mTLS through the Workload API) and wires the
// registry, social graph, indexer and identifier adapters on top of it.
// InMemory wires the same engine-facing ports over in-memory fixtures for
// tests and local development.
package compose
