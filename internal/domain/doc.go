// Package domain contains the domain model for witness attestation discovery.
//
// This package is the CORE of the hexagonal architecture. It defines the
// record value types and the pure reducers over them, with ZERO dependencies
// on transports, codecs, or SDKs.
//
// Hexagonal Architecture Boundaries:
//   - Domain NEVER imports from: internal/adapters, internal/ports, internal/app, external SDKs
//   - Domain ONLY imports from: standard library, internal/assert (debug-only invariants)
//   - Domain exposes: value objects, pure reducers, domain errors
//   - Domain does NOT: perform I/O, decode payloads, hash content
//
// Files and types
// -----------------------
//   - identifier.go
//   - Identifier: opaque, stable name of an agent, operator, witness,
//     registry or indexer. Compared by exact string equality. Syntax checks
//     are delegated to the IdentifierParser port.
//
//   - record_ref.go
//   - RecordRef: (repository, collection, key) locator used as provenance.
//
//   - attestation.go, operator.go
//   - AttestationRecord and OperatorRecord: immutable records. Corrections
//     are new records that point back with ContestsRecord or Supersedes.
//
//   - supersession.go
//   - ResolveCurrentOperator: computes the tip of an operator supersession
//     chain. Ambiguity is reported as data, never as an error.
//
//   - summary.go
//   - Summarize: order-independent rollup of an attestation set.
//
// Records never change after construction. The only field set after decode
// is the canonical key, which the application layer stamps once before the
// record leaves the decoder.
package domain
