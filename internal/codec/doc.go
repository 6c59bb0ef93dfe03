// Package codec provides the engine's serialization helpers.
//
// Records arrive from repositories either as JSON (XRPC responses, indexer
// results, mirror files) or as CBOR (repository exports and mirror files).
// DecodeValue turns either into a map[string]any for validation.
//
// Canonical keys are derived from a record's content tuple using CBOR Core
// Deterministic Encoding (RFC 8949 §4.2) followed by a BLAKE3 digest. Same
// logical content always produces the same key, whatever host or channel
// the record was read from.
//
//	key, err := codec.Digest([3]string{subject, claim, createdAt})
package codec
