// Package inmemory contains in-memory implementations of the outbound ports.
//
// Purpose
// -------
// These adapters let the engine run completely in-process. They are used by
// engine tests and by the dev fixtures, and are not suitable for production.
//
// Files and responsibilities
// --------------------------
//   - repository.go
//     Repository: implements `ports.RepositoryReader`. Records are seeded with
//     Put (JSON) or PutCBOR and listed in key order with a key cursor. Fail
//     and Delay simulate unreachable and slow hosts; Calls counts listings.
//     Seal freezes the seeded data.
//
//   - indexer.go
//     Indexer: implements `ports.IndexerClient` over attestations added per
//     base URL, with offset cursors.
package inmemory
