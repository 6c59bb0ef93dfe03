// Package app contains the discovery engine's application layer.
//
// Responsibilities
//   - Validate raw record values (Validator) and decode repository envelopes
//     and indexer results into domain records with a stamped canonical key.
//   - Fold observations from several channels into a unique record set with
//     first-seen channel counts (Merger).
//   - Orchestrate discovery (Discoverer): resolve fetch targets from the
//     social graph and registries, fan out one bounded task per remote
//     fetch, and merge the results once every task has finished.
//
// Files
// - validator.go, fields.go
//   - Validate(kind, raw): structural errors reject, missing recommended
//     fields warn and lower the signal weight.
//
// - decode.go
//   - Envelope and indexer decoding on top of the validator.
//
// - merger.go
//   - Canonical-key deduplication with provenance (SeenVia).
//
// - discoverer.go, tasks.go
//   - Discover(ctx, subject, opts): the Idle, Fetching, Merging, Done state
//     machine. Every failure is a warning; the call never returns an error.
//
// - operator.go
//   - DiscoverOperator(ctx, subject): fetch and resolve operator records.
//
// Architectural notes
//   - The package depends only on ports and domain. Adapters are injected
//     through NewDiscoverer and its options.
//   - Configuration is explicit per Discoverer; there is no package state.
package app
