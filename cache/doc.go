// Package cache implements the durable fingerprint store used to memoize
// prompt processing results.
//
// Every result is addressed by a deterministic SHA-256 fingerprint of its
// inputs (content, target, optimization variant). Metadata lives in a SQLite
// table; the result blob itself is one file per key next to the database.
// A metadata row without a retrievable blob is treated as corruption and
// self-healed by deletion rather than surfaced as an error.
//
// Entries move through an explicit state machine: Live to Expired (TTL),
// Live to Evicted (capacity pressure), or Live to Deleted (explicit removal or
// corruption self-heal). Expired entries are swept eagerly once when the
// store opens and lazily afterwards: a lookup that finds an expired entry
// reports a miss and queues the entry for physical removal at the next store
// operation.
//
// All mutating and read-modify-write sequences run under one coarse per-store
// lock. The store is local to a single process, so correctness is preferred
// over lock granularity.
package cache
