// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
//
// The Collector registers Prometheus metrics via promauto under a configurable
// namespace and covers the two hot paths of the system: the fingerprint cache
// (hits, misses, removals, size) and the batch engine (items, durations).
// Cache hit and miss counts here are real runtime counters, not estimates
// derived from stored access counts.
package metrics
