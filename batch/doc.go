// Package batch runs ordered collections of prompt work items through a
// bounded worker pool. Each item flows through one pipeline: fingerprint
// lookup in the cache, collaborator invocation on a miss, cache store of the
// computed payload. Per-item failures are folded into the item's result and
// never abort the batch; every submitted item appears in the final report
// exactly once, in completion order. Finished reports are persisted as
// immutable JSON documents addressed by batch id.
package batch
