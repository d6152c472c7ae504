// Package batch executes collections of work items as concurrent
// groups under an adaptive concurrency limit.
//
// Items are grouped either by a fixed batch size or, when adaptive
// batching is enabled, by accumulating items until the next one would
// exceed the group's byte budget or the size cap. Groups run through a
// resilient strategy, so every group gets circuit breaking, retry, and
// failure tracking; a failed multi-item group falls back to per-item
// execution so a single bad item does not fail its neighbors.
//
// The concurrency limit starts at min(configured max, group count) and
// is retuned after every fifth completion from a moving average of
// recent completion times: fast completions raise the limit toward the
// configured max, slow ones lower it toward one.
//
// Results come back in the caller's original submission order
// regardless of completion order.
package batch
