// Package cache implements a read-only, two-level caching fabric that sits
// between application code and a slow source of truth. A Coordinator serves
// values from an in-process L1 store, falls back to a distributed L2 store,
// and finally the data source, while shielding the source from load spikes
// and transient L2 failures.
//
// Design Choices:
//   - L1, L2, and the data source are all external collaborators supplied by
//     the caller through small interfaces (L1Store, L2Store, Loader,
//     Serializer); this package owns only the coordination between them.
//   - Request coalescing for Get uses golang.org/x/sync/singleflight so that
//     concurrent misses for the same key produce a single source read.
//   - Peek never blocks and never touches L2 or the source; it only answers
//     from whatever L1 already holds.
//   - Background refresh is batched: every Get enqueues its key for the next
//     periodic flush, so popular keys tend to be refreshed before a caller
//     ever observes them as stale.
//
// Performance Characteristics:
//   - Peek: O(1), allocation-free on the L1 hit path.
//   - Get: O(1) on the L1 hit path; O(1) + L2 round trip + optional source
//     round trip on miss, coalesced across concurrent callers.
//   - Bulk refresh: O(n) fanned out across a bounded worker pool, chunked to
//     protect the source from very large key sets.
package cache
