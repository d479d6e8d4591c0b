// Package coordinator mediates task point reads between the Redis cache and
// the PostgreSQL store, and invalidates cache entries after writes.
//
// Get probes the cache, falls back to the store on any miss or cache
// failure, and populates the cache with a TTL. Invalidate deletes the entry
// unconditionally. Cache failures never fail a read.
//
// Known staleness window: a Get whose store read happens before an update
// commits, but whose populate lands after that update's Invalidate, leaves
// the pre-update task in the cache. Readers see it until the entry expires,
// so staleness is bounded by the TTL. Closing the window needs per-key
// versioned entries, which this package does not implement.
//
// Concurrent misses for the same key are not coalesced. A shared in-flight
// read could hand a pre-update row to a caller that started after the
// update was invalidated.
package coordinator
