package cache

import (
	"context"
	"time"
)

const bulkLookupConcurrency = 32

// keyLookup is the per-key state accumulated while fanning a bulk
// refresh chunk out across L2, before the single batched source.load
// call spec §4.7.4 requires.
type keyLookup[K comparable, V any] struct {
	key         K
	prior       Entry[V]
	havePrior   bool
	fresh       Entry[V]
	needsSource bool
}

// refreshKeys is the entry point for both the background refresh batcher
// (C5) and the public BulkRefresh API: it chunks keys to cfg.BatchSize and
// refreshes the chunks one after another, each with its own L2 lookups and
// source load, so a failed chunk does not stop the ones after it.
func (c *Coordinator[K, V]) refreshKeys(ctx context.Context, keys []K) {
	for start := 0; start < len(keys); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(keys) {
			end = len(keys)
		}
		c.refreshChunk(ctx, keys[start:end])
	}
}

// refreshChunk partitions a chunk into entries L2 already had fresh
// (written straight to L1) and entries that need the data source,
// issuing exactly one Loader.Load call for the whole chunk's worth of
// source-needing keys (spec: "one source.load call per batch"). L1
// writes happen synchronously so a subsequent Get sees them immediately;
// L2 writes are detached onto the worker pool since nothing downstream
// waits on them.
func (c *Coordinator[K, V]) refreshChunk(ctx context.Context, keys []K) {
	if len(keys) == 0 {
		return
	}

	lookups := make([]keyLookup[K, V], len(keys))
	now := time.Now()

	boundedParallel(len(keys), bulkLookupConcurrency, func(i int) {
		key := keys[i]
		prior, havePrior := c.l1.Get(key)
		lk := keyLookup[K, V]{key: key, prior: prior, havePrior: havePrior}

		if c.l2 == nil {
			lk.needsSource = true
			lookups[i] = lk
			return
		}

		res := c.l2.get(ctx, key)
		if res.status == statusHit && !res.entry.Stale(now) {
			lk.fresh = res.entry
		} else {
			lk.needsSource = true
		}
		lookups[i] = lk
	})

	var needSource []K
	for _, lk := range lookups {
		if lk.needsSource {
			needSource = append(needSource, lk.key)
			continue
		}
		c.writeL1(lk.key, lk.fresh, lk.prior, lk.havePrior)
	}

	if len(needSource) == 0 {
		return
	}

	loaded, err := c.source.loadMany(ctx, needSource)
	if err != nil {
		c.logger.Warnf("bulk refresh source load failed, keeping existing entries", fields{"cache": c.cfg.Name, "keys": len(needSource), "error": err})
		return
	}

	for _, lk := range lookups {
		if !lk.needsSource {
			continue
		}
		outcome := loaded[lk.key]
		switch outcome.status {
		case statusHit:
			c.writeL1(lk.key, outcome.entry, lk.prior, lk.havePrior)
			if c.l2 != nil {
				key, entry := lk.key, outcome.entry
				c.pool.submit(func() { c.l2.set(ctx, key, entry) })
			}
		case statusMiss:
			c.handleKeyMiss(ctx, lk.key, lk.prior, lk.havePrior)
		default: // statusError: leave whatever L1/L2 already had in place
		}
	}

	if c.events != nil {
		c.events.PublishRefreshCompleted(ctx, RefreshCompletedEvent{CacheName: c.cfg.Name, KeyCount: len(keys)})
	}
}

// BulkPreload loads every key directly from the data source, bypassing
// whatever L1/L2 already hold, and writes the result through both tiers.
// Intended for cold-start warming (spec §4.7.4), where serving a stale
// cached copy defeats the purpose of preloading.
func (c *Coordinator[K, V]) BulkPreload(ctx context.Context, keys []K) error {
	if c.closed.Load() {
		return ErrClosed
	}
	for start := 0; start < len(keys); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]
		loaded, err := c.source.loadMany(ctx, chunk)
		if err != nil {
			return err
		}
		for _, key := range chunk {
			prior, havePrior := c.l1.Get(key)
			outcome := loaded[key]
			switch outcome.status {
			case statusHit:
				c.writeL1(key, outcome.entry, prior, havePrior)
				if c.l2 != nil {
					c.l2.set(ctx, key, outcome.entry)
				}
			case statusMiss:
				c.handleKeyMiss(ctx, key, prior, havePrior)
			default: // statusError: skip, leave existing entries alone
			}
		}
	}
	return nil
}

// BulkRefresh re-resolves keys through the same fresh/stale/miss logic as
// the background refresh batcher, on demand.
func (c *Coordinator[K, V]) BulkRefresh(ctx context.Context, keys []K) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.refreshKeys(ctx, keys)
	return nil
}
