package cache

import (
	"context"
	"fmt"
	"math/rand"
	"reflect"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Dependencies collects the collaborators a Coordinator needs. L1 and
// Loader are required; everything else is optional and gets a sensible
// default, mirroring the teacher's plain-struct Config pattern rather
// than a fluent builder (spec Non-goals exclude builder ergonomics).
type Dependencies[K comparable, V any] struct {
	L1         L1Store[K, V]
	L2Stores   []L2Store
	Loader     Loader[K, V]
	Serializer Serializer[K, V]
	Metrics    MetricsSink
	Logger     Logger
	Equal      func(a, b V) bool
	Events     EventPublisher
}

// Coordinator is the read-through, two-tier cache fabric: L1 (local,
// never throws) in front of L2 (distributed, best effort) in front of a
// Loader (the system of record). Get and Peek are its external surface;
// everything else is scheduling and bookkeeping.
type Coordinator[K comparable, V any] struct {
	cfg Config

	l1     *l1Adapter[K, V]
	l2     *l2Adapter[K, V]
	source *sourceAdapter[K, V]
	events EventPublisher

	equal func(a, b V) bool
	group singleflight.Group

	metrics *metricsSink
	logger  Logger

	batcher *refreshBatcher[K]
	pool    *workerPool

	closed atomic.Bool
}

// New builds a Coordinator from cfg and deps, applying the defaults in
// spec §6's configuration table and starting the background refresh
// ticker (C5).
func New[K comparable, V any](cfg Config, deps Dependencies[K, V]) (*Coordinator[K, V], error) {
	if cfg.Name == "" {
		return nil, ErrNameRequired
	}
	if cfg.TimeToLive <= 0 {
		return nil, ErrTimeToLiveRequired
	}
	if deps.Loader == nil {
		return nil, ErrLoaderRequired
	}
	if deps.L1 == nil {
		return nil, ErrL1StoreRequired
	}

	cfg = cfg.withDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = NewNopLogger()
	}

	equal := deps.Equal
	if equal == nil {
		equal = func(a, b V) bool { return reflect.DeepEqual(a, b) }
	}

	serializer := deps.Serializer
	if serializer == nil {
		serializer = JSONSerializer[K, V]{}
	}

	metrics := newMetricsSink(cfg.Name, deps.Metrics)

	c := &Coordinator[K, V]{
		cfg:     cfg,
		l1:      newL1Adapter[K, V](cfg.Name, deps.L1, metrics, logger),
		source:  newSourceAdapter[K, V](cfg.Name, deps.Loader, cfg.LoadTimeout, cfg.SourceRPS, metrics, logger),
		events:  deps.Events,
		equal:   equal,
		metrics: metrics,
		logger:  logger,
		pool:    newWorkerPool(8),
	}

	if len(deps.L2Stores) > 0 {
		c.l2 = newL2Adapter[K, V](cfg.Name, cfg.KeyPrefix, deps.L2Stores, cfg.L2Endpoints, serializer, metrics, logger)
	}

	c.batcher = newRefreshBatcher[K](cfg.RefreshTick, cfg.BatchSize, c.backgroundRefresh)
	c.batcher.start()

	return c, nil
}

// Peek returns the locally cached value for key without ever consulting
// L2 or the data source. found is true only when a value-carrying entry
// is cached locally; a cached "absent" entry (spec's
// cache-data-source-misses) reports found == false, the same as no entry
// at all, since Peek answers "is there a value I can use right now"
// (spec's resolved Open Question). A miss or a stale entry still enqueues
// key for the next background refresh tick (spec §4.7.1, §9), so a key
// that's only ever Peeked isn't left to go stale forever.
func (c *Coordinator[K, V]) Peek(key K) (value V, found bool) {
	entry, ok := c.l1.Get(key)
	if !ok || entry.Stale(time.Now()) {
		c.batcher.enqueue(key)
	}
	if !ok || !entry.HasValue {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Get returns the value for key, reading through L1, L2, and the data
// source as needed. found is false both for a cached absent result and
// for a key the source has never seen. Concurrent Get calls for the same
// key are coalesced via singleflight so only one of them reaches L2/the
// source.
func (c *Coordinator[K, V]) Get(ctx context.Context, key K) (value V, found bool, err error) {
	if c.closed.Load() {
		var zero V
		return zero, false, ErrClosed
	}

	start := time.Now()
	defer func() { c.metrics.recordLatency(time.Since(start)) }()

	priorL1, havePriorL1 := c.l1.Get(key)
	if havePriorL1 && !priorL1.Stale(time.Now()) {
		c.batcher.enqueue(key)
		return priorL1.Value, priorL1.HasValue, nil
	}

	sfKey := fmt.Sprint(key)
	out, err, _ := c.group.Do(sfKey, func() (interface{}, error) {
		entry, rerr := c.resolve(ctx, key, priorL1, havePriorL1)
		return entry, rerr
	})
	if err != nil {
		var zero V
		return zero, false, err
	}

	entry := out.(Entry[V])
	c.batcher.enqueue(key)
	return entry.Value, entry.HasValue, nil
}

// resolve implements the refresh decision graph (spec §4.7.3): L2 errors
// fall back to whatever L1 already had; a fresh L2 hit is written down to
// L1 and returned; a stale L2 hit (or a clean L2 miss) sends the key to
// the data source, falling back to the stale copy — L2's on a stale hit,
// L1's on an L2 miss — if the source itself errors. A clean key miss from
// the source (spec §4.4) is never treated as a failure: it resolves
// through handleKeyMiss instead of falling back to stale data.
func (c *Coordinator[K, V]) resolve(ctx context.Context, key K, priorL1 Entry[V], havePriorL1 bool) (Entry[V], error) {
	now := time.Now()

	if c.l2 == nil {
		return c.consultSource(ctx, key, priorL1, havePriorL1), nil
	}

	l2 := c.l2.get(ctx, key)
	switch l2.status {
	case statusError:
		if havePriorL1 {
			return priorL1, nil
		}
		return Entry[V]{}, nil

	case statusHit:
		if !l2.entry.Stale(now) {
			c.writeL1(key, l2.entry, priorL1, havePriorL1)
			return l2.entry, nil
		}
		fresh, missing, err := c.source.loadOne(ctx, key)
		if err != nil {
			c.logger.Warnf("source refresh failed after stale l2 hit, serving stale l2 entry", fields{"cache": c.cfg.Name, "error": err})
			return l2.entry, nil
		}
		if missing {
			return c.handleKeyMiss(ctx, key, priorL1, havePriorL1), nil
		}
		c.writeThrough(ctx, key, fresh, priorL1, havePriorL1)
		return fresh, nil

	default: // statusMiss
		fresh, missing, err := c.source.loadOne(ctx, key)
		if err != nil {
			if havePriorL1 {
				c.logger.Warnf("source refresh failed after l2 miss, serving stale l1 entry", fields{"cache": c.cfg.Name, "error": err})
				return priorL1, nil
			}
			return Entry[V]{}, nil
		}
		if missing {
			return c.handleKeyMiss(ctx, key, priorL1, havePriorL1), nil
		}
		c.writeThrough(ctx, key, fresh, priorL1, havePriorL1)
		return fresh, nil
	}
}

func (c *Coordinator[K, V]) consultSource(ctx context.Context, key K, priorL1 Entry[V], havePriorL1 bool) Entry[V] {
	fresh, missing, err := c.source.loadOne(ctx, key)
	if err != nil {
		if havePriorL1 {
			return priorL1
		}
		return Entry[V]{}
	}
	if missing {
		return c.handleKeyMiss(ctx, key, priorL1, havePriorL1)
	}
	c.writeL1(key, fresh, priorL1, havePriorL1)
	return fresh
}

// handleKeyMiss implements the cache_data_source_misses policy for a clean
// key miss (spec §4.7.3, §8): when enabled, a value-less entry stamped
// with the configured default TTL is written through to L1 and L2, same
// as a flood-of-requests guard against a hot missing key; when disabled,
// the key is actively deleted from both tiers instead of being left to
// serve stale data indefinitely.
func (c *Coordinator[K, V]) handleKeyMiss(ctx context.Context, key K, priorL1 Entry[V], havePriorL1 bool) Entry[V] {
	if c.cfg.CacheDataSourceMisses {
		absent := NewAbsentEntry[V](time.Now(), c.cfg.TimeToLive)
		c.writeThrough(ctx, key, absent, priorL1, havePriorL1)
		return absent
	}

	c.l1.Delete(key)
	if c.l2 != nil {
		c.l2.delete(ctx, key)
	}
	return Entry[V]{}
}

func (c *Coordinator[K, V]) writeThrough(ctx context.Context, key K, fresh Entry[V], priorL1 Entry[V], havePriorL1 bool) {
	c.writeL1(key, fresh, priorL1, havePriorL1)
	if c.l2 != nil {
		c.l2.set(ctx, key, fresh)
	}
}

// writeL1 applies equal-value extension (spec §4.7.6) and TTL jitter
// (spec §4.7.5) before handing the entry to the L1 adapter.
func (c *Coordinator[K, V]) writeL1(key K, fresh Entry[V], priorL1 Entry[V], havePriorL1 bool) {
	entry := fresh.Clone()

	if havePriorL1 && equalValue(priorL1, entry, c.equal) {
		// The value hasn't actually changed; keep the original creation
		// time so staleness is measured from when the value last really
		// changed, while still picking up the newly observed TTL.
		entry.CreatedAt = priorL1.CreatedAt
	}

	entry.TTL -= jitterDuration(entry.TTL, c.cfg.L1JitterFraction)
	c.l1.Set(key, entry)
}

// jitterDuration returns a random duration in [0, fraction) of ttl,
// truncated to whole seconds, to be subtracted from ttl so that entries
// sharing a TTL don't all expire in lockstep across processes (spec
// §4.7.5).
func jitterDuration(ttl time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return 0
	}
	ttlSeconds := ttl.Truncate(time.Second)
	return time.Duration(rand.Float64() * fraction * float64(ttlSeconds)).Truncate(time.Second)
}

// backgroundRefresh is the refreshBatcher's flush callback (C5): it
// re-resolves a chunk of recently accessed keys so that popular keys are
// refreshed ahead of a client ever observing them as stale.
func (c *Coordinator[K, V]) backgroundRefresh(keys []K) {
	c.pool.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.LoadTimeout)
		defer cancel()
		c.refreshKeys(ctx, keys)
	})
}

// Close stops the background refresh ticker and worker pool. Get and
// Peek remain safe to call after Close but Get always returns ErrClosed.
func (c *Coordinator[K, V]) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.batcher.stop()
	c.pool.wait()
	c.pool.close()
	return nil
}

// Metrics returns the latency distribution observed by Get calls.
func (c *Coordinator[K, V]) Metrics() LatencySnapshot {
	return c.metrics.LatencySnapshot()
}
