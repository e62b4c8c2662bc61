package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// LoadResult is one key's outcome from a Loader batch. Err, when non-nil,
// is a per-key failure (e.g. the upstream system rejected this one
// record) and is distinguished from the batch-level error Load itself can
// return: a per-key Err degrades only that key to statusError, while a
// batch-level error fails every key in the batch. Found == false (or the
// key simply missing from the returned slice) is a clean key miss, not an
// error — the source addressed the key and has nothing for it.
type LoadResult[K comparable, V any] struct {
	Key   K
	Value V
	Found bool
	TTL   time.Duration
	Err   error
}

// Loader is the external data-source contract (spec §1: out of scope to
// implement — a SQL query, an RPC fan-out, anything). It is always called
// with the full set of keys a refresh round needs, so that a single
// caller-supplied batch function can serve both Get's one-key refresh and
// bulk preload/refresh (spec §4.7.4).
type Loader[K comparable, V any] interface {
	Load(ctx context.Context, keys []K) ([]LoadResult[K, V], error)
}

// sourceOutcome tags a single key's result from the source with the
// hit/miss/error distinction the refresh decision graph (spec §4.7.3)
// needs: a miss is a first-class, error-free outcome (spec §4.4 — "a key
// requested but never produced is a key miss"), handled differently than
// a per-key or batch-level error.
type sourceOutcome[V any] struct {
	entry  Entry[V]
	status status // statusHit, statusMiss, or statusError
}

// sourceAdapter wraps a Loader with the timeout and optional load-shedding
// throttle described in spec §6's configuration table, normalizing every
// result into a hit/miss/error outcome per key. Whether a miss is cached
// as a value-less entry or deletes the key outright is a coordinator-level
// policy decision (Config.CacheDataSourceMisses); the adapter only reports
// what the source said.
type sourceAdapter[K comparable, V any] struct {
	loader      Loader[K, V]
	name        string
	loadTimeout time.Duration
	limiter     *rate.Limiter
	metrics     *metricsSink
	logger      Logger
}

func newSourceAdapter[K comparable, V any](
	name string,
	loader Loader[K, V],
	loadTimeout time.Duration,
	sourceRPS float64,
	metrics *metricsSink,
	logger Logger,
) *sourceAdapter[K, V] {
	a := &sourceAdapter[K, V]{
		loader:      loader,
		name:        name,
		loadTimeout: loadTimeout,
		metrics:     metrics,
		logger:      logger,
	}
	if sourceRPS > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(sourceRPS), int(sourceRPS))
	}
	return a
}

// loadOne fetches a single key through the batch Loader, for use on the
// synchronous Get refresh path. missing is true for a clean key miss
// (spec §4.4); err is non-nil only for a batch-level or per-key failure,
// never for a miss.
func (a *sourceAdapter[K, V]) loadOne(ctx context.Context, key K) (entry Entry[V], missing bool, err error) {
	out, err := a.loadMany(ctx, []K{key})
	if err != nil {
		return Entry[V]{}, false, err
	}
	switch out[key].status {
	case statusHit:
		return out[key].entry, false, nil
	case statusError:
		return Entry[V]{}, false, fmt.Errorf("cache: source %q reported an error for the requested key", a.name)
	default: // statusMiss
		return Entry[V]{}, true, nil
	}
}

// loadMany fetches a batch of keys. A batch-level error means the whole
// batch failed (e.g. the upstream connection is down) and callers must
// fall back to whatever stale data they already hold for every key.
// Otherwise every requested key gets exactly one outcome in the returned
// map, tagged hit, miss, or error; a key the loader never addresses at all
// defaults to miss, per spec §4.4.
func (a *sourceAdapter[K, V]) loadMany(ctx context.Context, keys []K) (map[K]sourceOutcome[V], error) {
	if len(keys) == 0 {
		return map[K]sourceOutcome[V]{}, nil
	}

	if a.limiter != nil {
		if err := a.limiter.WaitN(ctx, len(keys)); err != nil {
			a.metrics.recordSourceLoad(statusError)
			return nil, fmt.Errorf("cache: source %q rate limiter: %w", a.name, err)
		}
	}

	loadCtx, cancel := context.WithTimeout(ctx, a.loadTimeout)
	defer cancel()

	requested := make(map[K]bool, len(keys))
	for _, k := range keys {
		requested[k] = true
	}

	now := time.Now()
	results, err := a.loader.Load(loadCtx, keys)
	if err != nil {
		a.metrics.recordSourceLoad(statusError)
		a.logger.Errorf("source load failed", fields{"cache": a.name, "keys": len(keys), "error": err})
		return nil, fmt.Errorf("cache: source %q load: %w", a.name, err)
	}
	a.metrics.recordSourceLoad(statusOK)

	// Every requested key defaults to a miss; a key the loader never
	// returns at all is exactly as much a miss as an explicit
	// Found: false (spec §4.4).
	out := make(map[K]sourceOutcome[V], len(keys))
	for _, k := range keys {
		out[k] = sourceOutcome[V]{status: statusMiss}
	}

	for _, r := range results {
		if !requested[r.Key] {
			a.logger.Warnf("source returned an unrequested key, ignoring", fields{"cache": a.name})
			continue
		}
		if r.Err != nil {
			a.metrics.recordSourceKey(statusError)
			a.logger.Warnf("source reported a per-key error", fields{"cache": a.name, "error": r.Err})
			out[r.Key] = sourceOutcome[V]{status: statusError}
			continue
		}
		if r.TTL < 0 {
			a.metrics.recordSourceKey(statusError)
			a.logger.Warnf("source returned a negative ttl, ignoring", fields{"cache": a.name})
			out[r.Key] = sourceOutcome[V]{status: statusError}
			continue
		}
		if !r.Found {
			a.metrics.recordSourceKey(statusMiss)
			continue
		}

		a.metrics.recordSourceKey(statusHit)
		out[r.Key] = sourceOutcome[V]{status: statusHit, entry: NewValueEntry(r.Value, now, r.TTL)}
	}

	return out, nil
}
