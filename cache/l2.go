package cache

import (
	"context"
	"time"
)

// L2Store is the external, distributed cache tier: a byte-oriented
// key/value store with TTL (Redis, Memcached, etc. all satisfy this
// shape). Keys passed in are already framed by distributedKey; values are
// already framed by encodeRecord. Implementations are expected to behave
// like a cache — evicting after ttl is best effort, not a guarantee this
// package relies on (spec §1 Non-goals: no eviction policy is specified
// here).
type L2Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// l2Result tags the outcome of an L2 round trip the way the coordinator's
// refresh decision graph (spec §4.7.3) needs to branch on: Hit/Miss/Error
// are distinguishable, because an Error must fall back differently than a
// clean Miss.
type l2Result[V any] struct {
	entry  Entry[V]
	status status // statusHit, statusMiss, or statusError
}

// l2Adapter frames keys and records for one or more L2Store endpoints
// (sharded by hashRing when more than one is configured) and degrades
// every failure — network error, decode error, serializer error — to a
// statusError result rather than propagating it, matching the "L2 is
// optional, the source of truth is upstream of it" framing in spec §1.
type l2Adapter[K comparable, V any] struct {
	name       string
	prefix     string
	stores     []L2Store
	endpoints  []string
	ring       *hashRing
	serializer Serializer[K, V]
	metrics    *metricsSink
	logger     Logger
}

func newL2Adapter[K comparable, V any](
	name, prefix string,
	stores []L2Store,
	endpoints []string,
	serializer Serializer[K, V],
	metrics *metricsSink,
	logger Logger,
) *l2Adapter[K, V] {
	a := &l2Adapter[K, V]{
		name:       name,
		prefix:     prefix,
		stores:     stores,
		endpoints:  endpoints,
		serializer: serializer,
		metrics:    metrics,
		logger:     logger,
	}
	if len(stores) > 1 {
		a.ring = newHashRing(endpoints)
	}
	return a
}

func (a *l2Adapter[K, V]) storeFor(distKey string) L2Store {
	if len(a.stores) == 1 || a.ring == nil {
		return a.stores[0]
	}
	nodeName, ok := a.ring.node(distKey)
	if !ok {
		return a.stores[0]
	}
	for i, ep := range a.endpoints {
		if ep == nodeName {
			return a.stores[i]
		}
	}
	return a.stores[0]
}

func (a *l2Adapter[K, V]) key(key K) string {
	return distributedKey(a.prefix, a.name, a.serializer.Version(), a.serializer.StringifyKey(key))
}

func (a *l2Adapter[K, V]) get(ctx context.Context, key K) l2Result[V] {
	if len(a.stores) == 0 {
		return l2Result[V]{status: statusMiss}
	}

	distKey := a.key(key)
	store := a.storeFor(distKey)

	raw, found, err := store.Get(ctx, distKey)
	if err != nil {
		a.logger.Warnf("l2 get failed", fields{"cache": a.name, "key": distKey, "error": err})
		a.metrics.recordRemote(operationGet, statusError)
		return l2Result[V]{status: statusError}
	}
	if !found {
		a.metrics.recordRemote(operationGet, statusMiss)
		return l2Result[V]{status: statusMiss}
	}

	decoded, err := decodeRecord(raw)
	if err != nil {
		// Logged once per failed read; the bad record is left in place
		// rather than deleted.
		a.logger.Errorf("l2 record decode failed, treating as error", fields{"cache": a.name, "key": distKey, "error": err})
		a.metrics.recordRemote(operationGet, statusError)
		return l2Result[V]{status: statusError}
	}

	if !decoded.hasValue {
		entry := NewAbsentEntry[V](decoded.createdAt, decoded.evictsAt.Sub(decoded.createdAt))
		a.metrics.recordRemote(operationGet, statusHit)
		return l2Result[V]{entry: entry, status: statusHit}
	}

	value, err := deserializeValueBytes(a.serializer, decoded.valueBytes)
	if err != nil {
		a.logger.Errorf("l2 value deserialize failed, treating as error", fields{"cache": a.name, "key": distKey, "error": err})
		a.metrics.recordRemote(operationGet, statusError)
		return l2Result[V]{status: statusError}
	}

	entry := NewValueEntry(value, decoded.createdAt, decoded.evictsAt.Sub(decoded.createdAt))
	a.metrics.recordRemote(operationGet, statusHit)
	return l2Result[V]{entry: entry, status: statusHit}
}

// set writes entry through to L2. Errors are logged and swallowed: a
// failed L2 write never fails the caller's Get/refresh, since L2 is a
// best-effort accelerator in front of the data source, not a system of
// record (spec §4.7: L2 write failures do not block returning a result).
func (a *l2Adapter[K, V]) set(ctx context.Context, key K, entry Entry[V]) {
	if len(a.stores) == 0 {
		return
	}

	var valueBytes []byte
	if entry.HasValue {
		b, err := serializeValueBytes(a.serializer, entry.Value)
		if err != nil {
			a.logger.Errorf("l2 value serialize failed, skipping write", fields{"cache": a.name, "error": err})
			a.metrics.recordRemote(operationSet, statusError)
			return
		}
		valueBytes = b
	}

	distKey := a.key(key)
	record := encodeRecord(entry.HasValue, entry.CreatedAt, entry.ExpiresAt(), valueBytes)
	ttl := time.Until(entry.ExpiresAt())
	if ttl <= 0 {
		return
	}

	store := a.storeFor(distKey)
	if err := store.Set(ctx, distKey, record, ttl); err != nil {
		a.logger.Warnf("l2 set failed", fields{"cache": a.name, "key": distKey, "error": err})
		a.metrics.recordRemote(operationSet, statusError)
		return
	}
	a.metrics.recordRemote(operationSet, statusOK)
}

func (a *l2Adapter[K, V]) delete(ctx context.Context, key K) {
	if len(a.stores) == 0 {
		return
	}
	distKey := a.key(key)
	store := a.storeFor(distKey)
	if err := store.Delete(ctx, distKey); err != nil {
		a.logger.Warnf("l2 delete failed", fields{"cache": a.name, "key": distKey, "error": err})
		a.metrics.recordRemote(operationDel, statusError)
		return
	}
	a.metrics.recordRemote(operationDel, statusOK)
}
