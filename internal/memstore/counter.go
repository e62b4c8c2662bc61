package memstore

import (
	"hash/fnv"
	"sync/atomic"
)

// numCounterShards spreads Count() bookkeeping across multiple cache lines
// so that concurrent Set/TryDelete calls for different keys don't serialize
// on one shared atomic, the way monitoring/metrics.go's counters do for
// request tallies.
const numCounterShards = 16

// paddedCounter pads atomic.Int64 out to a full cache line so neighboring
// shards in the array below never false-share.
type paddedCounter struct {
	v   atomic.Int64
	_   [56]byte // 64-byte cache line minus the 8-byte atomic.Int64
}

type shardedCounter struct {
	shards [numCounterShards]paddedCounter
}

func (c *shardedCounter) add(shardKey string, delta int64) {
	c.shards[shardFor(shardKey)].v.Add(delta)
}

func (c *shardedCounter) sum() int64 {
	var total int64
	for i := range c.shards {
		total += c.shards[i].v.Load()
	}
	return total
}

func shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % numCounterShards)
}
