package cache

import "time"

// Config mirrors the external configuration surface of a Coordinator.
// There is no fluent builder here: callers fill in the struct and pass it
// to New, the same way cache-manager/service.go's Config and
// warming/service.go's DefaultConfig() are plain structs.
type Config struct {
	// Name namespaces this cache's L2 keys and metrics/log tags from any
	// other Coordinator sharing the same L2Store or MetricsSink.
	Name string

	// TimeToLive is the freshness window given to the value-less entries
	// cached for data source misses when CacheDataSourceMisses is set.
	// Entries the data source returns carry their LoadResult's TTL.
	TimeToLive time.Duration

	// CacheDataSourceMisses, when true, caches a value-less Entry for
	// keys the data source reports as not found, so that a flood of
	// requests for a missing key doesn't hammer the source. Default
	// false: misses are not cached.
	CacheDataSourceMisses bool

	// LoadTimeout bounds a single call to the Loader. Default 15s.
	LoadTimeout time.Duration

	// RefreshTick is how often the background refresh batcher flushes
	// its pending-key set to the data source. Default 3s.
	RefreshTick time.Duration

	// BatchSize caps how many keys are sent to the Loader in one bulk
	// preload/refresh chunk. Default 1000.
	BatchSize int

	// L1JitterFraction is the fraction of each entry's own TTL (in
	// [0, fraction)) randomly subtracted from it, in whole seconds, to
	// desynchronize expiry across processes sharing the same cache name.
	// Default 0.05.
	L1JitterFraction float64

	// KeyPrefix is prepended to every L2 key, ahead of Name, letting
	// multiple environments (e.g. staging/prod) share one L2Store.
	// Default "".
	KeyPrefix string

	// SourceRPS optionally throttles calls into the Loader to at most
	// this many keys per second (domain-stack enrichment on top of the
	// spec's required knobs; 0 disables throttling).
	SourceRPS float64

	// L2Endpoints names the L2Store values passed to New, for the
	// consistent-hash ring used when more than one L2Store is
	// configured. Ignored when len(L2Stores) <= 1.
	L2Endpoints []string
}

const (
	defaultLoadTimeout      = 15 * time.Second
	defaultRefreshTick      = 3 * time.Second
	defaultBatchSize        = 1000
	defaultL1JitterFraction = 0.05
)

// withDefaults returns a copy of c with the spec's documented defaults
// filled in for every zero-valued field that has one.
func (c Config) withDefaults() Config {
	if c.LoadTimeout == 0 {
		c.LoadTimeout = defaultLoadTimeout
	}
	if c.RefreshTick == 0 {
		c.RefreshTick = defaultRefreshTick
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.L1JitterFraction == 0 {
		c.L1JitterFraction = defaultL1JitterFraction
	}
	return c
}
