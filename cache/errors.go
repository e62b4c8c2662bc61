package cache

import "errors"

// Sentinel errors surfaced synchronously for caller misuse, per spec §7:
// a precondition failure never goes through the refresh decision graph.
var (
	// ErrNameRequired is returned by New when Config.Name is empty.
	ErrNameRequired = errors.New("cache: name is required")

	// ErrTimeToLiveRequired is returned by New when Config.TimeToLive is
	// not a positive duration.
	ErrTimeToLiveRequired = errors.New("cache: time_to_live must be positive")

	// ErrLoaderRequired is returned by New when no Loader is configured.
	ErrLoaderRequired = errors.New("cache: a Loader is required")

	// ErrL1StoreRequired is returned by New when no L1Store is configured.
	ErrL1StoreRequired = errors.New("cache: an L1Store is required")

	// ErrClosed is returned by Get/BulkPreload/BulkRefresh calls made after
	// Close.
	ErrClosed = errors.New("cache: coordinator is closed")
)
