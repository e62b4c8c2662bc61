package cache

import (
	"context"
	"fmt"
	"sync"

	"encore.dev/cron"
)

// PreloadFunc performs one scheduled full-cache preload, typically by
// closing over a Coordinator and calling BulkPreload with whatever key
// set the caller's domain considers its current working set.
type PreloadFunc func(ctx context.Context) error

// preloadHooks lets the single concrete PreloadEndpoint below dispatch to
// whichever caller-supplied PreloadFunc a fired schedule names. Encore's
// cron wiring needs a real, non-generic API endpoint to point at, which a
// generic Coordinator[K, V] method cannot be, so schedules are
// registered by id instead.
var (
	preloadHooksMu sync.RWMutex
	preloadHooks   = map[string]PreloadFunc{}
)

// RegisterPreloadHook associates id with fn. Register before calling
// NewPreloadSchedule with the same id.
func RegisterPreloadHook(id string, fn PreloadFunc) {
	preloadHooksMu.Lock()
	defer preloadHooksMu.Unlock()
	preloadHooks[id] = fn
}

// NewPreloadSchedule runs the PreloadFunc registered under id on the
// given cron schedule, via encore.dev/cron the same way warming/cron.go
// schedules its own (coarser) predictive warming runs. This is
// supplemental to, not a replacement for, the refresh batcher's
// sub-minute refresh_tick (C5): cron's minimum granularity is one
// minute, far coarser than the tick's 3-second default.
func NewPreloadSchedule(id, title, schedule string) *cron.Job {
	return cron.NewJob(id, cron.JobConfig{
		Title:    title,
		Schedule: schedule,
		Endpoint: PreloadEndpoint,
	})
}

// PreloadRequest names which registered schedule fired.
type PreloadRequest struct {
	ScheduleID string
}

// PreloadEndpoint is the single Encore API endpoint every preload
// schedule targets; it dispatches to the PreloadFunc registered for the
// request's ScheduleID.
//
//encore:api private
func PreloadEndpoint(ctx context.Context, req *PreloadRequest) error {
	preloadHooksMu.RLock()
	fn, ok := preloadHooks[req.ScheduleID]
	preloadHooksMu.RUnlock()
	if !ok {
		return fmt.Errorf("cache: no preload hook registered for schedule %q", req.ScheduleID)
	}
	return fn(ctx)
}
