package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// operation identifies which kind of tier call a metric describes.
type operation string

const (
	operationGet operation = "get"
	operationSet operation = "set"
	operationDel operation = "del"
)

// status is the outcome tag attached to every counter.
type status string

const (
	statusOK    status = "ok"
	statusHit   status = "hit"
	statusMiss  status = "miss"
	statusError status = "error"
)

// Metric families exposed to the external MetricsSink, matching spec §4.8.
const (
	familyLocalRequests  = "local_cache.requests"
	familyLocalCount     = "local_cache.count"
	familyRemoteRequests = "distributed_cache.requests"
	familySourceLoads    = "data_source.loads"
	familySourceKeyLoads = "data_source.key_loads"
)

// MetricsSink is the external metrics backend contract (spec §1: out of
// scope). A nil sink is valid and makes every call here a no-op.
type MetricsSink interface {
	IncCounter(family string, tags map[string]string, delta int64)
	SetGauge(family string, tags map[string]string, value float64)
}

// fields is a small structured-logging field map, named to mirror the
// teacher's ad-hoc map[string]interface{} log entries
// (pkg/middleware/logging.go) without dragging in an HTTP-request shape.
type fields map[string]interface{}

// Logger is the optional structured logger façade accepted by the
// coordinator for user-code errors (L2 ops, serializers, the data source).
// A nil Logger is valid; NewNopLogger() / NewStdLogger() provide concrete
// implementations.
type Logger interface {
	Errorf(msg string, f fields)
	Warnf(msg string, f fields)
}

// metricsSink is the internal façade the rest of the package calls into.
// It tags every counter with the cache's name and forwards to the external
// MetricsSink, while also maintaining an in-process latency ring buffer for
// callers that want percentiles without standing up a full metrics
// backend (adapted from monitoring/metrics.go's RingBuffer).
type metricsSink struct {
	name    string
	sink    MetricsSink
	latency *latencyRingBuffer
}

func newMetricsSink(name string, sink MetricsSink) *metricsSink {
	return &metricsSink{
		name:    name,
		sink:    sink,
		latency: newLatencyRingBuffer(4096),
	}
}

func (m *metricsSink) tags(op operation, st status) map[string]string {
	return map[string]string{"name": m.name, "operation": string(op), "status": string(st)}
}

func (m *metricsSink) recordLocal(op operation, st status) {
	if m.sink == nil {
		return
	}
	m.sink.IncCounter(familyLocalRequests, m.tags(op, st), 1)
}

func (m *metricsSink) setLocalCount(n int) {
	if m.sink == nil {
		return
	}
	m.sink.SetGauge(familyLocalCount, map[string]string{"name": m.name}, float64(n))
}

func (m *metricsSink) recordRemote(op operation, st status) {
	if m.sink == nil {
		return
	}
	m.sink.IncCounter(familyRemoteRequests, m.tags(op, st), 1)
}

func (m *metricsSink) recordSourceLoad(st status) {
	if m.sink == nil {
		return
	}
	m.sink.IncCounter(familySourceLoads, m.tags(operationGet, st), 1)
}

func (m *metricsSink) recordSourceKey(st status) {
	if m.sink == nil {
		return
	}
	m.sink.IncCounter(familySourceKeyLoads, m.tags(operationGet, st), 1)
}

func (m *metricsSink) recordLatency(d time.Duration) {
	m.latency.add(float64(d.Microseconds()), time.Now())
}

// LatencySnapshot summarizes the recorded Get latencies.
type LatencySnapshot struct {
	Count            int
	MinMicros        float64
	MaxMicros        float64
	AvgMicros        float64
	P50Micros        float64
	P99Micros        float64
}

// LatencySnapshot returns the current latency distribution observed by the
// coordinator's metrics façade.
func (m *metricsSink) LatencySnapshot() LatencySnapshot {
	samples := m.latency.all()
	return summarizeLatency(samples)
}

// latencyRingBuffer is a circular buffer of recent latency samples, adapted
// from monitoring/metrics.go's RingBuffer: add claims its slot with a CAS on
// head and stores the sample under the shared read lock, while all takes
// the exclusive lock, so a snapshot never overlaps a write.
type latencyRingBuffer struct {
	buffer []latencySample
	head   atomic.Uint64
	size   uint64
	mu     sync.RWMutex
}

type latencySample struct {
	value     float64
	timestamp time.Time
}

func newLatencyRingBuffer(size int) *latencyRingBuffer {
	return &latencyRingBuffer{
		buffer: make([]latencySample, size),
		size:   uint64(size),
	}
}

func (rb *latencyRingBuffer) add(value float64, ts time.Time) {
	for {
		head := rb.head.Load()
		next := (head + 1) % rb.size
		if rb.head.CompareAndSwap(head, next) {
			rb.mu.RLock()
			rb.buffer[head] = latencySample{value: value, timestamp: ts}
			rb.mu.RUnlock()
			return
		}
	}
}

func (rb *latencyRingBuffer) all() []latencySample {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	out := make([]latencySample, len(rb.buffer))
	copy(out, rb.buffer)
	return out
}

func summarizeLatency(samples []latencySample) LatencySnapshot {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		if !s.timestamp.IsZero() {
			values = append(values, s.value)
		}
	}
	if len(values) == 0 {
		return LatencySnapshot{}
	}

	sortFloats(values)

	sum := 0.0
	min, max := values[0], values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	return LatencySnapshot{
		Count:     len(values),
		MinMicros: min,
		MaxMicros: max,
		AvgMicros: sum / float64(len(values)),
		P50Micros: percentileOf(values, 0.50),
		P99Micros: percentileOf(values, 0.99),
	}
}
