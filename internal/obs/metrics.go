package obs

import (
	"sync/atomic"
	"time"

	"main/internal/schema"
)

const (
	maxCommandType = int(schema.CommandExpireRfq)
	maxResultCode  = int(schema.ResultUnauthorized)
)

// Metrics collects lightweight counters and latency stats. Never consulted
// by the apply path; read-side only.
type Metrics struct {
	commandCounts [maxCommandType + 1]uint64
	resultCounts  [maxResultCode + 1]uint64
	queueDrops    uint64
	queueClosed   uint64
	ignored       uint64

	applyLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	CommandCounts map[schema.CommandType]uint64
	ResultCounts  map[schema.ResultCode]uint64
	QueueDrops    uint64
	QueueClosed   uint64
	Ignored       uint64
	ApplyLatency  LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveCommand increments the per-type counter.
func (m *Metrics) ObserveCommand(commandType schema.CommandType) {
	if m == nil {
		return
	}
	idx := int(commandType)
	if idx >= 0 && idx < len(m.commandCounts) {
		atomic.AddUint64(&m.commandCounts[idx], 1)
	}
}

// IncResult increments the per-result counter.
func (m *Metrics) IncResult(result schema.ResultCode) {
	if m == nil {
		return
	}
	idx := int(result)
	if idx >= 0 && idx < len(m.resultCounts) {
		atomic.AddUint64(&m.resultCounts[idx], 1)
	}
}

// IncQueueDrop records a queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// IncIgnored records a malformed or unknown command skipped without
// mutation.
func (m *Metrics) IncIgnored() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ignored, 1)
}

// ObserveApply measures the latency of one command application.
func (m *Metrics) ObserveApply(d time.Duration) {
	if m == nil {
		return
	}
	m.applyLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	commandCounts := make(map[schema.CommandType]uint64)
	for i := range m.commandCounts {
		if v := atomic.LoadUint64(&m.commandCounts[i]); v > 0 {
			commandCounts[schema.CommandType(i)] = v
		}
	}
	resultCounts := make(map[schema.ResultCode]uint64)
	for i := range m.resultCounts {
		if v := atomic.LoadUint64(&m.resultCounts[i]); v > 0 {
			resultCounts[schema.ResultCode(i)] = v
		}
	}
	return Snapshot{
		CommandCounts: commandCounts,
		ResultCounts:  resultCounts,
		QueueDrops:    atomic.LoadUint64(&m.queueDrops),
		QueueClosed:   atomic.LoadUint64(&m.queueClosed),
		Ignored:       atomic.LoadUint64(&m.ignored),
		ApplyLatency:  m.applyLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
