// ABOUTME: Aggregates call counters for a running agent and derives snapshots.
// ABOUTME: Increments are atomic so call handlers may report concurrently with heartbeats.

package metrics

import (
	"sync/atomic"
	"time"
)

// Aggregator accumulates call counters for the current run. Counters only
// ever increase; a fresh run gets a fresh Aggregator.
type Aggregator struct {
	totalCalls      atomic.Int64
	successfulCalls atomic.Int64
}

// NewAggregator returns an Aggregator with all counters at zero.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// RecordCall bumps the total call counter and, when success is true, the
// successful call counter. Safe for concurrent use.
func (a *Aggregator) RecordCall(success bool) {
	a.totalCalls.Add(1)
	if success {
		a.successfulCalls.Add(1)
	}
}

// TotalCalls returns the number of calls recorded so far.
func (a *Aggregator) TotalCalls() int64 {
	return a.totalCalls.Load()
}

// SuccessfulCalls returns the number of calls recorded as successful.
func (a *Aggregator) SuccessfulCalls() int64 {
	return a.successfulCalls.Load()
}

// Snapshot captures the counters together with derived values at a point in
// time. A torn read between the two counters is tolerated; the rate
// self-corrects on the next snapshot.
type Snapshot struct {
	UptimeSeconds   float64   `json:"uptime_seconds"`
	TotalCalls      int64     `json:"total_calls"`
	SuccessfulCalls int64     `json:"successful_calls"`
	SuccessRate     float64   `json:"success_rate"`
	Timestamp       time.Time `json:"timestamp"`
}

// Snapshot derives uptime and success rate from the counters. The rate is 0
// when no calls have been recorded. A zero start instant yields zero uptime.
func (a *Aggregator) Snapshot(now, start time.Time) Snapshot {
	var uptime float64
	if !start.IsZero() {
		uptime = now.Sub(start).Seconds()
	}

	total := a.totalCalls.Load()
	successful := a.successfulCalls.Load()

	var rate float64
	if total > 0 {
		rate = float64(successful) / float64(total) * 100
	}

	return Snapshot{
		UptimeSeconds:   uptime,
		TotalCalls:      total,
		SuccessfulCalls: successful,
		SuccessRate:     rate,
		Timestamp:       now,
	}
}
