// ABOUTME: Tests for the metrics aggregator.
// ABOUTME: Covers snapshot derivation, zero-call rate, and concurrent increments.

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_ZeroCalls(t *testing.T) {
	agg := NewAggregator()

	start := time.Now()
	snap := agg.Snapshot(start.Add(5*time.Second), start)

	assert.Equal(t, int64(0), snap.TotalCalls)
	assert.Equal(t, int64(0), snap.SuccessfulCalls)
	assert.Equal(t, 0.0, snap.SuccessRate)
	assert.InDelta(t, 5.0, snap.UptimeSeconds, 0.001)
}

func TestSnapshot_SuccessRate(t *testing.T) {
	agg := NewAggregator()

	for i := 0; i < 4; i++ {
		agg.RecordCall(i < 3) // 3 successes out of 4
	}

	snap := agg.Snapshot(time.Now(), time.Now())
	assert.Equal(t, int64(4), snap.TotalCalls)
	assert.Equal(t, int64(3), snap.SuccessfulCalls)
	assert.InDelta(t, 75.0, snap.SuccessRate, 0.001)
}

func TestSnapshot_ZeroStartInstant(t *testing.T) {
	agg := NewAggregator()

	snap := agg.Snapshot(time.Now(), time.Time{})
	assert.Equal(t, 0.0, snap.UptimeSeconds)
}

func TestRecordCall_Concurrent(t *testing.T) {
	agg := NewAggregator()

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				agg.RecordCall(i%2 == 0)
			}
		}(w)
	}
	wg.Wait()

	snap := agg.Snapshot(time.Now(), time.Now())
	require.Equal(t, int64(workers*perWorker), snap.TotalCalls)
	require.Equal(t, int64(workers*perWorker/2), snap.SuccessfulCalls)
	assert.InDelta(t, 50.0, snap.SuccessRate, 0.001)
}
