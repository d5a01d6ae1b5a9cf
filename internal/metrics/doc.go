// Package metrics tracks call counters for a running agent.
//
// The Aggregator is written by whatever component handles calls and read by
// the heartbeat loop when it builds a liveness report. Counters are atomic,
// so no external locking is needed on either side.
package metrics
