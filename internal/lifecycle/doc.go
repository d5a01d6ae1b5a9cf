// Package lifecycle sequences one agent's authenticated run against the
// control plane.
//
// # State machine
//
//	unauthenticated --Login--> authenticated --Deploy--> deployed
//	deployed --Start--> running --Stop--> stopping --> stopped
//
// Failed transitions leave the state unchanged: a bad login stays
// unauthenticated, a failed deploy stays authenticated, a re-entrant Start
// returns ErrAlreadyRunning without touching the active run.
//
// # Stop guarantees
//
// Stop is the correctness-critical path. It flips the running flag, joins
// the heartbeat loop within a configured bound (so no stray RUNNING report
// can follow), sends exactly one best-effort terminal STOPPED report,
// unregisters the local agent when registered, and computes final metrics.
// Each step is absorbed independently; Stop never fails and is safe to call
// repeatedly or concurrently. Later calls return the first call's final
// snapshot.
package lifecycle
