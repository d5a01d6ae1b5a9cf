// Package heartbeat runs the periodic liveness report for a deployed agent.
//
// # Loop contract
//
// On Start the scheduler sends one RUNNING report immediately, then one per
// interval. Each report carries a metrics snapshot (uptime, call counters,
// success rate). When local registration is configured, every tick also
// re-announces the process to the web UI, so registration failures are
// retried by the loop's own cadence.
//
// # Failure policy
//
// Liveness reporting is best-effort. A failed send is logged at warn level
// and the loop keeps ticking; nothing here ever terminates the agent.
//
// # Shutdown
//
// Stop closes the loop's stop channel and joins it with a timeout. No new
// RUNNING report is started after stop is requested; at most one in-flight
// send delays the join. If the bound is exceeded, Stop returns false and the
// caller carries on with the terminal STOPPED report regardless.
package heartbeat
