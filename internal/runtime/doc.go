// Package runtime assembles the agent process: configuration, authenticated
// session, backend API, lifecycle controller, and the shutdown path.
//
// Run blocks until its context is cancelled (cmd/gobi-agent derives that
// context from SIGINT/SIGTERM via signal.NotifyContext) and then executes
// the stop sequence once, on normal control flow, under a fresh context with
// its own deadline. A second termination request while shutdown is in
// progress is a no-op.
package runtime
