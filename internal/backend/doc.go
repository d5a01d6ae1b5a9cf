// Package backend implements the typed API the agent uses against the GOBI
// control plane and web UI.
//
// # Routes
//
//	GET  /api/agents                     list agents
//	GET  /api/agents/{id}                fetch one descriptor (404 -> nil)
//	POST /api/agents/{id}/deploy         mark ACTIVE, returns descriptor
//	POST /api/agents/{id}/heartbeat      liveness report (RUNNING/STOPPED)
//	POST /api/local-agents/heartbeat     register local agent process
//	POST /api/local-agents/remove        unregister local agent process
//
// All payloads are JSON. The API layer holds no retry logic: heartbeat and
// registration calls are naturally retried by the scheduler's next tick, and
// login/deploy retries are a caller decision.
package backend
