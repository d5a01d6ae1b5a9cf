// ABOUTME: Lifecycle states for the agent supervisor.
// ABOUTME: Transitions are owned and serialized by the Controller.

package lifecycle

// State is the supervisor's position in the login/deploy/run/stop sequence.
type State int

// Lifecycle states, in transition order.
const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateDeployed
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateDeployed:
		return "deployed"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
