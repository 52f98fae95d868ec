// Package process holds the value types used to start and stop external programs.
package process

// ProcessSignal is a request to stop a running process
type ProcessSignal int

const (
	SignalTerminate ProcessSignal = iota // SIGTERM
	SignalKill                           // SIGKILL
)

func (s ProcessSignal) String() string {
	if s == SignalKill {
		return "kill"
	}
	return "terminate"
}

// ExitCodeAbnormal is reported for a process that did not exit on its own,
// for example one killed by a signal.
const ExitCodeAbnormal = -1
