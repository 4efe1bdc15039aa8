package turnloop

import "fmt"

// InvalidStateError reports a protocol misuse: an operation invoked while
// the session is in a state that does not permit it (for example,
// resolving an approval when none is pending). Fatal to the call, not to
// the session — no history is mutated.
type InvalidStateError struct {
	Op    string
	State MachineState
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s not permitted in state %q", e.Op, e.State)
}

// PersistenceError reports a checkpoint store failure. The in-memory
// session must be discarded rather than assumed consistent; retry by
// loading a fresh copy.
type PersistenceError struct {
	Op        string
	SessionID string
	Cause     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("checkpoint %s for session %q: %v", e.Op, e.SessionID, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
