package turnloop

import "context"

// Orchestrator is the public entry point: it loads sessions from the
// checkpoint store, records user input, and drives the Machine until the
// turn reaches a terminal outcome — a final reply, or a suspension on
// approval.
//
// The asymmetry is deliberate and is the central contract of the loop:
// plain model replies complete the turn automatically, but every
// side-effecting action suspends it until ResolveApproval is called,
// possibly from a different process after a restart. The Orchestrator
// never approves anything itself.
//
// Callers must serialize HandleUserInput/ResolveApproval per session id;
// distinct session ids may be driven concurrently.
type Orchestrator struct {
	machine *Machine
	store   CheckpointStore
	events  *EventStream
}

// NewOrchestrator creates an Orchestrator over the machine and its store.
func NewOrchestrator(machine *Machine) *Orchestrator {
	return &Orchestrator{
		machine: machine,
		store:   machine.Store(),
		events:  machine.events,
	}
}

// Session returns a copy of the current durable state for the id. Used
// to display pending invocations, including after a process restart.
func (o *Orchestrator) Session(sessionID string) (*Session, error) {
	session, err := o.store.Load(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// HandleUserInput processes one user message: load the session, append
// the message, and step the machine until the turn either produces a
// final reply or suspends for approval.
//
// The user message is checkpointed before the first inference step, so a
// model failure aborts the turn without losing or corrupting history.
// If the session is already awaiting approval, the call fails with an
// InvalidStateError — resolve the pending batch first.
func (o *Orchestrator) HandleUserInput(ctx context.Context, sessionID, text string) (*Outcome, error) {
	session, err := o.store.Load(sessionID)
	if err != nil {
		return nil, err
	}
	if session.MachineState == StateAwaitingApproval {
		return nil, &InvalidStateError{Op: "handle user input", State: session.MachineState}
	}

	session.Append(NewUserMessage(text))
	if err := o.store.Save(session); err != nil {
		return nil, err
	}
	o.events.Emit(EventUserInput, sessionID, map[string]interface{}{"content": text})

	return o.drive(ctx, session)
}

// ResolveApproval applies an external approval decision to the session's
// pending batch. The session is reloaded from the checkpoint store, so
// the decision may arrive from a fresh process: the suspended state and
// its pending invocations survive restarts byte for byte.
func (o *Orchestrator) ResolveApproval(ctx context.Context, sessionID string, approved bool) (*Outcome, error) {
	session, err := o.store.Load(sessionID)
	if err != nil {
		return nil, err
	}
	return o.machine.ResolveApproval(ctx, session, approved)
}

// drive steps the machine until a terminal outcome for this turn.
func (o *Orchestrator) drive(ctx context.Context, session *Session) (*Outcome, error) {
	for {
		outcome, err := o.machine.Step(ctx, session)
		if err != nil {
			return nil, err
		}
		switch outcome.Kind {
		case OutcomeFinalReply, OutcomeApprovalRequired, OutcomeCancelled:
			return outcome, nil
		}
	}
}
