package turnloop

import (
	"context"

	"github.com/martinemde/overseer/llmclient"
)

// OutcomeKind discriminates what a machine operation produced.
type OutcomeKind string

const (
	// OutcomeFinalReply: the model answered with plain content; the turn
	// is over and the session is idle.
	OutcomeFinalReply OutcomeKind = "final_reply"
	// OutcomeApprovalRequired: the model requested invocations; the
	// session is suspended awaiting an external decision.
	OutcomeApprovalRequired OutcomeKind = "approval_required"
	// OutcomeCancelled: the operator denied the pending batch; the
	// denial is recorded and the session is idle.
	OutcomeCancelled OutcomeKind = "cancelled"
)

// Outcome is the result of Step or ResolveApproval.
type Outcome struct {
	Kind OutcomeKind
	// Reply is the assistant's text content. Set for final replies, and
	// for approval requests when the model spoke alongside its requests.
	Reply string
	// Pending carries the invocations awaiting approval when Kind is
	// OutcomeApprovalRequired.
	Pending []llmclient.ToolCall
}

// Machine is the turn state machine. It owns every session transition:
// it appends to history, moves the machine state, and writes checkpoints
// before any suspension or return. Tool code executes only inside
// ResolveApproval.
//
// A Machine is stateless between calls; all state lives in the Session
// and the CheckpointStore. Callers must serialize Step/ResolveApproval
// per session id.
type Machine struct {
	model  ModelGateway
	tools  ToolGateway
	store  CheckpointStore
	events *EventStream
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithEventStream attaches an event stream for host notifications.
func WithEventStream(events *EventStream) MachineOption {
	return func(m *Machine) { m.events = events }
}

// NewMachine creates a Machine over the given gateways and store.
func NewMachine(model ModelGateway, tools ToolGateway, store CheckpointStore, opts ...MachineOption) *Machine {
	m := &Machine{model: model, tools: tools, store: store}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the machine's checkpoint store.
func (m *Machine) Store() CheckpointStore { return m.store }

// checkpoint persists the session. On failure the caller must discard
// the in-memory session.
func (m *Machine) checkpoint(session *Session) error {
	if err := m.store.Save(session); err != nil {
		return err
	}
	m.events.Emit(EventCheckpointSaved, session.SessionID, map[string]interface{}{
		"machine_state": string(session.MachineState),
		"history_len":   len(session.History),
	})
	return nil
}

// Step advances the conversation by one inference step. Requires the
// session to be idle or thinking.
//
// A plain reply is appended, the session returns to idle, and the
// outcome is final. A proposal with invocations is appended, the
// invocations become pending, the session suspends in awaiting_approval,
// and the outcome surfaces them for display. A gateway failure leaves
// the session exactly as it was — no partial append, no state change.
func (m *Machine) Step(ctx context.Context, session *Session) (*Outcome, error) {
	if session.MachineState != StateIdle && session.MachineState != StateThinking {
		return nil, &InvalidStateError{Op: "step", State: session.MachineState}
	}

	entryState := session.MachineState
	session.MachineState = StateThinking

	proposal, err := m.model.Propose(ctx, session.History)
	if err != nil {
		session.MachineState = entryState
		m.events.Emit(EventError, session.SessionID, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	// A proposal with no invocations and no content is a plain empty
	// reply, not an error.
	if !proposal.RequestsTools() {
		session.Append(NewAssistantMessage(proposal.Content, nil))
		session.MachineState = StateIdle
		session.PendingInvocations = nil
		if err := m.checkpoint(session); err != nil {
			return nil, err
		}
		m.events.Emit(EventModelReply, session.SessionID, map[string]interface{}{"content": proposal.Content})
		return &Outcome{Kind: OutcomeFinalReply, Reply: proposal.Content}, nil
	}

	session.Append(NewAssistantMessage(proposal.Content, proposal.ToolCalls))
	session.PendingInvocations = append([]llmclient.ToolCall(nil), proposal.ToolCalls...)
	session.MachineState = StateAwaitingApproval
	if err := m.checkpoint(session); err != nil {
		return nil, err
	}
	m.events.Emit(EventApprovalRequired, session.SessionID, map[string]interface{}{
		"invocations": len(proposal.ToolCalls),
	})
	return &Outcome{
		Kind:    OutcomeApprovalRequired,
		Reply:   proposal.Content,
		Pending: append([]llmclient.ToolCall(nil), proposal.ToolCalls...),
	}, nil
}

// ResolveApproval resolves a pending approval. Requires the session to
// be awaiting_approval; anything else is an InvalidStateError and no
// history is touched.
//
// Denial records one cancelled tool result per pending invocation and
// returns the session to idle — the batch is atomic, nothing ran.
// Approval executes every pending invocation in request order, appending
// and checkpointing each result before the next begins; a crash between
// two results therefore resumes with only the remaining invocations
// pending, never re-running a completed one. When the batch is done the
// machine immediately steps again so the model sees its results.
func (m *Machine) ResolveApproval(ctx context.Context, session *Session, approved bool) (*Outcome, error) {
	if session.MachineState != StateAwaitingApproval {
		return nil, &InvalidStateError{Op: "resolve approval", State: session.MachineState}
	}

	if !approved {
		for _, call := range session.PendingInvocations {
			session.Append(NewToolResultMessage(CancelledResult(call)))
		}
		session.PendingInvocations = nil
		session.MachineState = StateIdle
		if err := m.checkpoint(session); err != nil {
			return nil, err
		}
		m.events.Emit(EventApprovalDenied, session.SessionID, nil)
		return &Outcome{Kind: OutcomeCancelled}, nil
	}

	m.events.Emit(EventApprovalGranted, session.SessionID, nil)
	session.MachineState = StateExecuting

	for len(session.PendingInvocations) > 0 {
		call := session.PendingInvocations[0]
		m.events.Emit(EventToolStart, session.SessionID, map[string]interface{}{
			"tool": call.Name, "invocation_id": call.ID,
		})

		result := m.tools.Invoke(ctx, call)

		session.Append(NewToolResultMessage(result))
		session.PendingInvocations = session.PendingInvocations[1:]
		if len(session.PendingInvocations) == 0 {
			session.PendingInvocations = nil
			session.MachineState = StateThinking
		} else {
			// Persisted mid-batch snapshots stay resumable: still
			// awaiting approval, with only the unexecuted remainder.
			session.MachineState = StateAwaitingApproval
		}
		if err := m.checkpoint(session); err != nil {
			return nil, err
		}
		session.MachineState = StateExecuting

		m.events.Emit(EventToolEnd, session.SessionID, map[string]interface{}{
			"tool": call.Name, "invocation_id": call.ID,
			"succeeded": result.Succeeded, "output": result.Text,
		})
	}

	session.MachineState = StateThinking
	return m.Step(ctx, session)
}
