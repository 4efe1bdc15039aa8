package turnloop

import (
	"encoding/json"

	"github.com/martinemde/overseer/llmclient"
)

// MachineState is the turn state machine's position within a session.
// Persisted records normally hold idle or awaiting_approval. thinking
// appears in a checkpoint only in the instant after an approved batch
// completes and before the follow-up inference step lands; Step accepts
// it, so a session interrupted there resumes cleanly. executing is never
// persisted.
type MachineState string

const (
	StateIdle             MachineState = "idle"
	StateThinking         MachineState = "thinking"
	StateAwaitingApproval MachineState = "awaiting_approval"
	StateExecuting        MachineState = "executing"
)

// Session is the unit of persistence and resumption: the append-only
// conversation history plus the machine position and any invocations
// awaiting approval. It is mutated exclusively by the Machine; the
// CheckpointStore is the sole authority for its durable form.
type Session struct {
	SessionID          string               `json:"session_id"`
	History            []Message            `json:"history"`
	MachineState       MachineState         `json:"machine_state"`
	PendingInvocations []llmclient.ToolCall `json:"pending_invocations,omitempty"`
}

// NewSession creates an empty idle session for the given id.
func NewSession(sessionID string) *Session {
	return &Session{
		SessionID:    sessionID,
		History:      []Message{},
		MachineState: StateIdle,
	}
}

// Append adds one message, preserving arrival order. Appending is the
// only history mutation; past entries are never reordered or rewritten.
func (s *Session) Append(msg Message) {
	s.History = append(s.History, msg)
}

// AwaitingApproval reports whether the session is suspended on an
// approval decision. Holds exactly when PendingInvocations is non-empty.
func (s *Session) AwaitingApproval() bool {
	return s.MachineState == StateAwaitingApproval
}

// Clone returns a deep copy via JSON round-trip, so a caller can hand
// out session state without aliasing the machine's working copy.
func (s *Session) Clone() *Session {
	data, err := json.Marshal(s)
	if err != nil {
		// Session contains only JSON-serializable fields.
		panic("turnloop: session not serializable: " + err.Error())
	}
	var clone Session
	if err := json.Unmarshal(data, &clone); err != nil {
		panic("turnloop: session not round-trippable: " + err.Error())
	}
	if clone.History == nil {
		clone.History = []Message{}
	}
	return &clone
}

// LastReply returns the content of the most recent assistant message, or
// the empty string if none exists.
func (s *Session) LastReply() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleAssistant {
			return s.History[i].Content
		}
	}
	return ""
}
