package turnloop

import (
	"sync"
	"time"
)

// EventKind identifies the type of loop event.
type EventKind string

const (
	EventUserInput        EventKind = "user_input"
	EventModelReply       EventKind = "model_reply"
	EventApprovalRequired EventKind = "approval_required"
	EventApprovalGranted  EventKind = "approval_granted"
	EventApprovalDenied   EventKind = "approval_denied"
	EventToolStart        EventKind = "tool_start"
	EventToolEnd          EventKind = "tool_end"
	EventCheckpointSaved  EventKind = "checkpoint_saved"
	EventError            EventKind = "error"
)

// Event is a typed notification emitted by the loop for host
// applications (rendering tool output, progress display, audit).
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"session_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventStream delivers events to the host over a buffered channel.
// Emission never blocks the loop: when the buffer is full the event is
// dropped.
type EventStream struct {
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewEventStream creates an EventStream with the given buffer size
// (256 when <= 0).
func NewEventStream(bufferSize int) *EventStream {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventStream{ch: make(chan Event, bufferSize)}
}

// Emit sends an event. Dropped silently if the stream is closed or full.
func (s *EventStream) Emit(kind EventKind, sessionID string, data map[string]interface{}) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- Event{Kind: kind, Timestamp: time.Now(), SessionID: sessionID, Data: data}:
	default:
	}
}

// Events returns the read-only event channel.
func (s *EventStream) Events() <-chan Event {
	return s.ch
}

// Close closes the stream. Safe to call multiple times.
func (s *EventStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
