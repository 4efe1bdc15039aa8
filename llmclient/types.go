package llmclient

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single action the model asked to perform.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition describes a callable tool to the model (JSON Schema
// parameters, no executable handler).
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Message is one wire-level conversation entry. Assistant messages may
// carry tool calls; tool messages answer exactly one call via ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// UserMessage creates a user Message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage creates an assistant Message, optionally carrying tool calls.
func AssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolResultMessage creates a tool Message answering the given call.
func ToolResultMessage(callID, text string, isError bool) Message {
	return Message{Role: RoleTool, Content: text, ToolCallID: callID, IsError: isError}
}

// Proposal is the outcome of one inference step: either plain assistant
// text, or one or more requested tool calls (possibly with accompanying
// text). Exactly one of the two interpretations applies to a turn; use
// RequestsTools to discriminate.
type Proposal struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// RequestsTools reports whether the model asked to perform actions.
func (p *Proposal) RequestsTools() bool {
	return len(p.ToolCalls) > 0
}

// ArgumentsMap unmarshals the call arguments into a map for display and
// validation. Invalid JSON yields an empty map.
func (c ToolCall) ArgumentsMap() map[string]interface{} {
	var args map[string]interface{}
	if err := json.Unmarshal(c.Arguments, &args); err != nil {
		return map[string]interface{}{}
	}
	return args
}

// Transcript renders a history as a readable block, one line per message.
// Used for error context and debugging, never sent to the model.
func Transcript(history []Message) string {
	var sb strings.Builder
	for _, msg := range history {
		sb.WriteString(string(msg.Role))
		sb.WriteString(": ")
		if msg.Content != "" {
			sb.WriteString(msg.Content)
		}
		for _, call := range msg.ToolCalls {
			sb.WriteString(" [call ")
			sb.WriteString(call.Name)
			sb.WriteString("]")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
