package turnloop

import (
	"time"

	"github.com/martinemde/overseer/llmclient"
)

// Role discriminates conversation entries.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in a session's history. Invocations are only
// present on assistant messages; ResultOf links a tool message back to the
// invocation it answers and must reference an invocation id from an
// earlier assistant message in the same session.
type Message struct {
	Role        Role                 `json:"role"`
	Content     string               `json:"content"`
	Invocations []llmclient.ToolCall `json:"invocations,omitempty"`
	ResultOf    string               `json:"result_of,omitempty"`
	Succeeded   bool                 `json:"succeeded,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

// ToolResult is the outcome of one executed invocation. Failures are
// encoded in Text, never as an absent result, so the model can react to
// them on its next inference step.
type ToolResult struct {
	InvocationID string `json:"invocation_id"`
	Succeeded    bool   `json:"succeeded"`
	Text         string `json:"text"`
}

// CancellationText is recorded as the result of every invocation in a
// denied batch.
const CancellationText = "cancelled by operator"

// CancelledResult builds the synthetic result for a denied invocation.
func CancelledResult(call llmclient.ToolCall) ToolResult {
	return ToolResult{
		InvocationID: call.ID,
		Succeeded:    false,
		Text:         CancellationText,
	}
}

// NewUserMessage creates a user Message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text, Timestamp: time.Now()}
}

// NewAssistantMessage creates an assistant Message, optionally carrying
// the invocations the model requested.
func NewAssistantMessage(content string, invocations []llmclient.ToolCall) Message {
	return Message{
		Role:        RoleAssistant,
		Content:     content,
		Invocations: invocations,
		Timestamp:   time.Now(),
	}
}

// NewToolResultMessage creates a tool Message recording one result.
func NewToolResultMessage(result ToolResult) Message {
	return Message{
		Role:      RoleTool,
		Content:   result.Text,
		ResultOf:  result.InvocationID,
		Succeeded: result.Succeeded,
		Timestamp: time.Now(),
	}
}

// WireHistory converts a session history into llmclient messages for the
// model boundary.
func WireHistory(history []Message) []llmclient.Message {
	messages := make([]llmclient.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case RoleUser:
			messages = append(messages, llmclient.UserMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, llmclient.AssistantMessage(msg.Content, msg.Invocations...))
		case RoleTool:
			messages = append(messages, llmclient.ToolResultMessage(msg.ResultOf, msg.Content, !msg.Succeeded))
		}
	}
	return messages
}
