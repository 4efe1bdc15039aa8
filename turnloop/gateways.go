package turnloop

import (
	"context"

	"github.com/martinemde/overseer/llmclient"
)

// ModelGateway is the boundary over the external inference capability.
// Given the conversation so far, it returns the model's proposal: plain
// content, requested tool invocations, or both. Implementations must
// bound the call with a timeout; on expiry they return an error rather
// than hanging. A gateway holds no session state of its own.
type ModelGateway interface {
	Propose(ctx context.Context, history []Message) (*llmclient.Proposal, error)
}

// ToolGateway is the boundary over external tool capabilities. Invoke
// never fails: unknown tool names, argument mismatches, and execution
// errors are all encoded as Succeeded=false results with diagnostic
// text, so the model always receives an answer it can reason about.
type ToolGateway interface {
	Invoke(ctx context.Context, call llmclient.ToolCall) ToolResult
}
