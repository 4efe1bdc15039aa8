package turnloop

import (
	"context"
	"fmt"

	"github.com/martinemde/overseer/llmclient"
)

// RegistryToolGateway dispatches invocations through a ToolRegistry
// against an ExecutionEnvironment. It implements ToolGateway: every
// failure mode is folded into a Succeeded=false result.
type RegistryToolGateway struct {
	registry *ToolRegistry
	env      ExecutionEnvironment
}

// NewRegistryToolGateway creates a gateway over the given registry and
// execution environment.
func NewRegistryToolGateway(registry *ToolRegistry, env ExecutionEnvironment) *RegistryToolGateway {
	return &RegistryToolGateway{registry: registry, env: env}
}

// Invoke executes one invocation and returns its result. Never errors.
func (g *RegistryToolGateway) Invoke(ctx context.Context, call llmclient.ToolCall) ToolResult {
	tool := g.registry.Get(call.Name)
	if tool == nil {
		return ToolResult{
			InvocationID: call.ID,
			Succeeded:    false,
			Text:         fmt.Sprintf("Unknown tool: %s", call.Name),
		}
	}

	output, err := tool.Executor(ctx, call.Arguments, g.env)
	if err != nil {
		return ToolResult{
			InvocationID: call.ID,
			Succeeded:    false,
			Text:         fmt.Sprintf("Tool error (%s): %v", call.Name, err),
		}
	}

	return ToolResult{
		InvocationID: call.ID,
		Succeeded:    true,
		Text:         output,
	}
}
