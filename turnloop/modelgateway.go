package turnloop

import (
	"context"

	"github.com/martinemde/overseer/llmclient"
)

// LLMModelGateway adapts an llmclient.Client to the ModelGateway
// boundary. It builds the system prompt from the execution environment,
// advertises the registry's tools, and converts the session history into
// wire messages for each step.
type LLMModelGateway struct {
	client           *llmclient.Client
	env              ExecutionEnvironment
	registry         *ToolRegistry
	userInstructions string
}

// NewLLMModelGateway creates a gateway over the given client,
// environment, and tool registry.
func NewLLMModelGateway(client *llmclient.Client, env ExecutionEnvironment, registry *ToolRegistry) *LLMModelGateway {
	return &LLMModelGateway{client: client, env: env, registry: registry}
}

// SetUserInstructions appends extra instructions to every system prompt.
func (g *LLMModelGateway) SetUserInstructions(instructions string) {
	g.userInstructions = instructions
}

// Propose performs one bounded inference step over the history.
func (g *LLMModelGateway) Propose(ctx context.Context, history []Message) (*llmclient.Proposal, error) {
	system := BuildSystemPrompt(g.env, g.userInstructions)
	return g.client.Propose(ctx, system, WireHistory(history), g.registry.Definitions())
}
