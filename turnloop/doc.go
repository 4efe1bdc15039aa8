// Package turnloop implements an approval-gated conversational agent loop
// with durable checkpointing.
//
// The loop advances a conversation one inference step at a time. When the
// model proposes side-effecting actions (shell commands, file writes), the
// loop suspends, persists the full session state, and surfaces the pending
// invocations to the caller. Nothing executes until an external actor
// explicitly approves; denial is recorded into the conversation so the
// model can narrate it on its next turn. Because every suspension point is
// checkpointed, a session survives process restarts: reload it and resolve
// the approval as if nothing happened.
//
// # Architecture
//
// The package is organized around these core concepts:
//
//   - Session: the unit of persistence — append-only message history plus
//     the machine position and any invocations awaiting approval.
//   - Machine: the turn state machine driving idle -> thinking ->
//     awaiting_approval -> executing transitions, the only place tool
//     code runs.
//   - CheckpointStore: durable, atomic per-session persistence
//     (FileStore for real use, MemoryStore for tests).
//   - ModelGateway / ToolGateway: boundary abstractions over inference
//     and tool execution; both are stateless with respect to the session.
//   - Orchestrator: the public entry point tying the above into
//     HandleUserInput / ResolveApproval operations.
//
// # Quick Start
//
//	client, _ := llmclient.New("anthropic", "claude-sonnet-4-5-20250514")
//	env := turnloop.NewLocalExecutionEnvironment("")
//	reg := turnloop.NewToolRegistry()
//	turnloop.RegisterCoreTools(reg, turnloop.DefaultConfig())
//
//	machine := turnloop.NewMachine(
//	    turnloop.NewLLMModelGateway(client, env, reg),
//	    turnloop.NewRegistryToolGateway(reg, env),
//	    turnloop.NewFileStore("/var/lib/overseer"),
//	)
//	orch := turnloop.NewOrchestrator(machine)
//
//	outcome, err := orch.HandleUserInput(ctx, "main", "list the files here")
//	if outcome.Kind == turnloop.OutcomeApprovalRequired {
//	    // show outcome.Pending to the operator, then:
//	    outcome, err = orch.ResolveApproval(ctx, "main", true)
//	}
//
// # Concurrency
//
// At most one Step or ResolveApproval call may be in flight per session id;
// concurrent calls against the same session id are undefined unless the
// caller serializes them. Distinct sessions share nothing but the
// CheckpointStore, which supports concurrent use across keys.
package turnloop
