package turnloop

import (
	"context"
	"testing"

	"github.com/martinemde/overseer/llmclient"
)

func newTestOrchestrator(model ModelGateway, tools ToolGateway, store CheckpointStore) *Orchestrator {
	return NewOrchestrator(NewMachine(model, tools, store))
}

// A command turn end to end: input, proposal, approval, execution,
// follow-up inference, final reply.
func TestApprovedCommandTurn(t *testing.T) {
	call := shellCall("c1", "ls")
	model := &scriptedModel{steps: []scriptedStep{
		request("I'll list the files.", call),
		reply("The directory contains two files."),
	}}
	var executed []string
	orch := newTestOrchestrator(model, toolFunc(func(call llmclient.ToolCall) ToolResult {
		executed = append(executed, call.ID)
		return ToolResult{InvocationID: call.ID, Succeeded: true, Text: "a.txt  b.txt"}
	}), NewMemoryStore())

	outcome, err := orch.HandleUserInput(context.Background(), "main", "list the files")
	if err != nil {
		t.Fatalf("handle input: %v", err)
	}
	if outcome.Kind != OutcomeApprovalRequired {
		t.Fatalf("expected suspension on approval, got %q", outcome.Kind)
	}
	if len(executed) != 0 {
		t.Fatal("nothing may execute before approval")
	}

	outcome, err = orch.ResolveApproval(context.Background(), "main", true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Kind != OutcomeFinalReply || outcome.Reply != "The directory contains two files." {
		t.Fatalf("expected final reply, got %+v", outcome)
	}
	if len(executed) != 1 || executed[0] != "c1" {
		t.Errorf("expected exactly one execution of c1, got %v", executed)
	}

	session, err := orch.Session("main")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if session.MachineState != StateIdle {
		t.Errorf("expected idle, got %q", session.MachineState)
	}
	// user, assistant request, tool result, final assistant reply
	if len(session.History) != 4 {
		t.Errorf("expected 4 history entries, got %d", len(session.History))
	}
	if model.calls != 2 {
		t.Errorf("expected 2 inference calls, got %d", model.calls)
	}
}

// A denied turn: the batch never executes, cancellation is recorded, and
// the next input proceeds with that record in history.
func TestDeniedCommandTurn(t *testing.T) {
	model := &scriptedModel{steps: []scriptedStep{
		request("", shellCall("c1", "rm important.txt")),
		reply("Understood, I won't touch it."),
	}}
	orch := newTestOrchestrator(model, toolFunc(func(call llmclient.ToolCall) ToolResult {
		t.Fatalf("denied invocation %s must not execute", call.ID)
		return ToolResult{}
	}), NewMemoryStore())

	if _, err := orch.HandleUserInput(context.Background(), "main", "delete it"); err != nil {
		t.Fatalf("handle input: %v", err)
	}
	outcome, err := orch.ResolveApproval(context.Background(), "main", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Kind != OutcomeCancelled {
		t.Fatalf("expected cancellation, got %q", outcome.Kind)
	}

	// The denial is part of the durable record the model sees next turn.
	outcome, err = orch.HandleUserInput(context.Background(), "main", "ok, leave it")
	if err != nil {
		t.Fatalf("follow-up input: %v", err)
	}
	if outcome.Kind != OutcomeFinalReply {
		t.Fatalf("expected final reply, got %q", outcome.Kind)
	}

	session, _ := orch.Session("main")
	var sawCancellation bool
	for _, msg := range session.History {
		if msg.Role == RoleTool && msg.Content == CancellationText {
			sawCancellation = true
		}
	}
	if !sawCancellation {
		t.Error("cancellation record missing from history")
	}
}

// A model failure mid-turn: the user message survives, nothing else is
// appended, and the session is back in a state that accepts input.
func TestModelFailureAbortsTurnCleanly(t *testing.T) {
	failure := &llmclient.TimeoutError{ClientError: llmclient.ClientError{Message: "inference timed out"}}
	store := NewMemoryStore()
	orch := newTestOrchestrator(&scriptedModel{steps: []scriptedStep{{err: failure}}}, toolFunc(echoTool), store)

	_, err := orch.HandleUserInput(context.Background(), "main", "hello?")
	if !llmclient.IsTimeout(err) {
		t.Fatalf("expected the timeout to surface, got %v", err)
	}

	session, loadErr := store.Load("main")
	if loadErr != nil {
		t.Fatalf("load: %v", loadErr)
	}
	if session.MachineState != StateIdle {
		t.Errorf("expected idle, got %q", session.MachineState)
	}
	if len(session.History) != 1 || session.History[0].Role != RoleUser {
		t.Fatalf("expected only the user message to persist, got %+v", session.History)
	}

	// The session still accepts input afterwards.
	retryOrch := newTestOrchestrator(&scriptedModel{steps: []scriptedStep{reply("back online")}}, toolFunc(echoTool), store)
	outcome, err := retryOrch.HandleUserInput(context.Background(), "main", "still there?")
	if err != nil {
		t.Fatalf("retry input: %v", err)
	}
	if outcome.Kind != OutcomeFinalReply {
		t.Fatalf("expected final reply, got %q", outcome.Kind)
	}
}

// A crash while suspended: a fresh process over the same store sees the
// pending batch and can resolve it without re-running inference.
func TestSuspensionSurvivesRestart(t *testing.T) {
	store := NewMemoryStore()
	call := shellCall("c1", "ls")
	orch := newTestOrchestrator(&scriptedModel{steps: []scriptedStep{request("", call)}}, toolFunc(echoTool), store)

	outcome, err := orch.HandleUserInput(context.Background(), "main", "list files")
	if err != nil {
		t.Fatalf("handle input: %v", err)
	}
	if outcome.Kind != OutcomeApprovalRequired {
		t.Fatalf("expected suspension, got %q", outcome.Kind)
	}

	// "Restart": new machine and orchestrator, same store. The model for
	// the resumed process only needs the post-execution follow-up.
	var executed []string
	resumed := newTestOrchestrator(
		&scriptedModel{steps: []scriptedStep{reply("done after restart")}},
		toolFunc(func(call llmclient.ToolCall) ToolResult {
			executed = append(executed, call.ID)
			return echoTool(call)
		}),
		store,
	)

	session, err := resumed.Session("main")
	if err != nil {
		t.Fatalf("session after restart: %v", err)
	}
	if !session.AwaitingApproval() {
		t.Fatalf("restart lost the suspension, state %q", session.MachineState)
	}
	if len(session.PendingInvocations) != 1 || session.PendingInvocations[0].ID != "c1" {
		t.Fatalf("restart lost the pending batch: %+v", session.PendingInvocations)
	}

	outcome, err = resumed.ResolveApproval(context.Background(), "main", true)
	if err != nil {
		t.Fatalf("resolve after restart: %v", err)
	}
	if outcome.Kind != OutcomeFinalReply || outcome.Reply != "done after restart" {
		t.Fatalf("expected final reply, got %+v", outcome)
	}
	if len(executed) != 1 || executed[0] != "c1" {
		t.Errorf("expected the pending invocation to run once, got %v", executed)
	}
}

func TestInputRejectedWhileAwaitingApproval(t *testing.T) {
	orch := newTestOrchestrator(&scriptedModel{steps: []scriptedStep{request("", shellCall("c1", "ls"))}}, toolFunc(echoTool), NewMemoryStore())

	if _, err := orch.HandleUserInput(context.Background(), "main", "go"); err != nil {
		t.Fatalf("handle input: %v", err)
	}
	_, err := orch.HandleUserInput(context.Background(), "main", "another thing")
	if _, ok := err.(*InvalidStateError); !ok {
		t.Fatalf("expected *InvalidStateError, got %v", err)
	}

	// The rejected input must not leak into history.
	session, _ := orch.Session("main")
	for _, msg := range session.History {
		if msg.Role == RoleUser && msg.Content == "another thing" {
			t.Error("rejected input was appended to history")
		}
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	orch := newTestOrchestrator(&scriptedModel{steps: []scriptedStep{reply("a"), reply("b")}}, toolFunc(echoTool), store)

	if _, err := orch.HandleUserInput(context.Background(), "alpha", "one"); err != nil {
		t.Fatalf("alpha: %v", err)
	}
	if _, err := orch.HandleUserInput(context.Background(), "beta", "two"); err != nil {
		t.Fatalf("beta: %v", err)
	}

	alpha, _ := orch.Session("alpha")
	beta, _ := orch.Session("beta")
	if len(alpha.History) != 2 || len(beta.History) != 2 {
		t.Fatalf("expected 2 entries each, got %d and %d", len(alpha.History), len(beta.History))
	}
	if alpha.History[0].Content != "one" || beta.History[0].Content != "two" {
		t.Error("histories crossed between sessions")
	}
}

func TestSessionReturnsCopy(t *testing.T) {
	orch := newTestOrchestrator(&scriptedModel{steps: []scriptedStep{reply("hi")}}, toolFunc(echoTool), NewMemoryStore())
	if _, err := orch.HandleUserInput(context.Background(), "main", "hello"); err != nil {
		t.Fatalf("handle input: %v", err)
	}

	session, _ := orch.Session("main")
	session.History[0].Content = "tampered"
	session.MachineState = StateExecuting

	fresh, _ := orch.Session("main")
	if fresh.History[0].Content != "hello" || fresh.MachineState != StateIdle {
		t.Error("mutating the returned session affected stored state")
	}
}
