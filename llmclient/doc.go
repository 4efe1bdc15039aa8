// Package llmclient wraps the gollm library (github.com/teilomillet/gollm)
// behind a small, provider-agnostic boundary suitable for an approval-gated
// agent loop.
//
// The package deliberately exposes a single inference operation: given a
// system prompt, a conversation history, and a set of tool definitions,
// Propose returns either plain assistant text or a list of requested tool
// calls. Callers never see gollm types; failures are translated into the
// package's error taxonomy so the caller can distinguish "the model is
// unreachable" from "the model took too long".
//
// # Quick Start
//
//	client, err := llmclient.New("anthropic", "claude-sonnet-4-5-20250514")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	proposal, err := client.Propose(ctx, "You are a helpful agent.",
//	    []llmclient.Message{llmclient.UserMessage("list the files here")},
//	    tools)
//	if len(proposal.ToolCalls) > 0 {
//	    // the model wants to act; gate on approval before executing
//	}
//
// # Errors
//
// Propose returns *TimeoutError when the configured request timeout
// elapses and *UnavailableError for transport, auth, and provider
// failures. Both unwrap to their underlying cause. IsRetryable reports
// whether a failure is worth retrying; Propose already performs bounded
// retries internally according to its RetryPolicy.
package llmclient
