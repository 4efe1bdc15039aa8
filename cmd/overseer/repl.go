package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/martinemde/overseer/llmclient"
	"github.com/martinemde/overseer/turnloop"
)

// displayOutputLimit truncates tool output on screen. History keeps the
// full text; this only protects the terminal.
const displayOutputLimit = 500

type app struct {
	orch       *turnloop.Orchestrator
	events     *turnloop.EventStream
	sessionID  string
	approveAll bool
	renderer   *glamour.TermRenderer
	stdin      *bufio.Reader
}

func (a *app) reader() *bufio.Reader {
	if a.stdin == nil {
		a.stdin = bufio.NewReader(os.Stdin)
	}
	return a.stdin
}

// runOnce handles a single turn from the command line and exits.
func (a *app) runOnce(ctx context.Context, input string) error {
	return a.runTurn(ctx, input)
}

// runInteractive is the read loop: prompt, turn, repeat.
func (a *app) runInteractive(ctx context.Context) error {
	fmt.Println("Agent online. Type 'quit' to exit.")

	if err := a.resumePending(ctx); err != nil {
		return err
	}

	for {
		fmt.Print("You: ")
		line, err := a.reader().ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := a.runTurn(ctx, line); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
}

// resumePending checks for an approval left over from a previous run —
// the session checkpoint preserves it across restarts — and resolves it
// before accepting new input.
func (a *app) resumePending(ctx context.Context) error {
	session, err := a.orch.Session(a.sessionID)
	if err != nil {
		return err
	}
	if !session.AwaitingApproval() {
		return nil
	}

	fmt.Println("A previous session is paused on these planned actions:")
	a.printPending(session.PendingInvocations)
	outcome, err := a.orch.ResolveApproval(ctx, a.sessionID, a.promptApproval())
	if err != nil {
		return err
	}
	a.printOutcome(outcome)
	return nil
}

// runTurn drives one user input to its terminal outcome, prompting for
// approval as many times as the model requests actions.
func (a *app) runTurn(ctx context.Context, input string) error {
	outcome, err := a.orch.HandleUserInput(ctx, a.sessionID, input)
	if err != nil {
		return err
	}

	for outcome.Kind == turnloop.OutcomeApprovalRequired {
		if outcome.Reply != "" {
			a.printAssistant(outcome.Reply)
		}
		fmt.Println("\nAgent paused. Planned actions:")
		a.printPending(outcome.Pending)

		outcome, err = a.orch.ResolveApproval(ctx, a.sessionID, a.promptApproval())
		if err != nil {
			return err
		}
		a.drainToolOutput()
	}

	a.printOutcome(outcome)
	return nil
}

func (a *app) printPending(pending []llmclient.ToolCall) {
	for _, call := range pending {
		fmt.Printf("   Tool: %s\n", call.Name)
		fmt.Printf("   Args: %v\n", call.ArgumentsMap())
	}
}

func (a *app) promptApproval() bool {
	if a.approveAll {
		fmt.Println("Auto-approving (--yes).")
		return true
	}
	fmt.Print("Approve? (y/n): ")
	line, err := a.reader().ReadString('\n')
	if err != nil {
		// EOF means nobody is there to approve; deny.
		fmt.Println()
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// drainToolOutput prints any tool results buffered on the event stream.
func (a *app) drainToolOutput() {
	for {
		select {
		case event := <-a.events.Events():
			if event.Kind != turnloop.EventToolEnd {
				continue
			}
			output, _ := event.Data["output"].(string)
			if len(output) > displayOutputLimit {
				output = output[:displayOutputLimit] + "..."
			}
			tool, _ := event.Data["tool"].(string)
			fmt.Printf("-- %s --\n%s\n", tool, output)
		default:
			return
		}
	}
}

func (a *app) printOutcome(outcome *turnloop.Outcome) {
	switch outcome.Kind {
	case turnloop.OutcomeFinalReply:
		a.printAssistant(outcome.Reply)
	case turnloop.OutcomeCancelled:
		fmt.Println("Action cancelled.")
	}
}

// printAssistant renders assistant markdown for the terminal, falling
// back to plain text when rendering is unavailable.
func (a *app) printAssistant(text string) {
	if text == "" {
		return
	}
	if a.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(0),
		)
		if err != nil {
			fmt.Println(text)
			return
		}
		a.renderer = r
	}
	rendered, err := a.renderer.Render(text)
	if err != nil {
		fmt.Println(text)
		return
	}
	fmt.Print(rendered)
}
