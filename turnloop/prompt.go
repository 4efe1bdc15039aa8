package turnloop

import (
	"fmt"
	"strings"
)

// BuildSystemPrompt constructs the system prompt from the execution
// environment. The prompt identifies the agent's platform and working
// directory so the model generates commands appropriate to the host.
func BuildSystemPrompt(env ExecutionEnvironment, userInstructions string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a shell agent running on %s.\n", env.Platform())
	fmt.Fprintf(&sb, "Current working directory: %s\n\n", env.WorkingDirectory())
	sb.WriteString("When asked to perform tasks, request the appropriate shell commands or file writes through your tools.\n")
	sb.WriteString("Always check the output of your commands before concluding.\n")
	sb.WriteString("Every requested action is reviewed by a human operator before it runs; a cancelled result means the operator declined it, not that it failed.\n")

	if userInstructions != "" {
		sb.WriteString("\n# User Instructions\n\n")
		sb.WriteString(userInstructions)
		sb.WriteString("\n")
	}
	return sb.String()
}
