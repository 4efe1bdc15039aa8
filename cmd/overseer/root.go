package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/martinemde/overseer/llmclient"
	"github.com/martinemde/overseer/turnloop"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "overseer [message...]",
		Short: "Approval-gated shell agent with durable sessions",
		Long: "overseer pairs a language model with shell and file tools. Every\n" +
			"side-effecting action the model proposes is held for your explicit\n" +
			"approval, and the whole conversation is checkpointed so a session\n" +
			"survives restarts — including while an approval is still pending.\n\n" +
			"With arguments, runs a single turn and exits. Without, starts an\n" +
			"interactive prompt.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(v)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				return app.runOnce(cmd.Context(), strings.Join(args, " "))
			}
			return app.runInteractive(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.String("session", "main", "session id; reusing an id resumes its conversation")
	flags.String("state-dir", defaultStateDir(), "directory for session checkpoints")
	flags.String("provider", "anthropic", "LLM provider (anthropic, openai)")
	flags.String("model", "claude-sonnet-4-5-20250514", "model identifier")
	flags.Duration("model-timeout", 2*time.Minute, "bound on each inference call")
	flags.Int("command-timeout-ms", 10000, "default shell command timeout")
	flags.String("workdir", "", "working directory for tools (default: current)")
	flags.Bool("yes", false, "approve all proposed actions without prompting (dangerous)")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("OVERSEER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.AddConfigPath(defaultStateDir())
	_ = v.ReadInConfig() // missing config file is fine

	return cmd
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".overseer"
	}
	return filepath.Join(home, ".overseer")
}

// newApp wires the loop from configuration: client, environment, tools,
// machine, orchestrator.
func newApp(v *viper.Viper) (*app, error) {
	client, err := llmclient.New(
		v.GetString("provider"),
		v.GetString("model"),
		llmclient.WithTimeout(v.GetDuration("model-timeout")),
	)
	if err != nil {
		return nil, err
	}

	cfg := turnloop.DefaultConfig()
	if ms := v.GetInt("command-timeout-ms"); ms > 0 {
		cfg.DefaultCommandTimeoutMs = ms
	}

	env := turnloop.NewLocalExecutionEnvironment(v.GetString("workdir"))
	reg := turnloop.NewToolRegistry()
	turnloop.RegisterCoreTools(reg, cfg)

	events := turnloop.NewEventStream(256)
	machine := turnloop.NewMachine(
		turnloop.NewLLMModelGateway(client, env, reg),
		turnloop.NewRegistryToolGateway(reg, env),
		turnloop.NewFileStore(v.GetString("state-dir")),
		turnloop.WithEventStream(events),
	)

	return &app{
		orch:       turnloop.NewOrchestrator(machine),
		events:     events,
		sessionID:  v.GetString("session"),
		approveAll: v.GetBool("yes"),
	}, nil
}
