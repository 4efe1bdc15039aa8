package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// Client performs inference through a gollm.LLM instance.
type Client struct {
	provider string
	model    string
	llm      gollm.LLM
	timeout  time.Duration
	retry    RetryPolicy
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	apiKey      string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	retry       RetryPolicy
	extraOpts   []gollm.ConfigOption
}

// WithAPIKey sets the provider API key. When empty, gollm reads it from
// the provider's environment variable.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) { c.apiKey = key }
}

// WithMaxTokens sets the response token budget.
func WithMaxTokens(n int) Option {
	return func(c *clientConfig) { c.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *clientConfig) { c.temperature = t }
}

// WithTimeout bounds each inference request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *clientConfig) { c.retry = p }
}

// WithGollmOptions appends raw gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) Option {
	return func(c *clientConfig) { c.extraOpts = append(c.extraOpts, opts...) }
}

// New creates a Client for the given provider and model.
func New(provider, model string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		maxTokens:   4096,
		temperature: 0,
		timeout:     2 * time.Minute,
		retry:       DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries are handled here, not in gollm
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", provider, err)
	}

	return &Client{
		provider: provider,
		model:    model,
		llm:      llm,
		timeout:  cfg.timeout,
		retry:    cfg.retry,
	}, nil
}

// NewFromLLM wraps an existing gollm.LLM. Used by tests and callers that
// configure gollm themselves.
func NewFromLLM(provider string, llm gollm.LLM) *Client {
	return &Client{
		provider: provider,
		llm:      llm,
		timeout:  2 * time.Minute,
		retry:    DefaultRetryPolicy(),
	}
}

// Provider returns the provider identifier.
func (c *Client) Provider() string { return c.provider }

// Model returns the model identifier.
func (c *Client) Model() string { return c.model }

// Propose performs one inference step over the history and returns the
// model's proposal: plain text, requested tool calls, or both. The call
// is bounded by the configured timeout and retried per the retry policy;
// a nil error means the Proposal is usable.
func (c *Client) Propose(ctx context.Context, system string, history []Message, tools []ToolDefinition) (*Proposal, error) {
	prompt := c.buildPrompt(system, history, tools)

	return retry(ctx, c.retry, func(ctx context.Context) (*Proposal, error) {
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		text, err := c.llm.Generate(ctx, prompt)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, translateError(context.DeadlineExceeded, c.provider)
			}
			return nil, translateError(err, c.provider)
		}

		calls := parseToolCalls(text)
		return &Proposal{
			Content:   stripToolCallJSON(text, calls),
			ToolCalls: calls,
		}, nil
	})
}

// buildPrompt flattens the conversation into a gollm Prompt. gollm takes
// a single prompt string, so prior assistant and tool entries are folded
// in as labeled context lines.
func (c *Client) buildPrompt(system string, history []Message, tools []ToolDefinition) *gollm.Prompt {
	var parts []string
	for _, msg := range history {
		switch msg.Role {
		case RoleSystem:
			system += "\n" + msg.Content
		case RoleUser:
			parts = append(parts, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				parts = append(parts, "[Assistant]: "+msg.Content)
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, fmt.Sprintf("[Assistant requested %s(%s)]", call.Name, string(call.Arguments)))
			}
		case RoleTool:
			prefix := "[Tool Result]"
			if msg.IsError {
				prefix = "[Tool Error]"
			}
			parts = append(parts, prefix+": "+msg.Content)
		}
	}

	promptText := strings.Join(parts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	promptOpts := []gollm.PromptOption{}
	if system != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(system), gollm.CacheTypeEphemeral))
	}

	if len(tools) > 0 {
		gollmTools := make([]gollm.Tool, 0, len(tools))
		for _, t := range tools {
			gollmTools = append(gollmTools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(gollmTools))
		promptOpts = append(promptOpts, gollm.WithToolChoice("auto"))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// parseToolCalls extracts tool calls the model embedded in its text.
// gollm returns tool calls as JSON in the response body; the accepted
// shapes are a bare array of {"name","arguments"} objects or an object
// wrapping one under "tool_calls".
func parseToolCalls(text string) []ToolCall {
	start := strings.Index(text, `[{"name"`)
	wrapped := false
	if start == -1 {
		start = strings.Index(text, `{"tool_calls"`)
		wrapped = start != -1
	}
	if start == -1 {
		return nil
	}

	var rawCalls []struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	remaining := text[start:]
	if wrapped {
		var envelope struct {
			ToolCalls []struct {
				Name      string          `json:"name"`
				Arguments json.RawMessage `json:"arguments"`
			} `json:"tool_calls"`
		}
		if err := json.Unmarshal([]byte(remaining), &envelope); err != nil {
			return nil
		}
		rawCalls = envelope.ToolCalls
	} else if err := json.Unmarshal([]byte(remaining), &rawCalls); err != nil {
		return nil
	}

	var calls []ToolCall
	for _, rc := range rawCalls {
		if rc.Name == "" {
			continue
		}
		args := rc.Arguments
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		calls = append(calls, ToolCall{
			ID:        "call_" + uuid.New().String()[:8],
			Name:      rc.Name,
			Arguments: args,
		})
	}
	return calls
}

// stripToolCallJSON removes the parsed tool-call JSON from the visible text.
func stripToolCallJSON(text string, calls []ToolCall) string {
	if len(calls) == 0 {
		return text
	}
	result := text
	for _, marker := range []string{`[{"name"`, `{"tool_calls"`} {
		if idx := strings.Index(result, marker); idx != -1 {
			result = result[:idx]
		}
	}
	return strings.TrimSpace(result)
}
