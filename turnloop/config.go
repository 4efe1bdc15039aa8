package turnloop

// Config holds tunables for the loop and its built-in tools.
type Config struct {
	// DefaultCommandTimeoutMs bounds a shell invocation that does not
	// request its own timeout.
	DefaultCommandTimeoutMs int `json:"default_command_timeout_ms"`
	// MaxCommandTimeoutMs caps any requested shell timeout.
	MaxCommandTimeoutMs int `json:"max_command_timeout_ms"`
	// UserInstructions is appended to the system prompt when non-empty.
	UserInstructions string `json:"user_instructions,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultCommandTimeoutMs: 10000,  // 10 seconds
		MaxCommandTimeoutMs:     600000, // 10 minutes
	}
}
