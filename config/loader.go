package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sims1253/mcp-llm-bridge/types"
)

// Config is the complete bridge configuration.
type Config struct {
	// ConversationDir is the root of the conversation store.
	ConversationDir string `yaml:"conversation_dir"`
	// Adapters maps adapter name to its command spec.
	Adapters map[string]types.AdapterSpec `yaml:"adapters"`
	// DefaultAdapter is used when a call names no adapter.
	DefaultAdapter string `yaml:"default_adapter"`
	// DefaultSummarizationAdapter is the cheap adapter used by summarize.
	DefaultSummarizationAdapter string `yaml:"default_summarization_adapter"`
	// MaxSmartContextTokens bounds smart-mode context selection. Zero
	// disables the token bound.
	MaxSmartContextTokens int `yaml:"max_smart_context_tokens"`
	// TokenEncoding names the tiktoken encoding used for the bound.
	TokenEncoding string `yaml:"token_encoding"`

	Log LogConfig `yaml:"log"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format: json or console.
	Format string `yaml:"format"`
	// EnableCaller annotates log entries with file:line.
	EnableCaller bool `yaml:"enable_caller"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		ConversationDir:       filepath.Join(home, ".mcp-llm-bridge", "conversations"),
		Adapters:              map[string]types.AdapterSpec{},
		MaxSmartContextTokens: 0,
		TokenEncoding:         "cl100k_base",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Loader loads configuration with defaults, YAML file, and environment
// overrides, in that precedence order.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the MCPBRIDGE env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "MCPBRIDGE"}
}

// WithConfigPath sets the YAML file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a config validator.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	l.loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file falls back to defaults.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) {
	if v := l.env("CONVERSATION_DIR"); v != "" {
		cfg.ConversationDir = v
	}
	if v := l.env("DEFAULT_ADAPTER"); v != "" {
		cfg.DefaultAdapter = v
	}
	if v := l.env("DEFAULT_SUMMARIZATION_ADAPTER"); v != "" {
		cfg.DefaultSummarizationAdapter = v
	}
	if v := l.env("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := l.env("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func (l *Loader) env(key string) string {
	return os.Getenv(l.envPrefix + "_" + key)
}

// Validate checks the loaded configuration for internal consistency.
func (c *Config) Validate() error {
	var errs []string

	if c.ConversationDir == "" {
		errs = append(errs, "conversation_dir must not be empty")
	}
	for name, spec := range c.Adapters {
		if spec.Command == "" {
			errs = append(errs, fmt.Sprintf("adapter %s has no command", name))
		}
		if spec.TimeoutSeconds < 0 {
			errs = append(errs, fmt.Sprintf("adapter %s has negative timeout", name))
		}
	}
	if c.DefaultAdapter != "" {
		if _, ok := c.Adapters[c.DefaultAdapter]; !ok {
			errs = append(errs, fmt.Sprintf("default adapter %s is not configured", c.DefaultAdapter))
		}
	}
	if c.DefaultSummarizationAdapter != "" {
		if _, ok := c.Adapters[c.DefaultSummarizationAdapter]; !ok {
			errs = append(errs, fmt.Sprintf("default summarization adapter %s is not configured", c.DefaultSummarizationAdapter))
		}
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// WriteDefault writes an example configuration with a single echo adapter
// to path, creating parent directories. Used on first run when no config
// file exists yet.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	cfg.Adapters = map[string]types.AdapterSpec{
		"example-echo": {
			Command:        "echo",
			Args:           []string{"Example adapter - configure with your actual LLM CLI"},
			InputMethod:    types.InputStdin,
			TimeoutSeconds: 30,
			Description:    "Example adapter - edit this config file",
		},
	}
	cfg.DefaultAdapter = "example-echo"
	cfg.DefaultSummarizationAdapter = "example-echo"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
