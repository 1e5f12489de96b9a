// Package config loads the wrapmesh configuration once at start-up from an
// optional YAML file, a .env file and the environment. The resulting Config
// is passed explicitly into constructors; there is no package level state.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvPrefix prefixes every environment override, e.g. WRAPMESH_AGENT_MAX_STEPS.
const EnvPrefix = "WRAPMESH"

// Supported completion providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config stores all configuration of the application.
type Config struct {
	Provider  string          `mapstructure:"provider"` // "openai" or "anthropic"
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Library   LibraryConfig   `mapstructure:"library"`
	Client    ClientConfig    `mapstructure:"client"`
	Schema    SchemaConfig    `mapstructure:"schema"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Log       LogConfig       `mapstructure:"log"`
}

// OpenAIConfig configures the OpenAI completion client.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"` // also read from OPENAI_API_KEY
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// AnthropicConfig configures the Anthropic completion client.
type AnthropicConfig struct {
	APIKey  string `mapstructure:"api_key"` // also read from ANTHROPIC_API_KEY
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// LibraryConfig selects the wrap library. A non-empty File takes precedence
// over URL.
type LibraryConfig struct {
	URL   string `mapstructure:"url"` // also read from WRAPS_LIBRARY_URL
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"` // reload File on change
}

// ClientConfig configures the wrap invocation gateway client.
type ClientConfig struct {
	Endpoint string            `mapstructure:"endpoint"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	Headers  map[string]string `mapstructure:"headers"`
}

// SchemaConfig configures schema loading.
type SchemaConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"` // 0 disables caching
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AgentConfig configures the conversation loop.
type AgentConfig struct {
	Name        string  `mapstructure:"name"`
	MaxSteps    int     `mapstructure:"max_steps"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int64   `mapstructure:"max_tokens"`   // 0 uses the provider default
	MaxParallel int     `mapstructure:"max_parallel"` // concurrent function calls per turn
}

// WorkspaceConfig configures the workspace sandbox.
type WorkspaceConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json, text
}

// LoadOptions configures Load.
type LoadOptions struct {
	// EnvFile is loaded into the environment when it exists. Variables
	// already set are not overridden.
	EnvFile string
}

// Load reads configuration from path (optional), the env file and the
// environment, in increasing order of precedence over the defaults.
func Load(path string, optFns ...func(o *LoadOptions)) (*Config, error) {
	opts := LoadOptions{EnvFile: ".env"}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.EnvFile != "" {
		if _, err := os.Stat(opts.EnvFile); err == nil {
			if err := gotenv.Load(opts.EnvFile); err != nil {
				return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
			}
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional variable names, after the prefixed ones.
	bindings := map[string][]string{
		"openai.api_key":     {"WRAPMESH_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"openai.base_url":    {"WRAPMESH_OPENAI_BASE_URL", "OPENAI_BASE_URL"},
		"anthropic.api_key":  {"WRAPMESH_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
		"anthropic.base_url": {"WRAPMESH_ANTHROPIC_BASE_URL", "ANTHROPIC_BASE_URL"},
		"library.url":        {"WRAPMESH_LIBRARY_URL", "WRAPS_LIBRARY_URL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderOpenAI)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-3-5-sonnet-20241022")

	v.SetDefault("library.url", "https://raw.githubusercontent.com/polywrap/agent-wrap-library/master/wraps")
	v.SetDefault("library.file", "")
	v.SetDefault("library.watch", false)

	v.SetDefault("client.endpoint", "http://127.0.0.1:8787/invoke")
	v.SetDefault("client.timeout", "30s")
	v.SetDefault("client.headers", map[string]string{})

	v.SetDefault("schema.cache_ttl", "0s") // no caching
	v.SetDefault("schema.timeout", "30s")

	v.SetDefault("agent.name", "wrapmesh")
	v.SetDefault("agent.max_steps", 10)
	v.SetDefault("agent.temperature", 0.0)
	v.SetDefault("agent.max_tokens", 0)
	v.SetDefault("agent.max_parallel", 4)

	v.SetDefault("workspace.dir", "workspace")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if c.Agent.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_steps must be positive, got %d", c.Agent.MaxSteps))
	}
	if c.Agent.MaxParallel < 0 {
		errs = append(errs, fmt.Errorf("agent.max_parallel must not be negative, got %d", c.Agent.MaxParallel))
	}
	if c.Schema.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("schema.cache_ttl must not be negative, got %s", c.Schema.CacheTTL))
	}
	switch c.Log.Format {
	case "console", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Library.File == "" && c.Library.URL == "" {
		errs = append(errs, errors.New("either library.file or library.url is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Model returns the model name of the selected provider.
func (c *Config) Model() string {
	if c.Provider == ProviderAnthropic {
		return c.Anthropic.Model
	}
	return c.OpenAI.Model
}
