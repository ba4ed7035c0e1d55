// Package config resolves client settings from defaults, a YAML file, a
// .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/toolgate/gateway-client/src/adk"
	"github.com/toolgate/gateway-client/src/headers"
)

// Environment variable names.
const (
	EnvGatewayURL    = "MCP_GATEWAY_URL"
	EnvTimeout       = "GATEWAY_TIMEOUT"
	EnvTenantID      = "GATEWAY_TENANT_ID"
	EnvActorID       = "GATEWAY_ACTOR_ID"
	EnvScopes        = "GATEWAY_SCOPES"
	EnvLLMProvider   = "LLM_PROVIDER"
	EnvLLMModel      = "LLM_MODEL"
	EnvLLMAPIKey     = "LLM_API_KEY"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	EnvLLMBaseURL    = "LLM_BASE_URL"
	EnvMaxIterations = "AGENT_MAX_ITERATIONS"
	EnvProtocol      = "AGENT_PROTOCOL"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogFormat     = "LOG_FORMAT"
)

// Defaults.
const (
	DefaultGatewayURL = "http://localhost:8000/mcp"
	DefaultTimeout    = 10 * time.Second
	DefaultScopes     = "read:greetings,customers:read,math:execute,text:transform"
	DefaultFile       = "gatewayctl.yaml"
	DefaultEnvFile    = ".env"
)

// Config is the fully resolved client configuration.
type Config struct {
	GatewayURL string        `yaml:"gateway_url"`
	Timeout    time.Duration `yaml:"timeout"`
	TenantID   string        `yaml:"tenant_id"`
	ActorID    string        `yaml:"actor_id"`
	Scopes     string        `yaml:"scopes"`
	LLM        LLMConfig     `yaml:"llm"`
	Agent      AgentConfig   `yaml:"agent"`
	Log        LogConfig     `yaml:"log"`
}

// LLMConfig selects the model provider for the chat agent.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	MaxIterations int    `yaml:"max_iterations"`
	Protocol      string `yaml:"protocol"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		GatewayURL: DefaultGatewayURL,
		Timeout:    DefaultTimeout,
		Scopes:     DefaultScopes,
		LLM:        LLMConfig{Provider: adk.ProviderOpenAI},
		Agent:      AgentConfig{MaxIterations: adk.DefaultMaxIterations, Protocol: adk.ProtocolJSON},
		Log:        LogConfig{Level: "warn", Format: "text"},
	}
}

// LoadOptions name the files Load reads.
type LoadOptions struct {
	// File is a YAML config file. Empty means DefaultFile, which may be
	// absent; an explicit path must exist.
	File string
	// EnvFile is a .env file. Empty means DefaultEnvFile. A missing file is
	// ignored.
	EnvFile string
	// Environ overrides the process environment source.
	Environ VariablesConfig
}

// Load resolves the configuration. Flags are applied afterwards by the
// caller.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	file, explicit := opts.File, opts.File != ""
	if !explicit {
		file = DefaultFile
	}
	if err := cfg.MergeFile(file); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	environ := opts.Environ
	if environ == nil {
		environ = Environ{}
	}
	dotenv := NewDotEnv(envFile)
	dotenv.Optional = true
	vars, err := Merge(dotenv, environ)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyVariables(vars); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile overlays the values present in a YAML file.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ApplyVariables overlays environment style variables.
func (c *Config) ApplyVariables(vars map[string]string) error {
	set := func(key string, dst *string) {
		if v, ok := vars[key]; ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvGatewayURL, &c.GatewayURL)
	set(EnvTenantID, &c.TenantID)
	set(EnvActorID, &c.ActorID)
	if v, ok := vars[EnvScopes]; ok {
		c.Scopes = v
	}
	set(EnvLLMProvider, &c.LLM.Provider)
	set(EnvLLMModel, &c.LLM.Model)
	set(EnvLLMBaseURL, &c.LLM.BaseURL)
	set(EnvProtocol, &c.Agent.Protocol)
	set(EnvLogLevel, &c.Log.Level)
	set(EnvLogFormat, &c.Log.Format)

	switch strings.ToLower(c.LLM.Provider) {
	case adk.ProviderOpenAI:
		set(EnvOpenAIAPIKey, &c.LLM.APIKey)
	case adk.ProviderGemini:
		set(EnvGeminiAPIKey, &c.LLM.APIKey)
	}
	set(EnvLLMAPIKey, &c.LLM.APIKey)

	if v, ok := vars[EnvTimeout]; ok && strings.TrimSpace(v) != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v, ok := vars[EnvMaxIterations]; ok && strings.TrimSpace(v) != "" {
		n, err := cast.ToIntE(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxIterations, err)
		}
		c.Agent.MaxIterations = n
	}
	return nil
}

// ParseTimeout accepts a Go duration ("2m", "1.5s") or a plain number of
// seconds.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := cast.ToFloat64E(s); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.GatewayURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid gateway url %q", c.GatewayURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent max iterations must be at least 1, got %d", c.Agent.MaxIterations)
	}
	if _, ok := adk.ProtocolByName(c.Agent.Protocol); !ok {
		return fmt.Errorf("unknown agent protocol %q", c.Agent.Protocol)
	}
	switch strings.ToLower(c.LLM.Provider) {
	case adk.ProviderOpenAI, adk.ProviderGemini, adk.ProviderOllama:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	return nil
}

// HeaderFields returns the header inputs.
func (c *Config) HeaderFields() headers.Fields {
	return headers.Fields{TenantID: c.TenantID, ActorID: c.ActorID, Scopes: c.Scopes}
}

// ProviderConfig returns the model provider settings.
func (c *Config) ProviderConfig() adk.ProviderConfig {
	return adk.ProviderConfig{
		Provider: c.LLM.Provider,
		Model:    c.LLM.Model,
		APIKey:   c.LLM.APIKey,
		BaseURL:  c.LLM.BaseURL,
	}
}
