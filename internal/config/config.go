// Package config defines provider configuration records and their loading
// and validation rules.
package config

import (
	"fmt"
)

// TransportKind identifies how a provider is reached.
type TransportKind string

const (
	// TransportCLI is an interactive subprocess with line-based stdio.
	TransportCLI TransportKind = "cli-subprocess"
	// TransportLocalHTTP is an unauthenticated local model-serving daemon.
	TransportLocalHTTP TransportKind = "local-http-api"
	// TransportAuthHTTP is a remote HTTP API with optional bearer auth.
	TransportAuthHTTP TransportKind = "authenticated-http-api"
	// TransportCustom is an extension point resolved through a registered
	// provider factory.
	TransportCustom TransportKind = "custom"
)

// DefaultTimeout is the request timeout applied when a record omits one.
const DefaultTimeout = 30

// ProviderConfig describes one configured backend. Records are immutable
// after Load returns them.
type ProviderConfig struct {
	Name           string            `json:"name" yaml:"name"`
	Type           TransportKind     `json:"provider_type" yaml:"provider_type"`
	Command        string            `json:"command,omitempty" yaml:"command,omitempty"`
	APIEndpoint    string            `json:"api_endpoint,omitempty" yaml:"api_endpoint,omitempty"`
	APIKey         string            `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model          string            `json:"model,omitempty" yaml:"model,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Timeout        int               `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	EnvVars        map[string]string `json:"env_vars,omitempty" yaml:"env_vars,omitempty"`
	AdditionalArgs []string          `json:"additional_args,omitempty" yaml:"additional_args,omitempty"`
}

// ConfigError reports a malformed or incomplete provider record. One bad
// record does not abort loading the others.
type ConfigError struct {
	Name   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid provider config: %s", e.Reason)
	}
	return fmt.Sprintf("invalid provider config %q: %s", e.Name, e.Reason)
}

// Validate enforces the kind-dependent field requirements. The transport
// kind determines which of command/endpoint are mandatory; credentials are
// never mandatory.
func (c *ProviderConfig) Validate() error {
	if c.Name == "" {
		return &ConfigError{Reason: "name is required"}
	}
	switch c.Type {
	case TransportCLI:
		if c.Command == "" {
			return &ConfigError{Name: c.Name, Reason: "cli-subprocess providers require a command"}
		}
	case TransportLocalHTTP, TransportAuthHTTP:
		if c.APIEndpoint == "" {
			return &ConfigError{Name: c.Name, Reason: fmt.Sprintf("%s providers require an api_endpoint", c.Type)}
		}
	case TransportCustom:
		// Custom factories validate their own requirements.
	case "":
		return &ConfigError{Name: c.Name, Reason: "provider_type is required"}
	default:
		return &ConfigError{Name: c.Name, Reason: fmt.Sprintf("unknown provider_type %q", c.Type)}
	}
	if c.Timeout < 0 {
		return &ConfigError{Name: c.Name, Reason: "timeout must be non-negative"}
	}
	return nil
}

// ApplyDefaults fills unset tunables.
func (c *ProviderConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Defaults returns the documented example set covering each transport kind.
// It is written to disk when no provider file exists.
func Defaults() []ProviderConfig {
	temp := 0.7
	return []ProviderConfig{
		{
			Name:        "gemini",
			Type:        TransportCLI,
			Command:     "gemini",
			Model:       "gemini-pro",
			MaxTokens:   2048,
			Temperature: &temp,
			Timeout:     DefaultTimeout,
		},
		{
			Name:        "ollama",
			Type:        TransportLocalHTTP,
			APIEndpoint: "http://localhost:11434",
			Model:       "llama2",
			MaxTokens:   2048,
			Temperature: &temp,
			Timeout:     DefaultTimeout,
		},
		{
			Name:      "copilot",
			Type:      TransportCLI,
			Command:   "copilot",
			MaxTokens: 2048,
			Timeout:   DefaultTimeout,
		},
		{
			Name:        "qwen",
			Type:        TransportAuthHTTP,
			APIEndpoint: "http://localhost:8000/v1",
			APIKey:      "your-api-key",
			Model:       "qwen-coder",
			MaxTokens:   2048,
			Temperature: &temp,
			Timeout:     DefaultTimeout,
		},
	}
}
