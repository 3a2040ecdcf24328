// Package provider implements the transport-specific backends behind the
// orchestrator: an interactive subprocess with line-based stdio, an
// unauthenticated local HTTP daemon, an authenticated HTTP API, and an
// extension point for custom transports.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/conductor-ai/conductor/internal/config"
	"github.com/conductor-ai/conductor/internal/session"
)

// availabilityTimeout bounds the cheap liveness probe every variant runs
// before a session is started.
const availabilityTimeout = 5 // seconds

// Provider is one configured backend plus the logic to speak its transport.
type Provider interface {
	// Name returns the configured provider name.
	Name() string

	// Kind returns the transport kind.
	Kind() config.TransportKind

	// Available reports whether the backend responds to a cheap probe.
	// It completes within a short bound and never returns an error;
	// failures collapse to false.
	Available(ctx context.Context) bool

	// StartSession establishes the transport and returns a session in
	// Active status. On failure the returned session is in Error status
	// and the error wraps ErrStartFailed.
	StartSession(ctx context.Context) (*session.Session, error)

	// SendMessage performs exactly one round trip on an Active session.
	// On success both conversation turns are appended to the session log.
	// A timeout leaves the session Active with its log unchanged.
	SendMessage(ctx context.Context, sess *session.Session, text string) (string, error)

	// StopSession releases the transport and marks the session Inactive.
	// It returns false only when a held resource could not be released.
	StopSession(ctx context.Context, sess *session.Session) bool
}

// Factory builds a provider from a validated configuration record.
type Factory func(cfg config.ProviderConfig) (Provider, error)

var (
	factoryMu sync.RWMutex
	factories = map[config.TransportKind]Factory{
		config.TransportCLI:       func(cfg config.ProviderConfig) (Provider, error) { return NewCLIProvider(cfg), nil },
		config.TransportLocalHTTP: func(cfg config.ProviderConfig) (Provider, error) { return NewDaemonProvider(cfg), nil },
		config.TransportAuthHTTP:  func(cfg config.ProviderConfig) (Provider, error) { return NewRemoteProvider(cfg), nil },
	}
)

// Register installs a factory for a transport kind. Hosts use it to plug in
// custom transports under config.TransportCustom or an entirely new kind.
func Register(kind config.TransportKind, f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[kind] = f
}

// New builds the provider for a configuration record.
func New(cfg config.ProviderConfig) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factoryMu.RLock()
	f, ok := factories[cfg.Type]
	factoryMu.RUnlock()
	if !ok {
		return nil, &config.ConfigError{Name: cfg.Name, Reason: fmt.Sprintf("no factory registered for transport kind %q", cfg.Type)}
	}
	return f(cfg)
}
