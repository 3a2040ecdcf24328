// Package orchestrator is the single entry point for session operations:
// it maps provider names to providers, session ids to sessions, and fans
// one message out across several providers at once.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/conductor-ai/conductor/internal/config"
	"github.com/conductor-ai/conductor/internal/logging"
	"github.com/conductor-ai/conductor/internal/provider"
	"github.com/conductor-ai/conductor/internal/session"
)

var (
	// ErrUnknownProvider means the named provider is not registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnknownSession means the session id is not in the registry.
	ErrUnknownSession = errors.New("unknown session")
)

// Orchestrator owns the provider and session registries. Registry maps are
// guarded by a mutex scoped to single map operations; the lock is never
// held across a transport wait.
type Orchestrator struct {
	mu        sync.RWMutex
	providers map[string]provider.Provider
	configs   map[string]config.ProviderConfig
	sessions  map[string]*session.Session
	log       zerolog.Logger
}

// New builds an orchestrator from configuration records. A record whose
// provider cannot be constructed is skipped and logged; it does not abort
// the others.
func New(cfgs []config.ProviderConfig) *Orchestrator {
	o := &Orchestrator{
		providers: make(map[string]provider.Provider),
		configs:   make(map[string]config.ProviderConfig),
		sessions:  make(map[string]*session.Session),
		log:       logging.For("orchestrator"),
	}
	o.register(cfgs)
	return o
}

func (o *Orchestrator) register(cfgs []config.ProviderConfig) {
	for _, cfg := range cfgs {
		p, err := provider.New(cfg)
		if err != nil {
			o.log.Error().Str("provider", cfg.Name).Err(err).Msg("skipping provider")
			continue
		}
		o.mu.Lock()
		o.providers[cfg.Name] = p
		o.configs[cfg.Name] = cfg
		o.mu.Unlock()
	}
	o.log.Info().Int("providers", len(o.ListProviders())).Msg("provider registry loaded")
}

// StartSession starts a fresh session with the named provider and registers
// it. The availability probe runs synchronously immediately before the
// start attempt.
func (o *Orchestrator) StartSession(ctx context.Context, providerName string) (string, error) {
	p, err := o.provider(providerName)
	if err != nil {
		return "", err
	}
	if !p.Available(ctx) {
		return "", fmt.Errorf("%w: %s", provider.ErrUnavailable, providerName)
	}

	sess, err := p.StartSession(ctx)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	o.sessions[sess.ID()] = sess
	o.mu.Unlock()

	o.log.Info().Str("session", sess.ID()).Str("provider", providerName).Msg("session started")
	return sess.ID(), nil
}

// SendMessage delegates one message to the session's owning provider.
func (o *Orchestrator) SendMessage(ctx context.Context, sessionID, text string) (string, error) {
	sess, p, err := o.sessionAndOwner(sessionID)
	if err != nil {
		return "", err
	}
	return p.SendMessage(ctx, sess, text)
}

// StopSession stops a session and removes it from the registry. Stopping
// an unknown or already-stopped session returns false without error, so
// cleanup code can run idempotently.
func (o *Orchestrator) StopSession(ctx context.Context, sessionID string) bool {
	sess, p, err := o.sessionAndOwner(sessionID)
	if err != nil {
		return false
	}

	if !p.StopSession(ctx, sess) {
		return false
	}

	o.mu.Lock()
	delete(o.sessions, sessionID)
	o.mu.Unlock()

	o.log.Info().Str("session", sessionID).Msg("session stopped")
	return true
}

// StopAllSessions stops every registered session independently and returns
// the count of successful stops. One failure does not abort the remainder.
func (o *Orchestrator) StopAllSessions(ctx context.Context) int {
	o.mu.RLock()
	ids := make([]string, 0, len(o.sessions))
	for id := range o.sessions {
		ids = append(ids, id)
	}
	o.mu.RUnlock()

	stopped := 0
	for _, id := range ids {
		if o.StopSession(ctx, id) {
			stopped++
		}
	}
	o.log.Info().Int("stopped", stopped).Msg("stopped all sessions")
	return stopped
}

// ListProviders returns the registered provider names, sorted.
func (o *Orchestrator) ListProviders() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.providers))
	for name := range o.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListSessions returns a snapshot view of every registered session.
func (o *Orchestrator) ListSessions() []session.Info {
	o.mu.RLock()
	sessions := make([]*session.Session, 0, len(o.sessions))
	for _, sess := range o.sessions {
		sessions = append(sessions, sess)
	}
	o.mu.RUnlock()

	infos := make([]session.Info, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos
}

// SessionHistory returns a copy of a session's conversation log in call
// order.
func (o *Orchestrator) SessionHistory(sessionID string) ([]session.Turn, error) {
	o.mu.RLock()
	sess, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return sess.History(), nil
}

// Configs returns the configuration records behind the registered
// providers, sorted by name. The records include credentials; callers
// exposing them externally must redact.
func (o *Orchestrator) Configs() []config.ProviderConfig {
	o.mu.RLock()
	cfgs := make([]config.ProviderConfig, 0, len(o.configs))
	for _, cfg := range o.configs {
		cfgs = append(cfgs, cfg)
	}
	o.mu.RUnlock()

	sort.Slice(cfgs, func(i, j int) bool { return cfgs[i].Name < cfgs[j].Name })
	return cfgs
}

// ProviderStatus describes one provider and its probed availability.
type ProviderStatus struct {
	Name      string               `json:"name"`
	Kind      config.TransportKind `json:"kind"`
	Available bool                 `json:"available"`
}

// ProviderStatuses probes every registered provider concurrently and
// returns name, kind, and availability, sorted by name.
func (o *Orchestrator) ProviderStatuses(ctx context.Context) []ProviderStatus {
	o.mu.RLock()
	providers := make([]provider.Provider, 0, len(o.providers))
	for _, p := range o.providers {
		providers = append(providers, p)
	}
	o.mu.RUnlock()

	statuses := make([]ProviderStatus, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			statuses[i] = ProviderStatus{Name: p.Name(), Kind: p.Kind(), Available: p.Available(ctx)}
		}(i, p)
	}
	wg.Wait()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// Reload replaces the provider registry with the given records. Sessions
// owned by a provider that is no longer registered are stopped first, so
// every live session keeps a resolvable owner.
func (o *Orchestrator) Reload(ctx context.Context, cfgs []config.ProviderConfig) {
	next := make(map[string]provider.Provider, len(cfgs))
	nextCfgs := make(map[string]config.ProviderConfig, len(cfgs))
	for _, cfg := range cfgs {
		p, err := provider.New(cfg)
		if err != nil {
			o.log.Error().Str("provider", cfg.Name).Err(err).Msg("skipping provider on reload")
			continue
		}
		next[cfg.Name] = p
		nextCfgs[cfg.Name] = cfg
	}

	o.mu.RLock()
	var orphaned []string
	for id, sess := range o.sessions {
		if _, ok := next[sess.Provider()]; !ok {
			orphaned = append(orphaned, id)
		}
	}
	o.mu.RUnlock()

	for _, id := range orphaned {
		o.StopSession(ctx, id)
	}

	o.mu.Lock()
	o.providers = next
	o.configs = nextCfgs
	o.mu.Unlock()

	o.log.Info().Int("providers", len(next)).Int("orphaned_sessions", len(orphaned)).Msg("provider registry reloaded")
}

func (o *Orchestrator) provider(name string) (provider.Provider, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

func (o *Orchestrator) sessionAndOwner(sessionID string) (*session.Session, provider.Provider, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	sess, ok := o.sessions[sessionID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	p, ok := o.providers[sess.Provider()]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownProvider, sess.Provider())
	}
	return sess, p, nil
}
