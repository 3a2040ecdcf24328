package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/conductor-ai/conductor/internal/config"
	"github.com/conductor-ai/conductor/internal/logging"
	"github.com/conductor-ai/conductor/internal/session"
)

// DaemonProvider speaks to a local model-serving daemon over its
// unauthenticated HTTP API (Ollama wire shapes). Sessions are stateless:
// no resource is held between calls.
type DaemonProvider struct {
	cfg    config.ProviderConfig
	client *http.Client
	log    zerolog.Logger
}

// NewDaemonProvider creates a local-daemon-backed provider.
func NewDaemonProvider(cfg config.ProviderConfig) *DaemonProvider {
	return &DaemonProvider{
		cfg:    cfg,
		client: &http.Client{},
		log:    logging.For("provider." + cfg.Name),
	}
}

// Name returns the configured provider name.
func (p *DaemonProvider) Name() string { return p.cfg.Name }

// Kind returns config.TransportLocalHTTP.
func (p *DaemonProvider) Kind() config.TransportKind { return config.TransportLocalHTTP }

// Available probes the daemon's version endpoint.
func (p *DaemonProvider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout*time.Second)
	defer cancel()
	err := doJSON(ctx, p.client, http.MethodGet, joinURL(p.cfg.APIEndpoint, "/api/version"), nil, nil, nil, p.cfg.Name, "version")
	return err == nil
}

// StartSession verifies the configured model appears in the daemon's model
// catalog. A missing model is a hard failure, not a warning.
func (p *DaemonProvider) StartSession(ctx context.Context) (*session.Session, error) {
	sess := session.New(p.cfg.Name)

	if p.cfg.Model == "" {
		sess.SetStatus(session.StatusError)
		return sess, fmt.Errorf("%w: no model configured for %s", ErrStartFailed, p.cfg.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout*time.Second)
	defer cancel()

	var catalog struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := doJSON(ctx, p.client, http.MethodGet, joinURL(p.cfg.APIEndpoint, "/api/tags"), nil, nil, &catalog, p.cfg.Name, "tags"); err != nil {
		sess.SetStatus(session.StatusError)
		return sess, fmt.Errorf("%w: listing models: %v", ErrStartFailed, err)
	}

	found := false
	for _, m := range catalog.Models {
		if m.Name == p.cfg.Model {
			found = true
			break
		}
	}
	if !found {
		sess.SetStatus(session.StatusError)
		return sess, fmt.Errorf("%w: model %q not available", ErrStartFailed, p.cfg.Model)
	}

	sess.SetStatus(session.StatusActive)
	p.log.Info().Str("session", sess.ID()).Str("model", p.cfg.Model).Msg("started daemon session")
	return sess, nil
}

// SendMessage issues one generate request bounded by the configured
// timeout.
func (p *DaemonProvider) SendMessage(ctx context.Context, sess *session.Session, text string) (string, error) {
	if sess.Status() != session.StatusActive {
		return "", ErrSessionNotActive
	}

	payload := map[string]any{
		"model":  p.cfg.Model,
		"prompt": text,
		"stream": false,
	}
	options := map[string]any{}
	if p.cfg.MaxTokens > 0 {
		options["num_predict"] = p.cfg.MaxTokens
	}
	if p.cfg.Temperature != nil {
		options["temperature"] = *p.cfg.Temperature
	}
	if len(options) > 0 {
		payload["options"] = options
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Timeout)*time.Second)
	defer cancel()

	var result struct {
		Response string `json:"response"`
	}
	if err := doJSON(ctx, p.client, http.MethodPost, joinURL(p.cfg.APIEndpoint, "/api/generate"), nil, payload, &result, p.cfg.Name, "generate"); err != nil {
		if !errors.Is(err, ErrTimeout) && !errors.Is(err, context.Canceled) {
			sess.SetStatus(session.StatusError)
		}
		return "", err
	}

	sess.RecordExchange(text, result.Response)
	return result.Response, nil
}

// StopSession marks the session Inactive. The daemon transport holds no
// persistent resource, so this cannot fail.
func (p *DaemonProvider) StopSession(ctx context.Context, sess *session.Session) bool {
	sess.SetStatus(session.StatusInactive)
	return true
}
