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

// defaultRemoteModel is sent when a record omits a model.
const defaultRemoteModel = "gpt-3.5-turbo"

// RemoteProvider speaks to an OpenAI-compatible chat completion API. A
// bearer credential is attached when configured; its absence is legal,
// since some deployments run unauthenticated.
type RemoteProvider struct {
	cfg    config.ProviderConfig
	client *http.Client
	log    zerolog.Logger
}

// NewRemoteProvider creates an authenticated-HTTP provider.
func NewRemoteProvider(cfg config.ProviderConfig) *RemoteProvider {
	return &RemoteProvider{
		cfg:    cfg,
		client: &http.Client{},
		log:    logging.For("provider." + cfg.Name),
	}
}

// Name returns the configured provider name.
func (p *RemoteProvider) Name() string { return p.cfg.Name }

// Kind returns config.TransportAuthHTTP.
func (p *RemoteProvider) Kind() config.TransportKind { return config.TransportAuthHTTP }

// Available probes the models endpoint.
func (p *RemoteProvider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout*time.Second)
	defer cancel()
	err := doJSON(ctx, p.client, http.MethodGet, joinURL(p.cfg.APIEndpoint, "/models"), p.headers(), nil, nil, p.cfg.Name, "models")
	return err == nil
}

// StartSession performs a reachability check against the API. No resource
// is held afterward.
func (p *RemoteProvider) StartSession(ctx context.Context) (*session.Session, error) {
	sess := session.New(p.cfg.Name)

	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout*time.Second)
	defer cancel()
	if err := doJSON(ctx, p.client, http.MethodGet, joinURL(p.cfg.APIEndpoint, "/models"), p.headers(), nil, nil, p.cfg.Name, "models"); err != nil {
		sess.SetStatus(session.StatusError)
		return sess, fmt.Errorf("%w: endpoint not reachable: %v", ErrStartFailed, err)
	}

	sess.SetStatus(session.StatusActive)
	p.log.Info().Str("session", sess.ID()).Str("endpoint", p.cfg.APIEndpoint).Msg("started remote session")
	return sess, nil
}

// SendMessage issues one chat completion request bounded by the configured
// timeout.
func (p *RemoteProvider) SendMessage(ctx context.Context, sess *session.Session, text string) (string, error) {
	if sess.Status() != session.StatusActive {
		return "", ErrSessionNotActive
	}

	model := p.cfg.Model
	if model == "" {
		model = defaultRemoteModel
	}
	payload := map[string]any{
		"model":    model,
		"messages": []map[string]string{{"role": "user", "content": text}},
		"stream":   false,
	}
	if p.cfg.MaxTokens > 0 {
		payload["max_tokens"] = p.cfg.MaxTokens
	}
	if p.cfg.Temperature != nil {
		payload["temperature"] = *p.cfg.Temperature
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Timeout)*time.Second)
	defer cancel()

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := doJSON(ctx, p.client, http.MethodPost, joinURL(p.cfg.APIEndpoint, "/chat/completions"), p.headers(), payload, &result, p.cfg.Name, "chat"); err != nil {
		if !errors.Is(err, ErrTimeout) && !errors.Is(err, context.Canceled) {
			sess.SetStatus(session.StatusError)
		}
		return "", err
	}
	if len(result.Choices) == 0 {
		sess.SetStatus(session.StatusError)
		return "", &TransportError{Provider: p.cfg.Name, Op: "chat", Err: errors.New("response contained no choices")}
	}

	reply := result.Choices[0].Message.Content
	sess.RecordExchange(text, reply)
	return reply, nil
}

// StopSession marks the session Inactive. The remote transport holds no
// persistent resource, so this cannot fail.
func (p *RemoteProvider) StopSession(ctx context.Context, sess *session.Session) bool {
	sess.SetStatus(session.StatusInactive)
	return true
}

func (p *RemoteProvider) headers() map[string]string {
	if p.cfg.APIKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}
}
