package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/conductor-ai/conductor/internal/config"
	"github.com/conductor-ai/conductor/internal/orchestrator"
	"github.com/conductor-ai/conductor/internal/provider"
	"github.com/conductor-ai/conductor/internal/server"
	"github.com/conductor-ai/conductor/internal/session"
)

// stubProvider is an in-memory transport the suite scripts per test case.
type stubProvider struct {
	name        string
	unavailable bool
	sendErr     error
	reply       string
}

func (p *stubProvider) Name() string                       { return p.name }
func (p *stubProvider) Kind() config.TransportKind         { return config.TransportCustom }
func (p *stubProvider) Available(ctx context.Context) bool { return !p.unavailable }

func (p *stubProvider) StartSession(ctx context.Context) (*session.Session, error) {
	sess := session.New(p.name)
	if p.unavailable {
		sess.SetStatus(session.StatusError)
		return sess, provider.ErrStartFailed
	}
	sess.SetStatus(session.StatusActive)
	return sess, nil
}

func (p *stubProvider) SendMessage(ctx context.Context, sess *session.Session, text string) (string, error) {
	if sess.Status() != session.StatusActive {
		return "", provider.ErrSessionNotActive
	}
	if p.sendErr != nil {
		return "", p.sendErr
	}
	sess.RecordExchange(text, p.reply)
	return p.reply, nil
}

func (p *stubProvider) StopSession(ctx context.Context, sess *session.Session) bool {
	sess.SetStatus(session.StatusInactive)
	return true
}

var (
	stubsMu sync.Mutex
	stubs   = map[string]*stubProvider{}
)

var _ = BeforeSuite(func() {
	provider.Register(config.TransportCustom, func(cfg config.ProviderConfig) (provider.Provider, error) {
		stubsMu.Lock()
		defer stubsMu.Unlock()
		if p, ok := stubs[cfg.Name]; ok {
			return p, nil
		}
		return &stubProvider{name: cfg.Name, reply: "ok"}, nil
	})
})

func installStubs(providers ...*stubProvider) []config.ProviderConfig {
	stubsMu.Lock()
	defer stubsMu.Unlock()
	cfgs := make([]config.ProviderConfig, 0, len(providers))
	for _, p := range providers {
		stubs[p.name] = p
		cfgs = append(cfgs, config.ProviderConfig{Name: p.name, Type: config.TransportCustom, Timeout: 5})
	}
	return cfgs
}

func postJSON(url string, body any) *http.Response {
	buf, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func doDelete(url string) *http.Response {
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	Expect(err).NotTo(HaveOccurred())
	resp, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func decode(resp *http.Response, into any) {
	defer resp.Body.Close()
	Expect(json.NewDecoder(resp.Body).Decode(into)).To(Succeed())
}

var _ = Describe("API", func() {
	var (
		orch *orchestrator.Orchestrator
		ts   *httptest.Server
	)

	newServer := func(providers ...*stubProvider) {
		orch = orchestrator.New(installStubs(providers...))
		srv := server.New(server.DefaultConfig(), orch)
		ts = httptest.NewServer(srv.Handler())
		DeferCleanup(ts.Close)
	}

	startSession := func(providerName string) string {
		resp := postJSON(ts.URL+"/api/sessions", map[string]string{"provider": providerName})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		var body struct {
			SessionID string `json:"session_id"`
		}
		decode(resp, &body)
		Expect(body.SessionID).NotTo(BeEmpty())
		return body.SessionID
	}

	Describe("GET /api/providers", func() {
		It("reports each provider with its availability", func() {
			newServer(
				&stubProvider{name: "alpha"},
				&stubProvider{name: "omega", unavailable: true},
			)

			resp, err := http.Get(ts.URL + "/api/providers")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Providers []orchestrator.ProviderStatus `json:"providers"`
			}
			decode(resp, &body)
			Expect(body.Providers).To(HaveLen(2))
			Expect(body.Providers[0].Name).To(Equal("alpha"))
			Expect(body.Providers[0].Available).To(BeTrue())
			Expect(body.Providers[1].Name).To(Equal("omega"))
			Expect(body.Providers[1].Available).To(BeFalse())
		})
	})

	Describe("POST /api/sessions", func() {
		It("starts a session and lists it", func() {
			newServer(&stubProvider{name: "alpha"})
			id := startSession("alpha")

			resp, err := http.Get(ts.URL + "/api/sessions")
			Expect(err).NotTo(HaveOccurred())
			var body struct {
				Sessions []session.Info `json:"sessions"`
			}
			decode(resp, &body)
			Expect(body.Sessions).To(HaveLen(1))
			Expect(body.Sessions[0].SessionID).To(Equal(id))
			Expect(body.Sessions[0].Status).To(Equal(session.StatusActive))
		})

		It("rejects a request without a provider name", func() {
			newServer()
			resp := postJSON(ts.URL+"/api/sessions", map[string]string{})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown provider", func() {
			newServer()
			resp := postJSON(ts.URL+"/api/sessions", map[string]string{"provider": "phantom"})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns 503 when the provider is unavailable", func() {
			newServer(&stubProvider{name: "down", unavailable: true})
			resp := postJSON(ts.URL+"/api/sessions", map[string]string{"provider": "down"})
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("POST /api/sessions/{id}/messages", func() {
		It("round-trips a message", func() {
			newServer(&stubProvider{name: "alpha", reply: "pong"})
			id := startSession("alpha")

			resp := postJSON(fmt.Sprintf("%s/api/sessions/%s/messages", ts.URL, id), map[string]string{"message": "ping"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body struct {
				Response string `json:"response"`
			}
			decode(resp, &body)
			Expect(body.Response).To(Equal("pong"))
		})

		It("returns 404 for an unknown session", func() {
			newServer(&stubProvider{name: "alpha"})
			resp := postJSON(ts.URL+"/api/sessions/no-such-id/messages", map[string]string{"message": "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns 504 when the provider times out", func() {
			newServer(&stubProvider{name: "slow", sendErr: provider.ErrTimeout})
			id := startSession("slow")

			resp := postJSON(fmt.Sprintf("%s/api/sessions/%s/messages", ts.URL, id), map[string]string{"message": "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusGatewayTimeout))
		})

		It("returns 502 on a transport failure", func() {
			newServer(&stubProvider{name: "flaky", sendErr: &provider.TransportError{Provider: "flaky", Op: "generate", Status: 500}})
			id := startSession("flaky")

			resp := postJSON(fmt.Sprintf("%s/api/sessions/%s/messages", ts.URL, id), map[string]string{"message": "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})

		It("rejects an empty message", func() {
			newServer(&stubProvider{name: "alpha"})
			id := startSession("alpha")

			resp := postJSON(fmt.Sprintf("%s/api/sessions/%s/messages", ts.URL, id), map[string]string{})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/sessions/{id}/history", func() {
		It("returns turns in call order", func() {
			newServer(&stubProvider{name: "alpha", reply: "r"})
			id := startSession("alpha")

			for i := 0; i < 2; i++ {
				resp := postJSON(fmt.Sprintf("%s/api/sessions/%s/messages", ts.URL, id), map[string]string{"message": "m"})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			}

			resp, err := http.Get(fmt.Sprintf("%s/api/sessions/%s/history", ts.URL, id))
			Expect(err).NotTo(HaveOccurred())
			var body struct {
				History []session.Turn `json:"history"`
			}
			decode(resp, &body)
			Expect(body.History).To(HaveLen(4))
			Expect(body.History[0].Role).To(Equal(session.RoleUser))
			Expect(body.History[1].Role).To(Equal(session.RoleAssistant))
		})

		It("returns 404 for an unknown session", func() {
			newServer()
			resp, err := http.Get(ts.URL + "/api/sessions/ghost/history")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /api/sessions/{id}", func() {
		It("stops the session and reports the outcome", func() {
			newServer(&stubProvider{name: "alpha"})
			id := startSession("alpha")

			resp := doDelete(fmt.Sprintf("%s/api/sessions/%s", ts.URL, id))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body struct {
				Stopped bool `json:"stopped"`
			}
			decode(resp, &body)
			Expect(body.Stopped).To(BeTrue())

			resp = doDelete(fmt.Sprintf("%s/api/sessions/%s", ts.URL, id))
			decode(resp, &body)
			Expect(body.Stopped).To(BeFalse())
		})
	})

	Describe("DELETE /api/sessions", func() {
		It("stops every session and returns the count", func() {
			newServer(&stubProvider{name: "alpha"}, &stubProvider{name: "beta"})
			startSession("alpha")
			startSession("beta")

			resp := doDelete(ts.URL + "/api/sessions")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body struct {
				Stopped int `json:"stopped"`
			}
			decode(resp, &body)
			Expect(body.Stopped).To(Equal(2))
			Expect(orch.ListSessions()).To(BeEmpty())
		})
	})

	Describe("GET /api/config", func() {
		It("returns the loaded records with credentials redacted", func() {
			newServer()
			resp := postJSON(ts.URL+"/api/config", []map[string]any{
				{"name": "qwen", "provider_type": "custom", "api_key": "sk-secret"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, err := http.Get(ts.URL + "/api/config")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Providers []config.ProviderConfig `json:"providers"`
			}
			decode(resp, &body)
			Expect(body.Providers).To(HaveLen(1))
			Expect(body.Providers[0].Name).To(Equal("qwen"))
			Expect(body.Providers[0].APIKey).To(BeEmpty())
		})
	})

	Describe("POST /api/config", func() {
		It("replaces the provider registry", func() {
			newServer(&stubProvider{name: "alpha"})

			resp := postJSON(ts.URL+"/api/config", []map[string]any{
				{"name": "alpha", "provider_type": "custom"},
				{"name": "beta", "provider_type": "custom"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Providers []string `json:"providers"`
				Errors    []string `json:"errors"`
			}
			decode(resp, &body)
			Expect(body.Providers).To(Equal([]string{"alpha", "beta"}))
			Expect(body.Errors).To(BeEmpty())
		})

		It("reports invalid records and loads the rest", func() {
			newServer(&stubProvider{name: "alpha"})

			resp := postJSON(ts.URL+"/api/config", []map[string]any{
				{"name": "good", "provider_type": "custom"},
				{"name": "bad", "provider_type": "cli-subprocess"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Providers []string `json:"providers"`
				Errors    []string `json:"errors"`
			}
			decode(resp, &body)
			Expect(body.Providers).To(Equal([]string{"good"}))
			Expect(body.Errors).To(HaveLen(1))
			Expect(body.Errors[0]).To(ContainSubstring("command"))
		})

		It("rejects a non-array body", func() {
			newServer()
			resp := postJSON(ts.URL+"/api/config", map[string]string{"name": "x"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/compare", func() {
		It("fans one message out and gathers every slot", func() {
			newServer(
				&stubProvider{name: "alpha", reply: "from alpha"},
				&stubProvider{name: "beta", unavailable: true},
			)

			resp := postJSON(ts.URL+"/api/compare", map[string]any{
				"message":   "same prompt",
				"providers": []string{"alpha", "beta"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var results map[string]orchestrator.CompareResult
			decode(resp, &results)
			Expect(results).To(HaveLen(2))
			Expect(results["alpha"].Response).To(Equal("from alpha"))
			Expect(results["beta"].Error).NotTo(BeEmpty())
		})

		It("rejects a request without message or providers", func() {
			newServer()
			resp := postJSON(ts.URL+"/api/compare", map[string]any{"message": "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})
})
