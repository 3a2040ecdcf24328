package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conductor-ai/conductor/internal/config"
)

func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	statuses := s.orch.ProviderStatuses(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"providers": statuses})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.orch.ListSessions()})
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Provider == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "provider is required"})
		return
	}

	id, err := s.orch.StartSession(r.Context(), req.Provider)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (s *Server) stopSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	stopped := s.orch.StopSession(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": stopped})
}

func (s *Server) stopAllSessions(w http.ResponseWriter, r *http.Request) {
	count := s.orch.StopAllSessions(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"stopped": count})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "message is required"})
		return
	}

	reply, err := s.orch.SendMessage(r.Context(), id, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	history, err := s.orch.SessionHistory(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	cfgs := s.orch.Configs()
	// Credentials are never echoed back.
	for i := range cfgs {
		cfgs[i].APIKey = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": cfgs})
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	var records []config.ProviderConfig
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "request body must be an array of provider records"})
		return
	}

	valid := make([]config.ProviderConfig, 0, len(records))
	errs := []string{}
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		rec.ApplyDefaults()
		valid = append(valid, rec)
	}

	s.orch.Reload(r.Context(), valid)
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": s.orch.ListProviders(),
		"errors":    errs,
	})
}

func (s *Server) compareProviders(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message   string   `json:"message"`
		Providers []string `json:"providers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Message == "" || len(req.Providers) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "message and providers are required"})
		return
	}

	results := s.orch.Compare(r.Context(), req.Message, req.Providers)
	writeJSON(w, http.StatusOK, results)
}
