package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/seerrsync/seerrsync/pkg/roster"
	"github.com/seerrsync/seerrsync/pkg/syncer"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	ok(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.cfg.Server.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.Server.Password)) == 1
	if !userOK || !passOK {
		s.logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("failed login attempt")
		unauthorized(w)
		return
	}

	token, expires := s.sessions.Create()
	ok(w, map[string]any{
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Revoke(bearerToken(r))
	ok(w, map[string]any{"logged_out": true})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	ok(w, map[string]any{"valid": true})
}

func (s *Server) handleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	if err := s.scheduler.TriggerAsync(r.Context()); err != nil {
		conflict(w, "a sync run is already in progress")
		return
	}
	accepted(w, map[string]any{"started": true})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	result, err := s.scheduler.Last()
	status := map[string]any{
		"running":          s.scheduler.Running(),
		"interval_minutes": int(s.scheduler.Interval().Minutes()),
	}
	if result != nil {
		status["last_result"] = result
		status["last_summary"] = result.Summary()
	}
	if err != nil {
		status["last_error"] = err.Error()
	}
	ok(w, status)
}

func (s *Server) handleGetInterval(w http.ResponseWriter, _ *http.Request) {
	ok(w, map[string]any{"interval_minutes": int(s.scheduler.Interval().Minutes())})
}

type intervalRequest struct {
	IntervalMinutes int `json:"interval_minutes"`
}

func (s *Server) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	var req intervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.IntervalMinutes <= 0 {
		badRequest(w, "interval_minutes must be positive")
		return
	}
	s.scheduler.SetInterval(time.Duration(req.IntervalMinutes) * time.Minute)

	s.mu.Lock()
	s.cfg.Sync.IntervalMinutes = req.IntervalMinutes
	s.saveConfig()
	s.mu.Unlock()

	ok(w, map[string]any{"interval_minutes": req.IntervalMinutes})
}

// userView is an account joined with its override record.
type userView struct {
	ID            int      `json:"id"`
	Username      string   `json:"username"`
	Email         string   `json:"email,omitempty"`
	Blocked       bool     `json:"blocked"`
	Immune        bool     `json:"immune"`
	SourceServers []string `json:"source_servers,omitempty"`
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.gateway.ListAccounts(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("listing accounts failed")
		internalError(w)
		return
	}

	views := make([]userView, len(accounts))
	for i, a := range accounts {
		record := s.overrides.Get(roster.Key(a.Username))
		views[i] = userView{
			ID:            a.ID,
			Username:      a.Username,
			Email:         a.Email,
			Blocked:       record.Blocked,
			Immune:        record.Immune,
			SourceServers: record.SourceServers,
		}
	}
	ok(w, views)
}

type createUserRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	RequestLimit *int   `json:"request_limit"`
	Blocked      bool   `json:"blocked"`
	Immune       bool   `json:"immune"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	account, err := s.syncer.Provision(r.Context(), syncer.ProvisionRequest{
		Username:     req.Username,
		Password:     req.Password,
		RequestLimit: req.RequestLimit,
		Blocked:      req.Blocked,
		Immune:       req.Immune,
	})
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, apiResponse{Data: account})
}

type userSettingsRequest struct {
	Blocked *bool `json:"blocked"`
	Immune  *bool `json:"immune"`
}

func (s *Server) handleUserSettings(w http.ResponseWriter, r *http.Request) {
	key := roster.Key(r.PathValue("username"))
	if key == "" {
		notFound(w)
		return
	}

	var req userSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Blocked == nil && req.Immune == nil {
		badRequest(w, "nothing to update")
		return
	}

	if req.Blocked != nil {
		s.overrides.SetBlocked(key, *req.Blocked)
	}
	if req.Immune != nil {
		s.overrides.SetImmune(key, *req.Immune)
	}
	if err := s.overrides.Save(); err != nil {
		s.logger.Error().Err(err).Msg("saving overrides failed")
		internalError(w)
		return
	}

	record := s.overrides.Get(key)
	ok(w, map[string]any{
		"username": key,
		"blocked":  record.Blocked,
		"immune":   record.Immune,
	})
}

func (s *Server) handleGetSeerr(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok(w, map[string]any{
		"url":         s.cfg.Seerr.URL,
		"api_key_set": s.cfg.Seerr.APIKey != "",
	})
}

type seerrRequest struct {
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
}

func (s *Server) handleSetSeerr(w http.ResponseWriter, r *http.Request) {
	var req seerrRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.URL == "" || req.APIKey == "" {
		badRequest(w, "url and api_key are required")
		return
	}

	s.mu.Lock()
	s.cfg.Seerr.URL = req.URL
	s.cfg.Seerr.APIKey = req.APIKey
	s.saveConfig()
	s.mu.Unlock()

	// The running gateway keeps its original settings.
	ok(w, map[string]any{"url": req.URL, "restart_required": true})
}
