package server

import (
	"encoding/json"
	"net/http"

	"github.com/seerrsync/seerrsync/internal/mediaservers"
	"github.com/seerrsync/seerrsync/internal/mediaservers/registry"
)

// serverView is a media server configuration with its token redacted.
type serverView struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	URL            string `json:"url,omitempty"`
	Enabled        bool   `json:"enabled"`
	TokenSet       bool   `json:"token_set"`
	PasswordSuffix string `json:"password_suffix,omitempty"`
	RequestLimit   *int   `json:"request_limit,omitempty"`
	IncludeOwner   bool   `json:"include_owner"`
}

func viewOf(ms *mediaservers.Config) serverView {
	return serverView{
		Name:           ms.Name,
		Type:           ms.Type.String(),
		URL:            ms.URL,
		Enabled:        ms.Enabled,
		TokenSet:       ms.Token != "",
		PasswordSuffix: ms.PasswordSuffix,
		RequestLimit:   ms.RequestLimit,
		IncludeOwner:   ms.IncludeOwner,
	}
}

// findServer returns the index of the named server, or -1. Caller holds
// the lock.
func (s *Server) findServer(name string) int {
	for i := range s.cfg.MediaServers {
		if s.cfg.MediaServers[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *Server) handleServers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]serverView, len(s.cfg.MediaServers))
	for i := range s.cfg.MediaServers {
		views[i] = viewOf(&s.cfg.MediaServers[i])
	}
	ok(w, views)
}

func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findServer(r.PathValue("name"))
	if i < 0 {
		notFound(w)
		return
	}
	ok(w, viewOf(&s.cfg.MediaServers[i]))
}

func (s *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var ms mediaservers.Config
	if err := json.NewDecoder(r.Body).Decode(&ms); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if ms.Name == "" || ms.Token == "" {
		badRequest(w, "name and token are required")
		return
	}
	if _, err := mediaservers.ParseType(string(ms.Type)); err != nil {
		badRequest(w, err.Error())
		return
	}
	if ms.Type != mediaservers.TypePlex && ms.URL == "" {
		badRequest(w, "url is required for this server type")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findServer(ms.Name) >= 0 {
		conflict(w, "a server with that name already exists")
		return
	}
	s.cfg.MediaServers = append(s.cfg.MediaServers, ms)
	s.saveConfig()
	writeJSON(w, http.StatusCreated, apiResponse{Data: viewOf(&ms)})
}

// serverUpdateRequest carries partial updates; nil fields are left as-is.
type serverUpdateRequest struct {
	URL            *string `json:"url"`
	Token          *string `json:"token"`
	Enabled        *bool   `json:"enabled"`
	PasswordSuffix *string `json:"password_suffix"`
	RequestLimit   *int    `json:"request_limit"`
	IncludeOwner   *bool   `json:"include_owner"`
}

func (s *Server) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	var req serverUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findServer(r.PathValue("name"))
	if i < 0 {
		notFound(w)
		return
	}
	ms := &s.cfg.MediaServers[i]
	if req.URL != nil {
		ms.URL = *req.URL
	}
	if req.Token != nil {
		ms.Token = *req.Token
	}
	if req.Enabled != nil {
		ms.Enabled = *req.Enabled
	}
	if req.PasswordSuffix != nil {
		ms.PasswordSuffix = *req.PasswordSuffix
	}
	if req.RequestLimit != nil {
		ms.RequestLimit = req.RequestLimit
	}
	if req.IncludeOwner != nil {
		ms.IncludeOwner = *req.IncludeOwner
	}
	s.saveConfig()
	ok(w, viewOf(ms))
}

func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findServer(r.PathValue("name"))
	if i < 0 {
		notFound(w)
		return
	}
	s.cfg.MediaServers = append(s.cfg.MediaServers[:i], s.cfg.MediaServers[i+1:]...)
	s.saveConfig()
	ok(w, map[string]any{"deleted": true})
}

// handleServerUsers lists the live roster of one media server, letting
// an operator preview what a sync run would see.
func (s *Server) handleServerUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	i := s.findServer(r.PathValue("name"))
	var ms mediaservers.Config
	if i >= 0 {
		ms = s.cfg.MediaServers[i]
	}
	s.mu.Unlock()
	if i < 0 {
		notFound(w)
		return
	}

	client, err := registry.New(&ms)
	if err != nil {
		internalError(w)
		return
	}
	users, err := client.ListUsers(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Str("server", ms.Name).Msg("listing server users failed")
		fail(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
		return
	}

	type sourceUserView struct {
		Username string `json:"username"`
		Email    string `json:"email,omitempty"`
	}
	views := make([]sourceUserView, len(users))
	for i, u := range users {
		views[i] = sourceUserView{Username: u.Username, Email: u.Email}
	}
	ok(w, views)
}
