// Package server exposes the admin HTTP API: session login, sync status
// and triggering, per-user override management, and runtime editing of
// the media server and request service configuration.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seerrsync/seerrsync/internal/config"
	"github.com/seerrsync/seerrsync/pkg/overrides"
	"github.com/seerrsync/seerrsync/pkg/syncer"
)

const apiPrefix = "/api/v1"

// Server is the admin HTTP API.
type Server struct {
	// mu guards the mutable configuration sections (media servers and
	// request service settings).
	mu  sync.Mutex
	cfg *config.Config

	scheduler *syncer.Scheduler
	syncer    *syncer.Syncer
	gateway   syncer.Gateway
	overrides *overrides.Store
	sessions  *sessionStore
	logger    *zerolog.Logger
	startTime time.Time
}

// New creates a Server. The scheduler serializes sync runs triggered
// through the API against scheduled ones.
func New(cfg *config.Config, scheduler *syncer.Scheduler, sy *syncer.Syncer, gateway syncer.Gateway, store *overrides.Store, logger *zerolog.Logger) *Server {
	ttl := time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Server{
		cfg:       cfg,
		scheduler: scheduler,
		syncer:    sy,
		gateway:   gateway,
		overrides: store,
		sessions:  newSessionStore(ttl),
		logger:    logger,
		startTime: time.Now(),
	}
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+apiPrefix+"/health", s.handleHealth)
	mux.HandleFunc("POST "+apiPrefix+"/login", s.handleLogin)
	mux.HandleFunc("POST "+apiPrefix+"/logout", s.requireSession(s.handleLogout))
	mux.HandleFunc("GET "+apiPrefix+"/session", s.requireSession(s.handleSession))

	mux.HandleFunc("POST "+apiPrefix+"/sync", s.requireSession(s.handleSyncTrigger))
	mux.HandleFunc("GET "+apiPrefix+"/sync", s.requireSession(s.handleSyncStatus))
	mux.HandleFunc("GET "+apiPrefix+"/sync/interval", s.requireSession(s.handleGetInterval))
	mux.HandleFunc("PUT "+apiPrefix+"/sync/interval", s.requireSession(s.handleSetInterval))

	mux.HandleFunc("GET "+apiPrefix+"/users", s.requireSession(s.handleUsers))
	mux.HandleFunc("POST "+apiPrefix+"/users", s.requireSession(s.handleCreateUser))
	mux.HandleFunc("PUT "+apiPrefix+"/users/{username}/settings", s.requireSession(s.handleUserSettings))

	mux.HandleFunc("GET "+apiPrefix+"/seerr", s.requireSession(s.handleGetSeerr))
	mux.HandleFunc("PUT "+apiPrefix+"/seerr", s.requireSession(s.handleSetSeerr))

	mux.HandleFunc("GET "+apiPrefix+"/servers", s.requireSession(s.handleServers))
	mux.HandleFunc("POST "+apiPrefix+"/servers", s.requireSession(s.handleCreateServer))
	mux.HandleFunc("GET "+apiPrefix+"/servers/{name}", s.requireSession(s.handleGetServer))
	mux.HandleFunc("PUT "+apiPrefix+"/servers/{name}", s.requireSession(s.handleUpdateServer))
	mux.HandleFunc("DELETE "+apiPrefix+"/servers/{name}", s.requireSession(s.handleDeleteServer))
	mux.HandleFunc("GET "+apiPrefix+"/servers/{name}/users", s.requireSession(s.handleServerUsers))

	var handler http.Handler = mux
	handler = logMiddleware(s.logger)(handler)
	handler = recoverMiddleware(s.logger)(handler)
	return handler
}

// Run serves the API until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Server.Addr).Msg("admin api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("admin api stopped")
	return nil
}

// saveConfig persists configuration edits, tolerating an
// environment-only setup where there is no file to write.
func (s *Server) saveConfig() {
	if s.cfg.Path == "" {
		s.logger.Warn().Msg("no config file, changes apply to this process only")
		return
	}
	if err := s.cfg.Save(); err != nil {
		s.logger.Error().Err(err).Msg("saving config failed")
	}
}
