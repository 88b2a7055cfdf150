package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bryanchriswhite/webdesk/internal/config"
	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"github.com/bryanchriswhite/webdesk/internal/logger"
	"github.com/bryanchriswhite/webdesk/internal/media"
	"github.com/bryanchriswhite/webdesk/internal/metrics"
	"github.com/bryanchriswhite/webdesk/internal/render"
	"github.com/bryanchriswhite/webdesk/internal/session"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	port      int
	router    *mux.Router
	sessions  *session.Manager
	configMgr *config.Manager
	metrics   *metrics.Metrics
	renderer  *render.Renderer
	upgrader  websocket.Upgrader
	log       *zerolog.Logger
}

// NewServer creates a new API server listening on port once served
func NewServer(port int, sessions *session.Manager, configMgr *config.Manager, m *metrics.Metrics, renderer *render.Renderer) *Server {
	s := &Server{
		port:      port,
		router:    mux.NewRouter(),
		sessions:  sessions,
		configMgr: configMgr,
		metrics:   m,
		renderer:  renderer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // clients are served from any origin
			},
		},
		log: logger.WithComponent("api"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.metrics.Middleware)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/apps", s.handleGetApps).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")

	// Sessions
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/scene", s.handleGetScene).Methods("GET")
	api.HandleFunc("/sessions/{id}/preview.png", s.handlePreview).Methods("GET")
	api.HandleFunc("/sessions/{id}/preview.mjpeg", s.handlePreviewStream).Methods("GET")
	api.HandleFunc("/sessions/{id}/player", s.handleGetPlayer).Methods("GET")
	api.HandleFunc("/sessions/{id}/input", s.handleInput).Methods("POST")
	api.HandleFunc("/sessions/{id}/stream", s.handleStream)

	s.router.Handle("/metrics", s.metrics.Handler())
	s.router.PathPrefix("/").HandlerFunc(s.handleIndex)
}

// Handler returns the router wrapped with CORS headers
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

func (s *Server) String() string {
	return "http-server"
}

// Serve listens until ctx is done, then shuts the server down
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msgf("Starting server on http://localhost%s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn().Err(err).Msg("Server shutdown")
		}
		return ctx.Err()
	}
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// shell resolves the {id} route variable, writing 404 when it is unknown
func (s *Server) shell(w http.ResponseWriter, r *http.Request) (*session.Shell, bool) {
	shell, err := s.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return shell, true
}

// HTTP Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"version":  Version,
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleGetApps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Catalog().All())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.configMgr == nil {
		http.Error(w, "no configuration loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

type sessionResponse struct {
	ID    string        `json:"id"`
	Scene desktop.Scene `json:"scene"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	shell := s.sessions.Create()
	writeJSON(w, http.StatusCreated, sessionResponse{ID: shell.ID, Scene: shell.Desktop.Scene()})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(mux.Vars(r)["id"]); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	shell, ok := s.shell(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, shell.Desktop.Scene())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	shell, ok := s.shell(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.renderer.EncodePNG(w, shell.Desktop.Scene()); err != nil {
		s.log.Error().Err(err).Str("session", shell.ID).Msg("Failed to encode preview")
	}
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	shell, ok := s.shell(w, r)
	if !ok {
		return
	}
	if shell.Player == nil {
		http.Error(w, ErrNoPlayer.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, shell.Player.State())
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	shell, ok := s.shell(w, r)
	if !ok {
		return
	}

	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.apply(shell, ev); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, shell.Desktop.Scene())
}

// apply runs an event and counts it
func (s *Server) apply(shell *session.Shell, ev Event) error {
	if err := Apply(shell, ev); err != nil {
		s.log.Debug().Err(err).Str("session", shell.ID).Str("type", ev.Type).Msg("Input rejected")
		return err
	}
	s.metrics.RecordInput(ev.Type)
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoPlayer):
		return http.StatusNotFound
	case errors.Is(err, media.ErrEmptyPlaylist), errors.Is(err, media.ErrTrackOutOfRange):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
