// Package server provides the HTTP surface of mudra: control, mappings,
// settings, and the live preview.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/preview"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	Store     *store.Store
	Logger    *slog.Logger
}

// Server represents the HTTP server.
type Server struct {
	config    Config
	mux       *http.ServeMux
	start     time.Time
	logger    *slog.Logger
	landmarks *LandmarksHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: logger.With("component", "server"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/vocabulary", api.HandleVocabulary)

	if a := s.config.App; a != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)

		control := api.NewControlHandler(a.Gate())
		s.mux.Handle("/api/control", control)
		s.mux.Handle("/api/control/", control)

		s.mux.Handle("/api/mappings", api.NewMappingHandler(a.Table(), s.logger))

		opts := preview.DefaultOptions()
		opts.Mirror = a.Config().Camera.Mirror
		s.mux.Handle("/api/stream", NewStreamHandler(a.Slot(), opts, s.logger))

		s.landmarks = NewLandmarksHandler(a.Slot(), s.logger)
		s.mux.Handle("/api/landmarks", s.landmarks)
	}

	if s.config.Store != nil {
		base := config.Default()
		if s.config.App != nil {
			base = s.config.App.Config()
		}
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Store, base))
		s.mux.Handle("/api/events", api.NewEventHandler(s.config.Store))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	}
	writeJSON(w, http.StatusOK, response)
}

type handStatus struct {
	Role       string        `json:"role"`
	Present    bool          `json:"present"`
	Gesture    gesture.Label `json:"gesture"`
	Confidence float64       `json:"confidence"`
}

type statusResponse struct {
	RunID     string       `json:"run_id"`
	State     string       `json:"state"`
	Enabled   bool         `json:"enabled"`
	Frame     uint64       `json:"frame"`
	Hands     []handStatus `json:"hands"`
	WSClients int          `json:"ws_clients"`
	Uptime    string       `json:"uptime"`
}

// handleStatus reports the driver state and the latest gestures.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	a := s.config.App
	snap := a.Slot().Peek()
	resp := statusResponse{
		RunID:   a.RunID(),
		State:   a.State().String(),
		Enabled: a.Gate().IsEnabled(),
		Frame:   snap.Index,
		Uptime:  time.Since(s.start).Round(time.Second).String(),
	}
	for i := 0; i < detector.NumRoles; i++ {
		g := snap.Gestures[i]
		label := g.Label
		if label == "" {
			label = gesture.None
		}
		resp.Hands = append(resp.Hands, handStatus{
			Role:       detector.Role(i).String(),
			Present:    snap.Hands[i] != nil,
			Gesture:    label,
			Confidence: g.Confidence,
		})
	}
	if s.landmarks != nil {
		resp.WSClients = s.landmarks.ClientCount()
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Request contexts derive from ctx so long-lived streams end too.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		if s.landmarks != nil {
			s.landmarks.CloseAll()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown", "err", err)
		}
	}()

	s.logger.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
