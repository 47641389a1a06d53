// Package server provides the HTTP server for the isyarat practice app.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/isyarat/internal/app"
	"github.com/ayusman/isyarat/internal/gesture"
	"github.com/ayusman/isyarat/internal/server/api"
	"github.com/ayusman/isyarat/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server for the isyarat application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	start   time.Time
	session *SessionHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))

	if s.config.Store != nil {
		var (
			labels   *gesture.Labels
			reloader api.Reloader
		)
		if s.config.App != nil {
			labels = s.config.App.Labels()
			reloader = s.config.App
		}

		signHandler := api.NewSignHandler(s.config.Store, labels, reloader)
		samplesHandler := api.NewSamplesHandler(s.config.Store, reloader)

		// /api/signs/{id}/samples and /api/signs/{id}/train belong to the
		// samples handler
		signRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/samples") || strings.HasSuffix(r.URL.Path, "/train") {
				samplesHandler.ServeHTTP(w, r)
				return
			}
			signHandler.ServeHTTP(w, r)
		})
		s.mux.Handle("/api/signs", signRouter)
		s.mux.Handle("/api/signs/", signRouter)

		progressHandler := api.NewProgressHandler(s.config.Store)
		s.mux.Handle("/api/progress", progressHandler)
		s.mux.Handle("/api/progress/", progressHandler)

		s.mux.Handle("/api/sessions/", api.NewAttemptsHandler(s.config.Store))
	}

	if s.config.App != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App.Preview()))

		s.session = NewSessionHandler(s.config.App.Pipeline(), s.config.Store)
		s.mux.Handle("/api/session", s.session)
	}

	// Serve static files if StaticDir is configured
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

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if a := s.config.App; a != nil {
		response["camera"] = a.Running()
		response["signs"] = a.Classifier().Len()
		if info, ok := a.Pipeline().Session(); ok {
			response["session"] = info
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
