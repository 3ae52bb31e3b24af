// Package server exposes the prediction pipeline over HTTP: a predict
// endpoint, the form schema endpoint clients render their inputs from, a
// health check, and Prometheus metrics.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/homevalai/homeval/internal/artifact"
	"github.com/homevalai/homeval/internal/predict"
)

// Config holds the server configuration
type Config struct {
	Host            string
	Port            int
	ArtifactsDir    string
	EnableMetrics   bool
	EnableCORS      bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            8080,
		ArtifactsDir:    "artifacts",
		EnableMetrics:   true,
		EnableCORS:      true,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Metrics tracks prediction traffic. Registered once at construction.
type Metrics struct {
	predictions     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers the server metrics with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers the server metrics with a custom
// registerer, which tests use to avoid duplicate registration.
func NewMetricsWithRegistry(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homeval_predictions_total",
			Help: "Prediction outcomes by target and status",
		}, []string{"target", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "homeval_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		}, []string{"method", "path"}),
	}
	if registerer != nil {
		registerer.MustRegister(m.predictions)
		registerer.MustRegister(m.requestDuration)
	}
	return m
}

// ObserveOutcomes records one dispatch result.
func (m *Metrics) ObserveOutcomes(outcomes []predict.Outcome) {
	if m == nil {
		return
	}
	for _, o := range outcomes {
		m.predictions.WithLabelValues(o.Target, string(o.Status)).Inc()
	}
}

// Server serves predictions from a loaded artifact bundle.
type Server struct {
	config     *Config
	bundle     *artifact.Bundle
	dispatcher *predict.Dispatcher
	metrics    *Metrics
	server     *http.Server
}

// New creates a server for the given configuration without touching the
// artifact bundle yet; call LoadArtifacts before Start.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{config: config}
}

// LoadArtifacts loads and validates the artifact bundle and builds the
// dispatcher. Resource and configuration errors here are fatal: the server
// never starts accepting input on a broken bundle.
func (s *Server) LoadArtifacts() error {
	bundle, err := artifact.Load(s.config.ArtifactsDir)
	if err != nil {
		return fmt.Errorf("loading artifacts: %w", err)
	}
	dispatcher, err := predict.NewDispatcher(bundle)
	if err != nil {
		return fmt.Errorf("building dispatcher: %w", err)
	}
	s.bundle = bundle
	s.dispatcher = dispatcher
	return nil
}

// Router assembles the HTTP routes. Split from Start so handler tests can
// exercise the full middleware chain with httptest.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	if s.config.EnableCORS {
		router.Use(s.corsMiddleware)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	if s.metrics != nil {
		api.Use(s.metricsMiddleware)
	}

	api.HandleFunc("/predict", s.handlePredict).Methods("POST")
	api.HandleFunc("/schema", s.handleSchema).Methods("GET")
	if s.config.EnableCORS {
		api.Methods("OPTIONS").HandlerFunc(s.handleOptions)
	}

	if s.config.EnableMetrics {
		router.Handle("/metrics", promhttp.Handler())
	}
	router.HandleFunc("/health", s.handleHealth)

	return router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	if s.dispatcher == nil {
		return fmt.Errorf("artifacts not loaded")
	}
	if s.metrics == nil && s.config.EnableMetrics {
		s.metrics = NewMetrics()
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	log.Info().
		Str("addr", addr).
		Str("artifacts", s.config.ArtifactsDir).
		Int("targets", len(s.dispatcher.Specs())).
		Bool("metrics", s.config.EnableMetrics).
		Msg("Starting homeval server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	return nil
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// StartWithGracefulShutdown starts the server and blocks until SIGINT or
// SIGTERM, then drains within the configured shutdown timeout.
func (s *Server) StartWithGracefulShutdown() error {
	if err := s.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer shutdownCancel()

		if err := s.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}

		cancel()
	}()

	<-ctx.Done()
	log.Info().Msg("Server shutdown complete")
	return nil
}

// GetAddr returns the server address.
func (s *Server) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// handleOptions handles CORS preflight requests
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	// CORS headers are already set by middleware
	w.WriteHeader(http.StatusOK)
}
