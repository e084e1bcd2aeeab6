// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/job-insights/internal/logging"
	"github.com/job-insights/internal/service"
	"github.com/job-insights/internal/types"
)

// DashboardServiceInterface defines the dashboard operations the API exposes
type DashboardServiceInterface interface {
	DefaultWeights() types.Weights
	SourceName() string
	Snapshot() (*service.Snapshot, error)
	Reload(ctx context.Context) (*service.Snapshot, error)
	Replace(ctx context.Context, jobs []types.JobRecord, source string) *service.Snapshot
	QueryJobs(query service.JobQuery) (*service.JobPage, error)
	Summary() (*service.Summary, error)
	Durations() ([]types.DurationRecord, error)
	WaitTimes() (map[string]types.WaitTimeStats, error)
	Recommendations(weights types.Weights) ([]types.BackendScore, error)
	Anomalies() ([]types.Anomaly, error)
	Report(ctx context.Context, weights types.Weights) (*types.Report, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	dashboard  DashboardServiceInterface
	limiter    *RateLimiter
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64 // Requests per second per client IP
	RateLimitBurst  int
	MaxUploadBytes  int64 // Largest accepted CSV upload
}

// DefaultServerConfig returns timeouts suited to report-sized responses
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "0.0.0.0",
		Port:            "8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
		MaxUploadBytes:  32 << 20,
	}
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, dashboard DashboardServiceInterface) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	s := &Server{
		router:    mux.NewRouter(),
		dashboard: dashboard,
		limiter:   NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst),
		config:    config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(s.middleware()...)

	// mux skips router middleware for unmatched requests, so the fallback handlers carry their own chain
	notFound := s.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Route not found", map[string]interface{}{"path": r.URL.Path})
	}))
	methodNotAllowed := s.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", map[string]interface{}{"method": r.Method})
	}))
	s.router.NotFoundHandler = notFound
	s.router.MethodNotAllowedHandler = methodNotAllowed

	api := s.setupRoutes()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// middleware returns the chain in order. Logging sees the final status and rate limiting runs after CORS.
func (s *Server) middleware() []mux.MiddlewareFunc {
	return []mux.MiddlewareFunc{
		LoggingMiddleware,
		RecoveryMiddleware,
		CORSMiddleware,
		RateLimitMiddleware(s.limiter),
		CompressionMiddleware,
	}
}

// wrap applies the middleware chain to a handler outside the router
func (s *Server) wrap(h http.Handler) http.Handler {
	chain := s.middleware()
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

// setupRoutes configures all API routes and returns the /api subrouter.
// OPTIONS is listed on every route so CORSMiddleware can answer preflight requests.
func (s *Server) setupRoutes() *mux.Router {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	// CompressionMiddleware already gzips, so the exporter must not compress again
	metricsHandler := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{DisableCompression: true})
	s.router.Handle("/metrics", metricsHandler).Methods(http.MethodGet, http.MethodOptions)

	api := s.router.PathPrefix("/api").Subrouter()

	// Job endpoints
	api.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/jobs/reload", s.handleReloadJobs).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/jobs/upload", s.handleUploadJobs).Methods(http.MethodPost, http.MethodOptions)

	// Analytics endpoints
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/durations", s.handleDurations).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/wait-times", s.handleWaitTimes).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/recommendations", s.handleRecommendations).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/anomalies", s.handleAnomalies).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/report", s.handleReport).Methods(http.MethodGet, http.MethodOptions)

	return api
}

// Handler returns the routed handler with its middleware chain
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "healthy",
		"service": "job-insights",
		"source":  s.dashboard.SourceName(),
	}

	snapshot, err := s.dashboard.Snapshot()
	if err != nil {
		body["status"] = "starting"
		body["snapshotLoaded"] = false
	} else {
		body["snapshotLoaded"] = true
		body["snapshotId"] = snapshot.ID
		body["loadedAt"] = snapshot.LoadedAt
		body["jobs"] = len(snapshot.Jobs)
	}

	respondJSON(w, http.StatusOK, body)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server...")
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	return s.httpServer.Shutdown(ctx)
}
