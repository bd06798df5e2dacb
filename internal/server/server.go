// Package server exposes the newsroom trigger endpoint over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jonathan/jobs-newsroom/internal/config"
	"github.com/jonathan/jobs-newsroom/internal/observability"
	"github.com/jonathan/jobs-newsroom/internal/pipeline"
	"github.com/jonathan/jobs-newsroom/internal/server/middleware"
	"github.com/jonathan/jobs-newsroom/internal/server/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Trigger routes
const (
	TriggerPath       = "/api/cron/generate-news"
	TriggerStreamPath = "/api/cron/generate-news/stream"
)

// DefaultRunTimeout bounds a triggered run when Config.RunTimeout is unset
const DefaultRunTimeout = 2 * time.Minute

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context) (*pipeline.Outcome, error)
}

// Config holds server configuration
type Config struct {
	Port      int
	Auth      *config.TriggerAuthConfig
	RateLimit *ratelimit.Config
	// RunTimeout bounds a run independently of the caller's connection
	RunTimeout time.Duration
	// HealthCheck is called by /health when set
	HealthCheck func(ctx context.Context) error
	// Gatherer serves /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	runner      Runner
	logger      *zap.Logger
	metrics     *observability.Metrics
	rateLimiter *ratelimit.Limiter
	tokens      *TokenService
	runs        singleflight.Group
	progress    *progressHub
	runTimeout  time.Duration
	healthCheck func(ctx context.Context) error
}

// New creates a new server instance. Call PublishProgress from the runner's
// progress callback to feed the stream endpoint.
func New(cfg Config, runner Runner, logger *zap.Logger, metrics *observability.Metrics) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if cfg.Auth == nil {
		return nil, fmt.Errorf("auth config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		runner:      runner,
		logger:      logger,
		metrics:     metrics,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		tokens:      NewTokenService(cfg.Auth),
		progress:    newProgressHub(),
		runTimeout:  cfg.RunTimeout,
		healthCheck: cfg.HealthCheck,
	}

	auth := middleware.TriggerAuth(middleware.AuthOptions{
		Secret:               cfg.Auth.Secret,
		Validator:            s.tokens.AsTokenValidator(),
		AllowUnauthenticated: cfg.Auth.AllowUnauthenticated,
		OnReject: func(r *http.Request) {
			s.metrics.RecordTrigger(outcomeUnauthorized)
			s.logger.Warn("unauthorized trigger request",
				zap.String(observability.FieldPath, r.URL.Path),
				zap.String(observability.FieldRemoteAddr, r.RemoteAddr))
		},
	})
	trigger := func(h http.HandlerFunc) http.Handler {
		return s.withRateLimit(auth(h))
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+TriggerPath, trigger(s.handleTrigger))
	mux.Handle("POST "+TriggerPath, trigger(s.handleTrigger))
	mux.Handle("POST "+TriggerStreamPath, trigger(s.handleTriggerStream))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.handler = s.withLogging(mux)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RunTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// PublishProgress forwards a pipeline progress event to stream subscribers
func (s *Server) PublishProgress(event pipeline.ProgressEvent) {
	s.progress.publish(event)
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// withRateLimit throttles each client IP with its own token bucket
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r))
		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		}
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":   "rate_limit_exceeded",
		"message": "Rate limit exceeded. Please try again later.",
	}
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = secs
		w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
	}

	s.metrics.RecordTrigger(outcomeThrottled)
	s.logger.Warn("trigger request throttled",
		zap.String(observability.FieldRemoteAddr, r.RemoteAddr),
		zap.Duration("retry_after", info.RetryAfter))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request completed",
			zap.String(observability.FieldMethod, r.Method),
			zap.String(observability.FieldPath, r.URL.Path),
			zap.Int(observability.FieldStatus, rec.status),
			zap.String(observability.FieldRemoteAddr, r.RemoteAddr),
			zap.Int64(observability.FieldDurationMS, time.Since(start).Milliseconds()))
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// extractClientID uses the IP address from RemoteAddr.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
