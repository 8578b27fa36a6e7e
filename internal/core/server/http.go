// internal/core/server/http.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/advisor/internal/core/api"
	"github.com/solatis/advisor/internal/core/config"
	"github.com/solatis/advisor/internal/core/metrics"
)

/*
 * HTTP admin and evaluation surface.
 *
 * Routing uses chi with RequestID, RealIP and Recoverer, plus a zerolog
 * request line per call. POST /v1/evaluate decodes a JSON body, runs the
 * same api.Service the gRPC server uses, and bounds each pass with its own
 * context timeout so a truncated result is still written as 200.
 *
 * Errors map from the service's gRPC status: InvalidArgument is 400,
 * DeadlineExceeded is 504, Canceled is 499, Unavailable is 503 and anything
 * else is 500.
 */

// maxBodyBytes caps POST /v1/evaluate request bodies.
const maxBodyBytes = 32 << 20

// HTTPServer serves the admin and JSON evaluation endpoints:
//
//	GET  /healthz      liveness
//	GET  /metrics      Prometheus exposition
//	POST /v1/evaluate  same request and result as the gRPC Evaluate call
type HTTPServer struct {
	server  *http.Server
	router  chi.Router
	service api.EvaluatorServer
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHTTPServer creates the chi router and wraps it in an http.Server bound
// to cfg.HTTPAddr().
func NewHTTPServer(cfg *config.ServiceConfig, service api.EvaluatorServer, gatherer prometheus.Gatherer, logger zerolog.Logger) (*HTTPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if gatherer == nil {
		return nil, fmt.Errorf("gatherer cannot be nil")
	}

	s := &HTTPServer{
		service: service,
		timeout: cfg.RequestTimeout,
		logger:  logger.With().Str("component", "http").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/evaluate", s.handleEvaluate)
	})
	s.router = r

	s.server = &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start binds the listener and serves until Shutdown.
func (s *HTTPServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.server.Addr, err)
	}
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("http server started")
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req api.EvaluateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// A deadline yields a truncated result rather than an error response
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	result, err := s.service.Evaluate(ctx, &req)
	if err != nil {
		st := status.Convert(err)
		respondError(w, httpStatus(st.Code()), codeName(st.Code()), st.Message())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// httpStatus maps gRPC status codes to HTTP status codes.
func httpStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Canceled:
		return 499
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeName(code codes.Code) string {
	switch code {
	case codes.InvalidArgument:
		return "invalid_request"
	case codes.Internal:
		return "engine_error"
	default:
		return "error"
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
