// Package server provides the HTTP API for the tailoring workflow and the application tracker.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/jobpilot/internal/config"
	"github.com/jonathan/jobpilot/internal/logger"
	"github.com/jonathan/jobpilot/internal/metrics"
	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/profile"
	"github.com/jonathan/jobpilot/internal/server/middleware"
	"github.com/jonathan/jobpilot/internal/server/ratelimit"
	"github.com/jonathan/jobpilot/internal/tracker"
)

const maxBodyBytes = 5 << 20

// Config holds server settings
type Config struct {
	Port        int
	Version     string
	CORSOrigins []string
	// RateLimit nil means ratelimit.DefaultConfig.
	RateLimit *ratelimit.Config
	// JWT enables bearer auth on /api routes when set.
	JWT             *config.JWTConfig
	ShutdownTimeout time.Duration
}

// SessionCounter reports how many suggestion sessions are live
type SessionCounter interface {
	Len() int
}

// ProfileImporter builds a stored profile from an uploaded resume
type ProfileImporter interface {
	ImportPDF(ctx context.Context, filename string, data []byte) (*profile.ImportResult, error)
}

// Deps are the collaborators behind the routes. Service, Profiles and Tracker are required.
// Without an Importer the upload route is not registered.
type Deps struct {
	Service  *pipeline.Service
	Profiles *profile.FileStore
	Importer ProfileImporter
	Tracker  tracker.Store
	Sessions SessionCounter
	Metrics  *metrics.Manager
	Logger   *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	handler         http.Handler
	svc             *pipeline.Service
	profiles        *profile.FileStore
	importer        ProfileImporter
	tracker         tracker.Store
	sessions        SessionCounter
	metrics         *metrics.Manager
	rateLimiter     *ratelimit.Limiter
	validate        *validator.Validate
	log             *zap.Logger
	version         string
	corsOrigins     []string
	shutdownTimeout time.Duration
	now             func() time.Time
}

// New creates a server and registers its routes.
func New(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Service == nil:
		return nil, errors.New("server: pipeline service is required")
	case deps.Profiles == nil:
		return nil, errors.New("server: profile store is required")
	case deps.Tracker == nil:
		return nil, errors.New("server: tracker is required")
	}

	s := &Server{
		svc:             deps.Service,
		profiles:        deps.Profiles,
		importer:        deps.Importer,
		tracker:         deps.Tracker,
		sessions:        deps.Sessions,
		metrics:         deps.Metrics,
		rateLimiter:     ratelimit.NewLimiter(cfg.RateLimit),
		validate:        newValidator(),
		log:             logger.WithFields(deps.Logger),
		version:         cfg.Version,
		corsOrigins:     cfg.CORSOrigins,
		shutdownTimeout: cfg.ShutdownTimeout,
		now:             time.Now,
	}
	if s.version == "" {
		s.version = "dev"
	}
	if len(s.corsOrigins) == 0 {
		s.corsOrigins = []string{"*"}
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 30 * time.Second
	}

	mux := http.NewServeMux()
	s.handle(mux, "GET /api/health", s.handleHealth)
	if s.metrics != nil {
		s.handle(mux, "GET /metrics", s.metrics.Handler().ServeHTTP)
	}

	s.handle(mux, "GET /api/profile", s.handleGetProfile)
	s.handle(mux, "PUT /api/profile", s.handlePutProfile)
	s.handle(mux, "GET /api/profile/{user_id}", s.handleGetProfile)
	if s.importer != nil {
		s.handle(mux, "POST /api/profile/upload", s.handleUploadProfile)
	}

	s.handle(mux, "POST /api/parse-jd", s.handleParseJob)
	s.handle(mux, "POST /api/tailor/suggestions", s.handleSuggestions)
	s.handle(mux, "GET /api/tailor/sessions/{session_id}", s.handleGetSession)
	s.handle(mux, "POST /api/tailor/finalize", s.handleFinalize)
	s.handle(mux, "POST /api/tailor", s.handleTailor)
	s.handle(mux, "GET /api/files/{filename}", s.handleFile)

	s.handle(mux, "GET /api/applications", s.handleListApplications)
	s.handle(mux, "GET /api/applications/stats", s.handleApplicationStats)
	s.handle(mux, "GET /api/applications/followups", s.handleFollowUps)
	s.handle(mux, "GET /api/applications/export", s.handleExportApplications)
	s.handle(mux, "PATCH /api/applications/{id}/status", s.handleUpdateStatus)
	s.handle(mux, "POST /api/applications/{id}/followup", s.handleSetFollowUp)

	var h http.Handler = mux
	if cfg.JWT != nil {
		h = middleware.AuthMiddleware(NewJWTService(cfg.JWT).AsTokenValidator(), skipAuth)(h)
	}
	s.handler = s.withRequestContext(s.withCORS(s.withRateLimit(h)))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      300 * time.Second, // suggestion and finalize calls wait on the model
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is canceled or the process receives SIGINT or SIGTERM, then drains
// in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr), zap.String("version", s.version))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.rateLimiter.Stop()
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

// Close stops background work without serving. Used when the server was never started.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// requestInfo is filled in as a request passes through the stack
type requestInfo struct {
	id    string
	route string
	log   *zap.Logger
}

type requestInfoKey struct{}

func infoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

// handle registers h and records the matched pattern for logging and metrics.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if info := infoFrom(r.Context()); info != nil {
			info.route = r.Pattern
		}
		h(w, r)
	})
}

// requestLogger returns the logger tagged with the request id.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if info := infoFrom(r.Context()); info != nil && info.log != nil {
		return info.log
	}
	return s.log
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withRequestContext assigns a request id, then logs and measures the request once it is done.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		info := &requestInfo{id: id, route: "unmatched"}
		info.log = s.log.With(zap.String(logger.FieldRequestID, id))
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := s.now().Sub(start)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(r.Method, info.route, status, elapsed)
		}

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", info.route),
			zap.Int("status", status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", elapsed),
			zap.String("remote", extractClientID(r)),
		}
		if status >= http.StatusInternalServerError {
			info.log.Warn("request completed", fields...)
		} else {
			info.log.Info("request completed", fields...)
		}
	})
}

// withCORS adds CORS headers for the configured origins and answers preflight requests.
func (s *Server) withCORS(next http.Handler) http.Handler {
	wildcard := slices.Contains(s.corsOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.corsOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies the per-client token buckets
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// skipAuth leaves health checks, metrics and preflights open.
func skipAuth(r *http.Request) bool {
	return r.Method == http.MethodOptions ||
		r.URL.Path == "/api/health" ||
		!strings.HasPrefix(r.URL.Path, "/api/")
}

// extractClientID returns the remote IP. Forwarded headers are not trusted.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error": "Rate limit exceeded. Please try again later.",
		"code":  CodeRateLimited,
		"limit": info.Limit,
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	s.requestLogger(r).Info("rate limit exceeded",
		zap.String("client", extractClientID(r)),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit))
	s.jsonResponse(w, r, http.StatusTooManyRequests, response)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.requestLogger(r).Warn("failed to encode response", zap.Error(err))
	}
}

// errorResponse maps err to a status and writes {"error", "code"}.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	log := s.requestLogger(r)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("code", code), zap.Error(err))
	} else {
		log.Info("request rejected", zap.Int("status", status), zap.String("code", code), zap.Error(err))
	}
	s.jsonResponse(w, r, status, errorBody{Error: publicMessage(status, err), Code: code})
}

// decodeJSON reads a JSON body into dst and validates its struct tags. An empty body is
// accepted when allowEmpty is set.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return &ErrValidation{Field: "body", Message: "request body too large"}
			}
			return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
		}
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}
