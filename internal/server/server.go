package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/jonathan/cv-builder/internal/auth"
	"github.com/jonathan/cv-builder/internal/editor"
	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/server/middleware"
	"github.com/jonathan/cv-builder/internal/server/ratelimit"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies; a CV document is far smaller.
const maxBodyBytes = 1 << 20

// DefaultHeartbeat is how often an idle event stream is pinged.
const DefaultHeartbeat = 25 * time.Second

// AuthBackend is the part of the API client the login route needs.
type AuthBackend interface {
	Login(ctx context.Context, req *types.LoginRequest) (*types.LoginResponse, error)
}

// Config holds server configuration
type Config struct {
	Addr           string
	AllowedOrigins []string
	Editor         *editor.Editor
	// Events must be the broker the editor publishes to (Options.OnEvent).
	Events    *Events
	Session   *auth.Session
	Auth      AuthBackend
	Sink      export.Sink
	RateLimit *ratelimit.Config
	// SecureCookies marks the token cookie Secure; set it when served over TLS.
	SecureCookies bool
	// Heartbeat overrides DefaultHeartbeat.
	Heartbeat time.Duration
	Logger    zerolog.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer     *http.Server
	editor         *editor.Editor
	events         *Events
	session        *auth.Session
	auth           AuthBackend
	sink           export.Sink
	rateLimiter    *ratelimit.Limiter
	allowedOrigins []string
	secureCookies  bool
	heartbeat      time.Duration
	log            zerolog.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	switch {
	case cfg.Editor == nil:
		return nil, fmt.Errorf("server config: editor is required")
	case cfg.Session == nil:
		return nil, fmt.Errorf("server config: session is required")
	case cfg.Sink == nil:
		return nil, fmt.Errorf("server config: export sink is required")
	}
	if cfg.Events == nil {
		cfg.Events = NewEvents()
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = ratelimit.LoadConfig()
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}

	s := &Server{
		editor:         cfg.Editor,
		events:         cfg.Events,
		session:        cfg.Session,
		auth:           cfg.Auth,
		sink:           cfg.Sink,
		rateLimiter:    ratelimit.NewLimiter(cfg.RateLimit),
		allowedOrigins: cfg.AllowedOrigins,
		secureCookies:  cfg.SecureCookies,
		heartbeat:      cfg.Heartbeat,
		log:            cfg.Logger.With().Str("component", "server").Logger(),
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Auth
	mux.HandleFunc("GET /auth/login", s.handleLoginPage)
	mux.HandleFunc("GET /auth/register", s.handleRegisterPage)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)

	// Editor session
	mux.HandleFunc("GET /cv", s.handleHome)
	mux.HandleFunc("GET /cv/draft", s.handleGetDraft)
	mux.HandleFunc("PUT /cv/draft", s.handleReplaceDraft)
	mux.HandleFunc("POST /cv/draft/sections", s.handleAddSection)
	mux.HandleFunc("PATCH /cv/draft/sections/{id}", s.handleUpdateSection)
	mux.HandleFunc("DELETE /cv/draft/sections/{id}", s.handleRemoveSection)
	mux.HandleFunc("POST /cv/draft/sections/{id}/items", s.handleAddItem)
	mux.HandleFunc("DELETE /cv/draft/sections/{id}/items/{item_id}", s.handleRemoveItem)
	mux.HandleFunc("POST /cv/draft/reorder", s.handleReorder)
	mux.HandleFunc("GET /cv/draft/validation", s.handleValidation)
	mux.HandleFunc("POST /cv/draft/save", s.handleSave)
	mux.HandleFunc("POST /cv/draft/preview", s.handlePreview)
	mux.HandleFunc("POST /cv/draft/export/{format}", s.handleExport)
	mux.HandleFunc("GET /cv/draft/events", s.handleEvents)

	guard := middleware.RouteGuard(middleware.TokenCheckerFunc(func(token string) bool {
		return !auth.Expired(token, time.Now(), 0)
	}))

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.withRateLimit(s.withLogging(s.withCORS(guard(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute, // Rendering can be slow; the event stream lifts it
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}

	return s, nil
}

// Handler returns the server's full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
// Open event streams are closed first so the shutdown does not wait on them.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("editor server starting")
		errCh <- s.httpServer.Serve(ln)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down editor server")
	s.cancelBase()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("server shutdown failed: %w", err)
	}

	s.rateLimiter.Stop()
	s.log.Info().Msg("editor server stopped")
	return serveErr
}

// withCORS adds CORS headers. Without configured origins any origin may read
// responses but no credentials are shared.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(s.allowedOrigins) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && (slices.Contains(s.allowedOrigins, origin) || slices.Contains(s.allowedOrigins, "*")):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
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

		ev := s.log.Info()
		if rec.status >= http.StatusInternalServerError {
			ev = s.log.Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}

// extractClientID extracts the client identifier (the remote IP) from the request.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Round(time.Second).Seconds())
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.log.Warn().Str("path", r.URL.Path).Int("limit", info.Limit).Msg("rate limit exceeded")
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// errorResponse writes err as a JSON error body with the status from HTTPStatus.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.jsonResponse(w, status, newErrorBody(err))
}

// decodeJSON reads a JSON request body into v. An empty body leaves v untouched
// when allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return &ErrBadRequest{Message: "invalid JSON body: " + err.Error()}
	}
	return nil
}
