// Package server exposes a Portal over HTTP: guarded screens for every route
// of the table, a session API, and JSON drivers for the verification and
// recovery wizards.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/middleware"
)

// Options configures a Server.
type Options struct {
	Logger       *slog.Logger
	CORSOrigins  []string
	TrustProxy   bool
	CookieSecure bool
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
	// Now is the registry clock. Defaults to time.Now.
	Now func() time.Time
}

// Server routes HTTP requests to a Portal.
type Server struct {
	portal        *goPortal.Portal
	logger        *slog.Logger
	opts          Options
	registrations *registry[*goPortal.VerificationFlow]
	recoveries    *registry[*goPortal.RecoveryFlow]
}

// New returns a Server for portal.
func New(portal *goPortal.Portal, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ttl := portal.Config().Flows.FlowIdleTTL
	return &Server{
		portal:        portal,
		logger:        opts.Logger,
		opts:          opts,
		registrations: newRegistry[*goPortal.VerificationFlow](ttl, opts.Now),
		recoveries:    newRegistry[*goPortal.RecoveryFlow](ttl, opts.Now),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.ClientIP(s.opts.TrustProxy))
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Recover(s.logger))
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{"Location", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.NoCache)

		r.Post("/session/login", s.handleLogin)
		r.Post("/session/logout", s.handleLogout)
		r.Post("/session/logout-all", s.handleLogoutAll)
		r.With(middleware.Session(s.portal)).Get("/session", s.handleSession)

		r.Post("/registration", s.handleRegistrationStart)
		r.Get("/registration/{id}", s.handleRegistrationState)
		r.Post("/registration/{id}/{action}", s.handleRegistrationAction)

		r.Post("/recovery", s.handleRecoveryStart)
		r.Get("/recovery/{id}", s.handleRecoveryState)
		r.Post("/recovery/{id}/{action}", s.handleRecoveryAction)

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "not_found", "")
		})
	})

	guard := middleware.Guard(s.portal)
	screen := guard(http.HandlerFunc(s.handleScreen))
	for _, route := range s.portal.Routes().Routes() {
		r.Method(http.MethodGet, route.Pattern, screen)
	}
	// Unknown paths still go through the guard so anonymous visitors land on
	// the login screen and everyone else on /404.
	r.NotFound(screen.ServeHTTP)

	return r
}

// Run sweeps idle flows until ctx is done.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	done := make(chan struct{})
	go func() {
		s.recoveries.janitor(ctx, interval, func(n int) {
			s.logger.Debug("recovery flows expired", "count", n)
		})
		close(done)
	}()
	s.registrations.janitor(ctx, interval, func(n int) {
		s.logger.Debug("registration flows expired", "count", n)
	})
	<-done
}

/*
====================================
SCREENS
====================================
*/

type screenResponse struct {
	Screen    string         `json:"screen"`
	Partition string         `json:"partition"`
	Path      string         `json:"path"`
	User      *goPortal.User `json:"user,omitempty"`
	Role      string         `json:"role,omitempty"`
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	route, ok := s.portal.Routes().Match(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	resp := screenResponse{
		Screen:    route.Pattern,
		Partition: route.Partition.String(),
		Path:      r.URL.Path,
		User:      sess.User,
	}
	if sess.Authenticated {
		resp.Role = sess.Role().String()
	}

	status := http.StatusOK
	if route.Pattern == goPortal.PathNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.portal.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

/*
====================================
RESPONSES
====================================
*/

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

const maxBodyBytes = 64 << 10

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "")
		return false
	}
	return true
}

// errorStatus maps a portal error to an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, goPortal.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, goPortal.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, goPortal.ErrEmailNotRegistered):
		return http.StatusUnprocessableEntity, "email_not_registered"
	case errors.Is(err, goPortal.ErrCodeRejected):
		return http.StatusUnprocessableEntity, "code_rejected"
	case errors.Is(err, goPortal.ErrBackendRejected):
		return http.StatusUnprocessableEntity, "rejected"
	case errors.Is(err, goPortal.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, goPortal.ErrSubmissionInFlight):
		return http.StatusConflict, "submission_in_flight"
	case errors.Is(err, goPortal.ErrFlowSuperseded):
		return http.StatusConflict, "flow_superseded"
	case errors.Is(err, goPortal.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, goPortal.ErrTransport):
		return http.StatusBadGateway, "backend_unavailable"
	case errors.Is(err, goPortal.ErrSessionUnavailable), errors.Is(err, goPortal.ErrSessionCreationFailed):
		return http.StatusServiceUnavailable, "session_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
