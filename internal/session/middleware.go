package session

import (
	"context"
	"net/http"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

// HeaderName is the header carrying the session ID.
const HeaderName = "Mcp-Session-Id"

// MiddlewareConfig contains configuration for the session middleware.
type MiddlewareConfig struct {
	// RequireSession rejects requests without a session header. When false,
	// such requests pass through and the handler decides.
	RequireSession bool
	HeaderName     string
}

// DefaultMiddlewareConfig returns the default middleware configuration.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		RequireSession: true,
		HeaderName:     HeaderName,
	}
}

// Middleware validates and refreshes the session named in the request header
// and stores it in the request context.
type Middleware struct {
	manager Manager
	config  MiddlewareConfig
	logger  zerolog.Logger
}

// NewMiddleware creates a new session middleware.
func NewMiddleware(manager Manager, config MiddlewareConfig, logger zerolog.Logger) *Middleware {
	if config.HeaderName == "" {
		config.HeaderName = HeaderName
	}
	return &Middleware{
		manager: manager,
		config:  config,
		logger:  logger.With().Str("component", "session_middleware").Logger(),
	}
}

type contextKey struct{}

// Handler returns the HTTP middleware function.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		id := r.Header.Get(m.config.HeaderName)
		if id == "" {
			if m.config.RequireSession {
				m.logger.Debug().
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("Missing session ID header")
				err := &Error{Code: CodeMissing, Message: "missing session ID header"}
				WriteError(w, r, err, map[string]any{"required_header": m.config.HeaderName})
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		session, err := m.manager.Refresh(r.Context(), id)
		if err != nil {
			m.logger.Debug().
				Err(err).
				Str("session_id", id).
				Str("path", r.URL.Path).
				Msg("Session validation failed")
			WriteError(w, r, err, map[string]any{"session_id": id})
			return
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), session)))
	})
}

// NewContext returns a copy of ctx carrying session.
func NewContext(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, session)
}

// FromContext retrieves the session stored by the middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(contextKey{}).(*Session)
	return session, ok && session != nil
}

// ErrorResponse is the JSON body written for session failures.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failure.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteError writes err as a JSON error body with the status from HTTPStatus.
func WriteError(w http.ResponseWriter, r *http.Request, err error, details map[string]any) {
	render.Status(r, HTTPStatus(err))
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{
		Code:    ErrorCode(err),
		Message: err.Error(),
		Details: details,
	}})
}
