package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"mcp-calculator-go/internal/session"
	"mcp-calculator-go/internal/tools"
)

const maxBodyBytes = 1 << 20

// Dispatcher publishes tool definitions and routes calls to tools.
type Dispatcher interface {
	Definitions() []tools.Definition
	Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}

// Config contains configuration for the MCP handler.
type Config struct {
	ServerName    string
	ServerVersion string
	// RequireSession makes every JSON-RPC method except initialize and ping
	// require an Mcp-Session-Id header.
	RequireSession bool
}

// Handler serves the tool manifest, plain tool invocations and the JSON-RPC endpoint.
type Handler struct {
	tools    Dispatcher
	sessions session.Manager
	config   Config
	logger   zerolog.Logger
}

// NewHandler creates a new MCP handler.
func NewHandler(dispatcher Dispatcher, sessions session.Manager, config Config, logger zerolog.Logger) *Handler {
	return &Handler{
		tools:    dispatcher,
		sessions: sessions,
		config:   config,
		logger:   logger.With().Str("component", "mcp_handler").Logger(),
	}
}

// Manifest lists the available tools.
type Manifest struct {
	Tools []tools.Definition `json:"tools"`
}

// InvokeRequest is the body of POST /mcp.
type InvokeRequest struct {
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params"`
}

// ErrorResponse is the body returned when an invocation fails.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failed invocation.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes produced by the transport itself.
const (
	CodeInvalidRequest = "invalid_request"
	CodeInternal       = "internal_error"
)

// Manifest handles GET /mcp.
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Manifest{Tools: h.tools.Definitions()})
}

// Invoke handles POST /mcp with a body of {"tool": ..., "params": {...}} and
// answers {"result": ...} on success.
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), &req); err != nil {
		h.logger.Debug().Err(err).Msg("Failed to decode invocation body")
		h.writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "invalid request body")
		return
	}
	if req.Tool == "" {
		h.writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "tool is required")
		return
	}

	result, err := h.tools.Call(r.Context(), req.Tool, req.Params)
	if err != nil {
		status, code := toolErrorStatus(err)
		h.logger.Debug().
			Err(err).
			Str("tool", req.Tool).
			Str("code", code).
			Msg("Tool invocation failed")
		h.writeError(w, r, status, code, err.Error())
		return
	}

	h.logger.Debug().
		Str("tool", req.Tool).
		RawJSON("result", result).
		Msg("Tool invocation succeeded")

	render.JSON(w, r, result)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

func toolErrorStatus(err error) (int, string) {
	var toolErr *tools.Error
	if !errors.As(err, &toolErr) {
		return http.StatusInternalServerError, CodeInternal
	}

	switch toolErr.Code {
	case tools.CodeToolNotFound:
		return http.StatusNotFound, toolErr.Code
	case tools.CodeInvalidParams, tools.CodeExecutionFailed:
		return http.StatusBadRequest, toolErr.Code
	default:
		return http.StatusInternalServerError, toolErr.Code
	}
}
