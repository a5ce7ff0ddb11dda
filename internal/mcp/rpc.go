package mcp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/render"

	"mcp-calculator-go/internal/jsonrpc"
	"mcp-calculator-go/internal/session"
	"mcp-calculator-go/internal/tools"
)

// ProtocolVersion is the newest MCP protocol revision the server speaks.
const ProtocolVersion = "2025-06-18"

var supportedProtocolVersions = map[string]bool{
	"2025-06-18": true,
	"2025-03-26": true,
	"2024-11-05": true,
}

// JSON-RPC method names.
const (
	MethodInitialize = "initialize"
	MethodPing       = "ping"
	MethodToolsList  = "tools/list"
	MethodToolsCall  = "tools/call"
)

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

// InitializeResult is the result of the initialize method.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      Implementation `json:"serverInfo"`
}

// Implementation names a server.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolInfo is a tool as listed by tools/list.
type ToolInfo struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	InputSchema tools.Schema `json:"inputSchema"`
}

// ListToolsResult is the result of tools/list.
type ListToolsResult struct {
	Tools []ToolInfo `json:"tools"`
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Content is a single content block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the result of tools/call. Tool failures are reported
// with IsError set rather than as JSON-RPC errors.
type CallToolResult struct {
	Content           []Content       `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	IsError           bool            `json:"isError,omitempty"`
}

// RPC handles POST /rpc.
func (h *Handler) RPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeRPC(w, r, http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, jsonrpc.NewError(jsonrpc.ParseError, "Parse error", nil)))
		return
	}

	msg, err := jsonrpc.ParseMessage(body)
	if err != nil {
		var rpcErr *jsonrpc.Error
		if !errors.As(err, &rpcErr) {
			rpcErr = jsonrpc.NewError(jsonrpc.InternalError, err.Error(), nil)
		}
		h.logger.Debug().Err(err).Msg("Rejected JSON-RPC message")
		h.writeRPC(w, r, http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, rpcErr))
		return
	}

	var (
		req *jsonrpc.Request
		ok  bool
	)
	switch m := msg.(type) {
	case *jsonrpc.Request:
		req = m
		r, ok = h.withSession(w, r, m.Method, h.config.RequireSession && m.Method != MethodPing)
	case *jsonrpc.Notification:
		r, ok = h.withSession(w, r, m.Method, false)
	default:
		ok = true
	}
	if !ok {
		return
	}
	if req == nil {
		// Notifications and responses need no reply.
		w.WriteHeader(http.StatusAccepted)
		return
	}

	h.logger.Debug().
		Str("method", req.Method).
		RawJSON("id", req.ID).
		Msg("Handling JSON-RPC request")

	h.writeRPC(w, r, http.StatusOK, h.dispatch(w, r, req))
}

// withSession resolves the Mcp-Session-Id header and stores the refreshed
// session in the request context. initialize always opens a new session, so
// any header it carries is ignored. When required is set a missing header is
// rejected. On failure the error has already been written.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, method string, required bool) (*http.Request, bool) {
	if method == MethodInitialize {
		return r, true
	}

	id := r.Header.Get(session.HeaderName)
	if id == "" {
		if required {
			err := &session.Error{Code: session.CodeMissing, Message: "session required, call initialize first"}
			session.WriteError(w, r, err, map[string]any{"required_header": session.HeaderName})
			return nil, false
		}
		return r, true
	}

	sess, err := h.sessions.Refresh(r.Context(), id)
	if err != nil {
		h.logger.Debug().
			Err(err).
			Str("session_id", id).
			Str("method", method).
			Msg("Session validation failed")
		session.WriteError(w, r, err, map[string]any{"session_id": id})
		return nil, false
	}

	return r.WithContext(session.NewContext(r.Context(), sess)), true
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, req *jsonrpc.Request) *jsonrpc.Response {
	switch req.Method {
	case MethodInitialize:
		return h.initialize(w, r, req)
	case MethodPing:
		return jsonrpc.NewResult(req.ID, struct{}{})
	case MethodToolsList:
		return jsonrpc.NewResult(req.ID, h.listTools())
	case MethodToolsCall:
		return h.callTool(r, req)
	default:
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.MethodNotFound, "Method not found", req.Method))
	}
}

func (h *Handler) initialize(w http.ResponseWriter, r *http.Request, req *jsonrpc.Request) *jsonrpc.Response {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.InvalidParams, "Invalid initialize params", err.Error()))
		}
	}

	sess, err := h.sessions.Create(r.Context(), session.ClientInfo{
		RemoteAddr:    r.RemoteAddr,
		UserAgent:     r.UserAgent(),
		ClientName:    params.ClientInfo.Name,
		ClientVersion: params.ClientInfo.Version,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create session")
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.InternalError, "Failed to create session", nil))
	}
	w.Header().Set(session.HeaderName, sess.ID)

	version := ProtocolVersion
	if supportedProtocolVersions[params.ProtocolVersion] {
		version = params.ProtocolVersion
	}

	return jsonrpc.NewResult(req.ID, InitializeResult{
		ProtocolVersion: version,
		Capabilities: map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		ServerInfo: Implementation{Name: h.config.ServerName, Version: h.config.ServerVersion},
	})
}

func (h *Handler) listTools() ListToolsResult {
	defs := h.tools.Definitions()
	result := ListToolsResult{Tools: make([]ToolInfo, 0, len(defs))}
	for _, def := range defs {
		result.Tools = append(result.Tools, ToolInfo{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Parameters,
		})
	}
	return result
}

func (h *Handler) callTool(r *http.Request, req *jsonrpc.Request) *jsonrpc.Response {
	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.InvalidParams, "tools/call requires a tool name", nil))
	}

	result, err := h.tools.Call(r.Context(), params.Name, params.Arguments)
	if err != nil {
		var toolErr *tools.Error
		if errors.As(err, &toolErr) && toolErr.Code != tools.CodeExecutionFailed {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.InvalidParams, toolErr.Message, toolErr.Code))
		}
		return jsonrpc.NewResult(req.ID, CallToolResult{
			Content: []Content{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}

	return jsonrpc.NewResult(req.ID, CallToolResult{
		Content:           []Content{{Type: "text", Text: string(result)}},
		StructuredContent: result,
	})
}

// EndSession handles DELETE /rpc. The session middleware has already
// validated the header.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		session.WriteError(w, r, &session.Error{Code: session.CodeMissing, Message: "missing session ID header"}, nil)
		return
	}

	if _, err := h.sessions.Delete(r.Context(), sess.ID); err != nil {
		h.logger.Debug().Err(err).Str("session_id", sess.ID).Msg("Failed to end session")
		session.WriteError(w, r, err, map[string]any{"session_id": sess.ID})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeRPC(w http.ResponseWriter, r *http.Request, status int, resp *jsonrpc.Response) {
	render.Status(r, status)
	render.JSON(w, r, resp)
}
