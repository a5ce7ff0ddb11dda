package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-calculator-go/internal/calculator"
	"mcp-calculator-go/internal/session"
	"mcp-calculator-go/internal/tools"
)

type testEnv struct {
	router   http.Handler
	sessions *session.DefaultManager
}

func newTestEnv(t *testing.T, requireSession bool) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	registry := tools.NewRegistry()
	registry.Register(calculator.NewTool())

	store := session.NewMemoryStore(logger)
	t.Cleanup(func() { store.Close() })
	sessions := session.NewDefaultManager(store, session.ManagerConfig{SessionTimeout: time.Hour}, logger)

	handler := NewHandler(registry, sessions, Config{
		ServerName:     "calculator-test",
		ServerVersion:  "0.0.1",
		RequireSession: requireSession,
	}, logger)

	required := session.NewMiddleware(sessions, session.DefaultMiddlewareConfig(), logger)

	r := chi.NewRouter()
	r.Get("/mcp", handler.Manifest)
	r.Post("/mcp", handler.Invoke)
	r.Post("/rpc", handler.RPC)
	r.With(required.Handler).Delete("/rpc", handler.EndSession)

	return &testEnv{router: r, sessions: sessions}
}

func (e *testEnv) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestManifest(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(http.MethodGet, "/mcp", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var manifest struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Parameters  struct {
				Type       string `json:"type"`
				Properties map[string]struct {
					Type string   `json:"type"`
					Enum []string `json:"enum"`
				} `json:"properties"`
				Required []string `json:"required"`
			} `json:"parameters"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &manifest))
	require.Len(t, manifest.Tools, 1)

	tool := manifest.Tools[0]
	assert.Equal(t, "calculator", tool.Name)
	assert.Equal(t, "Perform basic arithmetic operations", tool.Description)
	assert.Equal(t, "object", tool.Parameters.Type)
	assert.Equal(t, []string{"add", "subtract", "multiply", "divide"}, tool.Parameters.Properties["operation"].Enum)
	assert.Equal(t, "number", tool.Parameters.Properties["a"].Type)
	assert.ElementsMatch(t, []string{"operation", "a", "b"}, tool.Parameters.Required)
}

func TestInvoke(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "add",
			body:       `{"tool":"calculator","params":{"operation":"add","a":5,"b":3}}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"result":8}`,
		},
		{
			name:       "multiply",
			body:       `{"tool":"calculator","params":{"operation":"multiply","a":4,"b":7}}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"result":28}`,
		},
		{
			name:       "division by zero",
			body:       `{"tool":"calculator","params":{"operation":"divide","a":10,"b":0}}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":{"code":"execution_failed","message":"Division by zero is not allowed"}}`,
		},
		{
			name:       "unknown operation",
			body:       `{"tool":"calculator","params":{"operation":"modulo","a":1,"b":2}}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":{"code":"execution_failed","message":"Unknown operation: modulo"}}`,
		},
		{
			name:       "unknown tool",
			body:       `{"tool":"weather","params":{}}`,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":{"code":"tool_not_found","message":"Tool not found: weather"}}`,
		},
		{
			name:       "missing operand",
			body:       `{"tool":"calculator","params":{"operation":"add","a":1}}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":{"code":"invalid_params","message":"missing required parameter: b"}}`,
		},
		{
			name:       "missing tool name",
			body:       `{"params":{}}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":{"code":"invalid_request","message":"tool is required"}}`,
		},
		{
			name:       "malformed body",
			body:       `{"tool":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":{"code":"invalid_request","message":"invalid request body"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/mcp", tt.body, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeRPC(t *testing.T, w *httptest.ResponseRecorder) rpcResponse {
	t.Helper()
	var resp rpcResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func initialize(t *testing.T, env *testEnv) string {
	t.Helper()
	w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"test-client","version":"1.2.3"}}}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(session.HeaderName)
	require.NotEmpty(t, id)
	return id
}

func TestRPC_Initialize(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"test-client","version":"1.2.3"}}}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeRPC(t, w)
	require.Nil(t, resp.Error)
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Equal(t, 1.0, resp.ID)

	var result InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "2025-03-26", result.ProtocolVersion)
	assert.Equal(t, "calculator-test", result.ServerInfo.Name)
	assert.Contains(t, result.Capabilities, "tools")

	id := w.Header().Get(session.HeaderName)
	sess, err := env.sessions.Validate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "test-client", sess.ClientInfo.ClientName)
	assert.Equal(t, "1.2.3", sess.ClientInfo.ClientVersion)
}

func TestRPC_InitializeIgnoresSessionHeader(t *testing.T) {
	env := newTestEnv(t, true)
	stale := initialize(t, env)
	_, err := env.sessions.Delete(context.Background(), stale)
	require.NoError(t, err)

	headers := map[string]string{
		"expired session": stale,
		"unknown session": "sess.3f1c2a9e-5b7d-4c1e-9a2f-8d6e4b0c7a15",
		"malformed":       "not-a-session",
	}

	for name, value := range headers {
		t.Run(name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18"}}`, http.Header{session.HeaderName: {value}})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			resp := decodeRPC(t, w)
			require.Nil(t, resp.Error)

			id := w.Header().Get(session.HeaderName)
			require.NotEmpty(t, id)
			assert.NotEqual(t, value, id)
			_, err := env.sessions.Validate(context.Background(), id)
			assert.NoError(t, err)
		})
	}
}

func TestRPC_InitializeUnsupportedVersion(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":"init","method":"initialize","params":{"protocolVersion":"1999-01-01"}}`, nil)
	resp := decodeRPC(t, w)
	require.Nil(t, resp.Error)

	var result InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, "init", resp.ID)
}

func TestRPC_ToolsListAndCall(t *testing.T) {
	env := newTestEnv(t, true)
	header := http.Header{session.HeaderName: {initialize(t, env)}}

	w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, header)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeRPC(t, w)
	require.Nil(t, resp.Error)

	var list ListToolsResult
	require.NoError(t, json.Unmarshal(resp.Result, &list))
	require.Len(t, list.Tools, 1)
	assert.Equal(t, "calculator", list.Tools[0].Name)
	assert.Equal(t, "object", list.Tools[0].InputSchema.Type)

	w = env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"calculator","arguments":{"operation":"subtract","a":10,"b":4}}}`, header)
	resp = decodeRPC(t, w)
	require.Nil(t, resp.Error)

	var call CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &call))
	assert.False(t, call.IsError)
	require.Len(t, call.Content, 1)
	assert.Equal(t, "text", call.Content[0].Type)
	assert.JSONEq(t, `{"result":6}`, call.Content[0].Text)
	assert.JSONEq(t, `{"result":6}`, string(call.StructuredContent))
}

func TestRPC_ToolsCallErrors(t *testing.T) {
	env := newTestEnv(t, true)
	header := http.Header{session.HeaderName: {initialize(t, env)}}

	t.Run("handler failure is a tool result", func(t *testing.T) {
		w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"calculator","arguments":{"operation":"divide","a":1,"b":0}}}`, header)
		resp := decodeRPC(t, w)
		require.Nil(t, resp.Error)

		var call CallToolResult
		require.NoError(t, json.Unmarshal(resp.Result, &call))
		assert.True(t, call.IsError)
		assert.Equal(t, "Division by zero is not allowed", call.Content[0].Text)
	})

	t.Run("unknown tool", func(t *testing.T) {
		w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"nope","arguments":{}}}`, header)
		resp := decodeRPC(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, -32602, resp.Error.Code)
		assert.Equal(t, "Tool not found: nope", resp.Error.Message)
	})

	t.Run("missing name", func(t *testing.T) {
		w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{}}`, header)
		resp := decodeRPC(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, -32602, resp.Error.Code)
	})
}

func TestRPC_Protocol(t *testing.T) {
	env := newTestEnv(t, true)

	t.Run("ping without session", func(t *testing.T) {
		w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":7,"method":"ping"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeRPC(t, w)
		assert.Nil(t, resp.Error)
		assert.JSONEq(t, `{}`, string(resp.Result))
	})

	t.Run("null id is a request", func(t *testing.T) {
		w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":null,"method":"ping"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"result":{}}`, w.Body.String())
	})

	t.Run("large id is echoed exactly", func(t *testing.T) {
		w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":9007199254740993,"method":"ping"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"id":9007199254740993`)
	})

	t.Run("object id rejected", func(t *testing.T) {
		w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":{"a":1},"method":"ping"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeRPC(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, -32600, resp.Error.Code)
	})

	t.Run("notification is accepted", func(t *testing.T) {
		w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, nil)
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("parse error", func(t *testing.T) {
		w := env.do(http.MethodPost, "/rpc", `{not json`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeRPC(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, -32700, resp.Error.Code)
		assert.Nil(t, resp.ID)
	})

	t.Run("batch rejected", func(t *testing.T) {
		w := env.do(http.MethodPost, "/rpc", `[{"jsonrpc":"2.0","id":1,"method":"ping"}]`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeRPC(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, -32600, resp.Error.Code)
	})

	t.Run("unknown method", func(t *testing.T) {
		header := http.Header{session.HeaderName: {initialize(t, env)}}
		w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":8,"method":"resources/list"}`, header)
		resp := decodeRPC(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, -32601, resp.Error.Code)
	})

	t.Run("tools require a session", func(t *testing.T) {
		w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":9,"method":"tools/list"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), session.CodeMissing)
	})

	t.Run("unknown session", func(t *testing.T) {
		header := http.Header{session.HeaderName: {"sess.3f1c2a9e-5b7d-4c1e-9a2f-8d6e4b0c7a15"}}
		w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":10,"method":"tools/list"}`, header)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed session", func(t *testing.T) {
		header := http.Header{session.HeaderName: {"not-a-session"}}
		w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":11,"method":"tools/list"}`, header)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), session.CodeInvalid)
	})
}

func TestRPC_SessionOptional(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"calculator","arguments":{"operation":"add","a":5,"b":3}}}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeRPC(t, w)
	require.Nil(t, resp.Error)

	var call CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &call))
	assert.JSONEq(t, `{"result":8}`, call.Content[0].Text)
}

func TestRPC_ToolsCallNonFiniteResult(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(http.MethodPost, "/rpc", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"calculator","arguments":{"operation":"multiply","a":1e308,"b":10}}}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeRPC(t, w)
	require.Nil(t, resp.Error)

	var call CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &call))
	assert.False(t, call.IsError)
	assert.JSONEq(t, `{"result":null}`, string(call.StructuredContent))

	w = env.do(http.MethodPost, "/mcp", `{"tool":"calculator","params":{"operation":"multiply","a":1e308,"b":10}}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":null}`, w.Body.String())
}

func TestEndSession(t *testing.T) {
	env := newTestEnv(t, true)
	id := initialize(t, env)
	header := http.Header{session.HeaderName: {id}}

	w := env.do(http.MethodDelete, "/rpc", "", header)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := env.sessions.Validate(context.Background(), id)
	assert.Equal(t, session.CodeNotFound, session.ErrorCode(err))

	w = env.do(http.MethodDelete, "/rpc", "", header)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodDelete, "/rpc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
