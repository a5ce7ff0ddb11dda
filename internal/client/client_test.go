package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", WithHTTPClient(ts.Client()))
}

func TestManifest(t *testing.T) {
	c := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/mcp", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tools":[{"name":"calculator","description":"Perform basic arithmetic operations","parameters":{"type":"object"}}]}`))
	})

	m, err := c.Manifest(context.Background())
	require.NoError(t, err)
	require.Len(t, m.Tools, 1)
	assert.Equal(t, "calculator", m.Tools[0].Name)
	assert.JSONEq(t, `{"type":"object"}`, string(m.Tools[0].Parameters))
}

func TestInvoke(t *testing.T) {
	c := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"result":8}`))
	})

	resp, err := c.Invoke(context.Background(), "calculator", map[string]any{"operation": "add", "a": 5, "b": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `8`, string(resp.Result))

	v, err := resp.Float()
	require.NoError(t, err)
	assert.Equal(t, 8.0, v)
}

func TestInvoke_NonFiniteResult(t *testing.T) {
	c := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":null}`))
	})

	resp, err := c.Invoke(context.Background(), "calculator", map[string]any{"operation": "multiply", "a": 1e308, "b": 10})
	require.NoError(t, err)

	_, err = resp.Float()
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestInvoke_APIError(t *testing.T) {
	c := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"execution_failed","message":"Division by zero is not allowed"}}`))
	})

	_, err := c.Invoke(context.Background(), "calculator", map[string]any{"operation": "divide", "a": 10, "b": 0})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "execution_failed", apiErr.Code)
	assert.Equal(t, "Division by zero is not allowed", apiErr.Message)
}

func TestInvoke_NonJSONError(t *testing.T) {
	c := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})

	_, err := c.Invoke(context.Background(), "calculator", nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Code)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}

func TestInvoke_ContextCancelled(t *testing.T) {
	c := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":1}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Invoke(ctx, "calculator", map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
