// Package client talks to the calculator server's /mcp endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the manifest and invocation endpoints of an MCP tool server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the server at baseURL, e.g. http://localhost:3000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Manifest is the list of tools a server advertises.
type Manifest struct {
	Tools []Tool `json:"tools"`
}

// Tool is one advertised tool.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// InvokeResponse carries the tool result exactly as the server returned it.
type InvokeResponse struct {
	Result json.RawMessage `json:"result"`
}

// Float decodes the result as a number. The server sends null for results
// that overflowed, which is reported as ErrNonFinite.
func (r *InvokeResponse) Float() (float64, error) {
	if string(r.Result) == "null" {
		return 0, ErrNonFinite
	}
	var v float64
	if err := json.Unmarshal(r.Result, &v); err != nil {
		return 0, fmt.Errorf("result is not a number: %w", err)
	}
	return v, nil
}

// ErrNonFinite is returned by Float when the result was not a finite number.
var ErrNonFinite = errors.New("result is not a finite number")

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Manifest fetches the tool manifest.
func (c *Client) Manifest(ctx context.Context) (*Manifest, error) {
	var m Manifest
	if err := c.do(ctx, http.MethodGet, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Invoke calls tool with params, which must marshal to a JSON object.
func (c *Client) Invoke(ctx context.Context, tool string, params any) (*InvokeResponse, error) {
	body, err := json.Marshal(struct {
		Tool   string `json:"tool"`
		Params any    `json:"params"`
	}{Tool: tool, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var resp InvokeResponse
	if err := c.do(ctx, http.MethodPost, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/mcp", reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, data []byte) *APIError {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error.Message == "" {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(data))}
	}
	return &APIError{StatusCode: status, Code: body.Error.Code, Message: body.Error.Message}
}
