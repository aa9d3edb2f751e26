package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps http.Client with the host base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a new HTTP client with timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends body as JSON when non-nil and decodes the answer into out when
// non-nil. Any status other than want is an error.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, want int) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// Get decodes a 200 answer into out.
func (c *HTTPClient) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, http.StatusOK)
}

// Healthy reports whether /healthz answers 200.
func (c *HTTPClient) Healthy(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

// StartSession posts the plan to /sessions/{id}/live.
func (c *HTTPClient) StartSession(ctx context.Context, p Plan) error {
	body := struct {
		MatchID string `json:"match_id"`
		Players any    `json:"players"`
	}{MatchID: p.MatchID, Players: p.Players}
	return c.do(ctx, http.MethodPost, "/sessions/"+p.SessionID+"/live", body, nil, http.StatusAccepted)
}

// SetObserving updates the session's observing flag.
func (c *HTTPClient) SetObserving(ctx context.Context, sessionID string, observing bool) error {
	body := map[string]bool{"observing": observing}
	return c.do(ctx, http.MethodPut, "/sessions/"+sessionID+"/observing", body, nil, http.StatusNoContent)
}

// StopSession deletes the session's live tracking.
func (c *HTTPClient) StopSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+sessionID+"/live", nil, nil, http.StatusNoContent)
}
