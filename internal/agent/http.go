// ABOUTME: HTTP-backed remote agent: POST {"text": ...} to an endpoint, read the reply.
// ABOUTME: No retries; transport and non-2xx failures surface as InvocationError.

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultHTTPTimeout bounds a single remote invocation when no timeout is
// configured.
const DefaultHTTPTimeout = 60 * time.Second

// InvokeRequest is the JSON body sent to a remote agent endpoint.
type InvokeRequest struct {
	Text string `json:"text"`
}

// InvokeResponse is the JSON body a remote agent endpoint returns.
type InvokeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// HTTPAgent invokes a remote agent over HTTP+JSON. The remote side owns the
// model calls and tool execution; this client only moves text.
type HTTPAgent struct {
	id       string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPAgent creates a client for the agent served at endpoint.
func NewHTTPAgent(id, endpoint string, timeout time.Duration, logger *slog.Logger) *HTTPAgent {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPAgent{
		id:       id,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("component", "agent", "agent_id", id),
	}
}

// Invoke sends the text to the remote agent and returns its reply.
func (a *HTTPAgent) Invoke(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(InvokeRequest{Text: text})
	if err != nil {
		return "", &InvocationError{AgentID: a.id, Err: fmt.Errorf("encoding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &InvocationError{AgentID: a.id, Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	a.logger.Debug("invoking remote agent", "endpoint", a.endpoint)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &InvocationError{AgentID: a.id, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a bounded slice of the body for the error message.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &InvocationError{
			AgentID: a.id,
			Err:     fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, snippet),
		}
	}

	var out InvokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &InvocationError{AgentID: a.id, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if out.Error != "" {
		return "", &InvocationError{AgentID: a.id, Err: fmt.Errorf("agent error: %s", out.Error)}
	}

	return out.Text, nil
}
