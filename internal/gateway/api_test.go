// ABOUTME: HTTP API tests exercising the chat, session, command, status,
// ABOUTME: and metrics endpoints through the gateway's handler.

package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/parley-gateway/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Name: "parley-gateway", Version: "test"},
		Server:  config.ServerConfig{HTTPAddr: ":0"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Session: config.SessionConfig{HistoryLimit: 20},
		Routing: config.RoutingConfig{
			DefaultAgent: "echo",
			Boosts: []config.BoostConfig{
				{Agent: "math", Pattern: `\d+\s*[\+\-\*\/\^%]\s*\d+`, Weight: 5},
				{Agent: "math", Pattern: `what\s+is\s+\d+`, Weight: 3},
			},
		},
		Agents: []config.AgentConfig{
			{
				ID:       "math",
				Name:     "Math Assistant",
				Type:     "math",
				Keywords: []string{"calculate", "math", "compute", "what is"},
				Aliases:  []string{"calc"},
			},
			{
				ID:       "echo",
				Name:     "Echo Agent",
				Type:     "echo",
				Keywords: []string{"echo"},
			},
		},
	}
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	gw, err := New(testConfig(), testLogger())
	require.NoError(t, err)
	return gw
}

func doJSON(t *testing.T, gw *Gateway, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGateway_Health(t *testing.T) {
	gw := newTestGateway(t)

	rec := doJSON(t, gw, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "parley-gateway", body["service"])
}

func TestGateway_Root(t *testing.T) {
	gw := newTestGateway(t)

	rec := doJSON(t, gw, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, float64(2), body["agents"])
}

func TestGateway_AgentChat(t *testing.T) {
	gw := newTestGateway(t)

	rec := doJSON(t, gw, http.MethodPost, "/agent_chat", ChatRequest{
		Message:   "what is 2 + 2",
		SessionID: "s1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[ChatResponse](t, rec)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "s1", body.SessionID)
	assert.Equal(t, "message", body.Type)
	assert.Equal(t, "math", body.AgentUsed)
	assert.Contains(t, body.Response, "Routed to: Math Assistant")
	assert.Contains(t, body.Response, "2 + 2 = 4")
}

func TestGateway_AgentChat_GeneratesSessionID(t *testing.T) {
	gw := newTestGateway(t)

	rec := doJSON(t, gw, http.MethodPost, "/agent_chat", ChatRequest{
		Message: "echo hi",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[ChatResponse](t, rec)
	_, err := uuid.Parse(body.SessionID)
	assert.NoError(t, err)
}

func TestGateway_AgentChat_Command(t *testing.T) {
	gw := newTestGateway(t)

	rec := doJSON(t, gw, http.MethodPost, "/agent_chat", ChatRequest{
		Message:   "help",
		SessionID: "s1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[ChatResponse](t, rec)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "command", body.Type)
	assert.Empty(t, body.AgentUsed)
	assert.Contains(t, body.Response, "Available commands")
}

func TestGateway_AgentChat_BadRequests(t *testing.T) {
	gw := newTestGateway(t)

	req := httptest.NewRequest(http.MethodPost, "/agent_chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "invalid JSON body", body["error"])

	rec = doJSON(t, gw, http.MethodPost, "/agent_chat", ChatRequest{SessionID: "s1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body = decodeBody[map[string]string](t, rec)
	assert.Equal(t, "message is required", body["error"])
}

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	name string
	data map[string]string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()

	var events []sseEvent
	var current sseEvent
	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, "event: "):
			current = sseEvent{name: strings.TrimPrefix(line, "event: ")}
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.data))
			events = append(events, current)
		}
	}
	return events
}

func TestGateway_AgentChat_Stream(t *testing.T) {
	gw := newTestGateway(t)

	rec := doJSON(t, gw, http.MethodPost, "/agent_chat", ChatRequest{
		Message:   "echo hello streaming world",
		SessionID: "s1",
		Stream:    true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := parseSSE(t, rec.Body.String())
	require.NotEmpty(t, events)

	assert.Equal(t, "started", events[0].name)
	assert.Equal(t, "s1", events[0].data["session_id"])

	last := events[len(events)-1]
	assert.Equal(t, "done", last.name)
	assert.Equal(t, "message", last.data["type"])
	assert.Equal(t, "echo", last.data["agent_used"])

	var assembled strings.Builder
	for _, ev := range events[1 : len(events)-1] {
		require.Equal(t, "chunk", ev.name)
		assembled.WriteString(ev.data["text"])
	}
	assert.Contains(t, assembled.String(), "Routed to: Echo Agent")
	assert.Contains(t, assembled.String(), "Echo: echo hello streaming world")

	// The streamed turn is recorded like a non-streamed one.
	status := decodeBody[SessionStatusResponse](t, doJSON(t, gw, http.MethodGet, "/session_status/s1", nil))
	assert.Equal(t, 1, status.TurnCount)
	assert.Equal(t, "echo", status.LastAgent)
}

func TestGateway_AgentChat_StreamCommand(t *testing.T) {
	gw := newTestGateway(t)

	rec := doJSON(t, gw, http.MethodPost, "/agent_chat", ChatRequest{
		Message:   "help",
		SessionID: "s1",
		Stream:    true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, "started", events[0].name)
	assert.Equal(t, "chunk", events[1].name)
	assert.Contains(t, events[1].data["text"], "Available commands")
	assert.Equal(t, "done", events[2].name)
	assert.Equal(t, "command", events[2].data["type"])
}

func TestGateway_SessionStatus(t *testing.T) {
	gw := newTestGateway(t)

	rec := doJSON(t, gw, http.MethodGet, "/session_status/ghost", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "session not found", body["error"])

	doJSON(t, gw, http.MethodPost, "/agent_chat", ChatRequest{Message: "what is 3 + 4", SessionID: "s1"})

	rec = doJSON(t, gw, http.MethodGet, "/session_status/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[SessionStatusResponse](t, rec)
	assert.Equal(t, 1, status.TurnCount)
	assert.Equal(t, 2, status.HistoryLen)
	assert.Equal(t, "math", status.LastAgent)
}

func TestGateway_SetPreference(t *testing.T) {
	gw := newTestGateway(t)

	rec := doJSON(t, gw, http.MethodPost, "/set_preference", SetPreferenceRequest{
		SessionID: "s1",
		Key:       "default_repo",
		Value:     "microsoft/vscode",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	status := decodeBody[SessionStatusResponse](t, doJSON(t, gw, http.MethodGet, "/session_status/s1", nil))
	assert.Equal(t, "microsoft/vscode", status.Preferences["default_repo"])

	rec = doJSON(t, gw, http.MethodPost, "/set_preference", SetPreferenceRequest{Key: "k", Value: "v"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_ExecuteCommand(t *testing.T) {
	gw := newTestGateway(t)

	rec := doJSON(t, gw, http.MethodPost, "/execute_command", ExecuteCommandRequest{
		SessionID: "s1",
		Command:   "set default_repo=golang/go",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[ChatResponse](t, rec)
	assert.Equal(t, "command", body.Type)
	assert.Contains(t, body.Response, "default_repo = golang/go")

	rec = doJSON(t, gw, http.MethodPost, "/execute_command", ExecuteCommandRequest{SessionID: "s1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_ExecuteCommand_RejectsNonCommands(t *testing.T) {
	gw := newTestGateway(t)

	rec := doJSON(t, gw, http.MethodPost, "/execute_command", ExecuteCommandRequest{
		SessionID: "s1",
		Command:   "what is 2 + 2",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "unknown command", body["error"])

	// The rejected input never reached an agent.
	status := decodeBody[AgentStatusResponse](t, doJSON(t, gw, http.MethodGet, "/agent_status", nil))
	assert.Equal(t, float64(0), status.Stats["delegated"])
	assert.Equal(t, float64(0), status.Stats["total_interactions"])
}

func TestGateway_ClearSession(t *testing.T) {
	gw := newTestGateway(t)

	doJSON(t, gw, http.MethodPost, "/agent_chat", ChatRequest{Message: "echo hi", SessionID: "s1"})

	rec := doJSON(t, gw, http.MethodPost, "/clear_session/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, doJSON(t, gw, http.MethodGet, "/session_status/s1", nil).Code)

	// Clearing a session that never existed is 404, not a silent success.
	rec = doJSON(t, gw, http.MethodPost, "/clear_session/ghost", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "session not found", body["error"])
}

func TestGateway_ClearChatHistory(t *testing.T) {
	gw := newTestGateway(t)

	doJSON(t, gw, http.MethodPost, "/set_preference", SetPreferenceRequest{
		SessionID: "s1", Key: "default_repo", Value: "golang/go",
	})
	doJSON(t, gw, http.MethodPost, "/agent_chat", ChatRequest{Message: "echo hi", SessionID: "s1"})

	rec := doJSON(t, gw, http.MethodPost, "/clear_chat_history", map[string]string{"session_id": "s1"})
	require.Equal(t, http.StatusOK, rec.Code)

	status := decodeBody[SessionStatusResponse](t, doJSON(t, gw, http.MethodGet, "/session_status/s1", nil))
	assert.Equal(t, 0, status.TurnCount)
	assert.Equal(t, 0, status.HistoryLen)
	assert.Equal(t, "golang/go", status.Preferences["default_repo"], "preferences survive history clears")
}

func TestGateway_AgentStatus(t *testing.T) {
	gw := newTestGateway(t)

	doJSON(t, gw, http.MethodPost, "/agent_chat", ChatRequest{Message: "what is 1 + 1", SessionID: "s1"})

	rec := doJSON(t, gw, http.MethodGet, "/agent_status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[AgentStatusResponse](t, rec)
	require.Len(t, body.Agents, 2)
	assert.Equal(t, "math", body.Agents[0].ID)
	assert.Equal(t, "echo", body.Agents[1].ID)

	assert.Equal(t, float64(1), body.Stats["delegated"])
	assert.Equal(t, float64(1), body.Stats["total_interactions"])
}

func TestGateway_Metrics(t *testing.T) {
	gw := newTestGateway(t)

	doJSON(t, gw, http.MethodPost, "/agent_chat", ChatRequest{Message: "what is 1 + 1", SessionID: "s1"})

	rec := doJSON(t, gw, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "parley_delegated_total 1")
}

func TestGateway_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false

	gw, err := New(cfg, testLogger())
	require.NoError(t, err)

	rec := doJSON(t, gw, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_InvalidWiring(t *testing.T) {
	cfg := testConfig()
	cfg.Agents[0].Type = "carrier-pigeon"
	_, err := New(cfg, testLogger())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Routing.DefaultAgent = "ghost"
	_, err = New(cfg, testLogger())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Routing.Boosts[0].Pattern = "(unclosed"
	_, err = New(cfg, testLogger())
	assert.Error(t, err)
}
