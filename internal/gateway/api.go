// ABOUTME: HTTP API handlers for the chat endpoints, session management,
// ABOUTME: and SSE streaming of delegated agent responses.

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/2389/parley-gateway/internal/proxy"
)

// ChatRequest is the JSON request body for POST /agent_chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Stream    bool   `json:"stream,omitempty"`
}

// ChatResponse is the JSON response for POST /agent_chat.
type ChatResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Type      string `json:"type"`
	AgentUsed string `json:"agent_used,omitempty"`
}

// SessionStatusResponse is the JSON response for GET /session_status/{session_id}.
type SessionStatusResponse struct {
	SessionID   string            `json:"session_id"`
	TurnCount   int               `json:"turn_count"`
	HistoryLen  int               `json:"history_len"`
	LastAgent   string            `json:"last_agent,omitempty"`
	Preferences map[string]string `json:"preferences"`
	Debug       bool              `json:"debug"`
}

// SetPreferenceRequest is the JSON request body for POST /set_preference.
type SetPreferenceRequest struct {
	SessionID string `json:"session_id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// ExecuteCommandRequest is the JSON request body for POST /execute_command.
type ExecuteCommandRequest struct {
	SessionID string `json:"session_id"`
	Command   string `json:"command"`
}

// AgentStatusResponse is the JSON response for GET /agent_status.
type AgentStatusResponse struct {
	Agents []AgentInfo    `json:"agents"`
	Stats  map[string]any `json:"stats"`
}

// AgentInfo describes one registered specialist in status responses.
type AgentInfo struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Keywords       []string `json:"keywords"`
	Aliases        []string `json:"aliases,omitempty"`
	CapabilityTags []string `json:"capability_tags,omitempty"`
}

// handleRoot handles GET / with basic service identification.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]any{
		"service": g.config.Service.Name,
		"version": g.config.Service.Version,
		"status":  "running",
		"agents":  g.registry.Len(),
	})
}

// handleHealth handles GET /health.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": g.config.Service.Name,
		"version": g.config.Service.Version,
	})
}

// handleAgentChat handles POST /agent_chat. A missing session_id gets a
// fresh one; stream=true switches the response to SSE.
func (g *Gateway) handleAgentChat(w http.ResponseWriter, r *http.Request) {
	req, err := parseChatRequest(r.Body)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	if req.Stream {
		g.streamChat(w, r, sessionID, req.Message)
		return
	}

	reply := g.proxy.ProcessMessage(r.Context(), sessionID, req.Message)

	status := "success"
	if reply.Kind == proxy.ReplyError {
		status = "error"
	}

	g.writeJSON(w, http.StatusOK, ChatResponse{
		Status:    status,
		SessionID: sessionID,
		Response:  reply.Text,
		Type:      string(reply.Kind),
		AgentUsed: reply.AgentID,
	})
}

// streamChat delivers one chat turn as Server-Sent Events. Text chunks go
// out as "chunk" events; the terminal "done" event carries the session id,
// reply type, and agent used.
func (g *Gateway) streamChat(w http.ResponseWriter, r *http.Request, sessionID, message string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		g.logger.Error("streaming not supported")
		g.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	g.writeSSEEvent(w, "started", map[string]string{"session_id": sessionID})
	flusher.Flush()

	events := g.proxy.ProcessMessageStream(r.Context(), sessionID, message)
	for ev := range events {
		if ev.Done {
			data := map[string]string{
				"session_id": sessionID,
				"type":       string(ev.Reply.Kind),
			}
			if ev.Reply.AgentID != "" {
				data["agent_used"] = ev.Reply.AgentID
			}
			g.writeSSEEvent(w, "done", data)
			flusher.Flush()
			return
		}
		if ev.Text != "" {
			g.writeSSEEvent(w, "chunk", map[string]string{"text": ev.Text})
			flusher.Flush()
		}
	}
}

// handleSessionStatus handles GET /session_status/{session_id}. Unknown
// sessions are 404, not an empty record.
func (g *Gateway) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	rec, ok := g.sessions.Get(sessionID)
	if !ok {
		g.sendJSONError(w, http.StatusNotFound, "session not found")
		return
	}

	g.writeJSON(w, http.StatusOK, SessionStatusResponse{
		SessionID:   sessionID,
		TurnCount:   rec.TurnCount(),
		HistoryLen:  len(rec.History()),
		LastAgent:   rec.LastAgent(),
		Preferences: rec.Preferences(),
		Debug:       rec.Debug(),
	})
}

// handleSetPreference handles POST /set_preference.
func (g *Gateway) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	var req SetPreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" || req.Key == "" || req.Value == "" {
		g.sendJSONError(w, http.StatusBadRequest, "session_id, key, and value are required")
		return
	}

	g.sessions.SetPreference(req.SessionID, req.Key, req.Value)
	g.writeJSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"session_id": req.SessionID,
		"message":    fmt.Sprintf("Preference set: %s = %s", req.Key, req.Value),
	})
}

// handleExecuteCommand handles POST /execute_command. Only command-shaped
// input is accepted; conversational text is rejected rather than delegated,
// so this endpoint can never reach an agent.
func (g *Gateway) handleExecuteCommand(w http.ResponseWriter, r *http.Request) {
	var req ExecuteCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Command == "" {
		g.sendJSONError(w, http.StatusBadRequest, "command is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	reply, ok := g.proxy.ProcessCommand(sessionID, req.Command)
	if !ok {
		g.sendJSONError(w, http.StatusBadRequest, "unknown command")
		return
	}

	g.writeJSON(w, http.StatusOK, ChatResponse{
		Status:    "success",
		SessionID: sessionID,
		Response:  reply.Text,
		Type:      string(reply.Kind),
		AgentUsed: reply.AgentID,
	})
}

// handleClearSession handles POST /clear_session/{session_id}. Removes the
// session entirely; clearing an unknown session is 404.
func (g *Gateway) handleClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if !g.sessions.Clear(sessionID) {
		g.sendJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"session_id": sessionID,
		"message":    "Session cleared",
	})
}

// handleClearChatHistory handles POST /clear_chat_history. Clears history
// for the given session while keeping its preferences.
func (g *Gateway) handleClearChatHistory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	g.sessions.ClearHistory(req.SessionID)
	g.writeJSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"session_id": req.SessionID,
		"message":    "Chat history cleared",
	})
}

// handleAgentStatus handles GET /agent_status with the registered agents
// and current delegation statistics.
func (g *Gateway) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	agents := make([]AgentInfo, 0, g.registry.Len())
	for _, d := range g.registry.All() {
		agents = append(agents, AgentInfo{
			ID:             d.ID,
			Name:           d.Name,
			Keywords:       d.Keywords,
			Aliases:        d.Aliases,
			CapabilityTags: d.CapabilityTags,
		})
	}

	snap := g.counters.Snapshot()
	g.writeJSON(w, http.StatusOK, AgentStatusResponse{
		Agents: agents,
		Stats: map[string]any{
			"total_interactions":       snap.Total(),
			"commands_handled":         snap.CommandsHandled,
			"delegated":                snap.Delegated,
			"clarifications_requested": snap.ClarificationsRequested,
		},
	})
}

// writeSSEEvent writes a single SSE event to the response writer.
func (g *Gateway) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		g.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

// writeJSON writes a JSON response with the given status code.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": message})
}

// parseChatRequest parses and validates a ChatRequest from the given reader.
func parseChatRequest(r io.Reader) (*ChatRequest, error) {
	var req ChatRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	if req.Message == "" {
		return nil, errors.New("message is required")
	}
	return &req, nil
}
