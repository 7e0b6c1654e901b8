// Package gateway wires the registry, router, session store, agent set,
// and conversation proxy behind an HTTP server.
//
// # Overview
//
// The gateway is the composition root: New() builds every component from
// the configuration, validates cross-references (default agent, boost
// targets), and mounts the HTTP routes. Run() serves until the context is
// canceled, then shuts down gracefully.
//
// # Endpoints
//
//	POST /agent_chat                   Process a chat message (SSE when stream=true)
//	GET  /health                       Liveness check
//	GET  /session_status/{session_id}  Session state snapshot (404 if unknown)
//	POST /set_preference               Store a session preference
//	POST /execute_command              Run a command (400 for non-command input)
//	POST /clear_session/{session_id}   Remove a session entirely (404 if unknown)
//	POST /clear_chat_history           Clear history, keep preferences
//	GET  /agent_status                 Registered agents and statistics
//	GET  /                             Service identification
//	GET  /metrics                      Prometheus metrics (when enabled)
//
// # Streaming
//
// With stream=true, /agent_chat responds as text/event-stream: a "started"
// event with the session id, "chunk" events with incremental text, and a
// terminal "done" event with the reply type and agent used.
package gateway
