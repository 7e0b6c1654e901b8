// ABOUTME: Conversation proxy orchestrating one request: commands, preference hints,
// ABOUTME: clarification checks, routing, delegation, formatting, and session updates.

package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/parley-gateway/internal/agent"
	"github.com/2389/parley-gateway/internal/registry"
	"github.com/2389/parley-gateway/internal/router"
	"github.com/2389/parley-gateway/internal/session"
	"github.com/2389/parley-gateway/internal/stats"
)

// AgentInvoker is the outbound port the proxy delegates through. The agent's
// internal tool calling and model invocation are entirely behind it.
type AgentInvoker interface {
	Invoke(ctx context.Context, agentID, text string) (string, error)
	InvokeStream(ctx context.Context, agentID, text string) (<-chan agent.Chunk, error)
}

// ReplyKind classifies how the proxy disposed of a message.
type ReplyKind string

const (
	// ReplyCommand means the message was a command handled locally.
	ReplyCommand ReplyKind = "command"

	// ReplyClarification means the proxy asked the user for more detail
	// instead of delegating. This is a normal outcome, not an error.
	ReplyClarification ReplyKind = "clarification"

	// ReplyMessage means the message was delegated and answered by an agent.
	ReplyMessage ReplyKind = "message"

	// ReplyError means delegation failed and the text is an apologetic
	// user-facing message. The turn is still recorded.
	ReplyError ReplyKind = "error"
)

// Reply is the formatted outcome of processing one message.
type Reply struct {
	Kind    ReplyKind
	Text    string
	AgentID string // agent that handled a delegated turn, if any
}

// Event is one item in a streamed response. Text events carry incremental
// chunks; the final event has Done set and carries the assembled Reply.
type Event struct {
	Text  string
	Done  bool
	Reply *Reply
}

// Proxy sits between the caller and the router/agents. All shared state it
// touches (sessions, counters) is injected at construction.
type Proxy struct {
	registry  *registry.Registry
	router    *router.Router
	sessions  *session.Store
	agents    AgentInvoker
	counters  *stats.Counters
	clarifier *Clarifier
	logger    *slog.Logger
}

// Config contains the Proxy's dependencies.
type Config struct {
	Registry  *registry.Registry
	Router    *router.Router
	Sessions  *session.Store
	Agents    AgentInvoker
	Counters  *stats.Counters
	Clarifier *Clarifier
	Logger    *slog.Logger
}

// New creates a Proxy from its dependencies.
func New(cfg Config) (*Proxy, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Router == nil {
		return nil, fmt.Errorf("router is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Agents == nil {
		return nil, fmt.Errorf("agent invoker is required")
	}
	if cfg.Counters == nil {
		return nil, fmt.Errorf("counters are required")
	}

	clarifier := cfg.Clarifier
	if clarifier == nil {
		var err error
		clarifier, err = NewClarifier(DefaultClarifierConfig())
		if err != nil {
			return nil, fmt.Errorf("default clarifier: %w", err)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Proxy{
		registry:  cfg.Registry,
		router:    cfg.Router,
		sessions:  cfg.Sessions,
		agents:    cfg.Agents,
		counters:  cfg.Counters,
		clarifier: clarifier,
		logger:    logger.With("component", "proxy"),
	}, nil
}

// ProcessMessage runs the full decision flow for one message and returns
// the formatted reply. Every call increments exactly one delegation counter
// and mutates at most the one session record it belongs to. No session lock
// is held while an agent invocation is in flight.
func (p *Proxy) ProcessMessage(ctx context.Context, sessionID, input string) *Reply {
	rec := p.sessions.GetOrCreate(sessionID)

	// Commands take precedence over everything, including trigger keywords.
	if reply := p.handleCommand(rec, input); reply != nil {
		p.counters.Increment(stats.KindCommandsHandled)
		p.flowLog(rec, "command handled locally", "session_id", sessionID)
		return reply
	}

	if reply := p.resolvePending(rec, input); reply != nil {
		p.counters.Increment(stats.KindCommandsHandled)
		p.flowLog(rec, "clarification suggestion accepted", "session_id", sessionID)
		return reply
	}

	processed := p.clarifier.ApplyPreferences(rec, input)
	if processed != input {
		p.flowLog(rec, "preference hint applied",
			"session_id", sessionID, "augmented", processed)
	}

	if c := p.clarifier.Check(rec, input); c != nil {
		p.counters.Increment(stats.KindClarificationsRequested)
		p.flowLog(rec, "clarification requested",
			"session_id", sessionID, "type", c.Type)
		p.stashPending(rec, c)
		text := formatClarification(c)
		rec.CompleteTurn(input, text, "")
		return &Reply{Kind: ReplyClarification, Text: text}
	}

	decision := p.router.Route(processed)
	if decision.AgentID == "" {
		// No match and no default agent configured: ask the user to pick
		// a specialist rather than guessing.
		p.counters.Increment(stats.KindClarificationsRequested)
		p.flowLog(rec, "no route, returning selection help", "session_id", sessionID)
		text := selectionHelp(p.registry)
		rec.CompleteTurn(input, text, "")
		return &Reply{Kind: ReplyClarification, Text: text}
	}

	desc, err := p.registry.Resolve(decision.AgentID)
	if err != nil {
		// Startup validation makes this unreachable; fail loudly if it
		// happens anyway.
		p.logger.Error("router selected unknown agent",
			"agent_id", decision.AgentID, "error", err)
		p.counters.Increment(stats.KindDelegated)
		text := apologyText(nil)
		rec.CompleteTurn(input, text, "")
		return &Reply{Kind: ReplyError, Text: text}
	}

	p.counters.Increment(stats.KindDelegated)
	p.flowLog(rec, "delegating to agent",
		"session_id", sessionID,
		"agent_id", decision.AgentID,
		"matched", decision.Matched,
		"default_fallback", decision.DefaultFallback)

	raw, err := p.agents.Invoke(ctx, decision.AgentID, processed)
	if err != nil {
		p.logger.Warn("delegation failed",
			"session_id", sessionID,
			"agent_id", decision.AgentID,
			"error", err)
		text := apologyText(desc)
		rec.CompleteTurn(input, text, "")
		return &Reply{Kind: ReplyError, Text: text, AgentID: decision.AgentID}
	}

	formatted := formatResponse(raw, desc)
	rec.CompleteTurn(input, formatted, decision.AgentID)
	return &Reply{Kind: ReplyMessage, Text: formatted, AgentID: decision.AgentID}
}

// ProcessMessageStream runs the identical decision flow but delivers the
// response incrementally. Counters and session updates are the same as the
// non-streaming path; follow-up suggestions are appended in the final text
// chunk once the full response is known.
func (p *Proxy) ProcessMessageStream(ctx context.Context, sessionID, input string) <-chan Event {
	out := make(chan Event, 16)

	rec := p.sessions.GetOrCreate(sessionID)

	// Command, clarification, and no-route outcomes are single-chunk; only
	// delegated responses actually stream.
	if reply := p.handleCommand(rec, input); reply != nil {
		p.counters.Increment(stats.KindCommandsHandled)
		emitSingle(out, reply)
		return out
	}

	if reply := p.resolvePending(rec, input); reply != nil {
		p.counters.Increment(stats.KindCommandsHandled)
		emitSingle(out, reply)
		return out
	}

	processed := p.clarifier.ApplyPreferences(rec, input)

	if c := p.clarifier.Check(rec, input); c != nil {
		p.counters.Increment(stats.KindClarificationsRequested)
		p.stashPending(rec, c)
		text := formatClarification(c)
		rec.CompleteTurn(input, text, "")
		emitSingle(out, &Reply{Kind: ReplyClarification, Text: text})
		return out
	}

	decision := p.router.Route(processed)
	if decision.AgentID == "" {
		p.counters.Increment(stats.KindClarificationsRequested)
		text := selectionHelp(p.registry)
		rec.CompleteTurn(input, text, "")
		emitSingle(out, &Reply{Kind: ReplyClarification, Text: text})
		return out
	}

	desc, err := p.registry.Resolve(decision.AgentID)
	if err != nil {
		p.logger.Error("router selected unknown agent",
			"agent_id", decision.AgentID, "error", err)
		p.counters.Increment(stats.KindDelegated)
		text := apologyText(nil)
		rec.CompleteTurn(input, text, "")
		emitSingle(out, &Reply{Kind: ReplyError, Text: text})
		return out
	}

	p.counters.Increment(stats.KindDelegated)

	chunks, err := p.agents.InvokeStream(ctx, decision.AgentID, processed)
	if err != nil {
		p.logger.Warn("delegation failed",
			"session_id", sessionID,
			"agent_id", decision.AgentID,
			"error", err)
		text := apologyText(desc)
		rec.CompleteTurn(input, text, "")
		emitSingle(out, &Reply{Kind: ReplyError, Text: text, AgentID: decision.AgentID})
		return out
	}

	go func() {
		defer close(out)

		header := responseHeader(desc)
		out <- Event{Text: header}

		var raw string
		for chunk := range chunks {
			raw += chunk.Text
			select {
			case out <- Event{Text: chunk.Text}:
			case <-ctx.Done():
				// Drain so the agent goroutine is not blocked forever.
				go func() {
					for range chunks {
					}
				}()
				// Record what was delivered so the turn is not lost,
				// matching the non-streaming path on failure.
				rec.CompleteTurn(input, header+raw, decision.AgentID)
				return
			}
		}

		suffix := suggestionSuffix(raw, desc)
		if suffix != "" {
			out <- Event{Text: suffix}
		}

		formatted := header + raw + suffix
		rec.CompleteTurn(input, formatted, decision.AgentID)
		out <- Event{Done: true, Reply: &Reply{
			Kind:    ReplyMessage,
			Text:    formatted,
			AgentID: decision.AgentID,
		}}
	}()

	return out
}

// ProcessCommand handles command-shaped input only. The boolean reports
// whether the input was a command; conversational input is left untouched
// and increments nothing.
func (p *Proxy) ProcessCommand(sessionID, input string) (*Reply, bool) {
	rec := p.sessions.GetOrCreate(sessionID)

	reply := p.handleCommand(rec, input)
	if reply == nil {
		return nil, false
	}

	p.counters.Increment(stats.KindCommandsHandled)
	p.flowLog(rec, "command handled locally", "session_id", sessionID)
	return reply, true
}

// acceptanceWords are replies that adopt a pending clarification suggestion.
var acceptanceWords = map[string]bool{
	"yes":       true,
	"y":         true,
	"ok":        true,
	"sure":      true,
	"default":   true,
	"suggested": true,
}

// stashPending marks the session as waiting when a clarification carries an
// actionable suggestion.
func (p *Proxy) stashPending(rec *session.Record, c *Clarification) {
	if c.Suggestion == "" || c.PreferenceKey == "" {
		return
	}
	rec.SetPendingClarification(&session.PendingClarification{
		Type:          c.Type,
		Suggestion:    c.Suggestion,
		PreferenceKey: c.PreferenceKey,
	})
}

// resolvePending consumes an outstanding clarification. An acceptance reply
// stores the suggested value as the session preference; any other reply
// clears the wait and continues through the normal flow.
func (p *Proxy) resolvePending(rec *session.Record, input string) *Reply {
	pending := rec.TakePendingClarification()
	if pending == nil {
		return nil
	}
	if !acceptanceWords[strings.ToLower(strings.TrimSpace(input))] {
		return nil
	}

	rec.SetPreference(pending.PreferenceKey, pending.Suggestion)
	text := fmt.Sprintf("Set %s to: %s\n\nWhat would you like to do next?",
		pending.PreferenceKey, pending.Suggestion)
	return &Reply{Kind: ReplyCommand, Text: text}
}

// emitSingle writes a reply as one text event followed by the done event,
// then closes the channel.
func emitSingle(out chan Event, reply *Reply) {
	out <- Event{Text: reply.Text}
	out <- Event{Done: true, Reply: reply}
	close(out)
}

// flowLog logs delegation-flow details. Sessions with debug toggled on get
// the messages at info level so they show up without a global level change.
func (p *Proxy) flowLog(rec *session.Record, msg string, args ...any) {
	if rec.Debug() {
		p.logger.Info(msg, args...)
		return
	}
	p.logger.Debug(msg, args...)
}
