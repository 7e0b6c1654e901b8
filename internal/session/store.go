// ABOUTME: In-memory session context store mapping session ids to preferences and history.
// ABOUTME: Per-record mutex serializes same-session mutation; records die with the process.

package session

import (
	"log/slog"
	"sync"
	"time"
)

// Turn roles for conversation history entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultHistoryLimit caps history when no limit is configured.
const DefaultHistoryLimit = 20

// Turn is one entry in a session's conversation history.
type Turn struct {
	Role string
	Text string
	At   time.Time
}

// PendingClarification stashes the context of an outstanding clarification
// so the next message can accept the suggested value.
type PendingClarification struct {
	Type          string
	Suggestion    string
	PreferenceKey string
}

// Record holds the per-session state: preferences, turn count, last routed
// agent, and a capped conversation history. All accessors lock the record's
// own mutex, so concurrent requests for the same session cannot lose updates.
type Record struct {
	id string

	mu           sync.Mutex
	preferences  map[string]string
	turnCount    int
	lastAgent    string
	history      []Turn
	historyLimit int
	debug        bool
	pending      *PendingClarification
}

// ID returns the caller-supplied session identifier.
func (r *Record) ID() string { return r.id }

// SetPreference stores a key/value preference.
func (r *Record) SetPreference(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preferences[key] = value
}

// Preference returns a stored preference value.
func (r *Record) Preference(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.preferences[key]
	return v, ok
}

// Preferences returns a copy of all preferences.
func (r *Record) Preferences() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.preferences))
	for k, v := range r.preferences {
		out[k] = v
	}
	return out
}

// ClearPreferences removes all stored preferences.
func (r *Record) ClearPreferences() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preferences = make(map[string]string)
}

// CompleteTurn records one finished conversational exchange: the user input
// and the assistant's reply are appended to history, the turn counter is
// incremented, and the last routed agent is updated when one handled the turn.
func (r *Record) CompleteTurn(userText, assistantText, agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.history = append(r.history,
		Turn{Role: RoleUser, Text: userText, At: now},
		Turn{Role: RoleAssistant, Text: assistantText, At: now},
	)
	if over := len(r.history) - r.historyLimit; over > 0 {
		r.history = append([]Turn(nil), r.history[over:]...)
	}

	r.turnCount++
	if agentID != "" {
		r.lastAgent = agentID
	}
}

// TurnCount returns the number of completed conversational turns.
func (r *Record) TurnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.turnCount
}

// LastAgent returns the identifier of the agent that handled the most
// recent delegated turn, or empty if none has.
func (r *Record) LastAgent() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastAgent
}

// SetLastAgent records a manual agent selection (the "switch" command).
func (r *Record) SetLastAgent(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastAgent = agentID
}

// History returns a copy of the conversation history, oldest first.
func (r *Record) History() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Turn, len(r.history))
	copy(out, r.history)
	return out
}

// ResetHistory empties the conversation history and resets the turn counter.
// Preferences are kept.
func (r *Record) ResetHistory() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
	r.turnCount = 0
	r.lastAgent = ""
	r.pending = nil
}

// SetPendingClarification marks the session as waiting for a reply to a
// clarification that carried a suggestion.
func (r *Record) SetPendingClarification(p *PendingClarification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = p
}

// TakePendingClarification returns and clears the outstanding clarification
// context. The next message always resolves the wait, whether or not it
// accepts the suggestion.
func (r *Record) TakePendingClarification() *PendingClarification {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.pending
	r.pending = nil
	return p
}

// SetDebug toggles per-session delegation-flow logging.
func (r *Record) SetDebug(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debug = on
}

// Debug reports whether debug logging is enabled for this session.
func (r *Record) Debug() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.debug
}

// Store is the process-lifetime map of session records. It is explicitly
// constructed and injected rather than living as package state, so tests
// get clean isolation. Nothing is persisted; a restart loses all sessions.
type Store struct {
	mu           sync.Mutex
	records      map[string]*Record
	historyLimit int
	logger       *slog.Logger
}

// NewStore creates an empty session store. historyLimit caps each session's
// history; zero or negative selects DefaultHistoryLimit.
func NewStore(historyLimit int, logger *slog.Logger) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		records:      make(map[string]*Record),
		historyLimit: historyLimit,
		logger:       logger.With("component", "session"),
	}
}

// GetOrCreate returns the record for the session, creating it on first
// reference. It never fails.
func (s *Store) GetOrCreate(sessionID string) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[sessionID]; ok {
		return rec
	}

	rec := &Record{
		id:           sessionID,
		preferences:  make(map[string]string),
		historyLimit: s.historyLimit,
	}
	s.records[sessionID] = rec
	s.logger.Debug("session created", "session_id", sessionID)
	return rec
}

// Get returns the record for the session if it exists.
func (s *Store) Get(sessionID string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sessionID]
	return rec, ok
}

// SetPreference stores a preference, creating the session if needed.
func (s *Store) SetPreference(sessionID, key, value string) {
	s.GetOrCreate(sessionID).SetPreference(key, value)
}

// Clear removes the session record entirely. It reports whether the session
// existed.
func (s *Store) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[sessionID]; !ok {
		return false
	}
	delete(s.records, sessionID)
	s.logger.Debug("session cleared", "session_id", sessionID)
	return true
}

// ClearHistory empties a session's history and resets its turn count while
// keeping preferences. Missing sessions are a no-op.
func (s *Store) ClearHistory(sessionID string) {
	s.mu.Lock()
	rec, ok := s.records[sessionID]
	s.mu.Unlock()
	if ok {
		rec.ResetHistory()
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
