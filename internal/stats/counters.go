// ABOUTME: Process-wide delegation counters: commands handled, delegated, clarifications.
// ABOUTME: Atomic increments, snapshot reads, no decrement — observability only.

package stats

import "sync/atomic"

// Kind identifies which counter to increment.
type Kind string

const (
	KindCommandsHandled         Kind = "commands_handled"
	KindDelegated               Kind = "delegated"
	KindClarificationsRequested Kind = "clarifications_requested"
)

// Counters tracks how the proxy disposed of each message. Counters are
// monotonically incremented and reset only by constructing a new value.
// They are never consulted by routing logic.
type Counters struct {
	commandsHandled atomic.Int64
	delegated       atomic.Int64
	clarifications  atomic.Int64
}

// NewCounters creates a zeroed counter set.
func NewCounters() *Counters {
	return &Counters{}
}

// Increment bumps the counter for the given kind. Unknown kinds are ignored.
func (c *Counters) Increment(kind Kind) {
	switch kind {
	case KindCommandsHandled:
		c.commandsHandled.Add(1)
	case KindDelegated:
		c.delegated.Add(1)
	case KindClarificationsRequested:
		c.clarifications.Add(1)
	}
}

// Snapshot is a read-only copy of the counters at one point in time.
type Snapshot struct {
	CommandsHandled         int64 `json:"commands_handled"`
	Delegated               int64 `json:"delegated"`
	ClarificationsRequested int64 `json:"clarifications_requested"`
}

// Total returns the sum of all counters.
func (s Snapshot) Total() int64 {
	return s.CommandsHandled + s.Delegated + s.ClarificationsRequested
}

// Snapshot returns a copy of the current counter values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		CommandsHandled:         c.commandsHandled.Load(),
		Delegated:               c.delegated.Load(),
		ClarificationsRequested: c.clarifications.Load(),
	}
}
