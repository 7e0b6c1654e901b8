// ABOUTME: Narrow agent capability contract (Invoke text -> text) and the Set that
// ABOUTME: maps registry identifiers to implementations for the proxy's outbound calls.

package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrAgentNotFound indicates the requested agent identifier has no
// registered implementation.
var ErrAgentNotFound = errors.New("agent not found")

// Invoker is the capability every concrete agent satisfies. The proxy and
// router depend only on this interface, never on concrete agent types.
type Invoker interface {
	Invoke(ctx context.Context, text string) (string, error)
}

// Chunk is one piece of a streamed agent response.
type Chunk struct {
	Text string
}

// Streamer is an optional extension for agents that can deliver their
// response incrementally. The channel closes when the response is complete.
type Streamer interface {
	InvokeStream(ctx context.Context, text string) (<-chan Chunk, error)
}

// InvocationError reports a failed delegation to an agent. It is the only
// error expected to occur routinely at request time; the proxy recovers
// from it locally instead of surfacing it to the caller.
type InvocationError struct {
	AgentID string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("agent %q invocation failed: %v", e.AgentID, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Set maps agent identifiers to their implementations. It is populated at
// startup and read-only afterward, so lookups need no locking.
type Set struct {
	invokers map[string]Invoker
}

// NewSet creates an empty agent set.
func NewSet() *Set {
	return &Set{invokers: make(map[string]Invoker)}
}

// Register adds an implementation for the given identifier.
func (s *Set) Register(id string, inv Invoker) error {
	if id == "" {
		return fmt.Errorf("empty agent id")
	}
	if inv == nil {
		return fmt.Errorf("agent %q: nil invoker", id)
	}
	if _, exists := s.invokers[id]; exists {
		return fmt.Errorf("agent %q already registered", id)
	}
	s.invokers[id] = inv
	return nil
}

// IDs returns the registered identifiers, sorted.
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.invokers))
	for id := range s.invokers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Invoke delegates text to the named agent. Failures are always reported
// as *InvocationError so callers can distinguish delegation failures from
// configuration bugs (ErrAgentNotFound).
func (s *Set) Invoke(ctx context.Context, agentID, text string) (string, error) {
	inv, ok := s.invokers[agentID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrAgentNotFound, agentID)
	}

	out, err := inv.Invoke(ctx, text)
	if err != nil {
		var invErr *InvocationError
		if errors.As(err, &invErr) {
			return "", err
		}
		return "", &InvocationError{AgentID: agentID, Err: err}
	}
	return out, nil
}

// InvokeStream delegates text to the named agent, streaming the response
// when the agent supports it and falling back to a single chunk otherwise.
func (s *Set) InvokeStream(ctx context.Context, agentID, text string) (<-chan Chunk, error) {
	inv, ok := s.invokers[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, agentID)
	}

	if streamer, ok := inv.(Streamer); ok {
		ch, err := streamer.InvokeStream(ctx, text)
		if err != nil {
			var invErr *InvocationError
			if errors.As(err, &invErr) {
				return nil, err
			}
			return nil, &InvocationError{AgentID: agentID, Err: err}
		}
		return ch, nil
	}

	out, err := s.Invoke(ctx, agentID, text)
	if err != nil {
		return nil, err
	}
	ch := make(chan Chunk, 1)
	ch <- Chunk{Text: out}
	close(ch)
	return ch, nil
}
