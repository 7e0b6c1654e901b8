// ABOUTME: Deterministic echo agent for development and end-to-end testing.
// ABOUTME: Also streams word-by-word to exercise the streaming path.

package agent

import (
	"context"
	"strings"
)

// EchoAgent replies with the input text, optionally prefixed. It implements
// both Invoker and Streamer so tests can exercise either delivery mode.
type EchoAgent struct {
	prefix string
}

// NewEchoAgent creates an echo agent. prefix is prepended to every reply;
// empty means "Echo: ".
func NewEchoAgent(prefix string) *EchoAgent {
	if prefix == "" {
		prefix = "Echo: "
	}
	return &EchoAgent{prefix: prefix}
}

// Invoke returns the echoed text.
func (e *EchoAgent) Invoke(_ context.Context, text string) (string, error) {
	return e.prefix + text, nil
}

// InvokeStream returns the echoed text one word at a time.
func (e *EchoAgent) InvokeStream(ctx context.Context, text string) (<-chan Chunk, error) {
	words := strings.Fields(e.prefix + text)
	ch := make(chan Chunk, len(words))
	go func() {
		defer close(ch)
		for i, w := range words {
			if i > 0 {
				w = " " + w
			}
			select {
			case ch <- Chunk{Text: w}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
