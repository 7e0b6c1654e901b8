// Package agent defines the capability contract between the conversation
// proxy and the specialized agents it delegates to.
//
// An agent is anything that turns text into text: Invoke(ctx, text) ->
// (text, error). The proxy never depends on a concrete agent type, only on
// this interface, so agents backed by remote LLM services, local tools, or
// test doubles are interchangeable.
//
// Set is the runtime mapping from registry identifiers to implementations.
// It is built once at startup and read-only afterward.
//
// Implementations in this package:
//
//   - HTTPAgent: delegates to a remote endpoint via HTTP+JSON. This is the
//     production shape — the remote side owns the LLM and tool calls.
//   - MathAgent: evaluates arithmetic locally, no model required.
//   - EchoAgent: deterministic responses for development and tests.
//
// Failures during delegation are reported as *InvocationError. There is no
// retry logic here; a failure surfaces to the proxy, which converts it into
// a user-facing message.
package agent
