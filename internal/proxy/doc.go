// Package proxy implements the conversation management layer between the
// caller and the router/agents.
//
// # Decision flow
//
// Each ProcessMessage call runs a single deterministic pass:
//
//  1. Command check: inputs that exactly match the command vocabulary
//     (help, status, clear, stats, debug, list agents, set <k>=<v>,
//     switch <agent>) are handled locally and never delegated, even when
//     the text also contains an agent's trigger keyword.
//  2. Pending clarification: when the previous reply was a clarification
//     carrying a suggestion, an acceptance word ("yes", "ok", "sure", ...)
//     adopts the suggested value as a session preference; any other input
//     clears the wait and continues normally.
//  3. Preference substitution: stored preferences fill in parameters the
//     target domain requires but the input omits, as a textual hint.
//  4. Clarification heuristics: bare anaphora without history, vague
//     inputs, or a missing required parameter produce a clarification
//     prompt instead of a delegation. This is a normal outcome.
//  5. Routing and delegation: the keyword router picks one agent, the
//     proxy invokes it through the AgentInvoker port, and the raw response
//     is wrapped with a routing header and follow-up suggestions.
//  6. Session update: turn count, history, and last agent.
//
// Exactly one delegation counter is incremented per call, and no session
// lock is held while an agent invocation is in flight.
//
// # Failures
//
// A failed delegation (agent.InvocationError) is recovered locally: the
// caller gets an apologetic message, the turn is still recorded, and no
// retry happens at this layer.
//
// # Streaming
//
// ProcessMessageStream runs the identical flow but delivers the response
// as incremental Events. Follow-up suggestions are appended in the final
// text chunk; state updates and counters are the same either way.
package proxy
