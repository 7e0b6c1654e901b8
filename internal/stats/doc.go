// Package stats tracks delegation statistics for observability.
//
// Counters records how each processed message was disposed of: handled
// locally as a command, delegated to an agent, or answered with a
// clarification prompt. Exactly one counter is incremented per processed
// message. There is no decrement and no adaptive behavior — reading the
// counters never influences routing.
//
// Collector exposes the same counters in Prometheus format.
package stats
