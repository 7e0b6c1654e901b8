// Package router implements keyword-based agent selection.
//
// Routing is intentionally simple and stateless: the input is lowercased
// and trimmed, each agent is scored by how many of its trigger keywords
// occur in the text (substring containment), and the highest score wins.
// Ties break deterministically to registration order. Inputs that match
// nothing route to a configured default agent, or to no agent at all.
//
// Boost rules add a configurable weight when a regular expression matches
// the input — for example, routing "what is 25 * 4" to a math agent even
// though no trigger keyword is present.
//
// There is no learning, no semantic similarity, and no adaptive behavior;
// the same input always produces the same Decision.
package router
