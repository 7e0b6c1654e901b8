// Package session provides the in-memory session context store.
//
// A session is a caller-defined continuity scope identified by an opaque
// string. Each Record tracks key/value preferences, a capped conversation
// history, a turn counter, and the last agent that handled a delegated turn.
//
// Concurrency: the store-level mutex only guards the session map; each
// Record carries its own mutex, so requests for different sessions never
// contend and concurrent mutation of the same session is serialized.
// Callers must not hold any session state across an agent invocation —
// all Record methods are short and release the lock before returning.
//
// There is no persistence. Records exist from first reference until an
// explicit Clear or process teardown.
package session
