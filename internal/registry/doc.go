// Package registry defines the static catalog of routable agents.
//
// A Registry is built once at startup from configuration and is read-only
// afterward. Each Descriptor pairs an agent identifier with the trigger
// keywords the router matches against and the capability tags the proxy
// uses to suggest follow-ups.
//
// Construction fails fast on duplicate identifiers or empty keyword sets,
// so a misconfigured agent surfaces at startup rather than at request time.
package registry
