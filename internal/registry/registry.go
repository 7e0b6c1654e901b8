// ABOUTME: Agent registry holding immutable capability descriptors used for routing.
// ABOUTME: Validates identifiers and keyword sets at construction; read-only afterward.

package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAgentNotFound indicates the requested agent identifier is not registered.
var ErrAgentNotFound = errors.New("agent not found")

// Descriptor describes a single agent's routing capabilities.
// Keywords and aliases are matched case-insensitively; they are normalized
// to lowercase when the registry is constructed.
type Descriptor struct {
	// ID is the unique agent identifier, e.g. "github".
	ID string

	// Name is the human-readable display name, e.g. "GitHub Agent".
	Name string

	// Keywords trigger routing to this agent when they occur in user input.
	Keywords []string

	// Aliases are alternate names accepted by the "switch <agent>" command.
	Aliases []string

	// CapabilityTags are short phrases describing what the agent can do.
	// The proxy derives follow-up suggestions from them.
	CapabilityTags []string
}

// Registry is an ordered, immutable collection of agent descriptors.
// Iteration order is registration order, which the router uses for
// deterministic tie-breaking.
type Registry struct {
	ordered []*Descriptor
	byID    map[string]*Descriptor
	byAlias map[string]string // alias -> agent ID
}

// New builds a registry from the given descriptors. It fails if any
// descriptor has an empty or duplicate identifier, or an empty keyword set.
func New(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{
		ordered: make([]*Descriptor, 0, len(descriptors)),
		byID:    make(map[string]*Descriptor, len(descriptors)),
		byAlias: make(map[string]string),
	}

	for i := range descriptors {
		d := descriptors[i] // copy; callers cannot mutate registered descriptors
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			return nil, fmt.Errorf("descriptor %d: empty agent id", i)
		}
		if _, exists := r.byID[d.ID]; exists {
			return nil, fmt.Errorf("duplicate agent id %q", d.ID)
		}
		if len(d.Keywords) == 0 {
			return nil, fmt.Errorf("agent %q: empty keyword set", d.ID)
		}
		if d.Name == "" {
			d.Name = d.ID
		}

		keywords := make([]string, 0, len(d.Keywords))
		for _, kw := range d.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				return nil, fmt.Errorf("agent %q: blank keyword", d.ID)
			}
			keywords = append(keywords, kw)
		}
		d.Keywords = keywords

		for _, alias := range d.Aliases {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			if owner, exists := r.byAlias[alias]; exists && owner != d.ID {
				return nil, fmt.Errorf("alias %q claimed by both %q and %q", alias, owner, d.ID)
			}
			r.byAlias[alias] = d.ID
		}

		r.ordered = append(r.ordered, &d)
		r.byID[d.ID] = &d
	}

	return r, nil
}

// Resolve returns the descriptor for the given agent identifier.
func (r *Registry) Resolve(id string) (*Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, id)
	}
	return d, nil
}

// ResolveAlias resolves an identifier or alias, case-insensitively.
// Used by the "switch <agent>" command where users type shorthand names.
func (r *Registry) ResolveAlias(nameOrAlias string) (*Descriptor, error) {
	key := strings.ToLower(strings.TrimSpace(nameOrAlias))
	if d, ok := r.byID[key]; ok {
		return d, nil
	}
	if id, ok := r.byAlias[key]; ok {
		return r.byID[id], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, nameOrAlias)
}

// All returns the descriptors in registration order.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	return len(r.ordered)
}
