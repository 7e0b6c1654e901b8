// ABOUTME: Keyword router that selects exactly one agent for a piece of user input.
// ABOUTME: Stateless scoring by keyword containment plus configurable regex boosts.

package router

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/2389/parley-gateway/internal/registry"
)

// Decision is the outcome of routing a single input. It is transient and
// never stored.
type Decision struct {
	// AgentID is the selected agent, or the configured default when no
	// keywords matched. Empty when no default is configured.
	AgentID string

	// Matched holds the keywords that occurred in the input for the
	// winning agent. Empty on default fallback.
	Matched []string

	// DefaultFallback is true when no agent had any keyword or boost match.
	DefaultFallback bool
}

// BoostRule grants extra score to an agent when a regex matches the
// normalized input. Mirrors the original numeric-expression heuristics,
// but rules come from configuration rather than being hard-coded.
type BoostRule struct {
	AgentID string
	Pattern *regexp.Regexp
	Weight  int
}

// BoostSpec is the uncompiled form of a BoostRule, as it appears in
// configuration.
type BoostSpec struct {
	AgentID string
	Pattern string
	Weight  int
}

// CompileBoosts compiles boost specs into rules.
func CompileBoosts(specs []BoostSpec) ([]BoostRule, error) {
	rules := make([]BoostRule, 0, len(specs))
	for _, s := range specs {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("boost pattern for %q: %w", s.AgentID, err)
		}
		rules = append(rules, BoostRule{AgentID: s.AgentID, Pattern: re, Weight: s.Weight})
	}
	return rules, nil
}

// Router selects an agent for free-text input by keyword matching against
// the registry. It holds no per-request state and is safe for concurrent use.
type Router struct {
	registry     *registry.Registry
	defaultAgent string
	boosts       []BoostRule
	logger       *slog.Logger
}

// Config contains the Router's dependencies.
type Config struct {
	Registry *registry.Registry

	// DefaultAgent receives inputs with zero matches. Optional; when empty,
	// a zero-match input produces a Decision with an empty AgentID.
	DefaultAgent string

	Boosts []BoostRule
	Logger *slog.Logger
}

// New creates a Router. A configured default agent or boost target that is
// not present in the registry is a configuration bug and fails here, at
// startup, rather than at request time.
func New(cfg Config) (*Router, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.DefaultAgent != "" {
		if _, err := cfg.Registry.Resolve(cfg.DefaultAgent); err != nil {
			return nil, fmt.Errorf("default agent: %w", err)
		}
	}
	for _, b := range cfg.Boosts {
		if _, err := cfg.Registry.Resolve(b.AgentID); err != nil {
			return nil, fmt.Errorf("boost rule: %w", err)
		}
		if b.Pattern == nil {
			return nil, fmt.Errorf("boost rule for %q: nil pattern", b.AgentID)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		registry:     cfg.Registry,
		defaultAgent: cfg.DefaultAgent,
		boosts:       cfg.Boosts,
		logger:       logger.With("component", "router"),
	}, nil
}

// Route scores every registered agent against the input and returns the
// winner. Keywords match by substring containment on the lowercased,
// trimmed input. Ties resolve to registration order. Zero total score
// falls back to the configured default agent.
func (r *Router) Route(input string) Decision {
	normalized := strings.ToLower(strings.TrimSpace(input))

	var (
		best        *registry.Descriptor
		bestScore   int
		bestMatched []string
	)

	for _, desc := range r.registry.All() {
		var matched []string
		if normalized != "" {
			for _, kw := range desc.Keywords {
				if strings.Contains(normalized, kw) {
					matched = append(matched, kw)
				}
			}
		}

		score := len(matched)
		for _, b := range r.boosts {
			if b.AgentID == desc.ID && normalized != "" && b.Pattern.MatchString(normalized) {
				score += b.Weight
			}
		}

		// Strictly greater keeps the first-registered agent on ties.
		if score > 0 && score > bestScore {
			best = desc
			bestScore = score
			bestMatched = matched
		}
	}

	if best == nil {
		r.logger.Debug("no keyword match, using default",
			"default_agent", r.defaultAgent)
		return Decision{
			AgentID:         r.defaultAgent,
			DefaultFallback: true,
		}
	}

	r.logger.Debug("routed by keywords",
		"agent_id", best.ID,
		"matched", bestMatched,
		"score", bestScore)

	return Decision{
		AgentID: best.ID,
		Matched: bestMatched,
	}
}
