// ABOUTME: Clarification heuristics and preference substitution, driven by configuration.
// ABOUTME: Bare anaphora, vague inputs, and missing required parameters trigger prompts.

package proxy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/2389/parley-gateway/internal/session"
)

// Clarification describes why the proxy is asking instead of delegating.
// When Suggestion and PreferenceKey are both set, an acceptance reply to
// the clarification stores the suggestion as that preference.
type Clarification struct {
	Type          string
	Message       string
	Examples      []string
	Suggestion    string
	PreferenceKey string
}

// ParamRule declares a parameter some domain requires. When a rule's
// keywords appear in the input but neither the input nor the session
// preferences supply the parameter, the proxy asks for it. When the
// preference does supply it, the proxy appends a hint before delegating.
type ParamRule struct {
	// Name identifies the rule in clarification responses, e.g. "repository".
	Name string

	// Keywords activate the rule when any occurs in the lowercased input.
	Keywords []string

	// ParamPattern matches an explicitly supplied parameter in the input.
	ParamPattern *regexp.Regexp

	// PreferenceKey is the session preference that can satisfy the rule.
	PreferenceKey string

	// HintLabel labels the appended hint: "(using <HintLabel>: <value>)".
	HintLabel string

	// Prompt, Examples, and Suggestion shape the clarification response.
	Prompt     string
	Examples   []string
	Suggestion string
}

// ClarifierConfig holds the heuristic inputs. These are deliberately
// configuration, not code: which anaphora matter and which domains require
// which parameters varies per deployment.
type ClarifierConfig struct {
	// AnaphoraWords are bare references ("it", "that") that need an
	// antecedent. They only trigger when the session has fewer completed
	// turns than MinHistoryTurns.
	AnaphoraWords   []string
	MinHistoryTurns int

	// VaguePatterns are anchored regexes for inputs too thin to route.
	VaguePatterns []*regexp.Regexp

	Rules []ParamRule
}

// DefaultClarifierConfig mirrors the reference heuristics: pronoun checks,
// a repository parameter rule, and a handful of vague-input patterns.
func DefaultClarifierConfig() ClarifierConfig {
	return ClarifierConfig{
		AnaphoraWords:   []string{"it", "that", "this", "there"},
		MinHistoryTurns: 1,
		VaguePatterns: []*regexp.Regexp{
			regexp.MustCompile(`^(help|info|tell me|show me|what)(\s+about)?$`),
			regexp.MustCompile(`^(yes|no|ok|okay|sure)$`),
		},
		Rules: []ParamRule{
			{
				Name:          "repository",
				Keywords:      []string{"file", "commit", "branch", "pull request", "issue"},
				ParamPattern:  regexp.MustCompile(`[\w.-]+/[\w.-]+`),
				PreferenceKey: "default_repo",
				HintLabel:     "repository",
				Prompt:        "Which repository would you like to work with?",
				Examples: []string{
					"Name a repository directly (e.g. 'list files in microsoft/vscode')",
					"Set a default for this session: set default_repo=owner/repo",
					"Reply 'yes' to use the suggested repository",
				},
				Suggestion: "microsoft/vscode",
			},
		},
	}
}

// Clarifier applies the configured heuristics. It is stateless; all
// session-dependent inputs come in as arguments.
type Clarifier struct {
	anaphora        *regexp.Regexp
	minHistoryTurns int
	vague           []*regexp.Regexp
	rules           []ParamRule
}

// NewClarifier compiles the heuristic configuration.
func NewClarifier(cfg ClarifierConfig) (*Clarifier, error) {
	c := &Clarifier{
		minHistoryTurns: cfg.MinHistoryTurns,
		vague:           cfg.VaguePatterns,
		rules:           cfg.Rules,
	}

	if len(cfg.AnaphoraWords) > 0 {
		quoted := make([]string, 0, len(cfg.AnaphoraWords))
		for _, w := range cfg.AnaphoraWords {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
		if len(quoted) > 0 {
			re, err := regexp.Compile(`\b(` + strings.Join(quoted, "|") + `)\b`)
			if err != nil {
				return nil, fmt.Errorf("compiling anaphora pattern: %w", err)
			}
			c.anaphora = re
		}
	}

	for _, r := range c.rules {
		if r.ParamPattern == nil {
			return nil, fmt.Errorf("parameter rule %q: nil pattern", r.Name)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("parameter rule %q: no keywords", r.Name)
		}
	}

	return c, nil
}

// Check decides whether the input needs clarification before delegation.
// A nil return means the input can proceed.
func (c *Clarifier) Check(rec *session.Record, input string) *Clarification {
	lower := strings.ToLower(strings.TrimSpace(input))

	// Bare references without conversation to anchor them.
	if c.anaphora != nil && c.anaphora.MatchString(lower) && rec.TurnCount() < c.minHistoryTurns {
		return &Clarification{
			Type:    "ambiguous_reference",
			Message: "I need more context. What specifically are you referring to?",
			Examples: []string{
				"A specific repository or file?",
				"A mathematical expression?",
				"One of the available specialists? (try 'list agents')",
			},
		}
	}

	// Domain-required parameters missing from both input and preferences.
	for _, rule := range c.rules {
		if !containsAny(lower, rule.Keywords) {
			continue
		}
		if rule.ParamPattern.MatchString(input) {
			continue
		}
		if _, ok := rec.Preference(rule.PreferenceKey); ok {
			continue
		}
		return &Clarification{
			Type:          "missing_" + rule.Name,
			Message:       rule.Prompt,
			Examples:      rule.Examples,
			Suggestion:    rule.Suggestion,
			PreferenceKey: rule.PreferenceKey,
		}
	}

	// Inputs too thin to route anywhere.
	for _, pattern := range c.vague {
		if pattern.MatchString(lower) {
			return &Clarification{
				Type:    "vague_request",
				Message: "Happy to help. Could you be more specific?",
				Examples: []string{
					"Ask a domain question with keywords (e.g. 'list repositories for microsoft')",
					"Request a calculation (e.g. 'what is 25 * 4')",
					"Type 'help' to see available commands",
				},
			}
		}
	}

	return nil
}

// ApplyPreferences appends a hint derived from a stored preference when the
// input activates a rule but does not carry the parameter itself. This is
// the only transformation performed before delegation, and only the first
// applicable rule fires.
func (c *Clarifier) ApplyPreferences(rec *session.Record, input string) string {
	lower := strings.ToLower(input)

	for _, rule := range c.rules {
		if !containsAny(lower, rule.Keywords) {
			continue
		}
		if rule.ParamPattern.MatchString(input) {
			continue
		}
		value, ok := rec.Preference(rule.PreferenceKey)
		if !ok {
			continue
		}
		return fmt.Sprintf("%s (using %s: %s)", input, rule.HintLabel, value)
	}

	return input
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
