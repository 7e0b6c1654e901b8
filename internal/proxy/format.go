// ABOUTME: Response formatting: routing header, follow-up suggestions, clarification
// ABOUTME: prompts, and the apologetic message for failed delegations.

package proxy

import (
	"fmt"
	"strings"

	"github.com/2389/parley-gateway/internal/registry"
)

// maxSuggestions caps the follow-up list so responses stay readable.
const maxSuggestions = 3

// formatResponse wraps a raw agent response with the routing header and
// follow-up suggestions. Streaming uses the same pieces: the header goes
// out first, suggestions last, so the assembled text is identical.
func formatResponse(raw string, desc *registry.Descriptor) string {
	return responseHeader(desc) + raw + suggestionSuffix(raw, desc)
}

// responseHeader identifies which agent handled the turn.
func responseHeader(desc *registry.Descriptor) string {
	if desc == nil {
		return ""
	}
	return fmt.Sprintf("Routed to: %s\n\n", desc.Name)
}

// suggestionSuffix builds the "What's next?" block from the agent's
// capability tags, skipping tags the response already covers.
func suggestionSuffix(raw string, desc *registry.Descriptor) string {
	suggestions := followUpSuggestions(raw, desc)
	if len(suggestions) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nWhat's next?")
	for i, s := range suggestions {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, s)
	}
	return b.String()
}

// followUpSuggestions derives suggestions from the response content and the
// agent's capability tags. Tags already reflected in the response are
// skipped; when nothing tag-based applies, generic guidance is offered.
func followUpSuggestions(raw string, desc *registry.Descriptor) []string {
	lower := strings.ToLower(raw)

	var suggestions []string
	if desc != nil {
		for _, tag := range desc.CapabilityTags {
			if strings.Contains(lower, strings.ToLower(tag)) {
				continue
			}
			suggestions = append(suggestions, "Ask me to "+tag)
			if len(suggestions) == maxSuggestions {
				return suggestions
			}
		}
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions,
			"Type 'list agents' to see available specialists",
			"Type 'help' for commands",
		)
	}

	return suggestions
}

// formatClarification renders a clarification prompt with concrete example
// resolutions.
func formatClarification(c *Clarification) string {
	var b strings.Builder
	b.WriteString("Clarification needed: ")
	b.WriteString(c.Message)

	if len(c.Examples) > 0 {
		b.WriteString("\n\nFor example:")
		for _, ex := range c.Examples {
			b.WriteString("\n  - ")
			b.WriteString(ex)
		}
	}

	if c.Suggestion != "" {
		b.WriteString("\n\nSuggestion: ")
		b.WriteString(c.Suggestion)
	}

	return b.String()
}

// apologyText is the user-facing message for a failed delegation. The
// failure is recovered here, not retried.
func apologyText(desc *registry.Descriptor) string {
	name := "the specialist"
	if desc != nil {
		name = desc.Name
	}
	return fmt.Sprintf(
		"Sorry, %s could not complete that request right now. Please try again in a moment, or type 'help' for other options.",
		name,
	)
}

// selectionHelp lists the specialists and their keywords when no agent
// matched and no default is configured.
func selectionHelp(reg *registry.Registry) string {
	var b strings.Builder
	b.WriteString("I'm not sure which specialist can help with that. Here are your options:\n")

	for _, d := range reg.All() {
		keywords := d.Keywords
		if len(keywords) > 5 {
			keywords = keywords[:5]
		}
		fmt.Fprintf(&b, "\n  %s - keywords: %s", d.Name, strings.Join(keywords, ", "))
	}

	b.WriteString("\n\nTry using specific keywords from one of these domains in your question.")
	return b.String()
}
