// ABOUTME: Local command handling: help, status, clear, stats, debug, set, switch.
// ABOUTME: Command-shaped input is never delegated, even if it contains trigger keywords.

package proxy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/2389/parley-gateway/internal/session"
)

// handleCommand returns a command reply if the input is command-shaped,
// nil otherwise. The caller increments the commands_handled counter for
// every non-nil return, including malformed variants that get a usage
// message back.
func (p *Proxy) handleCommand(rec *session.Record, input string) *Reply {
	trimmed := strings.TrimSpace(input)
	cmd := strings.ToLower(trimmed)

	command := func(text string) *Reply {
		return &Reply{Kind: ReplyCommand, Text: text}
	}

	switch cmd {
	case "help", "?":
		return command(p.helpText())
	case "status":
		return command(p.statusText(rec))
	case "clear", "reset":
		p.sessions.ClearHistory(rec.ID())
		return command("Conversation history cleared. Preferences are kept; use 'clear context' to remove those too.")
	case "clear context":
		rec.ClearPreferences()
		return command("Preferences cleared.")
	case "stats":
		return command(p.statsText())
	case "debug":
		on := !rec.Debug()
		rec.SetDebug(on)
		if on {
			return command("Debug mode ON. Delegation flow will be logged for this session.")
		}
		return command("Debug mode OFF.")
	case "list agents":
		return command(p.listAgentsText(rec))
	case "set":
		return command(setUsage)
	}

	if len(trimmed) > 4 && strings.EqualFold(trimmed[:4], "set ") {
		return command(p.handleSet(rec, strings.TrimSpace(trimmed[4:])))
	}

	if len(trimmed) > 7 && strings.EqualFold(trimmed[:7], "switch ") {
		return command(p.handleSwitch(rec, strings.TrimSpace(trimmed[7:])))
	}

	return nil
}

const setUsage = "Usage: set <key>=<value>\nExample: set default_repo=microsoft/vscode"

// handleSet parses "key=value" and stores the preference. The key is
// case-insensitive; the value keeps its original case.
func (p *Proxy) handleSet(rec *session.Record, rest string) string {
	key, value, found := strings.Cut(rest, "=")
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	if !found || key == "" || value == "" {
		return setUsage
	}

	rec.SetPreference(key, value)
	return fmt.Sprintf("Preference set: %s = %s", key, value)
}

// handleSwitch marks a specialist as the session's active agent.
func (p *Proxy) handleSwitch(rec *session.Record, name string) string {
	desc, err := p.registry.ResolveAlias(name)
	if err != nil {
		var ids []string
		for _, d := range p.registry.All() {
			ids = append(ids, d.ID)
		}
		return fmt.Sprintf("Unknown agent %q. Available: %s", name, strings.Join(ids, ", "))
	}

	rec.SetLastAgent(desc.ID)
	return fmt.Sprintf("Switched to %s.", desc.Name)
}

func (p *Proxy) helpText() string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	b.WriteString("  help                 Show this help (alias: ?)\n")
	b.WriteString("  status               Show session state and preferences\n")
	b.WriteString("  clear                Clear conversation history (alias: reset)\n")
	b.WriteString("  clear context        Clear stored preferences\n")
	b.WriteString("  set <key>=<value>    Store a session preference (e.g. set default_repo=owner/repo)\n")
	b.WriteString("  stats                Show delegation statistics\n")
	b.WriteString("  debug                Toggle delegation debug logging for this session\n")
	b.WriteString("  list agents          List available specialist agents\n")
	b.WriteString("  switch <agent>       Mark a specialist as the active agent\n")
	b.WriteString("\nAnything else is routed to the best-matching specialist automatically.\n")
	b.WriteString("Mention keywords from a specialist's domain to route directly to it.")
	return b.String()
}

func (p *Proxy) statusText(rec *session.Record) string {
	var b strings.Builder
	b.WriteString("Session status:\n")
	fmt.Fprintf(&b, "  session:     %s\n", rec.ID())

	lastAgent := "none"
	if id := rec.LastAgent(); id != "" {
		if desc, err := p.registry.Resolve(id); err == nil {
			lastAgent = desc.Name
		} else {
			lastAgent = id
		}
	}
	fmt.Fprintf(&b, "  last agent:  %s\n", lastAgent)
	fmt.Fprintf(&b, "  turns:       %d\n", rec.TurnCount())
	fmt.Fprintf(&b, "  history:     %d entries\n", len(rec.History()))
	fmt.Fprintf(&b, "  debug:       %v\n", rec.Debug())

	prefs := rec.Preferences()
	if len(prefs) == 0 {
		b.WriteString("  preferences: none")
		return b.String()
	}

	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("  preferences:\n")
	for i, k := range keys {
		fmt.Fprintf(&b, "    %s = %s", k, prefs[k])
		if i < len(keys)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (p *Proxy) statsText() string {
	snap := p.counters.Snapshot()
	var b strings.Builder
	b.WriteString("Delegation statistics:\n")
	fmt.Fprintf(&b, "  total interactions:       %d\n", snap.Total())
	fmt.Fprintf(&b, "  commands handled:         %d\n", snap.CommandsHandled)
	fmt.Fprintf(&b, "  delegated to agents:      %d\n", snap.Delegated)
	fmt.Fprintf(&b, "  clarifications requested: %d", snap.ClarificationsRequested)
	return b.String()
}

func (p *Proxy) listAgentsText(rec *session.Record) string {
	lastAgent := rec.LastAgent()

	var b strings.Builder
	b.WriteString("Available specialist agents:\n")
	for i, d := range p.registry.All() {
		marker := " "
		if d.ID == lastAgent {
			marker = "*"
		}
		keywords := d.Keywords
		if len(keywords) > 5 {
			keywords = keywords[:5]
		}
		fmt.Fprintf(&b, "%s %d. %s (keywords: %s)", marker, i+1, d.Name, strings.Join(keywords, ", "))
		if i < p.registry.Len()-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
