// ABOUTME: Configuration loading and parsing for parley-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete parley-gateway configuration
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Session       SessionConfig       `yaml:"session"`
	Routing       RoutingConfig       `yaml:"routing"`
	Agents        []AgentConfig       `yaml:"agents"`
	Clarification ClarificationConfig `yaml:"clarification"`
}

// ServiceConfig identifies the service in logs and the health endpoint
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// SessionConfig holds per-session state limits
type SessionConfig struct {
	HistoryLimit int `yaml:"history_limit"`
}

// RoutingConfig holds keyword routing configuration
type RoutingConfig struct {
	// DefaultAgent receives messages that match no keywords. Empty means
	// unmatched messages get agent-selection help instead.
	DefaultAgent string        `yaml:"default_agent"`
	Boosts       []BoostConfig `yaml:"boosts"`
}

// BoostConfig adds pattern-based score weight for one agent
type BoostConfig struct {
	Agent   string `yaml:"agent"`
	Pattern string `yaml:"pattern"`
	Weight  int    `yaml:"weight"`
}

// AgentConfig describes one specialist agent
type AgentConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // http, math, or echo
	Endpoint string `yaml:"endpoint"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`

	Keywords       []string `yaml:"keywords"`
	Aliases        []string `yaml:"aliases"`
	CapabilityTags []string `yaml:"capability_tags"`
}

// ClarificationConfig tunes the clarification heuristics
type ClarificationConfig struct {
	AnaphoraWords   []string          `yaml:"anaphora_words"`
	MinHistoryTurns int               `yaml:"min_history_turns"`
	VaguePatterns   []string          `yaml:"vague_patterns"`
	Params          []ParamRuleConfig `yaml:"params"`
}

// ParamRuleConfig declares a parameter some agent domain requires
type ParamRuleConfig struct {
	Name          string   `yaml:"name"`
	Keywords      []string `yaml:"keywords"`
	ParamPattern  string   `yaml:"param_pattern"`
	PreferenceKey string   `yaml:"preference_key"`
	HintLabel     string   `yaml:"hint_label"`
	Prompt        string   `yaml:"prompt"`
	Examples      []string `yaml:"examples"`
	Suggestion    string   `yaml:"suggestion"`
}

const (
	defaultHTTPAddr     = ":8989"
	defaultMetricsPath  = "/metrics"
	defaultHistoryLimit = 20
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration used when no config file is
// given: a GitHub specialist behind HTTP, the built-in math evaluator as the
// default agent, and the math expression boosts.
func Default() *Config {
	cfg := &Config{
		Service: ServiceConfig{Name: "parley-gateway", Version: "dev"},
		Routing: RoutingConfig{
			DefaultAgent: "math",
			Boosts: []BoostConfig{
				{Agent: "math", Pattern: `\d+\s*[\+\-\*\/\^%]\s*\d+`, Weight: 5},
				{Agent: "math", Pattern: `what\s+is\s+\d+`, Weight: 3},
			},
		},
		Agents: []AgentConfig{
			{
				ID:       "github",
				Name:     "GitHub Specialist",
				Type:     "http",
				Endpoint: "http://localhost:9001/invoke",
				Keywords: []string{
					"github", "repository", "repo", "file", "commit",
					"branch", "pull request", "issue", "code",
				},
				Aliases: []string{"github", "gh", "git"},
				CapabilityTags: []string{
					"list files in a repository",
					"show recent commits",
					"search code",
				},
			},
			{
				ID:   "math",
				Name: "Math Assistant",
				Type: "math",
				Keywords: []string{
					"calculate", "math", "compute", "solve",
					"equation", "arithmetic", "what is",
				},
				Aliases: []string{"math", "calc", "calculator"},
				CapabilityTags: []string{
					"evaluate an arithmetic expression",
					"work with parentheses and exponents",
				},
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in values the file may omit
func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = defaultHTTPAddr
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}
	if c.Session.HistoryLimit == 0 {
		c.Session.HistoryLimit = defaultHistoryLimit
	}
	if c.Service.Name == "" {
		c.Service.Name = "parley-gateway"
	}
	if c.Service.Version == "" {
		c.Service.Version = "dev"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent is required")
	}

	ids := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agents[%d].id is required", i)
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		ids[a.ID] = true

		if a.Name == "" {
			return fmt.Errorf("agent %q: name is required", a.ID)
		}
		if len(a.Keywords) == 0 {
			return fmt.Errorf("agent %q: at least one keyword is required", a.ID)
		}

		switch a.Type {
		case "http":
			if a.Endpoint == "" {
				return fmt.Errorf("agent %q: endpoint is required for http agents", a.ID)
			}
		case "math", "echo":
		default:
			return fmt.Errorf("agent %q: unknown type %q (expected http, math, or echo)", a.ID, a.Type)
		}
	}

	if c.Routing.DefaultAgent != "" && !ids[c.Routing.DefaultAgent] {
		return fmt.Errorf("routing.default_agent %q is not a configured agent", c.Routing.DefaultAgent)
	}

	for i, b := range c.Routing.Boosts {
		if !ids[b.Agent] {
			return fmt.Errorf("routing.boosts[%d]: agent %q is not configured", i, b.Agent)
		}
		if b.Pattern == "" {
			return fmt.Errorf("routing.boosts[%d]: pattern is required", i)
		}
		if _, err := regexp.Compile(b.Pattern); err != nil {
			return fmt.Errorf("routing.boosts[%d]: invalid pattern: %w", i, err)
		}
		if b.Weight <= 0 {
			return fmt.Errorf("routing.boosts[%d]: weight must be positive", i)
		}
	}

	for i, p := range c.Clarification.Params {
		if p.Name == "" {
			return fmt.Errorf("clarification.params[%d]: name is required", i)
		}
		if len(p.Keywords) == 0 {
			return fmt.Errorf("clarification.params[%d]: at least one keyword is required", i)
		}
		if _, err := regexp.Compile(p.ParamPattern); err != nil {
			return fmt.Errorf("clarification.params[%d]: invalid param_pattern: %w", i, err)
		}
	}

	for i, pat := range c.Clarification.VaguePatterns {
		if _, err := regexp.Compile(pat); err != nil {
			return fmt.Errorf("clarification.vague_patterns[%d]: invalid pattern: %w", i, err)
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	for i := range cfg.Agents {
		raw := cfg.Agents[i].TimeoutRaw
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parsing agent %q timeout %q: %w", cfg.Agents[i].ID, raw, err)
		}
		cfg.Agents[i].Timeout = d
	}
	return nil
}
