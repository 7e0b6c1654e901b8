// Package config handles configuration loading for parley-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults, plus a built-in
// Default() configuration used when no file is given.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PARLEY_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/parley/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	agents:
//	  - id: github
//	    endpoint: "${GITHUB_AGENT_URL}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	agents:
//	  - id: github
//	    timeout: "60s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: ":8989"
//
// Routing:
//
//	routing:
//	  default_agent: "math"
//	  boosts:
//	    - agent: "math"
//	      pattern: '\d+\s*[\+\-\*\/\^%]\s*\d+'
//	      weight: 5
//
// Agents:
//
//	agents:
//	  - id: github
//	    name: "GitHub Specialist"
//	    type: http
//	    endpoint: "http://localhost:9001/invoke"
//	    keywords: [github, repository, commit]
//	    aliases: [gh, git]
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - Agent ids are unique and non-empty, each agent has keywords
//   - Agent types are http, math, or echo (http requires an endpoint)
//   - The default agent and boost targets name configured agents
//   - Boost, vague, and parameter patterns compile
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/parley/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
