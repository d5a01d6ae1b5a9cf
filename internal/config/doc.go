// Package config handles configuration loading for gobi-agent.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	credentials:
//	  username: "${GOBI_USERNAME}"
//	  password: "${GOBI_PASSWORD}"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	heartbeat:
//	  interval: "30s"
//	  stop_timeout: "20s"
//
// # Configuration Sections
//
// Backend connection:
//
//	backend:
//	  url: "http://localhost:3000"
//	  request_timeout: "10s"
//
// Agent selection:
//
//	agent:
//	  id: "cmgb7nqgt000asb749d6d8bdy"
//	  descriptor_path: "~/.config/gobi/agent.toml"
//
// Local registration with the web UI:
//
//	registration:
//	  enabled: true
//	  host: "localhost"
//	  port: 8080
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
