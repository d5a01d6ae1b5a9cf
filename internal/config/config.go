// ABOUTME: Configuration loading and parsing for gobi-agent
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete gobi-agent configuration
type Config struct {
	Backend      BackendConfig      `yaml:"backend"`
	Credentials  CredentialsConfig  `yaml:"credentials"`
	Agent        AgentConfig        `yaml:"agent"`
	Heartbeat    HeartbeatConfig    `yaml:"heartbeat"`
	Registration RegistrationConfig `yaml:"registration"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// BackendConfig holds control-plane connection configuration
type BackendConfig struct {
	URL string `yaml:"url"`

	RequestTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// CredentialsConfig holds backend login credentials.
// Use ${GOBI_USERNAME} / ${GOBI_PASSWORD} expansion rather than literals.
type CredentialsConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// AgentConfig identifies which backend agent this process runs
type AgentConfig struct {
	ID             string `yaml:"id"`
	DescriptorPath string `yaml:"descriptor_path"`
}

// HeartbeatConfig holds liveness-reporting timing configuration
type HeartbeatConfig struct {
	Interval    time.Duration `yaml:"-"`
	StopTimeout time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	IntervalRaw    string `yaml:"interval"`
	StopTimeoutRaw string `yaml:"stop_timeout"`
}

// RegistrationConfig controls local-agent registration with the web UI
type RegistrationConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied when the config omits a value.
const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultRequestTimeout    = 10 * time.Second
	DefaultRegistrationHost  = "localhost"
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

func (c *Config) applyDefaults() {
	if c.Backend.RequestTimeout == 0 {
		c.Backend.RequestTimeout = DefaultRequestTimeout
	}
	if c.Heartbeat.Interval == 0 {
		c.Heartbeat.Interval = DefaultHeartbeatInterval
	}
	if c.Heartbeat.StopTimeout == 0 {
		// Bounded join on stop: twice the network timeout
		c.Heartbeat.StopTimeout = 2 * c.Backend.RequestTimeout
	}
	if c.Registration.Host == "" {
		c.Registration.Host = DefaultRegistrationHost
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.Credentials.Username == "" {
		return fmt.Errorf("credentials.username is required")
	}
	if c.Credentials.Password == "" {
		return fmt.Errorf("credentials.password is required")
	}
	if c.Agent.ID == "" {
		return fmt.Errorf("agent.id is required")
	}
	if c.Heartbeat.Interval < time.Second {
		return fmt.Errorf("heartbeat.interval %v is below the 1s minimum", c.Heartbeat.Interval)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Heartbeat.IntervalRaw != "" {
		cfg.Heartbeat.Interval, err = time.ParseDuration(cfg.Heartbeat.IntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing heartbeat interval %q: %w", cfg.Heartbeat.IntervalRaw, err)
		}
	}

	if cfg.Heartbeat.StopTimeoutRaw != "" {
		cfg.Heartbeat.StopTimeout, err = time.ParseDuration(cfg.Heartbeat.StopTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing heartbeat stop_timeout %q: %w", cfg.Heartbeat.StopTimeoutRaw, err)
		}
	}

	if cfg.Backend.RequestTimeoutRaw != "" {
		cfg.Backend.RequestTimeout, err = time.ParseDuration(cfg.Backend.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing backend request_timeout %q: %w", cfg.Backend.RequestTimeoutRaw, err)
		}
	}

	return nil
}
