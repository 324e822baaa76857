// Package config provides Conclave's configuration: per-mode tunables for
// the orchestration state machines, the fan-out concurrency policy, the
// invoker backend, persistence, metrics, and logging.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete Conclave configuration
type Config struct {
	Modes   ModesConfig   `mapstructure:"modes"`
	Fanout  FanoutConfig  `mapstructure:"fanout"`
	Invoker InvokerConfig `mapstructure:"invoker"`
	Store   StoreConfig   `mapstructure:"store"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
	Paths   PathsConfig   `mapstructure:"paths"`
}

// ModesConfig holds the per-mode tunables of the orchestration state machines
type ModesConfig struct {
	// MaxConsensusRounds bounds iterative revision rounds in consensus mode (default: 5)
	MaxConsensusRounds int `mapstructure:"max_consensus_rounds"`
	// ConsensusThreshold is the inter-response agreement level, 0..1, at which
	// consensus mode stops early (default: 0.8)
	ConsensusThreshold float64 `mapstructure:"consensus_threshold"`
	// DebateRounds is the number of rebuttal rounds in debated mode (default: 2)
	DebateRounds int `mapstructure:"debate_rounds"`
	// CouncilRounds is the number of discussion rounds after the opening round
	// in council mode (default: 2)
	CouncilRounds int `mapstructure:"council_rounds"`
	// ScattershotVariations is the number of parameter variations fanned out
	// in scattershot mode (default: 4)
	ScattershotVariations int `mapstructure:"scattershot_variations"`
	// ConfidenceThreshold excludes responses below this self-reported
	// confidence, 0..1, from confidence-weighted synthesis input.
	// 0 disables filtering (default: 0)
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// FanoutConfig controls the fan-out executor's concurrency policy
type FanoutConfig struct {
	// MaxInFlight bounds concurrently running worker invocations per round.
	// 0 means unbounded (default: 8)
	MaxInFlight int `mapstructure:"max_in_flight"`
}

// InvokerConfig controls the command-backend worker invoker
type InvokerConfig struct {
	// Command is the CLI executable run once per worker invocation (default: "claude")
	Command string `mapstructure:"command"`
	// Args are fixed arguments prepended to every invocation
	Args []string `mapstructure:"args"`
	// ModelFlag passes the descriptor's model ID to the backend (default: "--model")
	ModelFlag string `mapstructure:"model_flag"`
}

// StoreConfig controls where terminal sessions are persisted
type StoreConfig struct {
	// Backend selects the persistence adapter: "memory" or "redis" (default: "memory")
	Backend string `mapstructure:"backend"`
	// RedisURL is the redis connection URL when backend is "redis"
	RedisURL string `mapstructure:"redis_url"`
	// KeyPrefix namespaces session keys in shared deployments (default: "conclave")
	KeyPrefix string `mapstructure:"key_prefix"`
}

// MetricsConfig controls the Prometheus metrics endpoint
type MetricsConfig struct {
	// Enabled starts the metrics HTTP listener (default: false)
	Enabled bool `mapstructure:"enabled"`
	// ListenAddr is the metrics listen address (default: ":9187")
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether session logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// PathsConfig controls where Conclave stores session data
type PathsConfig struct {
	// SessionDir is the directory for session logs and roster files.
	// If empty, defaults to ".conclave" relative to the working directory.
	SessionDir string `mapstructure:"session_dir"`
}

// ResolveSessionDir returns the resolved session directory path.
func (p *PathsConfig) ResolveSessionDir(baseDir string) string {
	if p.SessionDir == "" {
		return filepath.Join(baseDir, ".conclave")
	}
	path := p.SessionDir
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Modes: ModesConfig{
			MaxConsensusRounds:    5,
			ConsensusThreshold:    0.8,
			DebateRounds:          2,
			CouncilRounds:         2,
			ScattershotVariations: 4,
			ConfidenceThreshold:   0,
		},
		Fanout: FanoutConfig{
			MaxInFlight: 8,
		},
		Invoker: InvokerConfig{
			Command:   "claude",
			Args:      []string{"--print"},
			ModelFlag: "--model",
		},
		Store: StoreConfig{
			Backend:   "memory",
			KeyPrefix: "conclave",
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9187",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// SetDefaults registers default values with viper so they apply even when no
// config file exists.
func SetDefaults() {
	viper.SetDefault("modes.max_consensus_rounds", 5)
	viper.SetDefault("modes.consensus_threshold", 0.8)
	viper.SetDefault("modes.debate_rounds", 2)
	viper.SetDefault("modes.council_rounds", 2)
	viper.SetDefault("modes.scattershot_variations", 4)
	viper.SetDefault("modes.confidence_threshold", 0.0)
	viper.SetDefault("fanout.max_in_flight", 8)
	viper.SetDefault("invoker.command", "claude")
	viper.SetDefault("invoker.args", []string{"--print"})
	viper.SetDefault("invoker.model_flag", "--model")
	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("store.key_prefix", "conclave")
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen_addr", ":9187")
	viper.SetDefault("logging.enabled", true)
	viper.SetDefault("logging.level", "info")
}

// Load unmarshals the current viper state into a validated Config.
func Load() (*Config, error) {
	cfg := Default()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigDir returns the user-level configuration directory.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "conclave")
}

// ConfigFile returns the user-level configuration file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
