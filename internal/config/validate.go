package config

import (
	"fmt"
	"strings"

	"github.com/conclave-ai/conclave/internal/errors"
	"github.com/conclave-ai/conclave/internal/logging"
)

var validStoreBackends = []string{"memory", "redis"}

// Validate checks configuration values for consistency. It returns a
// ValidationError describing the first problem found.
func Validate(cfg *Config) error {
	if cfg.Modes.MaxConsensusRounds < 1 {
		return errors.NewValidationError("modes.max_consensus_rounds must be at least 1")
	}
	if cfg.Modes.ConsensusThreshold < 0 || cfg.Modes.ConsensusThreshold > 1 {
		return errors.NewValidationError(fmt.Sprintf("modes.consensus_threshold must be in [0, 1], got %v", cfg.Modes.ConsensusThreshold))
	}
	if cfg.Modes.DebateRounds < 1 {
		return errors.NewValidationError("modes.debate_rounds must be at least 1")
	}
	if cfg.Modes.CouncilRounds < 0 {
		return errors.NewValidationError("modes.council_rounds must not be negative")
	}
	if cfg.Modes.ScattershotVariations < 2 {
		return errors.NewValidationError("modes.scattershot_variations must be at least 2")
	}
	if cfg.Modes.ConfidenceThreshold < 0 || cfg.Modes.ConfidenceThreshold > 1 {
		return errors.NewValidationError(fmt.Sprintf("modes.confidence_threshold must be in [0, 1], got %v", cfg.Modes.ConfidenceThreshold))
	}
	if cfg.Fanout.MaxInFlight < 0 {
		return errors.NewValidationError("fanout.max_in_flight must not be negative (0 means unbounded)")
	}
	if cfg.Invoker.Command == "" {
		return errors.NewValidationError("invoker.command must not be empty")
	}
	if !isValidBackend(cfg.Store.Backend) {
		return errors.NewValidationError(fmt.Sprintf("store.backend must be one of %s, got %q",
			strings.Join(validStoreBackends, ", "), cfg.Store.Backend))
	}
	if cfg.Store.Backend == "redis" && cfg.Store.RedisURL == "" {
		return errors.NewValidationError("store.redis_url is required when store.backend is redis")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr == "" {
		return errors.NewValidationError("metrics.listen_addr is required when metrics.enabled is true")
	}
	if !isValidLevel(cfg.Logging.Level) {
		return errors.NewValidationError(fmt.Sprintf("logging.level must be one of %s, got %q",
			strings.Join(logging.ValidLevels(), ", "), cfg.Logging.Level))
	}
	return nil
}

func isValidLevel(level string) bool {
	for _, l := range logging.ValidLevels() {
		if strings.EqualFold(level, l) {
			return true
		}
	}
	return false
}

func isValidBackend(backend string) bool {
	for _, b := range validStoreBackends {
		if backend == b {
			return true
		}
	}
	return false
}
