// Package store persists terminal orchestration sessions. Sessions are only
// written once they reach a terminal phase, so stored records are immutable;
// the engine never updates a stored session in place.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/conclave-ai/conclave/internal/config"
	"github.com/conclave-ai/conclave/internal/errors"
	"github.com/conclave-ai/conclave/internal/invoke"
	"github.com/conclave-ai/conclave/internal/usage"
)

// Session status values for persisted records.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RoundEnvelope wraps a mode-specific round payload with its kind tag so the
// projection layer can decode it without knowing the session's mode up front.
type RoundEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// PersistedSession is the replay shape: everything needed to reconstruct a
// terminal live-state snapshot without re-running the session.
type PersistedSession struct {
	ID             string              `json:"id"`
	Mode           string              `json:"mode"`
	Phase          string              `json:"phase"`
	Status         string              `json:"status"`
	Prompt         string              `json:"prompt"`
	Participants   []invoke.Descriptor `json:"participants"`
	Rounds         []RoundEnvelope     `json:"rounds"`
	AggregateUsage usage.Record        `json:"aggregate_usage"`
	FailureReason  string              `json:"failure_reason,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	CompletedAt    time.Time           `json:"completed_at"`
}

// SessionSummary is the listing shape, small enough to scan many at once.
type SessionSummary struct {
	ID          string    `json:"id"`
	Mode        string    `json:"mode"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Store is the persistence port for terminal sessions.
type Store interface {
	// Save stores a terminal session. Saving an ID that already exists
	// replaces the previous record.
	Save(ctx context.Context, session *PersistedSession) error
	// Get retrieves a session by ID. Returns an error matching
	// errors.ErrSessionNotFound when absent.
	Get(ctx context.Context, id string) (*PersistedSession, error)
	// List returns summaries of all stored sessions, newest first.
	List(ctx context.Context) ([]SessionSummary, error)
	// Delete removes a session. Deleting an absent ID is not an error.
	Delete(ctx context.Context, id string) error
	// Close releases any underlying resources.
	Close() error
}

// Open builds the configured Store backend.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "redis":
		return NewRedisStore(cfg.RedisURL, cfg.KeyPrefix)
	case "", "memory":
		return NewMemoryStore(), nil
	default:
		return nil, errors.NewValidationError("unknown store backend " + cfg.Backend)
	}
}

func sortSummaries(summaries []SessionSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
}

func (s *PersistedSession) summary() SessionSummary {
	return SessionSummary{
		ID:          s.ID,
		Mode:        s.Mode,
		Status:      s.Status,
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
	}
}
