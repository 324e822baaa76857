package orchestrator

import (
	"fmt"

	"github.com/conclave-ai/conclave/internal/errors"
	"github.com/conclave-ai/conclave/internal/invoke"
)

// minParticipants is the smallest descriptor set each mode can run with.
// Scattershot needs only one participant because it fans out over parameter
// variations, not instances.
var minParticipants = map[Mode]int{
	ModeElected:      2,
	ModeHierarchical: 2,
	ModeTournament:   2,
	ModeConsensus:    2,
	ModeDebated:      2,
	ModeCouncil:      2,
	ModeScattershot:  1,
	ModeConfidence:   2,
}

// validateParticipants rejects a malformed descriptor set before any
// fan-out begins.
func validateParticipants(mode Mode, participants []invoke.Descriptor) error {
	min, ok := minParticipants[mode]
	if !ok {
		return errors.Wrapf(errors.ErrUnknownMode, "%q", mode)
	}
	if len(participants) == 0 {
		return errors.NewValidationError(fmt.Sprintf("mode %s requires participants", mode)).
			WithCause(errors.ErrNoParticipants)
	}
	if len(participants) < min {
		return errors.NewValidationError(fmt.Sprintf("mode %s requires at least %d participants, got %d", mode, min, len(participants))).
			WithCause(errors.ErrTooFewParticipants)
	}

	seen := make(map[string]struct{}, len(participants))
	for i, p := range participants {
		if p.InstanceID == "" {
			return errors.NewValidationError(fmt.Sprintf("participant %d has no instance id", i))
		}
		if p.ModelID == "" {
			return errors.NewValidationError(fmt.Sprintf("participant %q has no model id", p.InstanceID))
		}
		if _, dup := seen[p.InstanceID]; dup {
			return errors.NewValidationError(fmt.Sprintf("duplicate instance id %q", p.InstanceID)).
				WithCause(errors.ErrDuplicateInstanceID)
		}
		seen[p.InstanceID] = struct{}{}
	}
	return nil
}

// resolveRole splits the participant set into the descriptor holding the
// given role and the remaining members. When no participant carries the
// role, the first participant takes it; modes whose membership excludes the
// role holder (council, debated, confidence-weighted) use the returned rest.
func resolveRole(participants []invoke.Descriptor, role string) (invoke.Descriptor, []invoke.Descriptor) {
	idx := 0
	for i, p := range participants {
		if p.Role() == role {
			idx = i
			break
		}
	}
	holder := participants[idx]
	rest := make([]invoke.Descriptor, 0, len(participants)-1)
	rest = append(rest, participants[:idx]...)
	rest = append(rest, participants[idx+1:]...)
	return holder, rest
}
