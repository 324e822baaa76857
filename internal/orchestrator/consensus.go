package orchestrator

import (
	"context"

	"github.com/conclave-ai/conclave/internal/fanout"
	"github.com/conclave-ai/conclave/internal/invoke"
)

// consensus runs iterative revision rounds. Round one collects independent
// answers; each later round shows participants the prior round's answers
// and asks for a revision. Execution stops when measured agreement reaches
// the configured threshold or the round bound is hit, whichever comes first.
func (r *sessionRun) consensus(ctx context.Context) error {
	s := r.session
	cfg := r.engine.cfg

	maxRounds := cfg.MaxConsensusRounds
	if maxRounds < 1 {
		maxRounds = 1
	}

	var prior []fanout.Outcome
	for number := 1; number <= maxRounds; number++ {
		phase := PhaseResponding
		if number > 1 {
			phase = PhaseRevising
		}
		r.setPhase(phase)

		outcomes := r.fanOut(ctx, phase, s.Participants, func(invoke.Descriptor) string {
			if number == 1 {
				return s.Prompt
			}
			return revisePrompt(s.Prompt, prior)
		})

		score := agreement(successfulData(outcomes))
		s.appendRound(&ConsensusRound{Number: number, Outcomes: outcomes, Agreement: score})
		r.logger.Info("consensus round complete", "round", number, "agreement", score)

		if score >= cfg.ConsensusThreshold {
			r.logger.Info("consensus reached", "round", number, "threshold", cfg.ConsensusThreshold)
			return nil
		}
		prior = outcomes
	}

	r.logger.Info("consensus round bound reached", "rounds", maxRounds)
	return nil
}

// successfulData extracts the response text of successful outcomes.
func successfulData(outcomes []fanout.Outcome) []string {
	data := make([]string, 0, len(outcomes))
	for _, out := range outcomes {
		if out.Succeeded() {
			data = append(data, out.Data)
		}
	}
	return data
}
