package orchestrator

import (
	"context"

	"github.com/conclave-ai/conclave/internal/errors"
	"github.com/conclave-ai/conclave/internal/fanout"
	"github.com/conclave-ai/conclave/internal/invoke"
)

// tournament runs an initial responding round and then pairwise elimination
// rounds, each match judged by one call comparing two responses. The winner
// of the final match is the session winner. An unpaired participant in an
// odd-count round auto-advances; a judge call failing is fatal.
func (r *sessionRun) tournament(ctx context.Context) error {
	s := r.session
	judge, _ := resolveRole(s.Participants, "judge")

	r.setPhase(PhaseResponding)
	responses := r.fanOut(ctx, PhaseResponding, s.Participants, func(invoke.Descriptor) string {
		return s.Prompt
	})
	s.appendRound(&ResponseRound{Phase: PhaseResponding, Outcomes: responses})

	byID := make(map[string]fanout.Outcome, len(responses))
	for _, out := range responses {
		byID[out.InstanceID] = out
	}

	bracket := make([]string, len(s.Participants))
	for i, p := range s.Participants {
		bracket[i] = p.InstanceID
	}

	r.setPhase(PhaseEliminating)
	number := 0
	for len(bracket) > 1 {
		number++
		round := &TournamentRound{Number: number}

		for i := 0; i < len(bracket); i += 2 {
			if i+1 >= len(bracket) {
				// Odd participant out: auto-advance.
				round.Matches = append(round.Matches, Match{Left: bracket[i], Winner: bracket[i], Bye: true})
				round.Advancing = append(round.Advancing, bracket[i])
				continue
			}

			match, err := r.judgeMatch(ctx, judge, bracket[i], bracket[i+1], byID)
			round.Matches = append(round.Matches, match)
			if err != nil {
				s.appendRound(round)
				return err
			}
			round.Advancing = append(round.Advancing, match.Winner)
		}

		s.appendRound(round)
		r.logger.Info("elimination round complete", "round", number, "advancing", len(round.Advancing))
		bracket = round.Advancing
	}

	r.logger.Info("tournament decided", "winner", bracket[0], "rounds", number)
	return nil
}

// judgeMatch decides one pairing. A contestant whose responding-round
// outcome failed forfeits; both failing advances the earlier-ordered
// contestant without a judge call.
func (r *sessionRun) judgeMatch(ctx context.Context, judge invoke.Descriptor, left, right string, byID map[string]fanout.Outcome) (Match, error) {
	leftOut, rightOut := byID[left], byID[right]

	switch {
	case leftOut.Succeeded() && !rightOut.Succeeded():
		return Match{Left: left, Right: right, Winner: left, Reasoning: "opponent response failed"}, nil
	case !leftOut.Succeeded() && rightOut.Succeeded():
		return Match{Left: left, Right: right, Winner: right, Reasoning: "opponent response failed"}, nil
	case !leftOut.Succeeded() && !rightOut.Succeeded():
		return Match{Left: left, Right: right, Winner: left, Reasoning: "both responses failed"}, nil
	}

	out, err := r.singleCall(ctx, PhaseEliminating, judge, judgePrompt(r.session.Prompt, leftOut, rightOut))
	if err != nil {
		return Match{Left: left, Right: right, Judge: &out}, errors.WrapSentinel(errors.ErrJudgingFailed, err)
	}

	winner, reasoning, err := ParseVerdict(out.Data, left, right)
	if err != nil {
		return Match{Left: left, Right: right, Judge: &out}, errors.NewPhaseFatalError("unusable verdict", err).
			WithMode(string(r.session.Mode)).
			WithPhase(string(PhaseEliminating))
	}

	return Match{Left: left, Right: right, Winner: winner, Reasoning: reasoning, Judge: &out}, nil
}
