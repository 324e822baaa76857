package orchestrator

import (
	"context"
	"fmt"

	"github.com/conclave-ai/conclave/internal/errors"
	"github.com/conclave-ai/conclave/internal/invoke"
)

// debated runs opening statements, the configured number of rebuttal
// rounds, and a summarizing call. Stances alternate by position in the
// participant list (even index pro, odd index con). The synthesizer
// produces a balanced summary; no winner is computed.
func (r *sessionRun) debated(ctx context.Context) error {
	s := r.session
	synthesizer, _ := resolveRole(s.Participants, "synthesizer")

	stances := make(map[string]string, len(s.Participants))
	for i, p := range s.Participants {
		if i%2 == 0 {
			stances[p.InstanceID] = StancePro
		} else {
			stances[p.InstanceID] = StanceCon
		}
	}

	var transcript []string
	rebuttals := r.engine.cfg.DebateRounds
	for number := 0; number <= rebuttals; number++ {
		stage := PhaseOpening
		if number > 0 {
			stage = PhaseRebutting
		}
		r.setPhase(stage)

		prior := append([]string(nil), transcript...)
		outcomes := r.fanOut(ctx, stage, s.Participants, func(desc invoke.Descriptor) string {
			return debatePrompt(s.Prompt, stances[desc.InstanceID], number, prior)
		})

		s.appendRound(&DebatedRound{Number: number, Stage: stage, Stances: stances, Outcomes: outcomes})
		for _, out := range outcomes {
			if out.Succeeded() {
				transcript = append(transcript, fmt.Sprintf("[%s, %s]\n%s", out.InstanceID, stances[out.InstanceID], out.Data))
			}
		}
	}

	r.setPhase(PhaseSummarizing)
	summary, err := r.singleCall(ctx, PhaseSummarizing, synthesizer, debateSummaryPrompt(s.Prompt, transcript))
	s.appendRound(&SynthesisRound{Phase: PhaseSummarizing, SynthesizerID: synthesizer.InstanceID, Outcome: summary})
	if err != nil {
		return errors.WrapSentinel(errors.ErrSynthesisFailed, err)
	}
	return nil
}
