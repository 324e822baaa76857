package orchestrator

import (
	"context"
	"fmt"

	"github.com/conclave-ai/conclave/internal/errors"
	"github.com/conclave-ai/conclave/internal/invoke"
)

// defaultCouncilRoles are assigned positionally to members without an
// explicit role.
var defaultCouncilRoles = []string{
	"pragmatist",
	"skeptic",
	"visionary",
	"analyst",
	"advocate",
}

// council runs an opening round and the configured number of discussion
// rounds, each member speaking from an assigned or auto-determined role,
// then a synthesizer call combining all statements. Council membership
// excludes the synthesizer.
func (r *sessionRun) council(ctx context.Context) error {
	s := r.session
	synthesizer, members := resolveRole(s.Participants, "synthesizer")
	if len(members) == 0 {
		members = []invoke.Descriptor{synthesizer}
	}

	roles := make(map[string]string, len(members))
	for i, m := range members {
		role := m.Role()
		if role == "" {
			role = defaultCouncilRoles[i%len(defaultCouncilRoles)]
		}
		roles[m.InstanceID] = role
	}

	var transcript []string
	for number := 0; number <= r.engine.cfg.CouncilRounds; number++ {
		stage := PhaseOpening
		if number > 0 {
			stage = PhaseDiscussing
		}
		r.setPhase(stage)

		prior := append([]string(nil), transcript...)
		outcomes := r.fanOut(ctx, stage, members, func(desc invoke.Descriptor) string {
			return councilPrompt(s.Prompt, roles[desc.InstanceID], prior)
		})

		s.appendRound(&CouncilRound{Number: number, Roles: roles, Outcomes: outcomes})
		for _, out := range outcomes {
			if out.Succeeded() {
				transcript = append(transcript, fmt.Sprintf("[%s, %s]\n%s", out.InstanceID, roles[out.InstanceID], out.Data))
			}
		}
	}

	r.setPhase(PhaseSynthesizing)
	synthesis, err := r.singleCall(ctx, PhaseSynthesizing, synthesizer, councilSynthesisPrompt(s.Prompt, transcript))
	s.appendRound(&SynthesisRound{Phase: PhaseSynthesizing, SynthesizerID: synthesizer.InstanceID, Outcome: synthesis})
	if err != nil {
		return errors.WrapSentinel(errors.ErrSynthesisFailed, err)
	}
	return nil
}
