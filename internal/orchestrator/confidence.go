package orchestrator

import (
	"context"

	"github.com/conclave-ai/conclave/internal/errors"
	"github.com/conclave-ai/conclave/internal/invoke"
)

// confidenceWeighted runs Responding then Synthesizing. Every non-synthesizer
// participant answers with a self-reported confidence score; the synthesizer
// combines the responses at or above the configured threshold, weighted by
// confidence. Responses below the threshold are excluded from the synthesis
// input but retained in the round record for audit.
func (r *sessionRun) confidenceWeighted(ctx context.Context) error {
	s := r.session
	synthesizer, responders := resolveRole(s.Participants, "synthesizer")
	if len(responders) == 0 {
		responders = []invoke.Descriptor{synthesizer}
	}

	threshold := r.engine.cfg.ConfidenceThreshold

	r.setPhase(PhaseResponding)
	outcomes := r.fanOut(ctx, PhaseResponding, responders, func(invoke.Descriptor) string {
		return confidencePrompt(s.Prompt)
	})

	round := &ConfidenceRound{Threshold: threshold, Responses: make([]ConfidenceResponse, len(outcomes))}
	for i, out := range outcomes {
		confidence := 0.0
		included := false
		if out.Succeeded() {
			confidence = ParseConfidence(out.Data)
			included = confidence >= threshold
		}
		if !included && out.Succeeded() {
			r.logger.Debug("response below confidence threshold", "instance", out.InstanceID, "confidence", confidence)
		}
		round.Responses[i] = ConfidenceResponse{Outcome: out, Confidence: confidence, Included: included}
	}
	s.appendRound(round)

	r.setPhase(PhaseSynthesizing)
	synthesis, err := r.singleCall(ctx, PhaseSynthesizing, synthesizer, confidenceSynthesisPrompt(s.Prompt, round.Responses))
	s.appendRound(&SynthesisRound{Phase: PhaseSynthesizing, SynthesizerID: synthesizer.InstanceID, Outcome: synthesis})
	if err != nil {
		return errors.WrapSentinel(errors.ErrSynthesisFailed, err)
	}
	return nil
}
