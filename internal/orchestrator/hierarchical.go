package orchestrator

import (
	"context"

	"github.com/conclave-ai/conclave/internal/errors"
	"github.com/conclave-ai/conclave/internal/invoke"
)

// hierarchical runs Decomposing, Executing, Synthesizing. The coordinator
// decomposes the request into assigned subtasks, workers execute them
// concurrently, and the coordinator synthesizes the results. Decomposition
// failure is fatal (no subtasks means no executing phase is possible);
// failed subtasks degrade the synthesis input but do not abort the session.
func (r *sessionRun) hierarchical(ctx context.Context) error {
	s := r.session
	coordinator, workers := resolveRole(s.Participants, "coordinator")
	if len(workers) == 0 {
		workers = []invoke.Descriptor{coordinator}
	}

	workerIDs := make([]string, len(workers))
	workerByID := make(map[string]invoke.Descriptor, len(workers))
	for i, w := range workers {
		workerIDs[i] = w.InstanceID
		workerByID[w.InstanceID] = w
	}

	r.setPhase(PhaseDecomposing)
	round := &HierarchicalRound{}
	decomposition, err := r.singleCall(ctx, PhaseDecomposing, coordinator, decomposePrompt(s.Prompt, workerIDs))
	round.Decomposition = decomposition
	if err != nil {
		s.appendRound(round)
		return errors.WrapSentinel(errors.ErrDecompositionFailed, err)
	}

	subtasks, err := ParsePlan(decomposition.Data, workerIDs)
	if err != nil {
		s.appendRound(round)
		return errors.NewPhaseFatalError("unusable decomposition", err).
			WithMode(string(s.Mode)).
			WithPhase(string(PhaseDecomposing))
	}
	round.Subtasks = subtasks
	s.appendRound(round)

	r.setPhase(PhaseExecuting)
	// One descriptor per subtask; a worker assigned several subtasks is
	// invoked once per subtask under a suffixed instance ID so outcomes map
	// back unambiguously.
	descriptors := make([]invoke.Descriptor, len(subtasks))
	prompts := make(map[string]string, len(subtasks))
	for i, st := range subtasks {
		desc := workerByID[st.AssignedWorker]
		desc.InstanceID = st.AssignedWorker + "/" + st.ID
		descriptors[i] = desc
		prompts[desc.InstanceID] = subtaskPrompt(s.Prompt, st)
		round.Subtasks[i].Status = SubtaskInProgress
	}

	results := r.fanOut(ctx, PhaseExecuting, descriptors, func(desc invoke.Descriptor) string {
		return prompts[desc.InstanceID]
	})
	round.WorkerResults = results
	for i := range round.Subtasks {
		if results[i].Succeeded() {
			round.Subtasks[i].Status = SubtaskComplete
		} else {
			round.Subtasks[i].Status = SubtaskFailed
		}
	}

	r.setPhase(PhaseSynthesizing)
	synthesis, err := r.singleCall(ctx, PhaseSynthesizing, coordinator, synthesizePrompt(s.Prompt, round.Subtasks, round.WorkerResults))
	round.Synthesis = &synthesis
	if err != nil {
		return errors.WrapSentinel(errors.ErrSynthesisFailed, err)
	}
	return nil
}
