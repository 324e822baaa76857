package orchestrator

import (
	"github.com/conclave-ai/conclave/internal/fanout"
	"github.com/conclave-ai/conclave/internal/invoke"
	"github.com/conclave-ai/conclave/internal/store"
	"github.com/conclave-ai/conclave/internal/usage"
)

// Session status values exposed by the projection.
const (
	StatusRunning   = "running"
	StatusCompleted = store.StatusCompleted
	StatusFailed    = store.StatusFailed
)

// LiveState is the externally consumable snapshot of a session: stable
// fields shared by every mode plus a mode-specific view.
type LiveState struct {
	SessionID      string              `json:"session_id"`
	Mode           Mode                `json:"mode"`
	Phase          Phase               `json:"phase"`
	Status         string              `json:"status"`
	FailureReason  string              `json:"failure_reason,omitempty"`
	Participants   []invoke.Descriptor `json:"participants"`
	AggregateUsage usage.Record        `json:"aggregate_usage"`
	View           View                `json:"view,omitempty"`
}

// View is the mode-specific portion of a snapshot. Exactly one concrete
// view type exists per mode.
type View interface {
	ViewMode() Mode
}

// ElectedView shows candidate answers, ballots, the tally, and the winner.
type ElectedView struct {
	Candidates []fanout.Outcome `json:"candidates"`
	Votes      []Vote           `json:"votes"`
	VoteCounts map[string]int   `json:"vote_counts"`
	Winner     string           `json:"winner,omitempty"`
}

func (*ElectedView) ViewMode() Mode { return ModeElected }

// HierarchicalView shows subtask progress and the synthesized answer.
type HierarchicalView struct {
	Subtasks      vSubtasks        `json:"subtasks"`
	WorkerResults []fanout.Outcome `json:"worker_results"`
	Synthesis     string           `json:"synthesis,omitempty"`
}

func (*HierarchicalView) ViewMode() Mode { return ModeHierarchical }

// vSubtasks carries the subtask list with its status counts. At all times
// Pending+InProgress+Complete+Failed equals the total.
type vSubtasks struct {
	Items      []Subtask `json:"items"`
	Pending    int       `json:"pending"`
	InProgress int       `json:"in_progress"`
	Complete   int       `json:"complete"`
	Failed     int       `json:"failed"`
}

// TournamentView shows the bracket's progress and the winner once decided.
type TournamentView struct {
	Responses []fanout.Outcome  `json:"responses"`
	Rounds    []TournamentRound `json:"rounds"`
	Winner    string            `json:"winner,omitempty"`
}

func (*TournamentView) ViewMode() Mode { return ModeTournament }

// ConsensusView shows the revision rounds and the final agreement level.
type ConsensusView struct {
	Rounds         []ConsensusRound `json:"rounds"`
	RoundsExecuted int              `json:"rounds_executed"`
	FinalAgreement float64          `json:"final_agreement"`
	FinalAnswers   []fanout.Outcome `json:"final_answers"`
}

func (*ConsensusView) ViewMode() Mode { return ModeConsensus }

// DebatedView shows the debate rounds and the balanced summary.
type DebatedView struct {
	Rounds  []DebatedRound `json:"rounds"`
	Summary string         `json:"summary,omitempty"`
}

func (*DebatedView) ViewMode() Mode { return ModeDebated }

// CouncilView shows the discussion rounds and the synthesized answer.
type CouncilView struct {
	Rounds    []CouncilRound    `json:"rounds"`
	Roles     map[string]string `json:"roles"`
	Synthesis string            `json:"synthesis,omitempty"`
}

func (*CouncilView) ViewMode() Mode { return ModeCouncil }

// ScattershotView shows every parameter variation for comparison.
type ScattershotView struct {
	BaseInstanceID string      `json:"base_instance_id"`
	Variations     []Variation `json:"variations"`
}

func (*ScattershotView) ViewMode() Mode { return ModeScattershot }

// ConfidenceView shows all responses with their confidence scores,
// including those excluded from synthesis, and the weighted synthesis.
type ConfidenceView struct {
	Threshold float64              `json:"threshold"`
	Responses []ConfidenceResponse `json:"responses"`
	Synthesis string               `json:"synthesis,omitempty"`
}

func (*ConfidenceView) ViewMode() Mode { return ModeConfidence }

// Project maps a session's current phase and round records into the
// externally visible snapshot. It is pure: projecting the same session
// twice yields the same snapshot.
func Project(s *Session) LiveState {
	state := LiveState{
		SessionID:      s.ID,
		Mode:           s.Mode,
		Phase:          s.Phase,
		Status:         statusOf(s.Phase),
		FailureReason:  s.FailureReason,
		Participants:   s.Participants,
		AggregateUsage: s.AggregateUsage,
	}

	switch s.Mode {
	case ModeElected:
		state.View = projectElected(s.Rounds)
	case ModeHierarchical:
		state.View = projectHierarchical(s.Rounds)
	case ModeTournament:
		state.View = projectTournament(s.Rounds)
	case ModeConsensus:
		state.View = projectConsensus(s.Rounds)
	case ModeDebated:
		state.View = projectDebated(s.Rounds)
	case ModeCouncil:
		state.View = projectCouncil(s.Rounds)
	case ModeScattershot:
		state.View = projectScattershot(s.Rounds)
	case ModeConfidence:
		state.View = projectConfidence(s.Rounds)
	}
	return state
}

func statusOf(phase Phase) string {
	switch phase {
	case PhaseDone:
		return StatusCompleted
	case PhaseFailed:
		return StatusFailed
	default:
		return StatusRunning
	}
}

func projectElected(rounds []RoundRecord) View {
	view := &ElectedView{}
	for _, r := range rounds {
		switch er := r.(type) {
		case *ResponseRound:
			view.Candidates = er.Outcomes
		case *ElectedRound:
			view.Votes = er.Votes
			view.VoteCounts = er.VoteCounts
			view.Winner = er.Winner
		}
	}
	return view
}

func projectHierarchical(rounds []RoundRecord) View {
	view := &HierarchicalView{}
	for _, r := range rounds {
		hr, ok := r.(*HierarchicalRound)
		if !ok {
			continue
		}
		view.Subtasks.Items = hr.Subtasks
		view.WorkerResults = hr.WorkerResults
		for _, st := range hr.Subtasks {
			switch st.Status {
			case SubtaskPending:
				view.Subtasks.Pending++
			case SubtaskInProgress:
				view.Subtasks.InProgress++
			case SubtaskComplete:
				view.Subtasks.Complete++
			case SubtaskFailed:
				view.Subtasks.Failed++
			}
		}
		if hr.Synthesis != nil && hr.Synthesis.Succeeded() {
			view.Synthesis = hr.Synthesis.Data
		}
	}
	return view
}

func projectTournament(rounds []RoundRecord) View {
	view := &TournamentView{}
	for _, r := range rounds {
		switch tr := r.(type) {
		case *ResponseRound:
			view.Responses = tr.Outcomes
		case *TournamentRound:
			view.Rounds = append(view.Rounds, *tr)
		}
	}
	if n := len(view.Rounds); n > 0 {
		if last := view.Rounds[n-1]; len(last.Advancing) == 1 {
			view.Winner = last.Advancing[0]
		}
	}
	return view
}

func projectConsensus(rounds []RoundRecord) View {
	view := &ConsensusView{}
	for _, r := range rounds {
		if cr, ok := r.(*ConsensusRound); ok {
			view.Rounds = append(view.Rounds, *cr)
		}
	}
	if n := len(view.Rounds); n > 0 {
		last := view.Rounds[n-1]
		view.RoundsExecuted = n
		view.FinalAgreement = last.Agreement
		view.FinalAnswers = last.Outcomes
	}
	return view
}

func projectDebated(rounds []RoundRecord) View {
	view := &DebatedView{}
	for _, r := range rounds {
		switch dr := r.(type) {
		case *DebatedRound:
			view.Rounds = append(view.Rounds, *dr)
		case *SynthesisRound:
			if dr.Outcome.Succeeded() {
				view.Summary = dr.Outcome.Data
			}
		}
	}
	return view
}

func projectCouncil(rounds []RoundRecord) View {
	view := &CouncilView{}
	for _, r := range rounds {
		switch cr := r.(type) {
		case *CouncilRound:
			view.Rounds = append(view.Rounds, *cr)
			view.Roles = cr.Roles
		case *SynthesisRound:
			if cr.Outcome.Succeeded() {
				view.Synthesis = cr.Outcome.Data
			}
		}
	}
	return view
}

func projectScattershot(rounds []RoundRecord) View {
	view := &ScattershotView{}
	for _, r := range rounds {
		if sr, ok := r.(*ScattershotRound); ok {
			view.BaseInstanceID = sr.BaseInstanceID
			view.Variations = sr.Variations
		}
	}
	return view
}

func projectConfidence(rounds []RoundRecord) View {
	view := &ConfidenceView{}
	for _, r := range rounds {
		switch cr := r.(type) {
		case *ConfidenceRound:
			view.Threshold = cr.Threshold
			view.Responses = cr.Responses
		case *SynthesisRound:
			if cr.Outcome.Succeeded() {
				view.Synthesis = cr.Outcome.Data
			}
		}
	}
	return view
}

// Serialize converts a terminal session into its persisted shape.
func Serialize(s *Session) (*store.PersistedSession, error) {
	rounds := make([]store.RoundEnvelope, len(s.Rounds))
	for i, r := range s.Rounds {
		env, err := EncodeRound(r)
		if err != nil {
			return nil, err
		}
		rounds[i] = env
	}
	return &store.PersistedSession{
		ID:             s.ID,
		Mode:           string(s.Mode),
		Phase:          string(s.Phase),
		Status:         statusOf(s.Phase),
		Prompt:         s.Prompt,
		Participants:   s.Participants,
		Rounds:         rounds,
		AggregateUsage: s.AggregateUsage,
		FailureReason:  s.FailureReason,
		CreatedAt:      s.CreatedAt,
		CompletedAt:    s.CompletedAt,
	}, nil
}

// Deserialize reconstructs a session from its persisted shape.
func Deserialize(ps *store.PersistedSession) (*Session, error) {
	mode, err := ParseMode(ps.Mode)
	if err != nil {
		return nil, err
	}
	rounds := make([]RoundRecord, len(ps.Rounds))
	for i, env := range ps.Rounds {
		r, err := DecodeRound(env)
		if err != nil {
			return nil, err
		}
		rounds[i] = r
	}
	return &Session{
		ID:             ps.ID,
		Mode:           mode,
		Phase:          Phase(ps.Phase),
		Prompt:         ps.Prompt,
		Participants:   ps.Participants,
		Rounds:         rounds,
		AggregateUsage: ps.AggregateUsage,
		FailureReason:  ps.FailureReason,
		CreatedAt:      ps.CreatedAt,
		CompletedAt:    ps.CompletedAt,
	}, nil
}

// ProjectFromPersisted reconstructs a terminal snapshot purely from
// persisted data, without the live executor. For any terminal session S,
// ProjectFromPersisted(Serialize(S)) equals Project(S) field for field.
func ProjectFromPersisted(ps *store.PersistedSession) (LiveState, error) {
	s, err := Deserialize(ps)
	if err != nil {
		return LiveState{}, err
	}
	return Project(s), nil
}
