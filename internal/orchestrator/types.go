// Package orchestrator implements the mode phase state machines: the
// strategy-specific protocols that sequence fan-out rounds into a terminal
// artifact (a winner, a synthesized answer, a decision). Each mode is a
// distinct finite state machine; transitions fire only when the active
// round has settled every required descriptor.
package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/conclave-ai/conclave/internal/errors"
	"github.com/conclave-ai/conclave/internal/fanout"
	"github.com/conclave-ai/conclave/internal/invoke"
	"github.com/conclave-ai/conclave/internal/store"
	"github.com/conclave-ai/conclave/internal/usage"
)

// Mode identifies an orchestration strategy.
type Mode string

const (
	// ModeElected - all candidates answer, then vote; max votes wins.
	ModeElected Mode = "elected"
	// ModeHierarchical - a coordinator decomposes the task, workers execute
	// subtasks, the coordinator synthesizes.
	ModeHierarchical Mode = "hierarchical"
	// ModeTournament - pairwise elimination rounds judged one match at a time.
	ModeTournament Mode = "tournament"
	// ModeConsensus - iterative revision rounds until agreement or the bound.
	ModeConsensus Mode = "consensus"
	// ModeDebated - pro/con statements and rebuttals, then a balanced summary.
	ModeDebated Mode = "debated"
	// ModeCouncil - role-tagged discussion rounds combined by a synthesizer.
	ModeCouncil Mode = "council"
	// ModeScattershot - one participant fanned out across parameter variations.
	ModeScattershot Mode = "scattershot"
	// ModeConfidence - confidence-weighted synthesis of threshold-filtered
	// responses.
	ModeConfidence Mode = "confidence_weighted"
)

// AllModes lists every orchestration mode in a stable order.
func AllModes() []Mode {
	return []Mode{
		ModeElected,
		ModeHierarchical,
		ModeTournament,
		ModeConsensus,
		ModeDebated,
		ModeCouncil,
		ModeScattershot,
		ModeConfidence,
	}
}

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	for _, known := range AllModes() {
		if m == known {
			return m, nil
		}
	}
	return "", errors.Wrapf(errors.ErrUnknownMode, "%q", s)
}

// Phase is a named stage of a mode's state machine. Each mode uses its own
// subset; Done and Failed are shared terminals.
type Phase string

const (
	PhaseResponding   Phase = "responding"
	PhaseVoting       Phase = "voting"
	PhaseDecomposing  Phase = "decomposing"
	PhaseExecuting    Phase = "executing"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseEliminating  Phase = "eliminating"
	PhaseRevising     Phase = "revising"
	PhaseOpening      Phase = "opening"
	PhaseRebutting    Phase = "rebutting"
	PhaseSummarizing  Phase = "summarizing"
	PhaseDiscussing   Phase = "discussing"
	PhaseScattering   Phase = "scattering"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

// Terminal reports whether the phase ends the session.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Session is one end-to-end orchestration run for a single user request
// under one mode. It is mutated only by the engine goroutine that owns it
// and becomes immutable once it reaches a terminal phase.
type Session struct {
	ID             string
	Mode           Mode
	Phase          Phase
	Prompt         string
	Participants   []invoke.Descriptor
	Rounds         []RoundRecord // append-only
	AggregateUsage usage.Record
	FailureReason  string
	CreatedAt      time.Time
	CompletedAt    time.Time
}

// Done reports whether the session reached the Done phase.
func (s *Session) Done() bool {
	return s.Phase == PhaseDone
}

// Failed reports whether the session terminated with a fatal phase failure.
func (s *Session) Failed() bool {
	return s.Phase == PhaseFailed
}

// appendRound records one completed fan-out-and-settle cycle.
func (s *Session) appendRound(r RoundRecord) {
	s.Rounds = append(s.Rounds, r)
}

// addUsage folds a round's usage records into the running aggregate.
func (s *Session) addUsage(outcomes []fanout.Outcome) {
	for _, out := range outcomes {
		s.AggregateUsage = s.AggregateUsage.Add(out.Usage)
	}
}

// Round record kinds, used as envelope tags in persistence.
const (
	KindResponses    = "responses"
	KindElected      = "elected"
	KindHierarchical = "hierarchical"
	KindTournament   = "tournament"
	KindConsensus    = "consensus"
	KindDebated      = "debated"
	KindCouncil      = "council"
	KindScattershot  = "scattershot"
	KindConfidence   = "confidence"
	KindSynthesis    = "synthesis"
)

// RoundRecord is a mode-specific record of one round. Records accumulate
// append-only on the session, enabling faithful replay.
type RoundRecord interface {
	Kind() string
}

// ResponseRound is a plain fan-out round with no mode-specific structure:
// the tournament's initial responding round.
type ResponseRound struct {
	Phase    Phase            `json:"phase"`
	Outcomes []fanout.Outcome `json:"outcomes"`
}

func (*ResponseRound) Kind() string { return KindResponses }

// Vote is one candidate's ballot in an elected session.
type Vote struct {
	Voter     string `json:"voter"`
	VotedFor  string `json:"voted_for"`
	Reasoning string `json:"reasoning,omitempty"`
}

// ElectedRound holds the voting half of the elected protocol: ballots, the
// tally, and the winner. Candidate answers live in the preceding
// ResponseRound.
type ElectedRound struct {
	Votes      []Vote         `json:"votes"`
	VoteCounts map[string]int `json:"vote_counts"`
	Winner     string         `json:"winner,omitempty"`
}

func (*ElectedRound) Kind() string { return KindElected }

// SubtaskStatus tracks one subtask through the hierarchical executing phase.
type SubtaskStatus string

const (
	SubtaskPending    SubtaskStatus = "pending"
	SubtaskInProgress SubtaskStatus = "in_progress"
	SubtaskComplete   SubtaskStatus = "complete"
	SubtaskFailed     SubtaskStatus = "failed"
)

// Subtask is one unit of work produced by hierarchical decomposition.
type Subtask struct {
	ID             string        `json:"id"`
	Description    string        `json:"description"`
	AssignedWorker string        `json:"assigned_worker"`
	Status         SubtaskStatus `json:"status"`
}

// HierarchicalRound records the decompose-execute-synthesize protocol.
type HierarchicalRound struct {
	Decomposition fanout.Outcome   `json:"decomposition"`
	Subtasks      []Subtask        `json:"subtasks"`
	WorkerResults []fanout.Outcome `json:"worker_results"`
	Synthesis     *fanout.Outcome  `json:"synthesis,omitempty"`
}

func (*HierarchicalRound) Kind() string { return KindHierarchical }

// Match is one judged pairing inside a tournament round. A bye match has no
// Right participant and no judge outcome; Left auto-advances.
type Match struct {
	Left      string          `json:"left"`
	Right     string          `json:"right,omitempty"`
	Winner    string          `json:"winner"`
	Reasoning string          `json:"reasoning,omitempty"`
	Judge     *fanout.Outcome `json:"judge,omitempty"`
	Bye       bool            `json:"bye,omitempty"`
}

// TournamentRound is one elimination round of pairwise matches.
type TournamentRound struct {
	Number    int      `json:"number"`
	Matches   []Match  `json:"matches"`
	Advancing []string `json:"advancing"`
}

func (*TournamentRound) Kind() string { return KindTournament }

// ConsensusRound is one revision round with its measured agreement.
type ConsensusRound struct {
	Number    int              `json:"number"`
	Outcomes  []fanout.Outcome `json:"outcomes"`
	Agreement float64          `json:"agreement"`
}

func (*ConsensusRound) Kind() string { return KindConsensus }

// Debate stances, assigned by position in the participant list.
const (
	StancePro = "pro"
	StanceCon = "con"
)

// DebatedRound is one debate round: the opening statements or one rebuttal
// round, with each participant's assigned stance.
type DebatedRound struct {
	Number   int               `json:"number"` // 0 = opening
	Stage    Phase             `json:"stage"`  // opening or rebutting
	Stances  map[string]string `json:"stances"`
	Outcomes []fanout.Outcome  `json:"outcomes"`
}

func (*DebatedRound) Kind() string { return KindDebated }

// CouncilRound is one discussion round with each member's role tag.
type CouncilRound struct {
	Number   int               `json:"number"` // 0 = opening
	Roles    map[string]string `json:"roles"`
	Outcomes []fanout.Outcome  `json:"outcomes"`
}

func (*CouncilRound) Kind() string { return KindCouncil }

// Variation is one sampled parameter combination in a scattershot round.
type Variation struct {
	VariationID string         `json:"variation_id"`
	Temperature float64        `json:"temperature"`
	TopP        float64        `json:"top_p"`
	Outcome     fanout.Outcome `json:"outcome"`
}

// ScattershotRound fans one participant out across parameter variations.
// No winner is computed; all variations are returned for comparison.
type ScattershotRound struct {
	BaseInstanceID string      `json:"base_instance_id"`
	Variations     []Variation `json:"variations"`
}

func (*ScattershotRound) Kind() string { return KindScattershot }

// ConfidenceResponse pairs a participant's answer with its self-reported
// confidence. Included marks whether it passed the threshold filter;
// excluded responses stay in the record for audit.
type ConfidenceResponse struct {
	Outcome    fanout.Outcome `json:"outcome"`
	Confidence float64        `json:"confidence"`
	Included   bool           `json:"included"`
}

// ConfidenceRound records the confidence-weighted protocol.
type ConfidenceRound struct {
	Threshold float64              `json:"threshold"`
	Responses []ConfidenceResponse `json:"responses"`
}

func (*ConfidenceRound) Kind() string { return KindConfidence }

// SynthesisRound is the single synthesizer/summarizer call that closes the
// debated, council, and confidence-weighted protocols.
type SynthesisRound struct {
	Phase         Phase          `json:"phase"`
	SynthesizerID string         `json:"synthesizer_id"`
	Outcome       fanout.Outcome `json:"outcome"`
}

func (*SynthesisRound) Kind() string { return KindSynthesis }

// EncodeRound serializes a round record into a tagged envelope.
func EncodeRound(r RoundRecord) (store.RoundEnvelope, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return store.RoundEnvelope{}, errors.Wrap(err, "encode round")
	}
	return store.RoundEnvelope{Kind: r.Kind(), Payload: payload}, nil
}

// DecodeRound reconstructs a round record from its envelope.
func DecodeRound(env store.RoundEnvelope) (RoundRecord, error) {
	var r RoundRecord
	switch env.Kind {
	case KindResponses:
		r = &ResponseRound{}
	case KindElected:
		r = &ElectedRound{}
	case KindHierarchical:
		r = &HierarchicalRound{}
	case KindTournament:
		r = &TournamentRound{}
	case KindConsensus:
		r = &ConsensusRound{}
	case KindDebated:
		r = &DebatedRound{}
	case KindCouncil:
		r = &CouncilRound{}
	case KindScattershot:
		r = &ScattershotRound{}
	case KindConfidence:
		r = &ConfidenceRound{}
	case KindSynthesis:
		r = &SynthesisRound{}
	default:
		return nil, errors.NewValidationError("unknown round kind " + env.Kind)
	}
	if err := json.Unmarshal(env.Payload, r); err != nil {
		return nil, errors.Wrapf(err, "decode %s round", env.Kind)
	}
	return r, nil
}
