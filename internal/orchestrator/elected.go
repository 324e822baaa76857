package orchestrator

import (
	"context"

	"github.com/conclave-ai/conclave/internal/invoke"
)

// elected runs Responding then Voting. Every candidate answers, then every
// candidate casts one vote for another candidate's answer. The candidate
// with the most votes wins; ties break to the earliest position in the
// original candidate ordering.
func (r *sessionRun) elected(ctx context.Context) error {
	s := r.session

	r.setPhase(PhaseResponding)
	candidates := r.fanOut(ctx, PhaseResponding, s.Participants, func(invoke.Descriptor) string {
		return s.Prompt
	})
	// Recorded as its own round so a live snapshot taken during Voting
	// already carries the candidate answers.
	s.appendRound(&ResponseRound{Phase: PhaseResponding, Outcomes: candidates})

	r.setPhase(PhaseVoting)
	ballots := r.fanOut(ctx, PhaseVoting, s.Participants, func(desc invoke.Descriptor) string {
		return votePrompt(s.Prompt, desc.InstanceID, candidates)
	})

	votes := make([]Vote, 0, len(ballots))
	for _, ballot := range ballots {
		if !ballot.Succeeded() {
			continue
		}
		vote, err := ParseVote(ballot.Data)
		if err != nil {
			r.logger.Warn("discarding unparseable ballot", "voter", ballot.InstanceID, "error", err)
			continue
		}
		vote.Voter = ballot.InstanceID
		if vote.VotedFor == vote.Voter {
			r.logger.Warn("discarding self-vote", "voter", vote.Voter)
			continue
		}
		votes = append(votes, vote)
	}

	order := make([]string, len(s.Participants))
	for i, p := range s.Participants {
		order[i] = p.InstanceID
	}
	counts, winner := tally(votes, order)

	for _, id := range sortedIDs(counts) {
		r.logger.Debug("vote tally", "candidate", id, "votes", counts[id])
	}
	r.logger.Info("election decided", "winner", winner, "ballots", len(votes))

	s.appendRound(&ElectedRound{
		Votes:      votes,
		VoteCounts: counts,
		Winner:     winner,
	})
	return nil
}
