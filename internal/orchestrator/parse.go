package orchestrator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	voteRe       = regexp.MustCompile(`(?s)<vote>\s*(.*?)\s*</vote>`)
	planRe       = regexp.MustCompile(`(?s)<plan>\s*(.*?)\s*</plan>`)
	verdictRe    = regexp.MustCompile(`(?s)<verdict>\s*(.*?)\s*</verdict>`)
	confidenceRe = regexp.MustCompile(`(?s)<confidence>\s*(.*?)\s*</confidence>`)
)

// ParseVote parses a ballot from a candidate's voting output.
// It looks for JSON wrapped in <vote></vote> tags.
func ParseVote(output string) (Vote, error) {
	matches := voteRe.FindStringSubmatch(output)
	if len(matches) < 2 {
		return Vote{}, fmt.Errorf("no vote found in output (expected <vote>JSON</vote>)")
	}

	var raw struct {
		VotedFor  string `json:"voted_for"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(matches[1]), &raw); err != nil {
		return Vote{}, fmt.Errorf("failed to parse vote JSON: %w", err)
	}
	if raw.VotedFor == "" {
		return Vote{}, fmt.Errorf("vote names no candidate")
	}
	return Vote{VotedFor: raw.VotedFor, Reasoning: raw.Reasoning}, nil
}

// ParsePlan parses a subtask list from the coordinator's decomposition
// output. It looks for JSON wrapped in <plan></plan> tags. Subtasks without
// an assignment are distributed round-robin over the given worker IDs.
func ParsePlan(output string, workerIDs []string) ([]Subtask, error) {
	matches := planRe.FindStringSubmatch(output)
	if len(matches) < 2 {
		return nil, fmt.Errorf("no plan found in output (expected <plan>JSON</plan>)")
	}

	var raw struct {
		Subtasks []struct {
			ID          string `json:"id"`
			Description string `json:"description"`
			AssignedTo  string `json:"assigned_to"`
		} `json:"subtasks"`
	}
	if err := json.Unmarshal([]byte(matches[1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	if len(raw.Subtasks) == 0 {
		return nil, fmt.Errorf("plan contains no subtasks")
	}

	known := make(map[string]struct{}, len(workerIDs))
	for _, id := range workerIDs {
		known[id] = struct{}{}
	}

	subtasks := make([]Subtask, len(raw.Subtasks))
	for i, st := range raw.Subtasks {
		id := st.ID
		if id == "" {
			id = fmt.Sprintf("subtask-%d", i+1)
		}
		assigned := st.AssignedTo
		if _, ok := known[assigned]; !ok {
			assigned = workerIDs[i%len(workerIDs)]
		}
		subtasks[i] = Subtask{
			ID:             id,
			Description:    st.Description,
			AssignedWorker: assigned,
			Status:         SubtaskPending,
		}
	}
	return subtasks, nil
}

// ParseVerdict parses a judge's decision over a pairwise match. It looks for
// JSON wrapped in <verdict></verdict> tags and accepts either "left"/"right"
// or an exact instance ID as the winner.
func ParseVerdict(output string, left, right string) (winner string, reasoning string, err error) {
	matches := verdictRe.FindStringSubmatch(output)
	if len(matches) < 2 {
		return "", "", fmt.Errorf("no verdict found in output (expected <verdict>JSON</verdict>)")
	}

	var raw struct {
		Winner    string `json:"winner"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(matches[1]), &raw); err != nil {
		return "", "", fmt.Errorf("failed to parse verdict JSON: %w", err)
	}

	switch raw.Winner {
	case "left", left:
		return left, raw.Reasoning, nil
	case "right", right:
		return right, raw.Reasoning, nil
	default:
		return "", "", fmt.Errorf("verdict winner %q matches neither contestant", raw.Winner)
	}
}

// ParseConfidence extracts a self-reported confidence score in [0, 1] from a
// response. Responses without a parseable score default to full confidence
// so they are never silently filtered out.
func ParseConfidence(output string) float64 {
	matches := confidenceRe.FindStringSubmatch(output)
	if len(matches) < 2 {
		return 1
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(matches[1]), 64)
	if err != nil || v < 0 {
		return 1
	}
	if v > 1 {
		return 1
	}
	return v
}

// StripConfidence removes the confidence tag from a response, leaving the
// answer text for synthesis input.
func StripConfidence(output string) string {
	return strings.TrimSpace(confidenceRe.ReplaceAllString(output, ""))
}

// agreement measures inter-response agreement as the mean pairwise Jaccard
// similarity over lowercased word sets. It returns 1 for fewer than two
// responses (nothing to disagree with).
func agreement(responses []string) float64 {
	if len(responses) < 2 {
		return 1
	}

	sets := make([]map[string]struct{}, len(responses))
	for i, r := range responses {
		sets[i] = wordSet(r)
	}

	var sum float64
	var pairs int
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			sum += jaccard(sets[i], sets[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	var intersection int
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// tally counts votes per candidate and picks the winner: max votes, ties
// broken by earliest position in the original candidate ordering. Candidates
// with zero votes still appear in the returned counts.
func tally(votes []Vote, candidateOrder []string) (counts map[string]int, winner string) {
	counts = make(map[string]int, len(candidateOrder))
	for _, id := range candidateOrder {
		counts[id] = 0
	}
	for _, v := range votes {
		if _, ok := counts[v.VotedFor]; ok {
			counts[v.VotedFor]++
		}
	}

	best := -1
	for _, id := range candidateOrder {
		if counts[id] > best {
			best = counts[id]
			winner = id
		}
	}
	return counts, winner
}

// sortedIDs returns map keys in a stable order; used for deterministic logs.
func sortedIDs(m map[string]int) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
