package orchestrator

import (
	"math"
	"testing"
)

func TestParseVote(t *testing.T) {
	vote, err := ParseVote(`I pick B.
<vote>
{"voted_for": "b", "reasoning": "most thorough"}
</vote>`)
	if err != nil {
		t.Fatalf("ParseVote() error = %v", err)
	}
	if vote.VotedFor != "b" {
		t.Errorf("VotedFor = %q, want \"b\"", vote.VotedFor)
	}
	if vote.Reasoning != "most thorough" {
		t.Errorf("Reasoning = %q, want \"most thorough\"", vote.Reasoning)
	}
}

func TestParseVoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"no tags", "I vote for b"},
		{"malformed json", "<vote>{not json}</vote>"},
		{"empty candidate", `<vote>{"voted_for": ""}</vote>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseVote(tt.output); err == nil {
				t.Error("ParseVote() = nil, want error")
			}
		})
	}
}

func TestParsePlan(t *testing.T) {
	output := `Here is my plan.
<plan>
{"subtasks": [
  {"id": "subtask-1", "description": "research", "assigned_to": "w1"},
  {"id": "subtask-2", "description": "draft", "assigned_to": "w2"}
]}
</plan>`
	subtasks, err := ParsePlan(output, []string{"w1", "w2"})
	if err != nil {
		t.Fatalf("ParsePlan() error = %v", err)
	}
	if len(subtasks) != 2 {
		t.Fatalf("len(subtasks) = %d, want 2", len(subtasks))
	}
	if subtasks[0].AssignedWorker != "w1" || subtasks[1].AssignedWorker != "w2" {
		t.Errorf("assignments = %q, %q", subtasks[0].AssignedWorker, subtasks[1].AssignedWorker)
	}
	for _, st := range subtasks {
		if st.Status != SubtaskPending {
			t.Errorf("subtask %s status = %q, want pending", st.ID, st.Status)
		}
	}
}

func TestParsePlanRoundRobinFallback(t *testing.T) {
	output := `<plan>{"subtasks": [
  {"description": "one"},
  {"description": "two", "assigned_to": "nobody"},
  {"description": "three"}
]}</plan>`
	subtasks, err := ParsePlan(output, []string{"w1", "w2"})
	if err != nil {
		t.Fatalf("ParsePlan() error = %v", err)
	}
	// Unknown or missing assignments distribute round-robin; missing IDs are
	// generated by position.
	wantWorkers := []string{"w1", "w2", "w1"}
	wantIDs := []string{"subtask-1", "subtask-2", "subtask-3"}
	for i, st := range subtasks {
		if st.AssignedWorker != wantWorkers[i] {
			t.Errorf("subtask %d worker = %q, want %q", i, st.AssignedWorker, wantWorkers[i])
		}
		if st.ID != wantIDs[i] {
			t.Errorf("subtask %d id = %q, want %q", i, st.ID, wantIDs[i])
		}
	}
}

func TestParsePlanErrors(t *testing.T) {
	for name, output := range map[string]string{
		"no tags":       "step 1: do it",
		"bad json":      "<plan>{oops</plan>",
		"zero subtasks": `<plan>{"subtasks": []}</plan>`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParsePlan(output, []string{"w1"}); err == nil {
				t.Error("ParsePlan() = nil, want error")
			}
		})
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"left keyword", `<verdict>{"winner": "left", "reasoning": "clearer"}</verdict>`, "a"},
		{"right keyword", `<verdict>{"winner": "right"}</verdict>`, "b"},
		{"left instance id", `<verdict>{"winner": "a"}</verdict>`, "a"},
		{"right instance id", `<verdict>{"winner": "b"}</verdict>`, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner, _, err := ParseVerdict(tt.output, "a", "b")
			if err != nil {
				t.Fatalf("ParseVerdict() error = %v", err)
			}
			if winner != tt.want {
				t.Errorf("winner = %q, want %q", winner, tt.want)
			}
		})
	}

	if _, _, err := ParseVerdict(`<verdict>{"winner": "c"}</verdict>`, "a", "b"); err == nil {
		t.Error("ParseVerdict() with unknown winner = nil, want error")
	}
	if _, _, err := ParseVerdict("the left one wins", "a", "b"); err == nil {
		t.Error("ParseVerdict() without tags = nil, want error")
	}
}

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   float64
	}{
		{"present", "my answer <confidence>0.85</confidence>", 0.85},
		{"zero", "<confidence>0</confidence>", 0},
		{"missing defaults to full", "my answer", 1},
		{"unparseable defaults to full", "<confidence>high</confidence>", 1},
		{"above one clamps", "<confidence>3.5</confidence>", 1},
		{"negative defaults to full", "<confidence>-0.2</confidence>", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseConfidence(tt.output); got != tt.want {
				t.Errorf("ParseConfidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripConfidence(t *testing.T) {
	got := StripConfidence("the answer\n<confidence>0.7</confidence>")
	if got != "the answer" {
		t.Errorf("StripConfidence() = %q, want \"the answer\"", got)
	}
}

func TestAgreement(t *testing.T) {
	if got := agreement([]string{"same answer", "same answer", "same answer"}); got != 1 {
		t.Errorf("agreement(identical) = %v, want 1", got)
	}
	if got := agreement([]string{"alpha beta", "gamma delta"}); got != 0 {
		t.Errorf("agreement(disjoint) = %v, want 0", got)
	}
	if got := agreement([]string{"only one"}); got != 1 {
		t.Errorf("agreement(single) = %v, want 1", got)
	}

	// Half-overlapping word sets land strictly between.
	got := agreement([]string{"alpha beta gamma", "alpha beta delta"})
	if got <= 0 || got >= 1 {
		t.Errorf("agreement(partial) = %v, want in (0, 1)", got)
	}
	if math.IsNaN(got) {
		t.Error("agreement(partial) is NaN")
	}
}

func TestTally(t *testing.T) {
	votes := []Vote{
		{Voter: "a", VotedFor: "b"},
		{Voter: "c", VotedFor: "b"},
		{Voter: "b", VotedFor: "c"},
	}
	counts, winner := tally(votes, []string{"a", "b", "c"})
	if winner != "b" {
		t.Errorf("winner = %q, want \"b\"", winner)
	}
	want := map[string]int{"a": 0, "b": 2, "c": 1}
	for id, n := range want {
		if counts[id] != n {
			t.Errorf("counts[%q] = %d, want %d", id, counts[id], n)
		}
	}
}

func TestTallyTieBreaksByOriginalOrder(t *testing.T) {
	votes := []Vote{
		{Voter: "x", VotedFor: "a"},
		{Voter: "y", VotedFor: "b"},
	}
	_, winner := tally(votes, []string{"a", "b"})
	if winner != "a" {
		t.Errorf("winner = %q, want \"a\" (first by original order)", winner)
	}
}

func TestTallyIgnoresUnknownCandidates(t *testing.T) {
	votes := []Vote{
		{Voter: "a", VotedFor: "ghost"},
		{Voter: "b", VotedFor: "a"},
	}
	counts, winner := tally(votes, []string{"a", "b"})
	if winner != "a" {
		t.Errorf("winner = %q, want \"a\"", winner)
	}
	if _, ok := counts["ghost"]; ok {
		t.Error("counts should not include unknown candidates")
	}
}
