package orchestrator

import (
	"fmt"
	"strings"

	"github.com/conclave-ai/conclave/internal/fanout"
)

const votePromptTemplate = `You are one of several assistants that independently answered the same request. Review every candidate answer below and vote for the single best one. You may not vote for your own answer (your instance id is %s).

Original request:
%s

Candidate answers:
%s

Respond with your ballot wrapped in vote tags:
<vote>
{"voted_for": "<instance id>", "reasoning": "<one or two sentences>"}
</vote>`

const decomposePromptTemplate = `You are the coordinator for a team of workers. Break the request below into independent subtasks and assign each to one worker.

Request:
%s

Available workers: %s

Respond with the plan wrapped in plan tags:
<plan>
{"subtasks": [{"id": "subtask-1", "description": "...", "assigned_to": "<worker id>"}]}
</plan>`

const subtaskPromptTemplate = `You are one worker on a team handling this overall request:
%s

Your assigned subtask:
%s

Complete only your subtask. Be thorough but stay within its scope.`

const synthesizePromptTemplate = `You are the coordinator. Your workers completed the subtasks below for this request:
%s

Subtask results:
%s

Combine the results into a single coherent answer to the original request. Some subtasks may have failed; work with what completed and note gaps where they matter.`

const judgePromptTemplate = `You are judging a head-to-head match between two answers to the same request. Pick the better answer.

Request:
%s

Answer from %s:
%s

Answer from %s:
%s

Respond with your decision wrapped in verdict tags:
<verdict>
{"winner": "left" or "right", "reasoning": "<one or two sentences>"}
</verdict>`

const revisePromptTemplate = `You and several other assistants each answered the request below. Read the other answers, then produce a revised answer that moves the group toward consensus. Adopt points you find convincing; keep points you believe are right even if others disagree.

Request:
%s

Current answers:
%s`

const debateOpeningPromptTemplate = `You are participating in a structured debate on the request below. Your assigned stance is %s. Make your opening statement: argue your stance as persuasively as the facts allow.

Request:
%s`

const debateRebuttalPromptTemplate = `You are participating in a structured debate. Your assigned stance is %s. Read the statements so far and deliver a rebuttal round %d response: counter the other side's strongest points and reinforce your own.

Request:
%s

Statements so far:
%s`

const debateSummaryPromptTemplate = `You moderated a structured debate on the request below. Write a balanced summary that presents the strongest arguments from both sides without declaring a winner.

Request:
%s

Full debate:
%s`

const councilPromptTemplate = `You are the %s on a council convened to address the request below. Speak from your role's perspective.%s

Request:
%s`

const councilSynthesisPromptTemplate = `You are the synthesizer for a council that discussed the request below. Combine the members' statements into one coherent answer, attributing tensions between perspectives where they exist.

Request:
%s

Council statements:
%s`

const confidencePromptTemplate = `Answer the request below. After your answer, state how confident you are in it on a scale from 0 to 1, wrapped in confidence tags, e.g. <confidence>0.85</confidence>.

Request:
%s`

const confidenceSynthesisPromptTemplate = `Several assistants answered the request below, each with a self-reported confidence score. Synthesize their answers into one, weighting each contribution by its confidence.

Request:
%s

Answers:
%s`

func votePrompt(prompt, voterID string, candidates []fanout.Outcome) string {
	return fmt.Sprintf(votePromptTemplate, voterID, prompt, formatOutcomes(candidates))
}

func decomposePrompt(prompt string, workerIDs []string) string {
	return fmt.Sprintf(decomposePromptTemplate, prompt, strings.Join(workerIDs, ", "))
}

func subtaskPrompt(prompt string, st Subtask) string {
	return fmt.Sprintf(subtaskPromptTemplate, prompt, st.Description)
}

// synthesizePrompt pairs subtasks with results by index; fan-out preserves
// input order, so subtasks[i] corresponds to results[i].
func synthesizePrompt(prompt string, subtasks []Subtask, results []fanout.Outcome) string {
	var b strings.Builder
	for i, st := range subtasks {
		fmt.Fprintf(&b, "[%s] %s (status: %s)\n", st.ID, st.Description, st.Status)
		if i >= len(results) {
			continue
		}
		if out := results[i]; out.Succeeded() {
			fmt.Fprintf(&b, "%s\n\n", out.Data)
		} else {
			fmt.Fprintf(&b, "(failed: %s)\n\n", out.Err)
		}
	}
	return fmt.Sprintf(synthesizePromptTemplate, prompt, strings.TrimSpace(b.String()))
}

func judgePrompt(prompt string, left, right fanout.Outcome) string {
	return fmt.Sprintf(judgePromptTemplate, prompt, left.InstanceID, left.Data, right.InstanceID, right.Data)
}

func revisePrompt(prompt string, prior []fanout.Outcome) string {
	return fmt.Sprintf(revisePromptTemplate, prompt, formatOutcomes(prior))
}

func debatePrompt(prompt, stance string, round int, prior []string) string {
	if round == 0 {
		return fmt.Sprintf(debateOpeningPromptTemplate, stance, prompt)
	}
	return fmt.Sprintf(debateRebuttalPromptTemplate, stance, round, prompt, strings.Join(prior, "\n\n"))
}

func debateSummaryPrompt(prompt string, transcript []string) string {
	return fmt.Sprintf(debateSummaryPromptTemplate, prompt, strings.Join(transcript, "\n\n"))
}

func councilPrompt(prompt, role string, prior []string) string {
	var context string
	if len(prior) > 0 {
		context = "\n\nStatements so far:\n" + strings.Join(prior, "\n\n")
	}
	return fmt.Sprintf(councilPromptTemplate, role, context, prompt)
}

func councilSynthesisPrompt(prompt string, transcript []string) string {
	return fmt.Sprintf(councilSynthesisPromptTemplate, prompt, strings.Join(transcript, "\n\n"))
}

func confidencePrompt(prompt string) string {
	return fmt.Sprintf(confidencePromptTemplate, prompt)
}

func confidenceSynthesisPrompt(prompt string, responses []ConfidenceResponse) string {
	var b strings.Builder
	for _, r := range responses {
		if !r.Included || !r.Outcome.Succeeded() {
			continue
		}
		fmt.Fprintf(&b, "[%s, confidence %.2f]\n%s\n\n", r.Outcome.InstanceID, r.Confidence, StripConfidence(r.Outcome.Data))
	}
	return fmt.Sprintf(confidenceSynthesisPromptTemplate, prompt, strings.TrimSpace(b.String()))
}

// formatOutcomes renders successful outcomes as labeled blocks for inclusion
// in a follow-up prompt. Failed outcomes are omitted.
func formatOutcomes(outcomes []fanout.Outcome) string {
	var b strings.Builder
	for _, out := range outcomes {
		if !out.Succeeded() {
			continue
		}
		fmt.Fprintf(&b, "[%s]\n%s\n\n", out.InstanceID, out.Data)
	}
	return strings.TrimSpace(b.String())
}
