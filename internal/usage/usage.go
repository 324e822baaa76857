// Package usage provides token and cost accounting for orchestration sessions.
// Costs are tracked in integer microcents throughout to avoid floating-point
// drift; formatting to currency happens only at the presentation boundary.
package usage

import "fmt"

// Record holds token counts and cost for a single worker invocation or for
// an aggregate of invocations. All fields are non-negative.
type Record struct {
	InputTokens    int64 `json:"input_tokens"`
	OutputTokens   int64 `json:"output_tokens"`
	TotalTokens    int64 `json:"total_tokens"`
	CostMicrocents int64 `json:"cost_microcents"`
}

// Zero returns an all-zero usage record. Used when provider response metadata
// is absent so aggregation stays total-safe.
func Zero() Record {
	return Record{}
}

// IsZero reports whether every field of the record is zero.
func (r Record) IsZero() bool {
	return r.InputTokens == 0 && r.OutputTokens == 0 && r.TotalTokens == 0 && r.CostMicrocents == 0
}

// Normalize returns a copy of the record with TotalTokens filled in.
// A provider-reported total takes precedence when present; otherwise the
// total is derived as input + output.
func (r Record) Normalize() Record {
	if r.TotalTokens == 0 {
		r.TotalTokens = r.InputTokens + r.OutputTokens
	}
	return r
}

// Add returns the field-wise sum of two records.
func (r Record) Add(other Record) Record {
	return Record{
		InputTokens:    r.InputTokens + other.InputTokens,
		OutputTokens:   r.OutputTokens + other.OutputTokens,
		TotalTokens:    r.TotalTokens + other.TotalTokens,
		CostMicrocents: r.CostMicrocents + other.CostMicrocents,
	}
}

// Aggregate sums every field across the given records. It is associative and
// commutative: aggregating round-by-round and aggregating all records at once
// yield identical totals.
func Aggregate(records []Record) Record {
	var total Record
	for _, r := range records {
		total = total.Add(r)
	}
	return total
}

// FormatUSD renders a microcent amount as a dollar string, e.g. "$1.2345".
// This is the presentation boundary; nothing inside the core formats currency.
func FormatUSD(microcents int64) string {
	dollars := float64(microcents) / 1e8
	return fmt.Sprintf("$%.4f", dollars)
}
