// internal/pathgraph/sequence.go
package pathgraph

import (
	"cmp"
	"slices"
)

// SortRows orders rows by session id, then timestamp. The sort is stable:
// rows sharing a timestamp keep their input order, which is common in tutor
// logs. rows is not modified.
func SortRows(rows []EventRow) []EventRow {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b EventRow) int {
		if c := cmp.Compare(a.SessionID, b.SessionID); c != 0 {
			return c
		}
		return a.Timestamp.Compare(b.Timestamp)
	})
	return sorted
}

// BuildSequences groups rows into per-session step and outcome sequences.
//
// With includeSelfLoops false a step equal to the previous step of the same
// session is skipped. Outcomes are never collapsed, so Outcomes[s][i] belongs
// to the i-th raw row of session s.
func BuildSequences(rows []EventRow, includeSelfLoops bool) Sequences {
	seqs := Sequences{
		Steps:    map[string]StepSequence{},
		Outcomes: map[string]OutcomeSequence{},
		Students: map[string]string{},
	}

	for _, r := range SortRows(rows) {
		steps, seen := seqs.Steps[r.SessionID]
		if !seen {
			seqs.Order = append(seqs.Order, r.SessionID)
			seqs.Students[r.SessionID] = r.StudentID
		}
		if includeSelfLoops || len(steps) == 0 || steps[len(steps)-1] != r.StepName {
			steps = append(steps, r.StepName)
		}
		seqs.Steps[r.SessionID] = steps
		seqs.Outcomes[r.SessionID] = append(seqs.Outcomes[r.SessionID], r.Outcome)
	}

	return seqs
}
