package pathgraph

import "strings"

// NormalizeRows returns a copy of rows with blank step names replaced by
// DefaultStepName. No other field is touched.
func NormalizeRows(rows []EventRow) []EventRow {
	out := make([]EventRow, len(rows))
	for i, r := range rows {
		if strings.TrimSpace(r.StepName) == "" {
			r.StepName = DefaultStepName
		}
		out[i] = r
	}
	return out
}

// DropAutofilled returns the rows that were not filled in by the tutor itself.
func DropAutofilled(rows []EventRow) []EventRow {
	out := make([]EventRow, 0, len(rows))
	for _, r := range rows {
		if r.Autofilled {
			continue
		}
		out = append(out, r)
	}
	return out
}
