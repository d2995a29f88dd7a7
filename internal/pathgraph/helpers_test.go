package pathgraph

import (
	"fmt"
	"time"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// rowsFor builds one row per step, a second apart, with matching outcomes.
// An empty outcomes slice means every row is OK.
func rowsFor(session string, steps []string, outcomes []string) []EventRow {
	rows := make([]EventRow, 0, len(steps))
	for i, s := range steps {
		outcome := OutcomeOK
		if len(outcomes) > 0 {
			outcome = outcomes[i]
		}
		rows = append(rows, EventRow{
			SessionID:      session,
			Timestamp:      t0.Add(time.Duration(i) * time.Second),
			StepName:       s,
			Outcome:        outcome,
			ProgressStatus: "GRADUATED",
		})
	}
	return rows
}

func scenarioRows() []EventRow {
	var rows []EventRow
	rows = append(rows, rowsFor("s1", []string{"A", "B", "C"}, nil)...)
	rows = append(rows, rowsFor("s2", []string{"A", "B", "C"}, nil)...)
	rows = append(rows, rowsFor("s3", []string{"A", "C"}, nil)...)
	return rows
}

func manySessions(n int) []EventRow {
	paths := [][]string{
		{"Start", "EquationAnswer", "FinalAnswer", DefaultStepName},
		{"Start", "EquationAnswer", "EquationAnswer", "FinalAnswer", DefaultStepName},
		{"Start", "FinalAnswer", DefaultStepName},
	}
	outcomes := []string{OutcomeOK, OutcomeError, OutcomeInitialHint, OutcomeJIT, "UNKNOWN"}
	var rows []EventRow
	for i := 0; i < n; i++ {
		p := paths[i%len(paths)]
		oc := make([]string, len(p))
		for j := range p {
			oc[j] = outcomes[(i+j)%len(outcomes)]
		}
		rows = append(rows, rowsFor(fmt.Sprintf("s%04d", i), p, oc)...)
	}
	return rows
}
