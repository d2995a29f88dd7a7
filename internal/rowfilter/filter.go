// Package rowfilter selects event rows with small boolean expressions such as
// `progressStatus == "GRADUATED" && outcome != "HINT"`.
package rowfilter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/awmpietro/path-analysis/internal/pathgraph"
)

// Filter is a compiled row condition. The zero value and nil match every row.
type Filter struct {
	source  string
	program *vm.Program
}

// Compile validates and compiles cond against the row variables.
// An empty condition yields a filter that matches everything.
func Compile(cond string) (*Filter, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return &Filter{}, nil
	}
	if err := Validate(cond); err != nil {
		return nil, err
	}

	program, err := expr.Compile(cond, expr.Env(Vars(pathgraph.EventRow{})), expr.AsBool())
	if err != nil {
		return nil, err
	}
	return &Filter{source: cond, program: program}, nil
}

// String returns the source condition.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Match reports whether row satisfies the condition.
func (f *Filter) Match(row pathgraph.EventRow) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, Vars(row))
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("filter must evaluate to bool (got %T)", out)
	}
	return b, nil
}

// Apply returns the rows that match, in their original order.
func (f *Filter) Apply(rows []pathgraph.EventRow) ([]pathgraph.EventRow, error) {
	if f == nil || f.program == nil {
		return rows, nil
	}
	out := make([]pathgraph.EventRow, 0, len(rows))
	for i, r := range rows {
		ok, err := f.Match(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Vars exposes a row to filter expressions.
func Vars(r pathgraph.EventRow) map[string]any {
	return map[string]any{
		"sessionId":      r.SessionID,
		"studentId":      r.StudentID,
		"problemName":    r.ProblemName,
		"stepName":       r.StepName,
		"outcome":        r.Outcome,
		"progressStatus": r.ProgressStatus,
		"autofilled":     r.Autofilled,
	}
}
