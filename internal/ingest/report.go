package ingest

import (
	"fmt"
	"strings"

	"github.com/awmpietro/path-analysis/internal/apperr"
)

const maxReportedIssues = 50

// Issue is one problem found in the input. Row is 1-based and counts the
// header as row 1 for CSV input; it is the array index + 1 for JSON.
type Issue struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

// ValidationReport collects problems found while reading rows.
type ValidationReport struct {
	Issues []Issue `json:"issues"`
	// Omitted counts issues beyond the reporting cap.
	Omitted int `json:"omitted,omitempty"`
}

func (r *ValidationReport) add(row int, column, format string, args ...any) {
	if len(r.Issues) >= maxReportedIssues {
		r.Omitted++
		return
	}
	r.Issues = append(r.Issues, Issue{Row: row, Column: column, Message: fmt.Sprintf(format, args...)})
}

// OK reports whether no problems were recorded.
func (r *ValidationReport) OK() bool {
	return r == nil || (len(r.Issues) == 0 && r.Omitted == 0)
}

func (r *ValidationReport) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d invalid input issue(s)", len(r.Issues)+r.Omitted)
	for i, is := range r.Issues {
		if i == 5 {
			fmt.Fprintf(&b, "; ...")
			break
		}
		b.WriteString("; ")
		if is.Column != "" {
			fmt.Fprintf(&b, "row %d, %s: %s", is.Row, is.Column, is.Message)
		} else {
			fmt.Fprintf(&b, "row %d: %s", is.Row, is.Message)
		}
	}
	return b.String()
}

// Err returns nil for a clean report, otherwise a VALIDATION_FAILED error
// whose cause is the report itself.
func (r *ValidationReport) Err() error {
	if r.OK() {
		return nil
	}
	return apperr.Wrap(apperr.CodeValidationFailed, r, "input rows failed validation")
}
