package analyzedto

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/awmpietro/path-analysis/internal/app"
	"github.com/awmpietro/path-analysis/internal/apperr"
	"github.com/awmpietro/path-analysis/internal/ingest"
	"github.com/awmpietro/path-analysis/internal/pathgraph"
)

// AnalyzeRequest carries the dataset either as CSV/TSV text or as a JSON
// array of row objects keyed by export column headers.
type AnalyzeRequest struct {
	CSV     string          `json:"csv,omitempty"`
	Rows    json.RawMessage `json:"rows,omitempty"`
	Options app.Request     `json:"options"`
	Debug   bool            `json:"debug,omitempty"`
}

// EventRows reads and validates the request's dataset.
func (r AnalyzeRequest) EventRows() ([]pathgraph.EventRow, error) {
	hasCSV := strings.TrimSpace(r.CSV) != ""
	hasRows := len(r.Rows) > 0 && string(r.Rows) != "null"
	switch {
	case hasCSV && hasRows:
		return nil, apperr.New(apperr.CodeInvalidInput, "send either csv or rows, not both")
	case hasCSV:
		return ingest.ReadCSV(strings.NewReader(r.CSV), ingest.Options{})
	case hasRows:
		return ingest.ReadJSON(r.Rows)
	}
	return nil, apperr.New(apperr.CodeInvalidInput, "csv or rows is required")
}

type AnalyzeResponse struct {
	app.Result
	Trace *app.Trace `json:"trace,omitempty"`
}

type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    apperr.Code    `json:"code,omitempty"`
	Details string         `json:"details"`
	Issues  []ingest.Issue `json:"issues,omitempty"`
	Trace   *app.Trace     `json:"trace,omitempty"`
}

// StatusFor maps an analysis error to an HTTP status.
func StatusFor(err error) int {
	if apperr.IsClientError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func NewErrorResponse(summary string, err error, trace *app.Trace) ErrorResponse {
	resp := ErrorResponse{
		Error:   summary,
		Code:    apperr.GetCode(err),
		Details: apperr.UserMessage(err),
		Trace:   trace,
	}
	var report *ingest.ValidationReport
	if errors.As(err, &report) {
		resp.Issues = report.Issues
	}
	return resp
}
