// Package ingest turns tutor log exports (CSV, TSV or JSON) into validated
// event rows.
package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/awmpietro/path-analysis/internal/apperr"
	"github.com/awmpietro/path-analysis/internal/pathgraph"
)

// Column headers of a tutor log export.
const (
	ColStudentID      = "Anon Student Id"
	ColSessionID      = "Session Id"
	ColTime           = "Time"
	ColStepName       = "Step Name"
	ColOutcome        = "Outcome"
	ColProgressStatus = "CF (Workspace Progress Status)"
	ColProblemName    = "Problem Name"
	ColAutofilled     = "CF (Is Autofilled)"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

// Options controls CSV reading.
type Options struct {
	// Delimiter is the field separator. Zero detects tab or comma from
	// the header line.
	Delimiter rune
}

// ReadCSV reads a header-led CSV or TSV export. Rows that fail validation are
// reported together in a *ValidationReport behind a VALIDATION_FAILED error.
func ReadCSV(r io.Reader, opts Options) ([]pathgraph.EventRow, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, apperr.Wrap(apperr.CodeInvalidFormat, err, "read header")
	}
	if strings.TrimSpace(first) == "" {
		return nil, apperr.New(apperr.CodeInvalidFormat, "input is empty")
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = detectDelimiter(first)
	}

	cr := csv.NewReader(io.MultiReader(strings.NewReader(first), br))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidFormat, err, "read header")
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{}
	var rows []pathgraph.EventRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInvalidFormat, err, "read row %d", line)
		}
		if blankRecord(rec) {
			continue
		}
		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if row, ok := buildRow(line, get, report); ok {
			rows = append(rows, row)
		}
	}

	if err := report.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadJSON reads an array of objects keyed by the export's column headers.
func ReadJSON(data []byte) ([]pathgraph.EventRow, error) {
	var records []map[string]any
	if err := sonic.Unmarshal(data, &records); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidFormat, err, "decode json rows")
	}

	report := &ValidationReport{}
	rows := make([]pathgraph.EventRow, 0, len(records))
	for i, rec := range records {
		fold := make(map[string]string, len(rec))
		for k, v := range rec {
			if v == nil {
				continue
			}
			fold[normalizeHeader(k)] = strings.TrimSpace(jsonText(v))
		}
		get := func(col string) string { return fold[normalizeHeader(col)] }
		if i == 0 {
			if err := requireColumns(func(col string) bool {
				_, ok := fold[normalizeHeader(col)]
				return ok
			}); err != nil {
				return nil, err
			}
		}
		if row, ok := buildRow(i+1, get, report); ok {
			rows = append(rows, row)
		}
	}

	if err := report.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func buildRow(line int, get func(string) string, report *ValidationReport) (pathgraph.EventRow, bool) {
	row := pathgraph.EventRow{
		SessionID:      get(ColSessionID),
		StudentID:      get(ColStudentID),
		ProblemName:    get(ColProblemName),
		StepName:       get(ColStepName),
		Outcome:        get(ColOutcome),
		ProgressStatus: get(ColProgressStatus),
	}
	ok := true

	if row.SessionID == "" {
		if row.StudentID == "" {
			report.add(line, ColStudentID, "missing session or student id")
			ok = false
		} else {
			row.SessionID = row.StudentID + "|" + row.ProblemName
		}
	}

	rawTime := get(ColTime)
	if rawTime == "" {
		report.add(line, ColTime, "missing timestamp")
		ok = false
	} else if ts, err := parseTime(rawTime); err != nil {
		report.add(line, ColTime, "unrecognized timestamp %q", rawTime)
		ok = false
	} else {
		row.Timestamp = ts
	}

	if row.Outcome == "" {
		report.add(line, ColOutcome, "missing outcome")
		ok = false
	}
	if row.ProgressStatus == "" {
		report.add(line, ColProgressStatus, "missing progress status")
		ok = false
	}

	row.Autofilled = parseBool(get(ColAutofilled))
	return row, ok
}

func indexColumns(header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[normalizeHeader(h)] = i
	}
	cols := map[string]int{}
	for _, col := range []string{ColStudentID, ColSessionID, ColTime, ColStepName, ColOutcome, ColProgressStatus, ColProblemName, ColAutofilled} {
		if i, ok := byName[normalizeHeader(col)]; ok {
			cols[col] = i
		}
	}
	if err := requireColumns(func(col string) bool {
		_, ok := cols[col]
		return ok
	}); err != nil {
		return nil, err
	}
	return cols, nil
}

func requireColumns(has func(string) bool) error {
	var missing []string
	for _, col := range []string{ColTime, ColOutcome, ColProgressStatus} {
		if !has(col) {
			missing = append(missing, col)
		}
	}
	if !has(ColSessionID) && !has(ColStudentID) {
		missing = append(missing, ColSessionID+" or "+ColStudentID)
	}
	if len(missing) > 0 {
		return apperr.New(apperr.CodeInvalidFormat, "missing required column(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func detectDelimiter(headerLine string) rune {
	if strings.Count(headerLine, "\t") > strings.Count(headerLine, ",") {
		return '\t'
	}
	return ','
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// epochMillisFloor separates epoch seconds from epoch milliseconds. Seconds
// reach it only in the year 5138.
const epochMillisFloor = 1e11

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		if math.Abs(n) >= epochMillisFloor {
			return time.UnixMilli(int64(n)).UTC(), nil
		}
		sec, frac := math.Modf(n)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// jsonText renders a decoded JSON scalar the way it would read in a CSV
// cell. Numbers keep every digit instead of switching to exponent form.
func jsonText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y", "t":
		return true
	}
	return false
}
