package ingest

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awmpietro/path-analysis/internal/apperr"
)

func openFixture(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestReadCSV_TSVWithSessionIDs(t *testing.T) {
	rows, err := ReadCSV(openFixture(t, "sessions.tsv"), Options{})
	require.NoError(t, err)
	require.Len(t, rows, 9)

	first := rows[0]
	assert.Equal(t, "sess-1", first.SessionID)
	assert.Equal(t, "stu-1", first.StudentID)
	assert.Equal(t, "B", first.StepName)
	assert.Equal(t, "GRADUATED", first.ProgressStatus)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 2, 0, time.UTC), first.Timestamp)

	assert.True(t, rows[5].Autofilled)
	assert.Equal(t, "", rows[8].StepName, "blank step is kept for normalization")
	assert.Equal(t, time.Date(2024, 3, 1, 11, 0, 2, 0, time.UTC), rows[8].Timestamp)
}

func TestReadCSV_SessionKeyFallsBackToStudentAndProblem(t *testing.T) {
	rows, err := ReadCSV(openFixture(t, "sessions.csv"), Options{})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "stu-1|p1", rows[0].SessionID)
	assert.Equal(t, "Step, with comma", rows[0].StepName)
	assert.Equal(t, "stu-1|p2", rows[2].SessionID)
	assert.Equal(t, "stu-2|p1", rows[3].SessionID)
	assert.True(t, rows[3].Autofilled)
	assert.False(t, rows[0].Autofilled)
}

func TestReadCSV_ExplicitDelimiter(t *testing.T) {
	in := "Session Id;Time;Step Name;Outcome;CF (Workspace Progress Status)\ns1;2024-03-01 09:00:01;A;OK;GRADUATED\n"

	rows, err := ReadCSV(strings.NewReader(in), Options{Delimiter: ';'})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].StepName)
}

func TestReadCSV_HeadersAreCaseAndSpaceInsensitive(t *testing.T) {
	in := "\ufeff session id ,TIME,step name,outcome,cf (workspace progress status)\ns1,2024-03-01 09:00:01,A,OK,GRADUATED"

	rows, err := ReadCSV(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "s1", rows[0].SessionID)
}

func TestReadCSV_ValidationReport(t *testing.T) {
	_, err := ReadCSV(openFixture(t, "invalid.csv"), Options{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidationFailed))

	var report *ValidationReport
	require.True(t, errors.As(err, &report))
	require.Len(t, report.Issues, 4)
	assert.Equal(t, Issue{Row: 3, Column: ColTime, Message: `unrecognized timestamp "yesterday"`}, report.Issues[0])
	assert.Equal(t, 4, report.Issues[1].Row)
	assert.Equal(t, ColOutcome, report.Issues[2].Column)
	assert.Equal(t, ColProgressStatus, report.Issues[3].Column)
	assert.Contains(t, err.Error(), "4 invalid input issue(s)")
}

func TestReadCSV_MissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Step Name,Outcome\nA,OK\n"), Options{})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidFormat))
	assert.Contains(t, err.Error(), ColTime)
	assert.Contains(t, err.Error(), ColProgressStatus)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("  \n"), Options{})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidFormat))
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("Session Id,Time,Outcome,CF (Workspace Progress Status)"), Options{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestValidationReport_CapsIssues(t *testing.T) {
	r := &ValidationReport{}
	for i := 0; i < maxReportedIssues+7; i++ {
		r.add(i, "", "bad")
	}
	assert.Len(t, r.Issues, maxReportedIssues)
	assert.Equal(t, 7, r.Omitted)
	assert.False(t, r.OK())

	var clean *ValidationReport
	assert.True(t, clean.OK())
	assert.NoError(t, (&ValidationReport{}).Err())
}

func TestReadJSON(t *testing.T) {
	data := []byte(`[
		{"Session Id":"s1","Time":"2024-03-01T09:00:01Z","Step Name":"A","Outcome":"OK","CF (Workspace Progress Status)":"GRADUATED","CF (Is Autofilled)":true},
		{"session id":"s1","time":"2024-03-01 09:00:02","step name":null,"outcome":"ERROR","cf (workspace progress status)":"GRADUATED"}
	]`)

	rows, err := ReadJSON(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Autofilled)
	assert.Equal(t, "", rows[1].StepName)
	assert.Equal(t, "ERROR", rows[1].Outcome)
}

func TestReadJSON_NumericValues(t *testing.T) {
	data := []byte(`[
		{"Session Id":12345678901234,"Time":1709283601000,"Step Name":"A","Outcome":"OK","CF (Workspace Progress Status)":"GRADUATED"},
		{"Session Id":12345678901234,"Time":1709283602.5,"Step Name":7,"Outcome":"OK","CF (Workspace Progress Status)":"GRADUATED"}
	]`)

	rows, err := ReadJSON(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "12345678901234", rows[0].SessionID)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 1, 0, time.UTC), rows[0].Timestamp)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 2, 500_000_000, time.UTC), rows[1].Timestamp)
	assert.Equal(t, "7", rows[1].StepName)
}

func TestParseTime_Epochs(t *testing.T) {
	ts, err := parseTime("1709283601000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 1, 0, time.UTC), ts)

	ts, err = parseTime("1709283601")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 1, 0, time.UTC), ts)

	_, err = parseTime("NaN")
	assert.Error(t, err)
}

func TestReadJSON_Errors(t *testing.T) {
	_, err := ReadJSON([]byte(`{"not":"an array"}`))
	assert.True(t, apperr.Is(err, apperr.CodeInvalidFormat))

	_, err = ReadJSON([]byte(`[{"Step Name":"A"}]`))
	assert.True(t, apperr.Is(err, apperr.CodeInvalidFormat))

	_, err = ReadJSON([]byte(`[{"Session Id":"s1","Time":"nope","Outcome":"OK","CF (Workspace Progress Status)":"G"}]`))
	assert.True(t, apperr.Is(err, apperr.CodeValidationFailed))

	rows, err := ReadJSON([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
