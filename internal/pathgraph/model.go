// Package pathgraph mines step sequences from tutor logs and renders them as a DOT graph.
package pathgraph

import "time"

// DefaultStepName replaces blank step names. The tutor logs the final
// "done" click without a step label.
const DefaultStepName = "DoneButton"

// Outcome labels with a dedicated color. Anything else is unknown.
const (
	OutcomeOK              = "OK"
	OutcomeError           = "ERROR"
	OutcomeInitialHint     = "INITIAL_HINT"
	OutcomeHintLevelChange = "HINT_LEVEL_CHANGE"
	OutcomeJIT             = "JIT"
	OutcomeFreebieJIT      = "FREEBIE_JIT"
)

// EventRow is one logged tutor action.
type EventRow struct {
	SessionID      string
	Timestamp      time.Time
	StepName       string
	Outcome        string
	ProgressStatus string

	StudentID   string
	ProblemName string
	Autofilled  bool
}

type StepSequence []string

type OutcomeSequence []string

// Sequences holds the per-session step and outcome sequences of one run.
// Order lists session ids in first-seen order of the sorted rows. Students
// maps a session to the student who worked it.
type Sequences struct {
	Steps    map[string]StepSequence
	Outcomes map[string]OutcomeSequence
	Students map[string]string
	Order    []string
}

// StudentOf returns the student of session, or the session id itself when
// the rows carried no student.
func (s Sequences) StudentOf(session string) string {
	if id := s.Students[session]; id != "" {
		return id
	}
	return session
}

type RankedSequence struct {
	Sequence []string `json:"sequence"`
	Count    int      `json:"count"`
}

// EdgeKey identifies a directed transition between two steps.
type EdgeKey struct {
	From string
	To   string
}

func (k EdgeKey) String() string {
	return k.From + "->" + k.To
}

// OutcomeHistogram maps an outcome label to how often it followed an edge.
type OutcomeHistogram map[string]int

func (h OutcomeHistogram) Total() int {
	total := 0
	for _, c := range h {
		total += c
	}
	return total
}

// EdgeStats describes one transition. Count and Ratio are the measure that
// drives thickness and filtering; the remaining fields are kept for tooltips
// and for the per-student view.
type EdgeStats struct {
	Count    int
	Outcomes OutcomeHistogram
	Ratio    float64

	// Visits is every traversal, repeats included.
	Visits int
	// Students is how many distinct students took the edge.
	Students     int
	StudentRatio float64
	// StudentVisits counts traversals per student.
	StudentVisits map[string]int
	// FirstAttempts holds the outcome of each student's first traversal.
	FirstAttempts OutcomeHistogram
}

// RepeatStudents is the number of students who took the edge more than once.
func (st *EdgeStats) RepeatStudents() int {
	n := 0
	for _, v := range st.StudentVisits {
		if v > 1 {
			n++
		}
	}
	return n
}

// Transitions is the aggregated edge statistics of one run.
type Transitions struct {
	Edges      map[EdgeKey]*EdgeStats
	NodeTotals map[string]int
	MaxCount   int
	Ranked     []RankedSequence

	// NodeStudents counts distinct students leaving each step.
	NodeStudents map[string]int
	MaxStudents  int

	// Order lists edge keys in first-seen order.
	Order []EdgeKey

	// PerStudent is set on views returned by ByStudent.
	PerStudent bool
}

// MaxThreshold is the highest count a host slider should offer.
func (t *Transitions) MaxThreshold() int {
	return t.MaxCount
}

// ByStudent returns a view of t measured in distinct students instead of
// traversals: Count, Ratio, NodeTotals and MaxCount are replaced by their
// student counterparts. t is not modified.
func (t Transitions) ByStudent() Transitions {
	if t.PerStudent {
		return t
	}
	edges := make(map[EdgeKey]*EdgeStats, len(t.Edges))
	for k, st := range t.Edges {
		cp := *st
		cp.Count = st.Students
		cp.Ratio = st.StudentRatio
		edges[k] = &cp
	}
	return Transitions{
		Edges:        edges,
		NodeTotals:   t.NodeStudents,
		MaxCount:     t.MaxStudents,
		Ranked:       t.Ranked,
		NodeStudents: t.NodeStudents,
		MaxStudents:  t.MaxStudents,
		Order:        t.Order,
		PerStudent:   true,
	}
}

// Reference is the optional user-selected sequence used to rank and color
// nodes. The zero value is "no selection".
type Reference struct {
	Steps []string
	Valid bool
}

var NoReference = Reference{}

func ReferenceOf(steps []string) Reference {
	if steps == nil {
		return NoReference
	}
	cp := make([]string, len(steps))
	copy(cp, steps)
	return Reference{Steps: cp, Valid: true}
}

// Usable reports whether the reference can drive node ranking.
func (r Reference) Usable() bool {
	return r.Valid && len(r.Steps) > 0
}
