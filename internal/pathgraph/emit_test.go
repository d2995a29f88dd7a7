package pathgraph

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioInput(t *testing.T) EmitInput {
	t.Helper()
	tr := Aggregate(BuildSequences(scenarioRows(), false), RankOptions{})
	return EmitInput{
		Thickness:   GlobalCountThickness(tr, 10),
		Transitions: tr,
		Reference:   ReferenceOf(tr.Ranked[0].Sequence),
	}
}

func mustInspect(t *testing.T, dot string) *GraphSummary {
	t.Helper()
	s, err := Inspect(dot)
	require.NoError(t, err, dot)
	return s
}

func TestEmit_NoReferenceYieldsSentinel(t *testing.T) {
	in := scenarioInput(t)

	for name, ref := range map[string]Reference{
		"absent": NoReference,
		"empty":  ReferenceOf([]string{}),
		"nil":    ReferenceOf(nil),
	} {
		in.Reference = ref
		s := mustInspect(t, Emit(in))

		require.Len(t, s.Nodes, 1, name)
		assert.Equal(t, NoSequenceNode, s.Nodes[0].Name, name)
		assert.Equal(t, NoSequenceLabel, s.Nodes[0].Attrs["label"], name)
		assert.Empty(t, s.Edges, name)
		assert.True(t, s.Directed, name)
	}
}

func TestEmit_Scenario(t *testing.T) {
	s := mustInspect(t, Emit(scenarioInput(t)))

	require.Len(t, s.Nodes, 3)
	for rank, step := range []string{"A", "B", "C"} {
		n, ok := s.Node(step)
		require.True(t, ok, step)
		assert.Equal(t, NodeColor(rank, 3), n.Attrs["fillcolor"])
		assert.Equal(t, "filled", n.Attrs["style"])
		assert.Contains(t, n.Attrs["tooltip"], "Rank: ")
	}

	require.Len(t, s.Edges, 3)
	ab, ok := s.Edge("A", "B")
	require.True(t, ok)
	assert.Equal(t, "10", ab.Attrs["penwidth"])
	assert.Equal(t, "#00ff00e6", ab.Attrs["color"])
	assert.Contains(t, ab.Attrs["tooltip"], "Transitions on this path: 2")
	assert.Contains(t, ab.Attrs["tooltip"], "Transitions from A: 3")
	assert.Contains(t, ab.Attrs["tooltip"], "Transition probability: 66.67%")
	assert.Contains(t, ab.Attrs["tooltip"], "OK: 2 (100.00%)")

	ac, ok := s.Edge("A", "C")
	require.True(t, ok)
	assert.Equal(t, "5", ac.Attrs["penwidth"])
	assert.Contains(t, ac.Attrs["tooltip"], "Transition probability: 33.33%")
}

func TestEmit_TooltipsCarryStudentMetrics(t *testing.T) {
	s := mustInspect(t, Emit(scenarioInput(t)))

	ab, ok := s.Edge("A", "B")
	require.True(t, ok)
	assert.Contains(t, ab.Attrs["tooltip"], "Students on this path: 2")
	assert.Contains(t, ab.Attrs["tooltip"], "Students repeating this path: 0")
	assert.Contains(t, ab.Attrs["tooltip"], "First attempt outcomes:")
	assert.Contains(t, ab.Attrs["tooltip"], "Min visits threshold: 0")
}

func TestEmit_PerStudentView(t *testing.T) {
	var rows []EventRow
	for _, session := range []string{"amy-1", "amy-2", "amy-3"} {
		rows = append(rows, studentRows("amy", session, []string{"A", "B"}, nil)...)
	}
	rows = append(rows, studentRows("bo", "bo-1", []string{"A", "B"}, nil)...)
	rows = append(rows, studentRows("cy", "cy-1", []string{"A", "C"}, nil)...)
	tr := Aggregate(BuildSequences(rows, false), RankOptions{}).ByStudent()

	in := EmitInput{
		Thickness:   GlobalCountThickness(tr, 10),
		Transitions: tr,
		Reference:   ReferenceOf([]string{"A", "B"}),
		MinVisits:   1,
	}
	s := mustInspect(t, Emit(in))

	// A->C has one student, which MinVisits=1 excludes.
	require.Len(t, s.Edges, 1)
	ab, ok := s.Edge("A", "B")
	require.True(t, ok)
	assert.Equal(t, "10", ab.Attrs["penwidth"])
	assert.Contains(t, ab.Attrs["tooltip"], "Students on this path: 2")
	assert.Contains(t, ab.Attrs["tooltip"], "Students at A: 3")
	assert.Contains(t, ab.Attrs["tooltip"], "Visits on this path: 4")
	assert.Contains(t, ab.Attrs["tooltip"], "Students repeating this path: 1")
	assert.Contains(t, ab.Attrs["tooltip"], "Min students threshold: 1")

	a, ok := s.Node("A")
	require.True(t, ok)
	assert.Contains(t, a.Attrs["tooltip"], "Students leaving: 3")
}

func TestEmit_ThresholdAboveEveryEdge(t *testing.T) {
	in := scenarioInput(t)
	in.Threshold = 10.5

	s := mustInspect(t, Emit(in))

	assert.Len(t, s.Nodes, 3)
	assert.Empty(t, s.Edges)
}

func TestEmit_ThresholdIsInclusive(t *testing.T) {
	in := scenarioInput(t)
	in.Threshold = 5

	s := mustInspect(t, Emit(in))

	assert.Len(t, s.Edges, 3)
}

func TestEmit_MinVisitsIsExclusive(t *testing.T) {
	in := scenarioInput(t)
	in.MinVisits = 1

	s := mustInspect(t, Emit(in))

	assert.Len(t, s.Edges, 2)
	_, ok := s.Edge("A", "C")
	assert.False(t, ok, "edge with count == MinVisits must be dropped")
}

func TestEmit_DeclaresOffReferenceEndpoints(t *testing.T) {
	in := scenarioInput(t)
	in.Reference = ReferenceOf([]string{"A", "C"})

	s := mustInspect(t, Emit(in))

	b, ok := s.Node("B")
	require.True(t, ok)
	assert.Equal(t, "#ffffff", b.Attrs["fillcolor"])
	c, _ := s.Node("C")
	assert.Equal(t, NodeColor(1, 2), c.Attrs["fillcolor"])
	assert.Len(t, s.Edges, 3)
}

func TestEmit_ReferenceOnly(t *testing.T) {
	in := scenarioInput(t)
	in.ReferenceOnly = true

	s := mustInspect(t, Emit(in))

	assert.Len(t, s.Edges, 2)
	_, ok := s.Edge("A", "C")
	assert.False(t, ok)
}

func TestEmit_ErrorModeColors(t *testing.T) {
	rows := rowsFor("s1", []string{"A", "B"}, []string{"OK", "OK"})
	rows = append(rows, rowsFor("s2", []string{"A", "C"}, []string{"OK", "ERROR"})...)
	tr := Aggregate(BuildSequences(rows, false), RankOptions{})

	s := mustInspect(t, Emit(EmitInput{
		Thickness:   GlobalCountThickness(tr, 10),
		Transitions: tr,
		Reference:   ReferenceOf([]string{"A", "B", "C"}),
		ErrorMode:   true,
	}))

	ab, _ := s.Edge("A", "B")
	ac, _ := s.Edge("A", "C")
	assert.Equal(t, SolidBlack, ab.Attrs["color"])
	assert.Equal(t, "#ff0000e6", ac.Attrs["color"])
}

func TestEmit_QuotesSpecialCharacters(t *testing.T) {
	odd := []string{`say "hi"`, "a->b {x}; y", "line\nbreak", "plain"}
	rows := rowsFor("s", odd, nil)
	tr := Aggregate(BuildSequences(rows, false), RankOptions{})

	dot := Emit(EmitInput{
		Thickness:   GlobalCountThickness(tr, 10),
		Transitions: tr,
		Reference:   ReferenceOf(odd),
	})
	s := mustInspect(t, dot)

	require.Len(t, s.Nodes, 4)
	_, ok := s.Node(`say "hi"`)
	assert.True(t, ok, dot)
	_, ok = s.Node("a->b {x}; y")
	assert.True(t, ok, dot)
	_, ok = s.Node(`line\nbreak`)
	assert.True(t, ok, dot)
	_, ok = s.Edge(`say "hi"`, "a->b {x}; y")
	assert.True(t, ok, dot)
	assert.Len(t, s.Edges, 3)
}

func TestEmit_Deterministic(t *testing.T) {
	rows := manySessions(120)
	build := func() string {
		tr := Aggregate(BuildSequences(rows, true), RankOptions{})
		return Emit(EmitInput{
			Thickness:   SourceRatioThickness(tr, 10),
			Transitions: tr,
			Reference:   ReferenceOf(tr.Ranked[0].Sequence),
			MinVisits:   2,
		})
	}
	first := build()
	for i := 0; i < 10; i++ {
		require.Equal(t, first, build())
	}
}

func TestEmit_Golden(t *testing.T) {
	want, err := os.ReadFile("testdata/scenario.dot")
	require.NoError(t, err)

	got := mustInspect(t, Emit(scenarioInput(t)))
	golden := mustInspect(t, string(want))

	assert.Equal(t, len(golden.Nodes), len(got.Nodes))
	for _, e := range golden.Edges {
		ge, ok := got.Edge(e.From, e.To)
		require.True(t, ok, "missing edge %s->%s", e.From, e.To)
		assert.Equal(t, e.Attrs["penwidth"], ge.Attrs["penwidth"])
		assert.Equal(t, e.Attrs["color"], ge.Attrs["color"])
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"plain"`, quote("plain"))
	assert.Equal(t, `"a\"b"`, quote(`a"b`))
	assert.Equal(t, `"a\\b"`, quote(`a\b`))
	assert.Equal(t, `"x\ny"`, quote("x\ny"))
	assert.False(t, strings.Contains(quote("x\r\ny"), "\n"))
	assert.Equal(t, `a"b`, unquote(quote(`a"b`)))
}
