package pathgraph

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// measure names the unit an edge count is expressed in.
type measure struct {
	onPath, from, other, min string
}

var (
	visitMeasure = measure{
		onPath: "Transitions on this path",
		from:   "Transitions from %s",
		other:  "Transitions to other steps",
		min:    "Min visits threshold",
	}
	studentMeasure = measure{
		onPath: "Students on this path",
		from:   "Students at %s",
		other:  "Students on other paths",
		min:    "Min students threshold",
	}
)

func measureOf(perStudent bool) measure {
	if perStudent {
		return studentMeasure
	}
	return visitMeasure
}

func nodeTooltip(rank int, color string, outgoing int, perStudent bool) string {
	return fmt.Sprintf("Rank: %d\nColor: %s\n%s", rank+1, color, outgoingLine(outgoing, perStudent))
}

func offPathNodeTooltip(outgoing int, perStudent bool) string {
	return "Not on the reference path\n" + outgoingLine(outgoing, perStudent)
}

func outgoingLine(outgoing int, perStudent bool) string {
	if perStudent {
		return fmt.Sprintf("Students leaving: %d", outgoing)
	}
	return fmt.Sprintf("Outgoing transitions: %d", outgoing)
}

func edgeTooltip(key EdgeKey, st *EdgeStats, sourceTotal int, thickness float64, minVisits int, perStudent bool) string {
	m := measureOf(perStudent)
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d\n", m.onPath, st.Count)
	fmt.Fprintf(&b, m.from+": %d\n", key.From, sourceTotal)
	fmt.Fprintf(&b, "%s: %d\n", m.other, max(0, sourceTotal-st.Count))
	fmt.Fprintf(&b, "Transition probability: %.2f%%\n", st.Ratio*100)
	if perStudent {
		fmt.Fprintf(&b, "Visits on this path: %d\n", st.Visits)
	} else {
		fmt.Fprintf(&b, "Students on this path: %d\n", st.Students)
	}
	fmt.Fprintf(&b, "Students repeating this path: %d\n", st.RepeatStudents())
	b.WriteString("Outcomes:\n")
	b.WriteString(outcomeBreakdown(st.Outcomes))
	b.WriteString("First attempt outcomes:\n")
	b.WriteString(outcomeBreakdown(st.FirstAttempts))
	fmt.Fprintf(&b, "Edge thickness: %.1f\n", thickness)
	fmt.Fprintf(&b, "%s: %d", m.min, minVisits)
	return b.String()
}

// outcomeBreakdown lists outcomes by descending count, one per line.
func outcomeBreakdown(h OutcomeHistogram) string {
	total := h.Total()
	if total == 0 {
		return "  No outcome data\n"
	}

	labels := make([]string, 0, len(h))
	for label := range h {
		labels = append(labels, label)
	}
	slices.SortFunc(labels, func(a, b string) int {
		if c := cmp.Compare(h[b], h[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	var b strings.Builder
	for _, label := range labels {
		name := label
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(&b, "  %s: %d (%.2f%%)\n", name, h[label], float64(h[label])/float64(total)*100)
	}
	return b.String()
}
