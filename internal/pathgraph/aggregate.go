package pathgraph

// accumulator folds session sequences into edge statistics.
type accumulator struct {
	edges    map[EdgeKey]*EdgeStats
	totals   map[string]int
	students map[string]map[string]struct{}
	order    []EdgeKey
	max      int
	maxStu   int
}

func newAccumulator() accumulator {
	return accumulator{
		edges:    map[EdgeKey]*EdgeStats{},
		totals:   map[string]int{},
		students: map[string]map[string]struct{}{},
	}
}

func (a *accumulator) add(key EdgeKey, student, outcome string) {
	st, ok := a.edges[key]
	if !ok {
		st = &EdgeStats{
			Outcomes:      OutcomeHistogram{},
			StudentVisits: map[string]int{},
			FirstAttempts: OutcomeHistogram{},
		}
		a.edges[key] = st
		a.order = append(a.order, key)
	}
	st.Count++
	st.Visits++
	st.Outcomes[outcome]++
	a.totals[key.From]++
	if st.Count > a.max {
		a.max = st.Count
	}

	st.StudentVisits[student]++
	if st.StudentVisits[student] == 1 {
		st.Students++
		st.FirstAttempts[outcome]++
		a.maxStu = max(a.maxStu, st.Students)
	}
	from, ok := a.students[key.From]
	if !ok {
		from = map[string]struct{}{}
		a.students[key.From] = from
	}
	from[student] = struct{}{}
}

func (a *accumulator) finish() Transitions {
	nodeStudents := make(map[string]int, len(a.students))
	for node, set := range a.students {
		nodeStudents[node] = len(set)
	}
	for key, st := range a.edges {
		if total := a.totals[key.From]; total > 0 {
			st.Ratio = float64(st.Count) / float64(total)
		}
		if total := nodeStudents[key.From]; total > 0 {
			st.StudentRatio = float64(st.Students) / float64(total)
		}
	}
	return Transitions{
		Edges:        a.edges,
		NodeTotals:   a.totals,
		MaxCount:     a.max,
		NodeStudents: nodeStudents,
		MaxStudents:  a.maxStu,
		Order:        a.order,
	}
}

// Aggregate counts every adjacent step pair of every session.
//
// The outcome credited to step[i]->step[i+1] is outcomes[i+1], indexed on the
// un-collapsed outcome sequence even when self-loops were collapsed out of the
// steps. Missing outcomes are counted under the empty label so each histogram
// still sums to its edge count.
//
// Every edge also records the distinct students that took it, how often each
// did, and the outcome of each student's first traversal.
func Aggregate(seqs Sequences, rank RankOptions) Transitions {
	acc := newAccumulator()

	for _, session := range orderedSessions(seqs) {
		steps := seqs.Steps[session]
		if len(steps) < 2 {
			continue
		}
		outcomes := seqs.Outcomes[session]
		student := seqs.StudentOf(session)
		for i := 0; i < len(steps)-1; i++ {
			outcome := ""
			if i+1 < len(outcomes) {
				outcome = outcomes[i+1]
			}
			acc.add(EdgeKey{From: steps[i], To: steps[i+1]}, student, outcome)
		}
	}

	t := acc.finish()
	t.Ranked = RankSequencesWith(seqs, rank)
	return t
}
