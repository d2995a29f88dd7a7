package pathgraph

import (
	"fmt"
	"slices"

	"github.com/bytedance/sonic"
)

// DefaultTopN is the number of ranked sequences kept when no limit is given.
const DefaultTopN = 5

type RankOptions struct {
	// TopN caps the result. Values <= 0 mean DefaultTopN.
	TopN int
	// MinLength drops sequences with fewer steps before ranking. 0 keeps all.
	MinLength int
}

// SequenceKey encodes a sequence as a JSON array, so step names containing
// separators or quotes cannot collide.
func SequenceKey(seq []string) string {
	if seq == nil {
		seq = []string{}
	}
	key, err := sonic.MarshalString(seq)
	if err != nil {
		panic(fmt.Sprintf("pathgraph: encode sequence key: %v", err))
	}
	return key
}

// ParseSequenceKey is the inverse of SequenceKey.
func ParseSequenceKey(key string) ([]string, error) {
	var seq []string
	if err := sonic.UnmarshalString(key, &seq); err != nil {
		return nil, fmt.Errorf("invalid sequence key %q: %w", key, err)
	}
	if seq == nil {
		seq = []string{}
	}
	return seq, nil
}

func RankSequences(seqs Sequences, topN int) []RankedSequence {
	return RankSequencesWith(seqs, RankOptions{TopN: topN})
}

// RankSequencesWith counts identical whole-session sequences and returns the
// most frequent ones, highest count first. Ties keep first-seen order.
func RankSequencesWith(seqs Sequences, opts RankOptions) []RankedSequence {
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	type tally struct {
		key   string
		seq   []string
		count int
	}
	index := map[string]int{}
	tallies := make([]tally, 0)

	for _, session := range orderedSessions(seqs) {
		steps := seqs.Steps[session]
		if len(steps) < opts.MinLength {
			continue
		}
		key := SequenceKey(steps)
		if i, ok := index[key]; ok {
			tallies[i].count++
			continue
		}
		index[key] = len(tallies)
		tallies = append(tallies, tally{key: key, seq: steps, count: 1})
	}

	slices.SortStableFunc(tallies, func(a, b tally) int {
		return b.count - a.count
	})
	if len(tallies) > topN {
		tallies = tallies[:topN]
	}

	out := make([]RankedSequence, 0, len(tallies))
	for _, t := range tallies {
		seq, err := ParseSequenceKey(t.key)
		if err != nil {
			seq = slices.Clone(t.seq)
		}
		out = append(out, RankedSequence{Sequence: seq, Count: t.count})
	}
	return out
}

// orderedSessions returns session ids in first-seen order. Sessions present
// in Steps but missing from Order (hand-built maps) follow, sorted.
func orderedSessions(seqs Sequences) []string {
	if len(seqs.Order) == len(seqs.Steps) {
		return seqs.Order
	}
	out := make([]string, 0, len(seqs.Steps))
	listed := make(map[string]struct{}, len(seqs.Order))
	for _, s := range seqs.Order {
		if _, ok := seqs.Steps[s]; ok {
			out = append(out, s)
			listed[s] = struct{}{}
		}
	}
	rest := make([]string, 0)
	for s := range seqs.Steps {
		if _, ok := listed[s]; !ok {
			rest = append(rest, s)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}
