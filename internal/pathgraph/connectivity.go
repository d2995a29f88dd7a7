package pathgraph

import (
	"cmp"
	"slices"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"
)

// MaxConnectedThreshold returns the highest edge-count threshold at which the
// graph of edges with Count >= threshold still
//   - connects every node (ignoring direction and self-loops),
//   - keeps each consecutive reference pair directly linked, and
//   - leaves at most half of the nodes without a predecessor.
//
// It returns 0 when no threshold qualifies or there are no nodes.
func MaxConnectedThreshold(t Transitions, ref Reference) int {
	nodes := make([]string, 0, len(t.NodeTotals))
	seen := map[string]struct{}{}
	addNode := func(n string) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			nodes = append(nodes, n)
		}
	}
	keys := t.orderedKeys()
	for _, k := range keys {
		addNode(k.From)
		addNode(k.To)
	}
	if ref.Valid {
		for _, s := range ref.Steps {
			addNode(s)
		}
	}
	if len(nodes) == 0 {
		return 0
	}

	counts := make([]int, 0, len(keys))
	for _, k := range keys {
		if c := t.Edges[k].Count; c > 0 {
			counts = append(counts, c)
		}
	}
	slices.SortFunc(counts, func(a, b int) int { return cmp.Compare(b, a) })
	counts = slices.Compact(counts)

	for _, threshold := range counts {
		kept := make([]EdgeKey, 0, len(keys))
		for _, k := range keys {
			if t.Edges[k].Count >= threshold {
				kept = append(kept, k)
			}
		}
		if connected(nodes, kept) && chainIntact(ref, kept) && enoughPredecessors(nodes, kept) {
			return threshold
		}
	}
	return 0
}

// connected reports whether every node is reachable from the first one when
// edges are taken as undirected.
func connected(nodes []string, edges []EdgeKey) bool {
	if len(nodes) <= 1 {
		return true
	}
	g := core.NewGraph()
	for _, n := range nodes {
		if err := g.AddVertex(n); err != nil {
			return false
		}
	}
	for _, e := range edges {
		if e.From == e.To || g.HasEdge(e.From, e.To) {
			continue
		}
		if _, err := g.AddEdge(e.From, e.To, 0); err != nil {
			return false
		}
	}

	res, err := bfs.BFS(g, nodes[0])
	if err != nil {
		return false
	}
	return len(res.Order) == len(nodes)
}

func chainIntact(ref Reference, edges []EdgeKey) bool {
	if !ref.Valid || len(ref.Steps) <= 1 {
		return true
	}
	present := make(map[EdgeKey]struct{}, len(edges))
	for _, e := range edges {
		present[e] = struct{}{}
	}
	for i := 0; i+1 < len(ref.Steps); i++ {
		if _, ok := present[EdgeKey{From: ref.Steps[i], To: ref.Steps[i+1]}]; !ok {
			return false
		}
	}
	return true
}

func enoughPredecessors(nodes []string, edges []EdgeKey) bool {
	hasPred := make(map[string]bool, len(nodes))
	for _, e := range edges {
		if e.From != e.To {
			hasPred[e.To] = true
		}
	}
	orphans := 0
	for _, n := range nodes {
		if !hasPred[n] {
			orphans++
		}
	}
	total := len(nodes)
	if total > 1 && orphans == total {
		return false
	}
	if total > 2 && float64(orphans) > float64(total)/2 {
		return false
	}
	return true
}
