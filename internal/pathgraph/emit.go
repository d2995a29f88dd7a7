// internal/pathgraph/emit.go
package pathgraph

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/awalterschulze/gographviz"
)

const (
	graphName         = "G"
	NoSequenceNode    = "Error"
	NoSequenceLabel   = "No valid sequences found to display."
	offPathNodeColor  = "#ffffff"
	defaultGraphSize  = "8,6!"
	defaultGraphDPI   = "150"
	filledNodeStyle   = "filled"
	emitFailurePrefix = "Graph could not be built: "
)

// EmitInput is everything the emitter needs for one rendering.
type EmitInput struct {
	Thickness map[EdgeKey]float64
	// Transitions may be a ByStudent view; tooltips follow its unit.
	Transitions Transitions
	// Threshold is the minimum normalized thickness of a drawn edge.
	Threshold float64
	// MinVisits is exclusive: an edge needs a Count above this.
	MinVisits int
	Reference Reference
	ErrorMode bool
	// ReferenceOnly restricts edges to consecutive reference steps.
	ReferenceOnly bool
}

// Emit renders the transitions as a Graphviz digraph. Without a usable
// reference it returns a one-node graph saying so.
func Emit(in EmitInput) string {
	if !in.Reference.Usable() {
		return sentinel(NoSequenceLabel)
	}
	out, err := emit(in)
	if err != nil {
		return sentinel(emitFailurePrefix + err.Error())
	}
	return out
}

func emit(in EmitInput) (string, error) {
	g, err := newDigraph()
	if err != nil {
		return "", err
	}

	steps := in.Reference.Steps
	total := len(steps)
	declared := make(map[string]struct{}, total)
	for rank, step := range steps {
		if _, ok := declared[step]; ok {
			continue
		}
		declared[step] = struct{}{}
		color := NodeColor(rank, total)
		if err := g.AddNode(graphName, quote(step), map[string]string{
			"style":     filledNodeStyle,
			"fillcolor": quote(color),
			"tooltip":   quote(nodeTooltip(rank, color, in.Transitions.NodeTotals[step], in.Transitions.PerStudent)),
		}); err != nil {
			return "", fmt.Errorf("add node %q: %w", step, err)
		}
	}

	for _, key := range candidateEdges(in) {
		st := in.Transitions.Edges[key]
		if st == nil {
			continue
		}
		thickness := in.Thickness[key]
		if thickness < in.Threshold || st.Count <= in.MinVisits {
			continue
		}

		for _, end := range []string{key.From, key.To} {
			if _, ok := declared[end]; ok {
				continue
			}
			declared[end] = struct{}{}
			if err := g.AddNode(graphName, quote(end), map[string]string{
				"style":     filledNodeStyle,
				"fillcolor": quote(offPathNodeColor),
				"tooltip":   quote(offPathNodeTooltip(in.Transitions.NodeTotals[end], in.Transitions.PerStudent)),
			}); err != nil {
				return "", fmt.Errorf("add node %q: %w", end, err)
			}
		}

		tooltip := edgeTooltip(key, st, in.Transitions.NodeTotals[key.From], thickness, in.MinVisits, in.Transitions.PerStudent)
		if err := g.AddEdge(quote(key.From), quote(key.To), true, map[string]string{
			"penwidth": strconv.FormatFloat(thickness, 'f', -1, 64),
			"color":    quote(EdgeColor(st.Outcomes, in.ErrorMode)),
			"tooltip":  quote(tooltip),
		}); err != nil {
			return "", fmt.Errorf("add edge %s: %w", key, err)
		}
	}

	return g.String(), nil
}

// candidateEdges lists the edges to consider, in a deterministic order.
func candidateEdges(in EmitInput) []EdgeKey {
	if in.ReferenceOnly {
		steps := in.Reference.Steps
		out := make([]EdgeKey, 0, len(steps))
		seen := map[EdgeKey]struct{}{}
		for i := 0; i+1 < len(steps); i++ {
			key := EdgeKey{From: steps[i], To: steps[i+1]}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
		return out
	}
	return in.Transitions.orderedKeys()
}

func (t Transitions) orderedKeys() []EdgeKey {
	if len(t.Order) == len(t.Edges) {
		return t.Order
	}
	keys := make([]EdgeKey, 0, len(t.Edges))
	for k := range t.Edges {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b EdgeKey) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
	return keys
}

func newDigraph() (*gographviz.Graph, error) {
	g := gographviz.NewGraph()
	if err := g.SetName(graphName); err != nil {
		return nil, err
	}
	if err := g.SetDir(true); err != nil {
		return nil, err
	}
	if err := g.AddAttr(graphName, "size", quote(defaultGraphSize)); err != nil {
		return nil, err
	}
	if err := g.AddAttr(graphName, "dpi", defaultGraphDPI); err != nil {
		return nil, err
	}
	return g, nil
}

func sentinel(label string) string {
	g := gographviz.NewGraph()
	_ = g.SetName(graphName)
	_ = g.SetDir(true)
	_ = g.AddNode(graphName, quote(NoSequenceNode), map[string]string{"label": quote(label)})
	return g.String()
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r\n", `\n`, "\n", `\n`, "\r", `\n`)

// quote turns s into a DOT double-quoted string.
func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

var dotUnescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`)

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return dotUnescaper.Replace(s[1 : len(s)-1])
	}
	return s
}
