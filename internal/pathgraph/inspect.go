package pathgraph

import (
	"fmt"

	"github.com/awalterschulze/gographviz"
)

// GraphSummary is a parsed graph description with unquoted names and values.
type GraphSummary struct {
	Name     string
	Directed bool
	Nodes    []SummaryNode
	Edges    []SummaryEdge
}

type SummaryNode struct {
	Name  string
	Attrs map[string]string
}

type SummaryEdge struct {
	From  string
	To    string
	Attrs map[string]string
}

// Node returns the node called name, if declared.
func (s *GraphSummary) Node(name string) (SummaryNode, bool) {
	for _, n := range s.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return SummaryNode{}, false
}

// Edge returns the first edge from -> to, if present.
func (s *GraphSummary) Edge(from, to string) (SummaryEdge, bool) {
	for _, e := range s.Edges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return SummaryEdge{}, false
}

// Inspect parses a DOT description, as produced by Emit, back into a summary.
func Inspect(dot string) (*GraphSummary, error) {
	ast, err := gographviz.ParseString(dot)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOT: %w", err)
	}

	g := gographviz.NewGraph()
	if err := gographviz.Analyse(ast, g); err != nil {
		return nil, fmt.Errorf("failed to analyze DOT: %w", err)
	}

	s := &GraphSummary{
		Name:     unquote(g.Name),
		Directed: g.Directed,
	}
	for _, n := range g.Nodes.Nodes {
		s.Nodes = append(s.Nodes, SummaryNode{Name: unquote(n.Name), Attrs: attrMap(n.Attrs)})
	}
	for _, e := range g.Edges.Edges {
		s.Edges = append(s.Edges, SummaryEdge{From: unquote(e.Src), To: unquote(e.Dst), Attrs: attrMap(e.Attrs)})
	}
	return s, nil
}

func attrMap(attrs gographviz.Attrs) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[string(k)] = unquote(v)
	}
	return out
}
