package pathgraph

import "fmt"

// DefaultMaxThickness is the pen width of the heaviest edge.
const DefaultMaxThickness = 10.0

type ThicknessPolicy int

const (
	// PolicyGlobalCount scales by count relative to the busiest edge.
	PolicyGlobalCount ThicknessPolicy = iota
	// PolicySourceRatio scales by the share of the source node's traffic.
	PolicySourceRatio
)

func (p ThicknessPolicy) String() string {
	switch p {
	case PolicyGlobalCount:
		return "count"
	case PolicySourceRatio:
		return "ratio"
	default:
		return fmt.Sprintf("ThicknessPolicy(%d)", int(p))
	}
}

func ParseThicknessPolicy(s string) (ThicknessPolicy, error) {
	switch s {
	case "", "count":
		return PolicyGlobalCount, nil
	case "ratio":
		return PolicySourceRatio, nil
	default:
		return 0, fmt.Errorf("unknown thickness policy %q (want count or ratio)", s)
	}
}

func Thickness(policy ThicknessPolicy, t Transitions, maxThickness float64) map[EdgeKey]float64 {
	if policy == PolicySourceRatio {
		return SourceRatioThickness(t, maxThickness)
	}
	return GlobalCountThickness(t, maxThickness)
}

// GlobalCountThickness maps each edge to count/MaxCount*maxThickness.
func GlobalCountThickness(t Transitions, maxThickness float64) map[EdgeKey]float64 {
	out := make(map[EdgeKey]float64, len(t.Edges))
	if t.MaxCount <= 0 {
		return out
	}
	for key, st := range t.Edges {
		out[key] = float64(st.Count) / float64(t.MaxCount) * maxThickness
	}
	return out
}

// SourceRatioThickness maps each edge to ratio/max(1, maxRatio)*maxThickness.
func SourceRatioThickness(t Transitions, maxThickness float64) map[EdgeKey]float64 {
	out := make(map[EdgeKey]float64, len(t.Edges))
	maxRatio := 1.0
	for _, st := range t.Edges {
		if st.Ratio > maxRatio {
			maxRatio = st.Ratio
		}
	}
	for key, st := range t.Edges {
		out[key] = st.Ratio / maxRatio * maxThickness
	}
	return out
}
