package pathgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalCountThickness(t *testing.T) {
	tr := Aggregate(BuildSequences(scenarioRows(), false), RankOptions{})

	th := GlobalCountThickness(tr, 10)

	require.Len(t, th, 3)
	assert.InDelta(t, 10.0, th[EdgeKey{"A", "B"}], 1e-9)
	assert.InDelta(t, 10.0, th[EdgeKey{"B", "C"}], 1e-9)
	assert.InDelta(t, 5.0, th[EdgeKey{"A", "C"}], 1e-9)
}

func TestSourceRatioThickness(t *testing.T) {
	tr := Aggregate(BuildSequences(scenarioRows(), false), RankOptions{})

	th := SourceRatioThickness(tr, 6)

	assert.InDelta(t, 4.0, th[EdgeKey{"A", "B"}], 1e-9)
	assert.InDelta(t, 2.0, th[EdgeKey{"A", "C"}], 1e-9)
	assert.InDelta(t, 6.0, th[EdgeKey{"B", "C"}], 1e-9)
}

func TestSourceRatioThickness_CapsDenominatorAtOne(t *testing.T) {
	tr := Transitions{
		Edges: map[EdgeKey]*EdgeStats{
			{"A", "B"}: {Count: 1, Ratio: 0.25},
			{"A", "C"}: {Count: 3, Ratio: 0.75},
		},
		MaxCount: 3,
	}

	th := SourceRatioThickness(tr, 10)

	assert.InDelta(t, 2.5, th[EdgeKey{"A", "B"}], 1e-9)
	assert.InDelta(t, 7.5, th[EdgeKey{"A", "C"}], 1e-9)
}

func TestThickness_EmptyEdgeSet(t *testing.T) {
	for _, p := range []ThicknessPolicy{PolicyGlobalCount, PolicySourceRatio} {
		th := Thickness(p, Transitions{}, 10)
		assert.NotNil(t, th, p.String())
		assert.Empty(t, th, p.String())
	}
}

func TestThickness_BoundedByMax(t *testing.T) {
	tr := Aggregate(BuildSequences(manySessions(50), true), RankOptions{})
	for _, p := range []ThicknessPolicy{PolicyGlobalCount, PolicySourceRatio} {
		for key, v := range Thickness(p, tr, 8) {
			if v < 0 || v > 8 {
				t.Fatalf("%s: edge %s thickness %v outside [0,8]", p, key, v)
			}
		}
	}
}

func TestParseThicknessPolicy(t *testing.T) {
	p, err := ParseThicknessPolicy("ratio")
	require.NoError(t, err)
	assert.Equal(t, PolicySourceRatio, p)

	p, err = ParseThicknessPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyGlobalCount, p)

	_, err = ParseThicknessPolicy("sqrt")
	assert.Error(t, err)
}
