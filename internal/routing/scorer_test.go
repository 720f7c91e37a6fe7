package routing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/traffic/internal/domain"
)

var (
	nodeA = domain.Coordinate{Lon: 0, Lat: 0}
	nodeB = domain.Coordinate{Lon: 1, Lat: 0}
	nodeC = domain.Coordinate{Lon: 2, Lat: 0}
	nodeD = domain.Coordinate{Lon: 1, Lat: 1}
)

func triangle(t *testing.T) *RoadGraph {
	t.Helper()
	g := NewRoadGraph()
	require.NoError(t, g.AddEdge(nodeA, nodeC, 3.0))
	require.NoError(t, g.AddEdge(nodeA, nodeB, 1.0))
	require.NoError(t, g.AddEdge(nodeB, nodeC, 1.0))
	return g
}

func TestAlternatives_TwoHopBeatsDirect(t *testing.T) {
	s := NewScorer(triangle(t))

	alts, err := s.Alternatives(nodeA, nodeC, 3)
	require.NoError(t, err)
	require.Len(t, alts, 2)

	assert.Equal(t, 1, alts[0].Rank)
	assert.Equal(t, []domain.NodeKey{KeyOf(nodeA), KeyOf(nodeB), KeyOf(nodeC)}, alts[0].Path)
	assert.Equal(t, 2, alts[0].NumSegments)
	assert.InDelta(t, 1.0/3.0, alts[0].SuitabilityScore, 1e-12)
	assert.Equal(t, 222.0, alts[0].LengthKM)

	assert.Equal(t, 2, alts[1].Rank)
	assert.Equal(t, []domain.NodeKey{KeyOf(nodeA), KeyOf(nodeC)}, alts[1].Path)
	assert.InDelta(t, 0.25, alts[1].SuitabilityScore, 1e-12)
	assert.Equal(t, 333.0, alts[1].LengthKM)
}

func TestAlternatives_LimitAndOrdering(t *testing.T) {
	g := NewRoadGraph()
	// four parallel two-hop routes of different lengths plus a direct edge
	dst := domain.Coordinate{Lon: 10, Lat: 0}
	for i := 1; i <= 4; i++ {
		mid := domain.Coordinate{Lon: 5, Lat: float64(i)}
		require.NoError(t, g.AddEdge(nodeA, mid, float64(i)))
		require.NoError(t, g.AddEdge(mid, dst, 1))
	}
	require.NoError(t, g.AddEdge(nodeA, dst, 2.5))
	s := NewScorer(g)

	for _, k := range []int{1, 2, 3, 5, 10} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			alts, err := s.Alternatives(nodeA, dst, k)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(alts), k)
			for i, a := range alts {
				assert.Equal(t, i+1, a.Rank)
				if i > 0 {
					assert.GreaterOrEqual(t, alts[i-1].SuitabilityScore, a.SuitabilityScore)
				}
			}
		})
	}

	alts, err := s.Alternatives(nodeA, dst, 0)
	require.NoError(t, err)
	assert.Len(t, alts, DefaultK)
	assert.InDelta(t, 2.0*111, alts[0].LengthKM, 1e-9)
	assert.InDelta(t, 2.5*111, alts[1].LengthKM, 1e-9)
	assert.InDelta(t, 3.0*111, alts[2].LengthKM, 1e-9)
}

func TestAlternatives_EqualLengthKeepsEnumerationOrder(t *testing.T) {
	g := NewRoadGraph()
	dst := domain.Coordinate{Lon: 10, Lat: 0}
	first := domain.Coordinate{Lon: 5, Lat: 1}
	second := domain.Coordinate{Lon: 5, Lat: -1}
	require.NoError(t, g.AddEdge(nodeA, first, 1))
	require.NoError(t, g.AddEdge(nodeA, second, 1))
	require.NoError(t, g.AddEdge(first, dst, 1))
	require.NoError(t, g.AddEdge(second, dst, 1))

	alts, err := NewScorer(g).Alternatives(nodeA, dst, 3)
	require.NoError(t, err)
	require.Len(t, alts, 2)
	assert.Equal(t, KeyOf(first), alts[0].Path[1])
	assert.Equal(t, KeyOf(second), alts[1].Path[1])
}

func TestAlternatives_EmptyGraph(t *testing.T) {
	_, err := NewScorer(NewRoadGraph()).Alternatives(nodeA, nodeB, 3)
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)

	_, err = NewScorer(nil).Recommend(nodeA, nodeB)
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)
}

func TestAlternatives_NoPath(t *testing.T) {
	s := NewScorer(triangle(t))

	// edges only point away from A
	alts, err := s.Alternatives(nodeC, nodeA, 3)
	require.NoError(t, err)
	assert.Empty(t, alts)

	// both endpoints resolve to the same node
	alts, err = s.Alternatives(nodeA, domain.Coordinate{Lon: 0.1, Lat: 0.1}, 3)
	require.NoError(t, err)
	assert.Empty(t, alts)
}

func TestAlternatives_HopBound(t *testing.T) {
	g := NewRoadGraph()
	prev := nodeA
	for i := 1; i <= MaxHops+1; i++ {
		next := domain.Coordinate{Lon: float64(i), Lat: 5}
		require.NoError(t, g.AddEdge(prev, next, 0.1))
		prev = next
	}
	s := NewScorer(g)

	alts, err := s.Alternatives(nodeA, domain.Coordinate{Lon: MaxHops, Lat: 5}, 3)
	require.NoError(t, err)
	require.Len(t, alts, 1)
	assert.Equal(t, MaxHops, alts[0].NumSegments)

	alts, err = s.Alternatives(nodeA, prev, 3)
	require.NoError(t, err)
	assert.Empty(t, alts)
}

func TestAlternatives_ZeroLengthScoresOne(t *testing.T) {
	g := NewRoadGraph()
	require.NoError(t, g.AddEdge(nodeA, nodeB, 0))

	alts, err := NewScorer(g).Alternatives(nodeA, nodeB, 3)
	require.NoError(t, err)
	require.Len(t, alts, 1)
	assert.Equal(t, 1.0, alts[0].SuitabilityScore)
}

func TestSuitability(t *testing.T) {
	assert.Equal(t, 0.5, Suitability(1))
	assert.InDelta(t, 0.3333333, Suitability(2), 1e-6)
	assert.Greater(t, Suitability(1.5), Suitability(1.6))
}

func TestRecommend(t *testing.T) {
	s := NewScorer(triangle(t))

	rec, err := s.Recommend(nodeA, nodeC)
	require.NoError(t, err)
	require.NotNil(t, rec.Best)
	assert.Equal(t, 0, rec.Best.ID)
	assert.Len(t, rec.Alternatives, 2)
	assert.Equal(t, "Route 0 recommended: length 222 km, score 0.3333", rec.Justification)

	rec, err = s.Recommend(nodeC, nodeA)
	require.NoError(t, err)
	assert.Nil(t, rec.Best)
	assert.Equal(t, "No alternative routes found", rec.Justification)
}

func TestNearestNode(t *testing.T) {
	g := NewRoadGraph()
	_, ok := g.NearestNode(nodeA)
	assert.False(t, ok)

	require.NoError(t, g.AddEdge(nodeB, nodeD, 1))
	require.NoError(t, g.AddEdge(nodeA, nodeC, 1))

	got, ok := g.NearestNode(domain.Coordinate{Lon: 1.9, Lat: 0.1})
	require.True(t, ok)
	assert.Equal(t, KeyOf(nodeC), got)

	// equidistant from B (added first) and A
	got, ok = g.NearestNode(domain.Coordinate{Lon: 0.5, Lat: 0})
	require.True(t, ok)
	assert.Equal(t, KeyOf(nodeB), got)
}

func TestAddEdge_Validation(t *testing.T) {
	g := NewRoadGraph()
	assert.ErrorIs(t, g.AddEdge(nodeA, nodeB, -1), domain.ErrInvalidInput)
	assert.ErrorIs(t, g.AddEdge(nodeA, nodeA, 1), domain.ErrInvalidInput)
	assert.Equal(t, 0, g.NodeCount())
}

func TestKeyOf_GridStable(t *testing.T) {
	a := KeyOf(domain.Coordinate{Lon: 72.5714000, Lat: 23.0225000})
	b := KeyOf(domain.Coordinate{Lon: 72.57140000001, Lat: 23.02249999999})
	assert.Equal(t, a, b)
	assert.Equal(t, domain.NodeKey{LonE7: 725714000, LatE7: 230225000}, a)
}

func TestLoadYAML(t *testing.T) {
	doc := `
edges:
  - from: {lon: 0, lat: 0}
    to: {lon: 1, lat: 0}
    length: 1
  - from: {lon: 1, lat: 0}
    to: {lon: 2, lat: 0}
    length: 1
  - from: {lon: 0, lat: 0}
    to: {lon: 2, lat: 0}
    length: 3
`
	g, err := LoadYAML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())

	alts, err := NewScorer(g).Alternatives(nodeA, nodeC, 3)
	require.NoError(t, err)
	assert.Len(t, alts, 2)

	_, err = LoadYAML(strings.NewReader("edges:\n  - from: {lon: 0, lat: 0}\n    to: {lon: 1, lat: 0}\n    length: -2\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnalyzeLine(t *testing.T) {
	m, err := AnalyzeLine([]domain.Coordinate{{Lon: 0, Lat: 0}, {Lon: 3, Lat: 4}, {Lon: 3, Lat: 5}})
	require.NoError(t, err)
	assert.InDelta(t, 6.0, m.LengthDegrees, 1e-12)
	assert.Equal(t, 2, m.NumSegments)
	assert.InDelta(t, 666.0, m.ApproxKM, 1e-9)

	_, err = AnalyzeLine([]domain.Coordinate{{Lon: 1, Lat: 1}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
