package routing

import (
	"fmt"
	"math"
	"sort"

	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/pkg/utils"
)

const (
	// DefaultK is the number of alternatives returned when the caller does not choose
	DefaultK = 3
	// MaxHops bounds path enumeration
	MaxHops = 20

	noAlternatives = "No alternative routes found"
)

// Scorer ranks alternative routes over a read-only road graph.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	graph   *RoadGraph
	maxHops int
}

// NewScorer creates a scorer over graph; a nil graph behaves as empty
func NewScorer(graph *RoadGraph) *Scorer {
	if graph == nil {
		graph = NewRoadGraph()
	}
	return &Scorer{graph: graph, maxHops: MaxHops}
}

// Graph returns the underlying road graph
func (s *Scorer) Graph() *RoadGraph {
	return s.graph
}

// Suitability is 1/(1+length): strictly positive and decreasing in length
func Suitability(length float64) float64 {
	return 1 / (1 + length)
}

type candidate struct {
	path   []int64
	length float64
}

// Alternatives returns up to k ranked routes between the graph nodes nearest
// to start and end. An empty graph is ErrRouteNotFound; no connecting path
// is an empty result.
func (s *Scorer) Alternatives(start, end domain.Coordinate, k int) ([]domain.Alternative, error) {
	if k <= 0 {
		k = DefaultK
	}
	startKey, ok := s.graph.NearestNode(start)
	if !ok {
		return nil, fmt.Errorf("routing: %w: road graph has no nodes", domain.ErrRouteNotFound)
	}
	endKey, ok := s.graph.NearestNode(end)
	if !ok {
		return nil, fmt.Errorf("routing: %w: road graph has no nodes", domain.ErrRouteNotFound)
	}
	if !s.graph.Has(startKey) || !s.graph.Has(endKey) {
		return nil, fmt.Errorf("routing: %w: endpoint not on road graph", domain.ErrRouteNotFound)
	}

	paths := s.graph.simplePaths(s.graph.ids[startKey], s.graph.ids[endKey], s.maxHops)
	candidates := make([]candidate, len(paths))
	for i, p := range paths {
		candidates[i] = candidate{path: p, length: s.graph.pathLength(p)}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].length < candidates[j].length
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	alternatives := make([]domain.Alternative, len(candidates))
	for i, c := range candidates {
		alternatives[i] = domain.Alternative{
			ID:               i,
			Path:             s.graph.keys(c.path),
			LengthKM:         utils.RoundTo(utils.DegreesToKM(c.length), 4),
			NumSegments:      len(c.path) - 1,
			SuitabilityScore: Suitability(c.length),
		}
	}
	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].SuitabilityScore > alternatives[j].SuitabilityScore
	})
	for i := range alternatives {
		alternatives[i].Rank = i + 1
	}
	return alternatives, nil
}

// Recommend returns the highest-scoring alternative with a justification.
// No connecting path yields a recommendation with no best route, not an error.
func (s *Scorer) Recommend(start, end domain.Coordinate) (domain.Recommendation, error) {
	alternatives, err := s.Alternatives(start, end, DefaultK)
	if err != nil {
		return domain.Recommendation{}, err
	}
	if len(alternatives) == 0 {
		return domain.Recommendation{
			Alternatives:  alternatives,
			Justification: noAlternatives,
		}, nil
	}

	best := alternatives[0]
	for _, a := range alternatives[1:] {
		if a.SuitabilityScore > best.SuitabilityScore {
			best = a
		}
	}
	return domain.Recommendation{
		Best:         &best,
		Alternatives: alternatives,
		Justification: fmt.Sprintf("Route %d recommended: length %v km, score %.4f",
			best.ID, best.LengthKM, best.SuitabilityScore),
	}, nil
}

// AnalyzeLine measures a raw polyline in degrees and approximate kilometers
func AnalyzeLine(coords []domain.Coordinate) (domain.LineMetrics, error) {
	if len(coords) < 2 {
		return domain.LineMetrics{}, fmt.Errorf("routing: %w: at least two coordinates required", domain.ErrInvalidInput)
	}
	var length float64
	for i := 1; i < len(coords); i++ {
		length += math.Hypot(coords[i].Lon-coords[i-1].Lon, coords[i].Lat-coords[i-1].Lat)
	}
	return domain.LineMetrics{
		LengthDegrees: length,
		NumSegments:   len(coords) - 1,
		ApproxKM:      utils.RoundTo(utils.DegreesToKM(length), 4),
	}, nil
}
