package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/routing"
)

// ScorerType names the route scoring strategy in model stats
const ScorerType = "inverse_length"

// RouteService answers route queries over a graph loaded once at startup
type RouteService struct {
	scorer *routing.Scorer
}

// NewRouteService creates a route service over graph; nil behaves as empty
func NewRouteService(graph *routing.RoadGraph) *RouteService {
	return &RouteService{scorer: routing.NewScorer(graph)}
}

// LoadRoadGraph reads the road network from a YAML file when path is set,
// otherwise from source. A nil source with no path yields an empty graph.
func LoadRoadGraph(ctx context.Context, source RoadGraphSource, path string, logger *zap.SugaredLogger) (*routing.RoadGraph, error) {
	if path != "" {
		g, err := routing.LoadYAMLFile(path)
		if err != nil {
			return nil, fmt.Errorf("service: %w", err)
		}
		logger.Infow("road graph loaded from file", "path", path, "nodes", g.NodeCount(), "edges", g.EdgeCount())
		return g, nil
	}
	if source == nil {
		return routing.NewRoadGraph(), nil
	}
	edges, err := source.LoadRoadEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load road edges: %w", err)
	}
	g, err := routing.FromEdges(edges)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	logger.Infow("road graph loaded from storage", "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return g, nil
}

// Alternatives returns up to k ranked routes between start and end
func (s *RouteService) Alternatives(start, end domain.Coordinate, k int) ([]domain.Alternative, error) {
	return s.scorer.Alternatives(start, end, k)
}

// Recommend picks the best alternative between start and end
func (s *RouteService) Recommend(start, end domain.Coordinate) (domain.Recommendation, error) {
	return s.scorer.Recommend(start, end)
}

// Analyze measures a raw polyline
func (s *RouteService) Analyze(coords []domain.Coordinate) (domain.LineMetrics, error) {
	return routing.AnalyzeLine(coords)
}

// Status reports the size of the loaded graph
func (s *RouteService) Status() domain.RouteScorerStatus {
	g := s.scorer.Graph()
	status := "active"
	if g.NodeCount() == 0 {
		status = "no_graph"
	}
	return domain.RouteScorerStatus{
		Status: status,
		Type:   ScorerType,
		Nodes:  g.NodeCount(),
		Edges:  g.EdgeCount(),
	}
}
