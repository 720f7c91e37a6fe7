// Package routing scores alternative paths over a directed road graph.
package routing

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/smartcity/traffic/internal/domain"
)

// gridScale is the integer grid resolution for node keys (1e-7 degree, ~1 cm)
const gridScale = 1e7

// KeyOf snaps a coordinate to the node grid
func KeyOf(c domain.Coordinate) domain.NodeKey {
	return domain.NodeKey{
		LonE7: int64(math.Round(c.Lon * gridScale)),
		LatE7: int64(math.Round(c.Lat * gridScale)),
	}
}

// CoordinateOf returns the grid point of a key
func CoordinateOf(k domain.NodeKey) domain.Coordinate {
	return domain.Coordinate{
		Lon: float64(k.LonE7) / gridScale,
		Lat: float64(k.LatE7) / gridScale,
	}
}

// RoadGraph is a directed graph of road nodes with edge lengths in degrees.
// Build it fully before sharing; it is not safe for concurrent mutation.
type RoadGraph struct {
	g     *simple.WeightedDirectedGraph
	ids   map[domain.NodeKey]int64
	order []domain.NodeKey
}

// NewRoadGraph creates an empty graph
func NewRoadGraph() *RoadGraph {
	return &RoadGraph{
		g:   simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		ids: make(map[domain.NodeKey]int64),
	}
}

// FromEdges builds a graph from stored edges
func FromEdges(edges []domain.RoadEdge) (*RoadGraph, error) {
	rg := NewRoadGraph()
	for i, e := range edges {
		if err := rg.AddEdge(e.From, e.To, e.Length); err != nil {
			return nil, fmt.Errorf("routing: edge %d: %w", i, err)
		}
	}
	return rg, nil
}

func (rg *RoadGraph) node(k domain.NodeKey) int64 {
	if id, ok := rg.ids[k]; ok {
		return id
	}
	id := int64(len(rg.order))
	rg.ids[k] = id
	rg.order = append(rg.order, k)
	rg.g.AddNode(simple.Node(id))
	return id
}

// AddEdge adds a directed edge; an existing edge between the same nodes is replaced
func (rg *RoadGraph) AddEdge(from, to domain.Coordinate, length float64) error {
	if length < 0 || math.IsNaN(length) {
		return fmt.Errorf("%w: edge length must be non-negative, got %v", domain.ErrInvalidInput, length)
	}
	fk, tk := KeyOf(from), KeyOf(to)
	if fk == tk {
		return fmt.Errorf("%w: self loop at %v", domain.ErrInvalidInput, from)
	}
	f, t := rg.node(fk), rg.node(tk)
	rg.g.SetWeightedEdge(rg.g.NewWeightedEdge(simple.Node(f), simple.Node(t), length))
	return nil
}

// NodeCount returns the number of nodes
func (rg *RoadGraph) NodeCount() int {
	return len(rg.order)
}

// EdgeCount returns the number of directed edges
func (rg *RoadGraph) EdgeCount() int {
	return rg.g.Edges().Len()
}

// Has reports whether k is a node of the graph
func (rg *RoadGraph) Has(k domain.NodeKey) bool {
	_, ok := rg.ids[k]
	return ok
}

// NearestNode returns the node closest to c by Euclidean distance in degrees.
// Ties go to the node added first.
func (rg *RoadGraph) NearestNode(c domain.Coordinate) (domain.NodeKey, bool) {
	if len(rg.order) == 0 {
		return domain.NodeKey{}, false
	}
	best := rg.order[0]
	bestDist := math.Inf(1)
	for _, k := range rg.order {
		p := CoordinateOf(k)
		d := math.Hypot(c.Lon-p.Lon, c.Lat-p.Lat)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}
	return best, true
}

// successors returns out-neighbours in insertion order
func (rg *RoadGraph) successors(id int64) []int64 {
	nodes := graph.NodesOf(rg.g.From(id))
	out := make([]int64, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	slices.Sort(out)
	return out
}

func (rg *RoadGraph) weight(from, to int64) float64 {
	w, _ := rg.g.Weight(from, to)
	return w
}

// simplePaths enumerates every path from src to dst with at most maxHops edges
// that visits no node twice
func (rg *RoadGraph) simplePaths(src, dst int64, maxHops int) [][]int64 {
	if src == dst || maxHops < 1 {
		return nil
	}
	var paths [][]int64
	visited := map[int64]bool{src: true}
	path := []int64{src}

	var walk func(u int64)
	walk = func(u int64) {
		if len(path)-1 >= maxHops {
			return
		}
		for _, v := range rg.successors(u) {
			if visited[v] {
				continue
			}
			if v == dst {
				paths = append(paths, append(slices.Clone(path), v))
				continue
			}
			visited[v] = true
			path = append(path, v)
			walk(v)
			path = path[:len(path)-1]
			visited[v] = false
		}
	}
	walk(src)
	return paths
}

func (rg *RoadGraph) pathLength(p []int64) float64 {
	var total float64
	for i := 0; i+1 < len(p); i++ {
		total += rg.weight(p[i], p[i+1])
	}
	return total
}

func (rg *RoadGraph) keys(p []int64) []domain.NodeKey {
	out := make([]domain.NodeKey, len(p))
	for i, id := range p {
		out[i] = rg.order[id]
	}
	return out
}
