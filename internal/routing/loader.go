package routing

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/smartcity/traffic/internal/domain"
)

// graphFile is the on-disk layout of a road graph fixture
type graphFile struct {
	Edges []domain.RoadEdge `yaml:"edges"`
}

// LoadYAML builds a graph from a YAML edge list:
//
//	edges:
//	  - from: {lon: 72.57, lat: 23.02}
//	    to:   {lon: 72.58, lat: 23.02}
//	    length: 0.01
func LoadYAML(r io.Reader) (*RoadGraph, error) {
	var f graphFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("routing: failed to decode graph: %w", err)
	}
	return FromEdges(f.Edges)
}

// LoadYAMLFile opens path and calls LoadYAML
func LoadYAMLFile(path string) (*RoadGraph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("routing: failed to open graph file: %w", err)
	}
	defer file.Close()
	return LoadYAML(file)
}
