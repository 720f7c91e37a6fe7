package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartcity/traffic/internal/routing"
)

var (
	routesGraph string
	routesFrom  string
	routesTo    string
	routesK     int
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Rank alternative routes over a road graph file",
	Long: `Rank alternative routes between two coordinates over a YAML road graph.

The graph file lists directed edges:
  edges:
    - from: {lon: 72.57, lat: 23.02}
      to: {lon: 72.58, lat: 23.02}
      length: 0.01`,
	RunE: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.Flags().StringVarP(&routesGraph, "graph", "g", "", "Road graph YAML file")
	routesCmd.Flags().StringVar(&routesFrom, "from", "", "Start coordinate lon,lat")
	routesCmd.Flags().StringVar(&routesTo, "to", "", "End coordinate lon,lat")
	routesCmd.Flags().IntVarP(&routesK, "k", "k", routing.DefaultK, "Number of alternatives")
	_ = routesCmd.MarkFlagRequired("graph")
	_ = routesCmd.MarkFlagRequired("from")
	_ = routesCmd.MarkFlagRequired("to")
}

func runRoutes(cmd *cobra.Command, _ []string) error {
	start, err := parseCoordinate(routesFrom)
	if err != nil {
		return err
	}
	end, err := parseCoordinate(routesTo)
	if err != nil {
		return err
	}

	graph, err := routing.LoadYAMLFile(routesGraph)
	if err != nil {
		return err
	}
	scorer := routing.NewScorer(graph)

	alternatives, err := scorer.Alternatives(start, end, routesK)
	if err != nil {
		return err
	}

	if rootJSON {
		return writeJSON(cmd.OutOrStdout(), alternatives)
	}
	out := cmd.OutOrStdout()
	if len(alternatives) == 0 {
		fmt.Fprintln(out, "No alternative routes found")
		return nil
	}
	for _, a := range alternatives {
		fmt.Fprintf(out, "#%d route %d: %v km, %d segments, score %.4f\n",
			a.Rank, a.ID, a.LengthKM, a.NumSegments, a.SuitabilityScore)
	}
	return nil
}
