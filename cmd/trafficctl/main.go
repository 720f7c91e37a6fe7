// Command trafficctl trains the speed model and runs forecasts and route queries offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smartcity/traffic/internal/config"
	"github.com/smartcity/traffic/internal/logging"
)

var (
	rootJSON    bool
	rootVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "trafficctl",
	Short: "Operate the traffic forecasting engine",
	Long: `trafficctl trains and inspects the traffic forecasting engine without the HTTP server.

Examples:
  trafficctl train --days 30
  trafficctl train --file observations.json
  trafficctl forecast --segment 12 --horizon 6
  trafficctl routes --graph roads.yaml --from 72.57,23.02 --to 72.60,23.05 --k 3`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Verbose logging")
}

// setup loads configuration and builds the logger shared by every command
func setup() (*config.Config, *zap.SugaredLogger, error) {
	cfg, _ := config.Load()
	level := "warn"
	if rootVerbose {
		level = "debug"
	}
	logger, err := logging.New(false, level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
