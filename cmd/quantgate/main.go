package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "quantgate"
	version = "v0.4.0"
)

var (
	flagConfig   string
	flagLogLevel string
	flagLogJSON  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Trade admission, sizing, and lifecycle decision core",
		Version: version,
		Long: `quantgate is the decision core that sits between signal scoring and order
execution: it admits or rejects scored candidates, adapts position size to
realized expectancy, manages open positions through trailing and volatility
stops, routes orders maker/taker, and periodically relearns per-regime
signal weights from realized outcomes.`,
		PersistentPreRunE: setupLogging,
	}

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to config file (defaults apply when absent)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Emit JSON logs instead of console output")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newLearnCmd())
	rootCmd.AddCommand(newGateCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("%s %s\n", appName, version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(_ *cobra.Command, _ []string) error {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(flagLogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", flagLogLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	if !flagLogJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return nil
}
