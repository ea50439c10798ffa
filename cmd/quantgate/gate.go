package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sawpanic/quantgate/internal/artifacts"
	"github.com/sawpanic/quantgate/internal/config"
	"github.com/sawpanic/quantgate/internal/gates"
)

func newGateCmd() *cobra.Command {
	var in gates.Input

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Evaluate one candidate against the admission gates",
		Long: `Run the admission gate chain for a single candidate and print the decision
as JSON. The expectancy check is skipped because a one-shot invocation has
no outcome history; use the daemon for the full chain.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			if in.Symbol == "" {
				return fmt.Errorf("--symbol is required")
			}

			policies := &artifacts.PolicyFile{Path: cfg.Gates.PolicyArtifactPath}
			evaluator := gates.NewEvaluator(cfg.Gates, policies, nil)
			decision := evaluator.Evaluate(in)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(decision)
		},
	}

	cmd.Flags().StringVar(&in.Symbol, "symbol", "", "Candidate symbol")
	cmd.Flags().Float64Var(&in.PredictedROI, "roi", 0, "Predicted ROI as a fraction (0.006 = 60 bps)")
	cmd.Flags().BoolVar(&in.MTFConfirmed, "mtf-confirmed", false, "Multi-timeframe confirmation flag")
	cmd.Flags().IntVar(&in.AnomalyCount, "anomalies", 0, "Trailing anomaly count")
	cmd.Flags().Float64Var(&in.QualityScore, "quality", 1.0, "Fused ensemble quality score")
	return cmd
}
