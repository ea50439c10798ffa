package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/quantgate/internal/config"
	"github.com/sawpanic/quantgate/internal/learner"
	"github.com/sawpanic/quantgate/internal/persistence"
	pgrepo "github.com/sawpanic/quantgate/internal/persistence/postgres"
)

func newLearnCmd() *cobra.Command {
	var postgresDSN string

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Run one weight-learning cycle and exit",
		Long: `Read the recent scored-decision window, attribute realized expected value
to signal families per regime, and republish the bounded weight artifact.
The same cycle runs periodically inside the daemon; this command exists for
manual reruns and scheduled jobs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLearnOnce(cmd.Context(), postgresDSN)
		},
	}

	cmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "Postgres DSN holding the scored-decision history")
	return cmd
}

func runLearnOnce(ctx context.Context, postgresDSN string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	var decisions persistence.DecisionRepo
	var auditRepo persistence.AuditRepo
	if postgresDSN == "" {
		log.Warn().Msg("no postgres DSN given, learning from an empty in-memory window")
		decisions = persistence.NewMemoryDecisionRepo()
		auditRepo = persistence.NewMemoryAuditRepo()
	} else {
		db, err := pgrepo.Connect(ctx, postgresDSN, cfg.Oracle.Timeout)
		if err != nil {
			return fmt.Errorf("postgres connect failed: %w", err)
		}
		defer db.Close()
		if err := pgrepo.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("schema setup failed: %w", err)
		}
		decisions = pgrepo.NewDecisionRepo(db, cfg.Oracle.Timeout)
		auditRepo = pgrepo.NewAuditRepo(db, cfg.Oracle.Timeout)
	}

	l := learner.New(cfg.Learner, decisions, persistence.NewAuditor(auditRepo))
	if err := l.RunCycle(ctx); err != nil {
		return err
	}
	log.Info().Str("artifact", cfg.Learner.ArtifactPath).Msg("weight artifact republished")
	return nil
}
