package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/quantgate/internal/api"
	"github.com/sawpanic/quantgate/internal/artifacts"
	"github.com/sawpanic/quantgate/internal/config"
	"github.com/sawpanic/quantgate/internal/engine"
	"github.com/sawpanic/quantgate/internal/expectancy"
	"github.com/sawpanic/quantgate/internal/gates"
	"github.com/sawpanic/quantgate/internal/learner"
	"github.com/sawpanic/quantgate/internal/lifecycle"
	"github.com/sawpanic/quantgate/internal/metrics"
	"github.com/sawpanic/quantgate/internal/oracle"
	"github.com/sawpanic/quantgate/internal/persistence"
	pgrepo "github.com/sawpanic/quantgate/internal/persistence/postgres"
	"github.com/sawpanic/quantgate/internal/routing"
	"github.com/sawpanic/quantgate/internal/sizing"
	"github.com/sawpanic/quantgate/internal/store"
)

func newRunCmd() *cobra.Command {
	var (
		listenAddr   string
		snapshotPath string
		postgresDSN  string
		equity       float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the decision core daemon",
		Long: `Run the full decision core: the HTTP intake for scored signals, the
position lifecycle loop, the regime weight learner, and the durable state
flush loop. Market data is read from a local snapshot file maintained by
the upstream feed handler.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), listenAddr, snapshotPath, postgresDSN, equity)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", ":8090", "HTTP listen address")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "data/market_snapshot.yaml", "Market data snapshot file")
	cmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "Postgres DSN for durable history (empty = in-memory)")
	cmd.Flags().Float64Var(&equity, "equity", 10_000, "Account equity in quote units, used for notional estimates")
	return cmd
}

func runDaemon(parent context.Context, listenAddr, snapshotPath, postgresDSN string, equity float64) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	st, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("state store close failed")
		}
	}()

	outcomes, decisions, auditRepo, closeRepos, err := buildRepos(ctx, postgresDSN, cfg)
	if err != nil {
		return err
	}
	defer closeRepos()
	auditor := persistence.NewAuditor(auditRepo)

	registry := metrics.NewRegistry()
	promReg := prometheus.NewRegistry()
	if err := registry.Register(promReg); err != nil {
		return fmt.Errorf("metric registration failed: %w", err)
	}

	feed := oracle.NewFileOracle(snapshotPath)
	prices := oracle.NewGuardedPriceOracle(feed, cfg.Oracle)
	books := oracle.NewGuardedBookProvider(feed, cfg.Oracle)

	estimator := expectancy.NewEstimator(cfg.Expectancy, func() float64 { return equity })
	policies := &artifacts.PolicyFile{Path: cfg.Gates.PolicyArtifactPath}
	gate := gates.NewEvaluator(cfg.Gates, policies, estimator)
	sizer := sizing.NewController(cfg.Sizing, st, auditor)
	router := routing.NewSelector(cfg.Routing, books)
	pipeline := engine.NewPipeline(estimator, gate, sizer, router, registry, auditor, outcomes, decisions)

	executor := &paperExecutor{}
	manager := lifecycle.NewManager(cfg.Lifecycle, prices, executor, auditor)
	manager.Metrics = registry
	weightLearner := learner.New(cfg.Learner, decisions, auditor)
	weightLearner.Metrics = registry

	go manager.Run(ctx)
	go weightLearner.Run(ctx)
	if rs, ok := st.(*store.RedisStore); ok {
		go rs.RunFlushLoop(ctx, cfg.Store.FlushInterval)
	}
	go trackOpenPositions(ctx, cfg, manager, registry)

	server := api.NewServer(pipeline, manager, promReg, version)
	return server.Serve(ctx, listenAddr)
}

// buildStore returns the redis-backed store when an address is configured,
// the plain in-memory store otherwise.
func buildStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	if cfg.RedisAddr == "" {
		log.Info().Msg("no redis address configured, state is in-memory only")
		return store.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	rs, err := store.NewRedisStore(ctx, client, appName, store.NamespaceSizing)
	if err != nil {
		return nil, fmt.Errorf("redis store init failed: %w", err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("state store backed by redis")
	return rs, nil
}

// buildRepos wires the durable history, falling back to in-memory repos
// when no DSN is given.
func buildRepos(ctx context.Context, dsn string, cfg *config.Config) (persistence.OutcomeRepo, persistence.DecisionRepo, persistence.AuditRepo, func(), error) {
	if dsn == "" {
		log.Info().Msg("no postgres DSN configured, history is in-memory only")
		return persistence.NewMemoryOutcomeRepo(), persistence.NewMemoryDecisionRepo(), persistence.NewMemoryAuditRepo(), func() {}, nil
	}

	db, err := pgrepo.Connect(ctx, dsn, cfg.Oracle.Timeout)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("postgres connect failed: %w", err)
	}
	if err := pgrepo.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, nil, fmt.Errorf("schema setup failed: %w", err)
	}

	timeout := cfg.Oracle.Timeout
	closeFn := func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("postgres close failed")
		}
	}
	return pgrepo.NewOutcomeRepo(db, timeout), pgrepo.NewDecisionRepo(db, timeout), pgrepo.NewAuditRepo(db, timeout), closeFn, nil
}

// trackOpenPositions mirrors the manager's position count into the gauge on
// the lifecycle cadence.
func trackOpenPositions(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, registry *metrics.Registry) {
	ticker := time.NewTicker(cfg.Lifecycle.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registry.OpenPositions.Set(float64(manager.OpenCount()))
		}
	}
}
