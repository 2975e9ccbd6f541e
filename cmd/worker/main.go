package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"
	sdkworkflow "go.temporal.io/sdk/workflow"

	"github.com/viewstodownloads/tiktok-connect/internal/activity"
	"github.com/viewstodownloads/tiktok-connect/internal/config"
	"github.com/viewstodownloads/tiktok-connect/internal/core"
	"github.com/viewstodownloads/tiktok-connect/internal/crypto"
	"github.com/viewstodownloads/tiktok-connect/internal/db"
	"github.com/viewstodownloads/tiktok-connect/internal/logging"
	"github.com/viewstodownloads/tiktok-connect/internal/metrics"
	"github.com/viewstodownloads/tiktok-connect/internal/tiktok"
	"github.com/viewstodownloads/tiktok-connect/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)
	// Activities log through zerolog.Ctx without a request-scoped logger.
	zerolog.DefaultContextLogger = &logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := metrics.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to register pool metrics")
	}

	tokenKey, err := crypto.DeriveKey([]byte(cfg.TokenEncryptionKey), crypto.TokenKeyInfo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to derive token encryption key")
	}

	// The worker only polls status, so the OAuth state ledger stays empty.
	services := core.NewServices(core.Deps{
		DB:            pool,
		Provider:      tiktok.NewClient(cfg.TikTok, &http.Client{Timeout: 30 * time.Second}),
		TokenKey:      tokenKey,
		ConsumedState: core.NewConsumedStateCache(),
		CreatorCache:  core.NewCreatorInfoCache(),
	})

	tc, err := dialTemporal(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ErrorTypingInterceptor{}},
	})

	w.RegisterActivity(activity.NewPublishWatch(services.Status))
	w.RegisterWorkflowWithOptions(workflow.WatchPublishWorkflow, sdkworkflow.RegisterOptions{
		Name: core.WatchPublishWorkflowName,
	})

	go func() {
		logger.Info().Str("taskQueue", cfg.Temporal.TaskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

func dialTemporal(cfg *config.Config, logger zerolog.Logger) (temporalclient.Client, error) {
	tlsConfig, err := cfg.TemporalTLS()
	if err != nil {
		return nil, err
	}
	dialOpts := temporalclient.Options{HostPort: cfg.Temporal.Address, Namespace: cfg.Temporal.Namespace}
	if tlsConfig != nil {
		dialOpts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsConfig}
		logger.Info().Msg("temporal mTLS enabled")
	}
	return temporalclient.Dial(dialOpts)
}
