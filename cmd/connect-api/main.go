package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/viewstodownloads/tiktok-connect/internal/api"
	"github.com/viewstodownloads/tiktok-connect/internal/config"
	"github.com/viewstodownloads/tiktok-connect/internal/core"
	"github.com/viewstodownloads/tiktok-connect/internal/crypto"
	"github.com/viewstodownloads/tiktok-connect/internal/db"
	"github.com/viewstodownloads/tiktok-connect/internal/logging"
	"github.com/viewstodownloads/tiktok-connect/internal/metrics"
	"github.com/viewstodownloads/tiktok-connect/internal/tiktok"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "", "Migration files directory (defaults to the embedded migrations)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("connect-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx)

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

	consumed := core.NewConsumedStateCache()
	go consumed.Start()
	defer consumed.Stop()

	creatorCache := core.NewCreatorInfoCache()
	go creatorCache.Start()
	defer creatorCache.Stop()

	services := core.NewServices(core.Deps{
		DB:            pool,
		Provider:      tiktok.NewClient(cfg.TikTok, &http.Client{Timeout: 30 * time.Second}),
		TokenKey:      tokenKey,
		SessionSecret: cfg.SessionSecret,
		SessionIssuer: cfg.ServiceName,
		ConsumedState: consumed,
		CreatorCache:  creatorCache,
	})

	var tc temporalclient.Client
	if cfg.TemporalEnabled() {
		tc, err = dialTemporal(cfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to temporal")
		}
		defer tc.Close()
		services.SetWatcher(core.NewTemporalWatcher(tc, cfg.Temporal.TaskQueue, cfg.Poll.Interval, cfg.Poll.MaxAttempts))
		logger.Info().Str("taskQueue", cfg.Temporal.TaskQueue).Msg("publish jobs watched by temporal worker")
	} else {
		watcher := core.NewLocalWatcher(ctx, core.NewPoller(services.Status, cfg.Poll.Interval, cfg.Poll.MaxAttempts))
		defer watcher.Stop()
		services.SetWatcher(watcher)
		logger.Info().Msg("publish jobs watched in-process")
	}

	srv := api.NewServer(logger, pool, services, tc, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting connect API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
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
