// Package main runs the submission API: draft sessions, staging, preview
// links and the final upload pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/witverse/internal/api"
	"github.com/dharsanguruparan/witverse/internal/config"
	"github.com/dharsanguruparan/witverse/internal/database"
	"github.com/dharsanguruparan/witverse/internal/identity"
	"github.com/dharsanguruparan/witverse/internal/metrics"
	"github.com/dharsanguruparan/witverse/internal/pipeline"
	"github.com/dharsanguruparan/witverse/internal/queue"
	"github.com/dharsanguruparan/witverse/internal/repository"
	"github.com/dharsanguruparan/witverse/internal/s3storage"
	"github.com/dharsanguruparan/witverse/internal/signing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := cfg.NewLogger()
	log.Debugf("config: %s", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	store, err := s3storage.New(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if err := store.EnsureBuckets(ctx); err != nil {
		return fmt.Errorf("ensure buckets: %w", err)
	}

	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	submitter := pipeline.New(store, repository.NewAppRepository(pool),
		pipeline.WithOrphanSink(queue.NewJanitor(client, cfg.CleanupDelay)),
		pipeline.WithBuckets(cfg.Buckets()),
		pipeline.WithLogger(log.WithField("component", "pipeline")),
		pipeline.WithMetrics(m),
	)

	srv := api.New(api.Dependencies{
		Address:    cfg.Address,
		SessionTTL: cfg.SessionTTL,
		PreviewTTL: cfg.PreviewTTL,
		Submitter:  submitter,
		Categories: repository.NewCategoryRepository(pool),
		Tokens:     identity.NewTokenVerifier([]byte(cfg.JWTSecret)),
		Signer:     signing.NewSigner([]byte(cfg.PreviewSecret)),
		Logger:     log.WithField("component", "api"),
		Metrics:    m,
		Gatherer:   prometheus.DefaultGatherer,
		Ready: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("storage: %w", err)
			}
			return nil
		},
	})
	return srv.Run(ctx)
}
