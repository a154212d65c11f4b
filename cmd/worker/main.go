package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/text2toss/junk-removal-api/cmd/mainconfig"
	"github.com/text2toss/junk-removal-api/internal/app/bootstrap"
	appconfig "github.com/text2toss/junk-removal-api/internal/config"
	"github.com/text2toss/junk-removal-api/internal/events"
	"github.com/text2toss/junk-removal-api/internal/notify"
	"github.com/text2toss/junk-removal-api/internal/photos"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// worker runs the background loops the API skips when INLINE_WORKERS=false.
type worker struct {
	deliverer *events.Deliverer
	janitor   *photos.Janitor
	processed *events.ProcessedStore
	closeFn   func()
}

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := buildWorker(ctx, cfg, logger)
	if err != nil {
		logger.Error("worker setup failed", "error", err)
		os.Exit(1)
	}
	defer w.closeFn()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		w.deliverer.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		w.janitor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		events.RunPruner(ctx, w.processed, events.ProcessedRetention, 24*time.Hour, logger)
	}()
	logger.Info("worker started", "outbox_interval", cfg.OutboxInterval.String(), "janitor_interval", cfg.JanitorInterval.String())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("worker shutting down")
	cancel()
	wg.Wait()
}

func buildWorker(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*worker, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("worker requires DATABASE_URL")
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pool, sqlDB, err := bootstrap.ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}

	notifier := notify.NewService(
		bootstrap.BuildEmailSender(cfg, awsCfg, logger),
		bootstrap.BuildSMSDispatcher(cfg, nil, logger),
		notify.Config{AdminEmail: cfg.AdminEmail, PublicBaseURL: cfg.PublicBaseURL},
		logger,
	)
	photoSvc := photos.NewService(bootstrap.BuildObjectStore(cfg, awsCfg, logger), logger)

	return &worker{
		deliverer: events.NewDeliverer(events.NewOutboxStore(pool), notifier, logger).WithInterval(cfg.OutboxInterval),
		janitor:   photos.NewJanitor(photoSvc, cfg.TempImageMaxAge, cfg.JanitorInterval, logger),
		processed: events.NewProcessedStore(pool),
		closeFn: func() {
			_ = sqlDB.Close()
			pool.Close()
		},
	}, nil
}
