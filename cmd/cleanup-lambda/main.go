// Command cleanup-lambda prunes temporary quote images on an EventBridge
// schedule, for deployments that run the API without a janitor loop.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/text2toss/junk-removal-api/cmd/mainconfig"
	"github.com/text2toss/junk-removal-api/internal/app/bootstrap"
	appconfig "github.com/text2toss/junk-removal-api/internal/config"
	"github.com/text2toss/junk-removal-api/internal/photos"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

type cleaner interface {
	CleanupTemp(ctx context.Context, maxAge time.Duration) (int, error)
}

type handler struct {
	cleaner cleaner
	maxAge  time.Duration
	logger  *logging.Logger
}

// summary is returned to the invoker and shows up in the Lambda console.
type summary struct {
	Deleted int    `json:"deleted"`
	MaxAge  string `json:"max_age"`
}

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	h, err := newHandler(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("cleanup lambda setup failed", "error", err)
		os.Exit(1)
	}
	lambda.Start(h.handle)
}

func newHandler(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*handler, error) {
	if strings.TrimSpace(cfg.PhotoBucket) == "" {
		return nil, errors.New("PHOTO_BUCKET is required")
	}
	if cfg.TempImageMaxAge <= 0 {
		return nil, fmt.Errorf("invalid TEMP_IMAGE_MAX_AGE %s", cfg.TempImageMaxAge)
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if awsCfg == nil {
		return nil, errors.New("AWS_REGION is required")
	}
	store := bootstrap.BuildObjectStore(cfg, awsCfg, logger)
	return &handler{
		cleaner: photos.NewService(store, logger),
		maxAge:  cfg.TempImageMaxAge,
		logger:  logger,
	}, nil
}

func (h *handler) handle(ctx context.Context, evt events.CloudWatchEvent) (summary, error) {
	deleted, err := h.cleaner.CleanupTemp(ctx, h.maxAge)
	if err != nil {
		h.logger.Error("temp image cleanup failed", "event_id", evt.ID, "error", err)
		return summary{}, err
	}
	h.logger.Info("temp image cleanup finished", "event_id", evt.ID, "deleted", deleted)
	return summary{Deleted: deleted, MaxAge: h.maxAge.String()}, nil
}
