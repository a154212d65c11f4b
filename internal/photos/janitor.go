package photos

import (
	"context"
	"time"

	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// Janitor periodically removes stale quote images.
type Janitor struct {
	svc      *Service
	maxAge   time.Duration
	interval time.Duration
	logger   *logging.Logger
}

func NewJanitor(svc *Service, maxAge, interval time.Duration, logger *logging.Logger) *Janitor {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{svc: svc, maxAge: maxAge, interval: interval, logger: logger}
}

// Start blocks until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	j.logger.Info("temp image janitor started", "interval", j.interval.String(), "max_age", j.maxAge.String())
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("temp image janitor stopped")
			return
		case <-ticker.C:
			if _, err := j.svc.CleanupTemp(ctx, j.maxAge); err != nil {
				j.logger.Error("temp image cleanup failed", "error", err)
			}
		}
	}
}
