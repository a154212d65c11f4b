package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// VelocityChecker limits how many checkout sessions one booking may open.
type VelocityChecker struct {
	redis  *redis.Client
	logger *logging.Logger
	config VelocityConfig
}

// VelocityConfig contains velocity check configuration.
type VelocityConfig struct {
	MaxCheckoutsPerBooking int
	CheckoutWindow         time.Duration
}

// DefaultVelocityConfig returns default velocity limits.
func DefaultVelocityConfig() VelocityConfig {
	return VelocityConfig{
		MaxCheckoutsPerBooking: 10,
		CheckoutWindow:         time.Hour,
	}
}

// VelocityResult contains the result of a velocity check.
type VelocityResult struct {
	Allowed      bool
	CurrentCount int
	MaxAllowed   int
	WindowExpiry time.Time
	Message      string
}

func NewVelocityChecker(redisClient *redis.Client, config VelocityConfig, logger *logging.Logger) *VelocityChecker {
	if logger == nil {
		logger = logging.Default()
	}
	return &VelocityChecker{redis: redisClient, logger: logger, config: config}
}

// CheckCheckout counts a checkout attempt for the booking.
func (v *VelocityChecker) CheckCheckout(ctx context.Context, bookingID string) (*VelocityResult, error) {
	if v == nil || v.redis == nil || v.config.MaxCheckoutsPerBooking <= 0 {
		return &VelocityResult{Allowed: true}, nil
	}
	ctx, span := stripeTracer.Start(ctx, "velocity.check_checkout")
	defer span.End()

	key := fmt.Sprintf("text2toss:velocity:checkout:%s", bookingID)
	count, expiry, err := v.incrementAndGet(ctx, key, v.config.CheckoutWindow)
	if err != nil {
		v.logger.Error("velocity check failed", "error", err, "key", key)
		// Fail open - allow the checkout if Redis is down
		return &VelocityResult{Allowed: true, Message: "velocity check unavailable"}, nil
	}

	result := &VelocityResult{
		Allowed:      count <= v.config.MaxCheckoutsPerBooking,
		CurrentCount: count,
		MaxAllowed:   v.config.MaxCheckoutsPerBooking,
		WindowExpiry: expiry,
	}
	if !result.Allowed {
		result.Message = fmt.Sprintf("exceeded %d checkout attempts in %s", v.config.MaxCheckoutsPerBooking, v.config.CheckoutWindow)
		v.logger.Warn("checkout velocity exceeded", "booking_id", bookingID, "count", count, "max", v.config.MaxCheckoutsPerBooking)
		span.SetAttributes(attribute.Bool("velocity.exceeded", true))
	}
	return result, nil
}

// incrementAndGet increments a counter and returns the new value with expiry time.
func (v *VelocityChecker) incrementAndGet(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	count, err := v.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	// Set expiry only on first increment
	if count == 1 {
		v.redis.Expire(ctx, key, window)
	}
	ttl, err := v.redis.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return int(count), time.Now().Add(ttl), nil
}
