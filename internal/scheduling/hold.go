package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/text2toss/junk-removal-api/pkg/logging"
)

const holdKeyPrefix = "text2toss:slot-hold:"

// releaseScript deletes the hold only if this caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SlotHolder serializes concurrent booking attempts for one slot with a short
// Redis lease. The database unique index still decides the winner; the hold
// only turns a race into a fast 409. A nil holder or a Redis outage lets every
// request through.
type SlotHolder struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewSlotHolder(client *redis.Client, ttl time.Duration, logger *logging.Logger) *SlotHolder {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SlotHolder{client: client, ttl: ttl, logger: logger}
}

// Acquire takes the hold for date and slot. The returned release func is
// always non-nil and safe to call once the booking attempt finishes.
func (h *SlotHolder) Acquire(ctx context.Context, date, slot string) (func(), error) {
	noop := func() {}
	if h == nil || h.client == nil {
		return noop, nil
	}
	ctx, span := tracer.Start(ctx, "scheduling.slot_hold")
	defer span.End()

	key := holdKey(date, slot)
	token := uuid.NewString()
	ok, err := h.client.SetNX(ctx, key, token, h.ttl).Result()
	if err != nil {
		h.logger.Warn("slot hold unavailable; continuing without it", "error", err, "date", date, "slot", slot)
		return noop, nil
	}
	if !ok {
		return noop, ErrSlotHeld
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, h.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			h.logger.Warn("failed to release slot hold", "error", err, "key", key)
		}
	}, nil
}

func holdKey(date, slot string) string {
	return fmt.Sprintf("%s%s:%s", holdKeyPrefix, date, slot)
}
