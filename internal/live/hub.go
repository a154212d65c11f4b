package live

import (
	"context"
	"time"

	"github.com/text2toss/junk-removal-api/internal/bookings"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

const (
	broadcastBuffer = 64
	clientBuffer    = 16
)

// Event is one message on the admin live feed.
type Event struct {
	Type    string            `json:"type"`
	Booking *bookings.Booking `json:"booking,omitempty"`
	At      time.Time         `json:"at"`
}

type client struct {
	send chan Event
}

// Hub fans booking changes out to connected admin dashboards. A single
// goroutine (Run) owns the client set.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	clients    map[*client]struct{}
	stopped    chan struct{}
	logger     *logging.Logger
	now        func() time.Time
}

var _ bookings.ChangeListener = (*Hub)(nil)

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, broadcastBuffer),
		clients:    make(map[*client]struct{}),
		stopped:    make(chan struct{}),
		logger:     logger,
		now:        time.Now,
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("live: client connected", "clients", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case ev := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- ev:
				default:
					// slow reader; drop it rather than stall everyone
					delete(h.clients, c)
					close(c.send)
					h.logger.Warn("live: dropped slow client")
				}
			}
		}
	}
}

// BookingChanged queues a change for broadcast without blocking the caller.
func (h *Hub) BookingChanged(kind string, b *bookings.Booking) {
	ev := Event{Type: kind, Booking: b, At: h.now().UTC()}
	select {
	case h.broadcast <- ev:
	default:
		h.logger.Warn("live: broadcast buffer full; change not streamed", "type", kind, "booking_id", b.ID)
	}
}
