package bookings

import (
	"context"
	"sort"
	"sync"

	"github.com/text2toss/junk-removal-api/internal/scheduling"
)

// Repository defines the interface for booking storage. Create and Update
// return ErrSlotTaken when another active booking owns the pickup window.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	GetByApprovalToken(ctx context.Context, token string) (*Booking, error)
	List(ctx context.Context, filter ListFilter) ([]*Booking, error)
	ListByQuote(ctx context.Context, quoteID string) ([]*Booking, error)
	Update(ctx context.Context, b *Booking) error
	// ConsumeApprovalToken behaves like Update but only succeeds while the
	// stored booking still carries token and awaits customer approval.
	ConsumeApprovalToken(ctx context.Context, token string, b *Booking) error
	MarkPaid(ctx context.Context, id string) (bool, error)
	BookedSlots(ctx context.Context, date string) ([]string, error)
	BookedSlotCounts(ctx context.Context, startDate, endDate string) (map[string]int, error)
}

var _ scheduling.BookedSlotReader = Repository(nil)

// InMemoryRepository keeps bookings in a map; used when no database is configured.
type InMemoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]*Booking
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{bookings: make(map[string]*Booking)}
}

func (r *InMemoryRepository) Create(ctx context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slotTakenLocked(b) {
		return ErrSlotTaken
	}
	r.bookings[b.ID] = clone(b)
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return clone(b), nil
}

func (r *InMemoryRepository) GetByApprovalToken(ctx context.Context, token string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if token == "" {
		return nil, ErrTokenNotFound
	}
	for _, b := range r.bookings {
		if b.CustomerApprovalToken == token {
			return clone(b), nil
		}
	}
	return nil, ErrTokenNotFound
}

func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Booking
	for _, b := range r.bookings {
		if filter.matches(b) {
			out = append(out, clone(b))
		}
	}
	SortBySchedule(out)
	return out, nil
}

func (r *InMemoryRepository) ListByQuote(ctx context.Context, quoteID string) ([]*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Booking
	for _, b := range r.bookings {
		if b.QuoteID == quoteID {
			out = append(out, clone(b))
		}
	}
	SortBySchedule(out)
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return ErrBookingNotFound
	}
	if b.Active() && r.slotTakenLocked(b) {
		return ErrSlotTaken
	}
	r.bookings[b.ID] = clone(b)
	return nil
}

func (r *InMemoryRepository) ConsumeApprovalToken(ctx context.Context, token string, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.bookings[b.ID]
	if !ok || token == "" || cur.CustomerApprovalToken != token || cur.Status != StatusPendingCustomerApproval {
		return ErrTokenNotFound
	}
	if b.Active() && r.slotTakenLocked(b) {
		return ErrSlotTaken
	}
	r.bookings[b.ID] = clone(b)
	return nil
}

func (r *InMemoryRepository) MarkPaid(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return false, ErrBookingNotFound
	}
	if b.PaymentStatus == PaymentPaid {
		return false, nil
	}
	b.PaymentStatus = PaymentPaid
	return true, nil
}

func (r *InMemoryRepository) BookedSlots(ctx context.Context, date string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, b := range r.bookings {
		if b.Active() && b.PickupDate == date {
			out = append(out, b.PickupTime)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) BookedSlotCounts(ctx context.Context, startDate, endDate string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int)
	for _, b := range r.bookings {
		if b.Active() && b.PickupDate >= startDate && b.PickupDate <= endDate {
			out[b.PickupDate]++
		}
	}
	return out, nil
}

func (r *InMemoryRepository) slotTakenLocked(b *Booking) bool {
	for _, other := range r.bookings {
		if other.ID != b.ID && other.Active() && other.PickupDate == b.PickupDate && other.PickupTime == b.PickupTime {
			return true
		}
	}
	return false
}

// SortBySchedule orders bookings by pickup date then slot.
func SortBySchedule(list []*Booking) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].PickupDate != list[j].PickupDate {
			return list[i].PickupDate < list[j].PickupDate
		}
		return scheduling.SlotIndex(list[i].PickupTime) < scheduling.SlotIndex(list[j].PickupTime)
	})
}

func clone(b *Booking) *Booking {
	cp := *b
	if b.Completion != nil {
		c := *b.Completion
		cp.Completion = &c
	}
	if b.OriginalPrice != nil {
		v := *b.OriginalPrice
		cp.OriginalPrice = &v
	}
	if b.AdjustedPrice != nil {
		v := *b.AdjustedPrice
		cp.AdjustedPrice = &v
	}
	return &cp
}
