package quotes

import (
	"context"
	"sort"
	"sync"
)

// Repository defines the interface for quote storage
type Repository interface {
	Create(ctx context.Context, q *Quote) error
	GetByID(ctx context.Context, id string) (*Quote, error)
	ListByApprovalStatus(ctx context.Context, status ApprovalStatus) ([]*Quote, error)
	UpdateReview(ctx context.Context, q *Quote) error
	ApprovalStats(ctx context.Context) (ApprovalStats, error)
}

// InMemoryRepository keeps quotes in a map; used when no database is configured.
type InMemoryRepository struct {
	mu     sync.RWMutex
	quotes map[string]*Quote
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{quotes: make(map[string]*Quote)}
}

func (r *InMemoryRepository) Create(ctx context.Context, q *Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *q
	r.quotes[q.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quotes[id]
	if !ok {
		return nil, ErrQuoteNotFound
	}
	cp := *q
	return &cp, nil
}

func (r *InMemoryRepository) ListByApprovalStatus(ctx context.Context, status ApprovalStatus) ([]*Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Quote
	for _, q := range r.quotes {
		if q.ApprovalStatus == status {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) UpdateReview(ctx context.Context, q *Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.quotes[q.ID]
	if !ok {
		return ErrQuoteNotFound
	}
	if existing.ApprovalStatus != ApprovalPending {
		return ErrAlreadyReviewed
	}
	existing.ApprovalStatus = q.ApprovalStatus
	existing.ApprovedPrice = q.ApprovedPrice
	existing.AdminNotes = q.AdminNotes
	existing.ApprovedBy = q.ApprovedBy
	existing.ApprovedAt = q.ApprovedAt
	return nil
}

func (r *InMemoryRepository) ApprovalStats(ctx context.Context) (ApprovalStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var stats ApprovalStats
	for _, q := range r.quotes {
		if q.RequiresApproval {
			stats.TotalRequiringApproval++
		}
		switch q.ApprovalStatus {
		case ApprovalPending:
			stats.PendingApproval++
		case ApprovalApproved:
			stats.Approved++
		case ApprovalRejected:
			stats.Rejected++
		case ApprovalAutoApproved:
			stats.AutoApproved++
		}
	}
	return stats, nil
}
