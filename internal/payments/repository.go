package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Transaction tracks one checkout session for a booking.
type Transaction struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	BookingID     string    `json:"booking_id"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Terminal reports whether Stripe will not change the session any further.
func (t *Transaction) Terminal() bool {
	return t.PaymentStatus == PaymentStatusPaid || t.Status == SessionExpired
}

// Repository persists payment transactions.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetBySessionID(ctx context.Context, sessionID string) (*Transaction, error)
	UpdateStatus(ctx context.Context, sessionID, status, paymentStatus string) error
}

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores transactions in payment_transactions.
type PostgresRepository struct {
	pool rowQuerier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("payments: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithExec(exec rowQuerier) *PostgresRepository {
	if exec == nil {
		panic("payments: exec required")
	}
	return &PostgresRepository{pool: exec}
}

func (r *PostgresRepository) Create(ctx context.Context, t *Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
		INSERT INTO payment_transactions (id, session_id, booking_id, amount_cents, currency, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		t.ID, t.SessionID, t.BookingID, t.AmountCents, t.Currency, t.Status, t.PaymentStatus,
	).Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("payments: failed to insert transaction: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetBySessionID(ctx context.Context, sessionID string) (*Transaction, error) {
	query := `
		SELECT id, session_id, booking_id, amount_cents, currency, status, payment_status, created_at, updated_at
		FROM payment_transactions
		WHERE session_id = $1
	`
	var t Transaction
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&t.ID, &t.SessionID, &t.BookingID, &t.AmountCents, &t.Currency, &t.Status, &t.PaymentStatus, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("payments: load by session: %w", err)
	}
	return &t, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, sessionID, status, paymentStatus string) error {
	query := `
		UPDATE payment_transactions
		SET status = $2, payment_status = $3, updated_at = now()
		WHERE session_id = $1
	`
	ct, err := r.pool.Exec(ctx, query, sessionID, status, paymentStatus)
	if err != nil {
		return fmt.Errorf("payments: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// InMemoryRepository keeps transactions in a map; used when no database is configured.
type InMemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*Transaction
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byID: make(map[string]*Transaction)}
}

func (r *InMemoryRepository) Create(ctx context.Context, t *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	r.byID[t.SessionID] = &cp
	return nil
}

func (r *InMemoryRepository) GetBySessionID(ctx context.Context, sessionID string) (*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, sessionID, status, paymentStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	t.Status = status
	t.PaymentStatus = paymentStatus
	t.UpdatedAt = time.Now().UTC()
	return nil
}
