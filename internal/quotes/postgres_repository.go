package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores quotes in the relational database.
type PostgresRepository struct {
	pool rowQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("quotes: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithExec(exec rowQuerier) *PostgresRepository {
	if exec == nil {
		panic("quotes: exec required")
	}
	return &PostgresRepository{pool: exec}
}

const quoteColumns = `id, items, description, total_cents, scale_level, ai_explanation, source, image_key,
	requires_approval, approval_status, approved_price_cents, admin_notes, approved_by, approved_at, created_at`

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, q *Quote) error {
	items, err := json.Marshal(q.Items)
	if err != nil {
		return fmt.Errorf("quotes: marshal items: %w", err)
	}
	query := `
		INSERT INTO quotes (id, items, description, total_cents, scale_level, ai_explanation, source, image_key,
			requires_approval, approval_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, query,
		q.ID,
		items,
		q.Description,
		ToCents(q.TotalPrice),
		q.ScaleLevel,
		q.AIExplanation,
		q.Source,
		q.ImageKey,
		q.RequiresApproval,
		string(q.ApprovalStatus),
	).Scan(&q.CreatedAt); err != nil {
		return fmt.Errorf("quotes: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches a single quote.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = $1`
	q, err := scanQuote(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("quotes: get failed: %w", err)
	}
	return q, nil
}

// ListByApprovalStatus returns quotes in a review state, oldest first.
func (r *PostgresRepository) ListByApprovalStatus(ctx context.Context, status ApprovalStatus) ([]*Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE approval_status = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("quotes: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("quotes: scan failed: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// UpdateReview persists an admin decision. Only a quote still pending
// approval is written; otherwise ErrAlreadyReviewed is returned.
func (r *PostgresRepository) UpdateReview(ctx context.Context, q *Quote) error {
	var approvedCents *int64
	if q.ApprovedPrice != nil {
		cents := ToCents(*q.ApprovedPrice)
		approvedCents = &cents
	}
	query := `
		UPDATE quotes
		SET approval_status = $2, approved_price_cents = $3, admin_notes = $4, approved_by = $5, approved_at = $6
		WHERE id = $1 AND approval_status = 'pending_approval'
	`
	ct, err := r.pool.Exec(ctx, query, q.ID, string(q.ApprovalStatus), approvedCents, q.AdminNotes, q.ApprovedBy, q.ApprovedAt)
	if err != nil {
		return fmt.Errorf("quotes: update review failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, q.ID); err != nil {
			return err
		}
		return ErrAlreadyReviewed
	}
	return nil
}

// ApprovalStats aggregates the review queue in one pass.
func (r *PostgresRepository) ApprovalStats(ctx context.Context) (ApprovalStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE requires_approval),
			COUNT(*) FILTER (WHERE approval_status = 'pending_approval'),
			COUNT(*) FILTER (WHERE approval_status = 'approved'),
			COUNT(*) FILTER (WHERE approval_status = 'rejected'),
			COUNT(*) FILTER (WHERE approval_status = 'auto_approved')
		FROM quotes
	`
	var stats ApprovalStats
	if err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalRequiringApproval,
		&stats.PendingApproval,
		&stats.Approved,
		&stats.Rejected,
		&stats.AutoApproved,
	); err != nil {
		return ApprovalStats{}, fmt.Errorf("quotes: stats failed: %w", err)
	}
	return stats, nil
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var (
		q             Quote
		items         []byte
		totalCents    int64
		status        string
		approvedCents *int64
		approvedAt    *time.Time
	)
	if err := row.Scan(
		&q.ID,
		&items,
		&q.Description,
		&totalCents,
		&q.ScaleLevel,
		&q.AIExplanation,
		&q.Source,
		&q.ImageKey,
		&q.RequiresApproval,
		&status,
		&approvedCents,
		&q.AdminNotes,
		&q.ApprovedBy,
		&approvedAt,
		&q.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &q.Items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	}
	q.TotalPrice = FromCents(totalCents)
	q.ApprovalStatus = ApprovalStatus(status)
	if approvedCents != nil {
		price := FromCents(*approvedCents)
		q.ApprovedPrice = &price
	}
	q.ApprovedAt = approvedAt
	hydrate(&q)
	return &q, nil
}

// hydrate fills the fields derived from scale level and price.
func hydrate(q *Quote) {
	q.SizeTier = SizeTier(q.ScaleLevel)
	q.HighPriority = q.ScaleLevel >= HighPriorityThreshold
	q.Breakdown = BreakdownFor(q.TotalPrice)
	if q.Items == nil {
		q.Items = []Item{}
	}
}
