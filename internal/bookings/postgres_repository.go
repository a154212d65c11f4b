package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/internal/scheduling"
)

const uniqueViolation = "23505"

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores bookings in the relational database. The
// bookings_active_slot_idx partial unique index enforces one active booking
// per pickup window.
type PostgresRepository struct {
	pool rowQuerier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithExec(exec rowQuerier) *PostgresRepository {
	if exec == nil {
		panic("bookings: exec required")
	}
	return &PostgresRepository{pool: exec}
}

const bookingColumns = `id, quote_id, pickup_date, pickup_time, address, phone, special_instructions,
	curbside_confirmed, sms_notifications, payment_method, payment_status, status, admin_notes,
	completion_photo_key, completion_note, completed_at, requires_customer_approval, customer_approval_token,
	original_price_cents, adjusted_price_cents, customer_notes, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (id, quote_id, pickup_date, pickup_time, address, phone, special_instructions,
			curbside_confirmed, sms_notifications, payment_method, payment_status, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		b.ID,
		b.QuoteID,
		b.PickupDate,
		b.PickupTime,
		b.Address,
		b.Phone,
		b.SpecialInstructions,
		b.CurbsideConfirmed,
		b.SMSNotifications,
		b.PaymentMethod,
		b.PaymentStatus,
		string(b.Status),
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("bookings: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: get failed: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) GetByApprovalToken(ctx context.Context, token string) (*Booking, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_approval_token = $1`
	b, err := scanBooking(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("bookings: get by token failed: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	var args []any
	if !filter.IncludeCancelled {
		query += ` AND status <> 'cancelled'`
	}
	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		query += fmt.Sprintf(" AND pickup_date >= $%d", len(args))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		query += fmt.Sprintf(" AND pickup_date <= $%d", len(args))
	}
	query += ` ORDER BY pickup_date, pickup_time`
	return r.query(ctx, query, args...)
}

func (r *PostgresRepository) ListByQuote(ctx context.Context, quoteID string) ([]*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE quote_id = $1 ORDER BY pickup_date, pickup_time`
	return r.query(ctx, query, quoteID)
}

const updateBookingSQL = `
	UPDATE bookings
	SET pickup_date = $2, pickup_time = $3, payment_status = $4, status = $5, admin_notes = $6,
		completion_photo_key = $7, completion_note = $8, completed_at = $9,
		requires_customer_approval = $10, customer_approval_token = $11,
		original_price_cents = $12, adjusted_price_cents = $13, customer_notes = $14,
		updated_at = now()
	WHERE id = $1`

func (r *PostgresRepository) Update(ctx context.Context, b *Booking) error {
	err := r.pool.QueryRow(ctx, updateBookingSQL+` RETURNING updated_at`, updateArgs(b)...).Scan(&b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBookingNotFound
		}
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("bookings: update failed: %w", err)
	}
	return nil
}

// ConsumeApprovalToken writes b only while the stored row still holds token
// and is pending customer approval. A lost race returns ErrTokenNotFound.
func (r *PostgresRepository) ConsumeApprovalToken(ctx context.Context, token string, b *Booking) error {
	if token == "" {
		return ErrTokenNotFound
	}
	query := updateBookingSQL + ` AND customer_approval_token = $15 AND status = 'pending_customer_approval' RETURNING updated_at`
	args := append(updateArgs(b), token)
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenNotFound
		}
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("bookings: consume approval token failed: %w", err)
	}
	return nil
}

func updateArgs(b *Booking) []any {
	var photoKey, note string
	var completedAt *time.Time
	if b.Completion != nil {
		photoKey = b.Completion.PhotoKey
		note = b.Completion.Note
		completedAt = &b.Completion.CompletedAt
	}
	var token *string
	if b.CustomerApprovalToken != "" {
		token = &b.CustomerApprovalToken
	}
	return []any{
		b.ID,
		b.PickupDate,
		b.PickupTime,
		b.PaymentStatus,
		string(b.Status),
		b.AdminNotes,
		photoKey,
		note,
		completedAt,
		b.RequiresCustomerApproval,
		token,
		toCentsPtr(b.OriginalPrice),
		toCentsPtr(b.AdjustedPrice),
		b.CustomerNotes,
	}
}

// MarkPaid flips payment_status once; it returns false when already paid.
func (r *PostgresRepository) MarkPaid(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE bookings
		SET payment_status = 'paid', updated_at = now()
		WHERE id = $1 AND payment_status <> 'paid'
	`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("bookings: mark paid failed: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *PostgresRepository) BookedSlots(ctx context.Context, date string) ([]string, error) {
	query := `SELECT pickup_time FROM bookings WHERE pickup_date = $1 AND status <> 'cancelled'`
	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("bookings: booked slots failed: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("bookings: scan slot: %w", err)
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) BookedSlotCounts(ctx context.Context, startDate, endDate string) (map[string]int, error) {
	query := `
		SELECT pickup_date, COUNT(*)
		FROM bookings
		WHERE pickup_date BETWEEN $1 AND $2 AND status <> 'cancelled'
		GROUP BY pickup_date
	`
	rows, err := r.pool.Query(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("bookings: slot counts failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day time.Time
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("bookings: scan count: %w", err)
		}
		out[day.Format(scheduling.DateLayout)] = count
	}
	return out, rows.Err()
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bookings: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan failed: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	SortBySchedule(out)
	return out, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b             Booking
		pickupDate    time.Time
		status        string
		photoKey      string
		note          string
		completedAt   *time.Time
		token         *string
		originalCents *int64
		adjustedCents *int64
	)
	if err := row.Scan(
		&b.ID,
		&b.QuoteID,
		&pickupDate,
		&b.PickupTime,
		&b.Address,
		&b.Phone,
		&b.SpecialInstructions,
		&b.CurbsideConfirmed,
		&b.SMSNotifications,
		&b.PaymentMethod,
		&b.PaymentStatus,
		&status,
		&b.AdminNotes,
		&photoKey,
		&note,
		&completedAt,
		&b.RequiresCustomerApproval,
		&token,
		&originalCents,
		&adjustedCents,
		&b.CustomerNotes,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.PickupDate = pickupDate.Format(scheduling.DateLayout)
	b.Status = Status(status)
	if completedAt != nil {
		b.Completion = &Completion{PhotoKey: photoKey, Note: note, CompletedAt: *completedAt}
	}
	if token != nil {
		b.CustomerApprovalToken = *token
	}
	b.OriginalPrice = fromCentsPtr(originalCents)
	b.AdjustedPrice = fromCentsPtr(adjustedCents)
	return &b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func toCentsPtr(v *float64) *int64 {
	if v == nil {
		return nil
	}
	c := quotes.ToCents(*v)
	return &c
}

func fromCentsPtr(v *int64) *float64 {
	if v == nil {
		return nil
	}
	d := quotes.FromCents(*v)
	return &d
}
