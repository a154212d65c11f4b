package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var transactionColumns = []string{"id", "session_id", "booking_id", "amount_cents", "currency", "status", "payment_status", "created_at", "updated_at"}

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO payment_transactions").
		WithArgs(pgxmock.AnyArg(), "cs_1", "b-1", int64(5000), "usd", SessionOpen, PaymentStatusUnpaid).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	tx := &Transaction{SessionID: "cs_1", BookingID: "b-1", AmountCents: 5000, Currency: "usd", Status: SessionOpen, PaymentStatus: PaymentStatusUnpaid}
	if err := repo.Create(context.Background(), tx); err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.ID == "" || !tx.CreatedAt.Equal(now) {
		t.Fatalf("expected id and timestamps populated, got %+v", tx)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_GetBySessionID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, session_id").WithArgs("cs_1").
		WillReturnRows(pgxmock.NewRows(transactionColumns).AddRow("tx-1", "cs_1", "b-1", int64(5000), "usd", SessionComplete, PaymentStatusPaid, now, now))
	mock.ExpectQuery("SELECT id, session_id").WithArgs("cs_missing").WillReturnError(pgx.ErrNoRows)

	tx, err := repo.GetBySessionID(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !tx.Terminal() || tx.BookingID != "b-1" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if _, err := repo.GetBySessionID(context.Background(), "cs_missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	mock.ExpectExec("UPDATE payment_transactions").WithArgs("cs_1", SessionComplete, PaymentStatusPaid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE payment_transactions").WithArgs("cs_2", SessionExpired, PaymentStatusUnpaid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateStatus(context.Background(), "cs_1", SessionComplete, PaymentStatusPaid); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := repo.UpdateStatus(context.Background(), "cs_2", SessionExpired, PaymentStatusUnpaid); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInMemoryRepository(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &Transaction{SessionID: "cs_1", BookingID: "b-1", Status: SessionOpen, PaymentStatus: PaymentStatusUnpaid}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.UpdateStatus(ctx, "cs_1", SessionComplete, PaymentStatusPaid); err != nil {
		t.Fatalf("update: %v", err)
	}
	tx, err := repo.GetBySessionID(ctx, "cs_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if tx.PaymentStatus != PaymentStatusPaid || tx.ID == "" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if err := repo.UpdateStatus(ctx, "cs_missing", SessionExpired, PaymentStatusUnpaid); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
