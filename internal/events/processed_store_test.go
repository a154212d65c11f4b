package events

import (
	"context"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestProcessedStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newProcessedStoreWithExec(mock)

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs("stripe", "evt").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(1))
	processed, err := store.AlreadyProcessed(context.Background(), "stripe", "evt")
	if err != nil || !processed {
		t.Fatalf("expected existing row, got processed=%v err=%v", processed, err)
	}

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs("stripe", "evt-miss").WillReturnError(pgx.ErrNoRows)
	processed, err = store.AlreadyProcessed(context.Background(), "stripe", "evt-miss")
	if err != nil || processed {
		t.Fatalf("expected missing row, got processed=%v err=%v", processed, err)
	}

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("stripe", "evt-new").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ok, err := store.MarkProcessed(context.Background(), "stripe", "evt-new")
	if err != nil || !ok {
		t.Fatalf("expected mark processed success, got %v %v", ok, err)
	}

	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM processed_events").WithArgs(cutoff).WillReturnResult(pgxmock.NewResult("DELETE", 4))
	n, err := store.Prune(context.Background(), cutoff)
	if err != nil || n != 4 {
		t.Fatalf("expected 4 pruned, got %d %v", n, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMemoryProcessedStorePrune(t *testing.T) {
	store := NewMemoryProcessedStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base }
	_, _ = store.MarkProcessed(ctx, "stripe", "evt_old")
	store.now = func() time.Time { return base.Add(48 * time.Hour) }
	_, _ = store.MarkProcessed(ctx, "stripe", "evt_new")

	n, _ := store.Prune(ctx, base.Add(time.Hour))
	if n != 1 {
		t.Fatalf("expected one pruned, got %d", n)
	}
	if seen, _ := store.AlreadyProcessed(ctx, "stripe", "evt_old"); seen {
		t.Fatal("old event should be forgotten")
	}
	if seen, _ := store.AlreadyProcessed(ctx, "stripe", "evt_new"); !seen {
		t.Fatal("recent event should be kept")
	}
}

func TestMemoryProcessedStore(t *testing.T) {
	store := NewMemoryProcessedStore()
	ctx := context.Background()

	seen, _ := store.AlreadyProcessed(ctx, "stripe", "evt_1")
	if seen {
		t.Fatal("expected unseen event")
	}
	first, _ := store.MarkProcessed(ctx, "stripe", "evt_1")
	second, _ := store.MarkProcessed(ctx, "stripe", "evt_1")
	if !first || second {
		t.Fatalf("expected first mark to win, got first=%v second=%v", first, second)
	}
	seen, _ = store.AlreadyProcessed(ctx, "stripe", "evt_1")
	if !seen {
		t.Fatal("expected event to be recorded")
	}
	other, _ := store.AlreadyProcessed(ctx, "venmo", "evt_1")
	if other {
		t.Fatal("providers must not share event ids")
	}
}
