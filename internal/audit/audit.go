// Package audit keeps an append-only record of admin console actions.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action names what an admin did.
type Action string

const (
	ActionQuoteReviewed     Action = "quote.reviewed"
	ActionBookingUpdated    Action = "booking.updated"
	ActionBookingCompleted  Action = "booking.completed"
	ActionCustomerNotified  Action = "booking.customer_notified"
	ActionGalleryUploaded   Action = "gallery.uploaded"
	ActionReelSlotChanged   Action = "gallery.reel_slot_changed"
	ActionTempImagesCleaned Action = "photos.temp_cleaned"
)

// Event is one immutable audit record.
type Event struct {
	ID         string          `json:"id"`
	Action     Action          `json:"action"`
	Actor      string          `json:"actor"`
	TargetType string          `json:"target_type,omitempty"`
	TargetID   string          `json:"target_id,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Filter narrows Recent.
type Filter struct {
	Action   Action
	TargetID string
	Since    time.Time
	Limit    int
}

const defaultLimit = 100

func (f Filter) limit() int {
	if f.Limit <= 0 || f.Limit > 500 {
		return defaultLimit
	}
	return f.Limit
}

// NewEvent builds an event, marshalling details when present.
func NewEvent(action Action, actor, targetType, targetID string, details any) Event {
	e := Event{Action: action, Actor: actor, TargetType: targetType, TargetID: targetID}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			e.Details = raw
		}
	}
	return e
}

func (e *Event) fill(now time.Time) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now.UTC()
	}
	if e.Actor == "" {
		e.Actor = "admin"
	}
}

// Service stores events in Postgres through database/sql.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record writes an audit event.
func (s *Service) Record(ctx context.Context, event Event) error {
	event.fill(time.Now())

	query := `
		INSERT INTO admin_audit_events (id, action, actor, target_type, target_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Action),
		event.Actor,
		nullString(event.TargetType),
		nullString(event.TargetID),
		nullJSON(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to record event: %w", err)
	}
	return nil
}

// Recent returns events newest first.
func (s *Service) Recent(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, action, actor, target_type, target_id, details, created_at
		FROM admin_audit_events
		WHERE 1 = 1
	`
	var args []any
	argIdx := 1

	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, string(filter.Action))
		argIdx++
	}
	if filter.TargetID != "" {
		query += fmt.Sprintf(" AND target_id = $%d", argIdx)
		args = append(args, filter.TargetID)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			e                    Event
			action               string
			targetType, targetID sql.NullString
			details              []byte
		)
		if err := rows.Scan(&e.ID, &action, &e.Actor, &targetType, &targetID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: failed to scan event: %w", err)
		}
		e.Action = Action(action)
		e.TargetType = targetType.String
		e.TargetID = targetID.String
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MemoryLog keeps events in process for development without a database.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
	now    func() time.Time
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{now: time.Now}
}

func (m *MemoryLog) Record(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.fill(m.now())
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryLog) Recent(_ context.Context, filter Filter) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Event{}
	for _, e := range m.events {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.TargetID != "" && e.TargetID != filter.TargetID {
			continue
		}
		if !filter.Since.IsZero() && e.CreatedAt.Before(filter.Since) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > filter.limit() {
		out = out[:filter.limit()]
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
