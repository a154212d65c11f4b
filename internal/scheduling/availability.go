package scheduling

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("text2toss.internal.scheduling")

// MaxRangeDays caps availability-range queries.
const MaxRangeDays = 62

// Range status labels.
const (
	StatusRestricted  = "restricted"
	StatusFullyBooked = "fully_booked"
	StatusLimited     = "limited"
	StatusAvailable   = "available"
)

// BookedSlotReader exposes the slots taken by non-cancelled bookings.
type BookedSlotReader interface {
	BookedSlots(ctx context.Context, date string) ([]string, error)
	BookedSlotCounts(ctx context.Context, startDate, endDate string) (map[string]int, error)
}

// DayAvailability is the response of GET /availability/{date}.
type DayAvailability struct {
	Date              string   `json:"date"`
	AvailableSlots    []string `json:"available_slots"`
	BookedSlots       []string `json:"booked_slots"`
	IsRestricted      bool     `json:"is_restricted"`
	RestrictionReason string   `json:"restriction_reason,omitempty"`
}

// DaySummary is one entry of GET /availability-range.
type DaySummary struct {
	AvailableCount int    `json:"available_count"`
	TotalSlots     int    `json:"total_slots"`
	IsRestricted   bool   `json:"is_restricted"`
	Status         string `json:"status"`
}

// Service answers availability questions against the booking store.
type Service struct {
	booked BookedSlotReader
	loc    *time.Location
	now    func() time.Time
}

func NewService(booked BookedSlotReader, loc *time.Location) *Service {
	if booked == nil {
		panic("scheduling: booked slot reader required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{booked: booked, loc: loc, now: time.Now}
}

// Location is the business timezone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Today is the current date in the business timezone.
func (s *Service) Today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
}

// Day lists free and taken slots for one date.
func (s *Service) Day(ctx context.Context, date string) (*DayAvailability, error) {
	ctx, span := tracer.Start(ctx, "scheduling.day")
	defer span.End()
	span.SetAttributes(attribute.String("scheduling.date", date))

	d, err := ParseDate(date, s.loc)
	if err != nil {
		return nil, err
	}
	booked, err := s.booked.BookedSlots(ctx, d.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("scheduling: booked slots: %w", err)
	}
	out := &DayAvailability{
		Date:           d.Format(DateLayout),
		AvailableSlots: []string{},
		BookedSlots:    sortSlots(booked),
	}
	if reason := RestrictionReason(d, s.Today()); reason != "" {
		out.IsRestricted = true
		out.RestrictionReason = reason
		return out, nil
	}
	taken := make(map[string]bool, len(booked))
	for _, slot := range booked {
		taken[slot] = true
	}
	for _, slot := range TimeSlots {
		if !taken[slot] {
			out.AvailableSlots = append(out.AvailableSlots, slot)
		}
	}
	return out, nil
}

// Range summarizes availability for every date in [start, end].
func (s *Service) Range(ctx context.Context, start, end string) (map[string]DaySummary, error) {
	ctx, span := tracer.Start(ctx, "scheduling.range")
	defer span.End()

	from, err := ParseDate(start, s.loc)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(end, s.loc)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end_date is before start_date", ErrInvalidRange)
	}
	days := InclusiveDays(from, to)
	if days > MaxRangeDays {
		return nil, fmt.Errorf("%w: at most %d days", ErrInvalidRange, MaxRangeDays)
	}
	span.SetAttributes(attribute.Int("scheduling.days", days))

	counts, err := s.booked.BookedSlotCounts(ctx, from.Format(DateLayout), to.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("scheduling: booked counts: %w", err)
	}
	today := s.Today()
	out := make(map[string]DaySummary, days)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		summary := DaySummary{TotalSlots: TotalSlots}
		if RestrictionReason(d, today) != "" {
			summary.IsRestricted = true
			summary.Status = StatusRestricted
			out[key] = summary
			continue
		}
		summary.AvailableCount = max(TotalSlots-counts[key], 0)
		summary.Status = statusFor(summary.AvailableCount)
		out[key] = summary
	}
	return out, nil
}

func statusFor(available int) string {
	switch {
	case available <= 0:
		return StatusFullyBooked
	case available <= 2:
		return StatusLimited
	default:
		return StatusAvailable
	}
}

func sortSlots(slots []string) []string {
	out := make([]string, 0, len(slots))
	for _, slot := range TimeSlots {
		for _, b := range slots {
			if b == slot {
				out = append(out, slot)
				break
			}
		}
	}
	return out
}
