package schedule

import (
	"fmt"
	"time"

	// Embedded zone database so the business timezone resolves on minimal images.
	_ "time/tzdata"

	"github.com/spec-kit/support-router/internal/config"
)

// BusinessHours is a weekday [start, end) window in a fixed timezone.
type BusinessHours struct {
	loc   *time.Location
	start int
	end   int
}

// NewBusinessHours resolves the configured timezone.
func NewBusinessHours(cfg config.FlowConfig) (*BusinessHours, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load business timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.BusinessStartHour >= cfg.BusinessEndHour {
		return nil, fmt.Errorf("invalid business hours %d-%d", cfg.BusinessStartHour, cfg.BusinessEndHour)
	}
	return &BusinessHours{loc: loc, start: cfg.BusinessStartHour, end: cfg.BusinessEndHour}, nil
}

// Contains reports whether t falls inside business hours.
func (b *BusinessHours) Contains(t time.Time) bool {
	local := t.In(b.loc)
	return isWeekday(local) && local.Hour() >= b.start && local.Hour() < b.end
}

// NextSlot returns t itself when inside business hours, otherwise the next
// opening in the business timezone.
func (b *BusinessHours) NextSlot(t time.Time) time.Time {
	local := t.In(b.loc)
	if isWeekday(local) && local.Hour() < b.start {
		return b.opening(local)
	}
	if b.Contains(local) {
		return local
	}
	next := b.opening(local).AddDate(0, 0, 1)
	for !isWeekday(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (b *BusinessHours) opening(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), b.start, 0, 0, 0, b.loc)
}

func isWeekday(t time.Time) bool {
	return t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
}
