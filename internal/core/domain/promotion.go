package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventPromotion struct {
	EventID          string
	EventName        string
	StartDate        time.Time
	EndDate          time.Time
	AffectedProducts []string
	DiscountRate     decimal.Decimal
}

// IsActiveOn reports whether date falls into the promotion range.
// Both bounds are inclusive and compared by calendar day.
func (p EventPromotion) IsActiveOn(date time.Time) bool {
	d := truncateDay(date)
	return !d.Before(truncateDay(p.StartDate)) && !d.After(truncateDay(p.EndDate))
}

// FindActivePromotion returns the first promotion active on date.
func FindActivePromotion(
	ps []EventPromotion, date time.Time,
) (EventPromotion, bool) {
	for _, p := range ps {
		if p.IsActiveOn(date) {
			return p, true
		}
	}
	return EventPromotion{}, false
}

// A DiscountedPrice describes a single product repriced by a promotion.
type DiscountedPrice struct {
	ProductID       string
	BasePrice       decimal.Decimal
	NewCurrentPrice decimal.Decimal
	DiscountRate    decimal.Decimal
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// A SeasonalScheduleResult reports the promotion found for a date and the
// response of the seasonal handler invoked for it.
//
// ActiveEvent and UpdatedProducts are nil when no promotion is active.
type SeasonalScheduleResult struct {
	SelectedDate    time.Time
	ActiveEvent     *EventPromotion
	UpdatedProducts *Response
}
