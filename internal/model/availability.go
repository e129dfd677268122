package model

import (
	"time"

	"github.com/jwalitptl/dental-scheduler/pkg/interval"
)

// AvailabilityWindow is a span during which a provider accepts bookings.
type AvailabilityWindow struct {
	ID         int64     `db:"id" json:"id"`
	ProviderID int64     `db:"provider_id" json:"providerId"`
	StartTime  time.Time `db:"start_time" json:"startTime"`
	EndTime    time.Time `db:"end_time" json:"endTime"`
}

func (w *AvailabilityWindow) Interval() interval.Interval {
	return interval.New(w.StartTime, w.EndTime)
}

type AvailabilityWindowRequest struct {
	ProviderID int64     `json:"providerId" validate:"required,gt=0"`
	StartTime  time.Time `json:"startTime" validate:"required"`
	EndTime    time.Time `json:"endTime" validate:"required"`
}

// Slot is a synthesized, non-persisted booking candidate. IDs are only
// unique within one resolver response.
type Slot struct {
	ID         int       `json:"id"`
	ProviderID int64     `json:"providerId"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
}

// SlotQuery describes an availability lookup.
type SlotQuery struct {
	ProviderID      int64
	From            time.Time
	To              time.Time
	DurationMinutes int
	StepMinutes     int
}
