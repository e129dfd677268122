package model

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "Scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "Confirmed"
	AppointmentStatusCancelled AppointmentStatus = "Cancelled"
	// AppointmentStatusCompleted is never persisted. It is derived on read.
	AppointmentStatusCompleted AppointmentStatus = "Completed"
)

// Appointment is a reservation of a provider's time by a patient.
type Appointment struct {
	ID              int64             `db:"id" json:"id"`
	UserID          string            `db:"user_id" json:"userId"`
	ProviderID      int64             `db:"provider_id" json:"providerId"`
	StartTime       time.Time         `db:"start_time" json:"startTime"`
	EndTime         time.Time         `db:"end_time" json:"endTime"`
	Status          AppointmentStatus `db:"status" json:"status"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
	Version         int               `db:"version" json:"version"`
	Reminder24hSent bool              `db:"reminder_24h_sent" json:"reminder24hSent"`
	CreatedAt       time.Time         `db:"created_at" json:"createdAt"`
}

// EffectiveStatus returns the status presented to clients: a scheduled or
// confirmed appointment that has already ended reads as completed.
func (a *Appointment) EffectiveStatus(now time.Time) AppointmentStatus {
	if a.EndTime.Before(now) &&
		(a.Status == AppointmentStatusScheduled || a.Status == AppointmentStatusConfirmed) {
		return AppointmentStatusCompleted
	}
	return a.Status
}

// WithEffectiveStatus returns a copy carrying the derived status. Storage is untouched.
func (a *Appointment) WithEffectiveStatus(now time.Time) *Appointment {
	out := *a
	out.Status = a.EffectiveStatus(now)
	return &out
}

// AppointmentSummary is the patient-facing view of an own appointment.
type AppointmentSummary struct {
	ID        int64             `json:"id"`
	StartTime time.Time         `json:"startTime"`
	EndTime   time.Time         `json:"endTime"`
	Status    AppointmentStatus `json:"status"`
	Notes     string            `json:"notes,omitempty"`
}

// BookAppointmentRequest is a patient booking. The patient is the caller.
type BookAppointmentRequest struct {
	ProviderID int64     `json:"providerId" validate:"required,gt=0"`
	StartTime  time.Time `json:"startTime" validate:"required"`
	EndTime    time.Time `json:"endTime" validate:"required"`
	Notes      string    `json:"notes" validate:"max=1000"`
}

// CreateAppointmentRequest is a staff booking on behalf of a patient.
type CreateAppointmentRequest struct {
	UserID     string    `json:"userId" validate:"required"`
	ProviderID int64     `json:"providerId" validate:"required,gt=0"`
	StartTime  time.Time `json:"startTime" validate:"required"`
	EndTime    time.Time `json:"endTime" validate:"required"`
	Notes      string    `json:"notes" validate:"max=1000"`
}

// UpdateAppointmentRequest replaces the schedule of an appointment. Version,
// when set, must match the stored concurrency token.
type UpdateAppointmentRequest struct {
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required"`
	Notes     *string   `json:"notes" validate:"omitempty,max=1000"`
	Version   *int      `json:"version"`
}

// AppointmentFilters narrows staff listings. Zero values mean unset.
type AppointmentFilters struct {
	ProviderID int64
	From       time.Time
	To         time.Time
}
