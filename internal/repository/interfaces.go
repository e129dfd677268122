package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/dental-scheduler/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would make two records of one
	// provider overlap in time.
	ErrConflict = errors.New("overlapping record")
	// ErrStaleVersion is returned when the caller's concurrency token no longer
	// matches the stored row.
	ErrStaleVersion = errors.New("stale version")
)

// All repository interfaces in one file
type (
	AppointmentRepository interface {
		Get(ctx context.Context, id int64) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		ListByUser(ctx context.Context, userID string) ([]*model.Appointment, error)
		// ListActiveOverlapping returns non-cancelled appointments of the provider
		// overlapping [from, to), ordered by start.
		ListActiveOverlapping(ctx context.Context, providerID int64, from, to time.Time) ([]*model.Appointment, error)
		// ListDueReminders returns non-cancelled appointments without a sent
		// reminder whose start lies in (from, to].
		ListDueReminders(ctx context.Context, from, to time.Time) ([]*model.Appointment, error)
		Cancel(ctx context.Context, id int64) (*model.Appointment, error)
		Delete(ctx context.Context, id int64) error
	}

	AvailabilityRepository interface {
		Get(ctx context.Context, id int64) (*model.AvailabilityWindow, error)
		// ListOverlapping returns the provider's windows overlapping [from, to), ordered by start.
		ListOverlapping(ctx context.Context, providerID int64, from, to time.Time) ([]*model.AvailabilityWindow, error)
		// ListWithin returns the provider's windows fully inside [from, to], ordered by start.
		ListWithin(ctx context.Context, providerID int64, from, to time.Time) ([]*model.AvailabilityWindow, error)
		Delete(ctx context.Context, id int64) error
	}

	NotificationRepository interface {
		Create(ctx context.Context, n *model.Notification) error
		List(ctx context.Context, userID string, filters *model.NotificationFilters) ([]*model.Notification, error)
		CountUnread(ctx context.Context, userID string) (int, error)
		MarkRead(ctx context.Context, id int64, userID string) error
		MarkAllRead(ctx context.Context, userID string) (int64, error)
	}

	UserRepository interface {
		Get(ctx context.Context, id string) (*model.User, error)
	}

	TreatmentRepository interface {
		Create(ctx context.Context, t *model.Treatment) error
		Get(ctx context.Context, id int64) (*model.Treatment, error)
		Update(ctx context.Context, t *model.Treatment) error
		Delete(ctx context.Context, id int64) error
		List(ctx context.Context) ([]*model.Treatment, error)
	}

	// ProviderTx is a transaction-scoped handle. Every ProviderTx for the same
	// provider is serialised, so a conflict check followed by a write inside
	// one ProviderTx cannot race another.
	ProviderTx interface {
		HasAppointmentConflict(ctx context.Context, providerID int64, start, end time.Time, excludeID int64) (bool, error)
		CreateAppointment(ctx context.Context, a *model.Appointment) error
		GetAppointmentForUpdate(ctx context.Context, id int64) (*model.Appointment, error)
		UpdateAppointmentSchedule(ctx context.Context, a *model.Appointment, expectedVersion int) error

		HasWindowOverlap(ctx context.Context, providerID int64, start, end time.Time, excludeID int64) (bool, error)
		CreateWindow(ctx context.Context, w *model.AvailabilityWindow) error
		UpdateWindow(ctx context.Context, w *model.AvailabilityWindow) error
	}

	// ReminderTx is the commit unit of one reminder: the claim and the
	// notification become visible together or not at all.
	ReminderTx interface {
		// LockDueReminder row-locks the appointment if its reminder is still
		// pending. false means another sweep holds it or already sent it.
		LockDueReminder(ctx context.Context, appointmentID int64) (bool, error)
		CreateNotification(ctx context.Context, n *model.Notification) error
		MarkReminderSent(ctx context.Context, appointmentID int64) error
	}

	UnitOfWork interface {
		WithinProviderTx(ctx context.Context, providerID int64, fn func(tx ProviderTx) error) error
		WithinReminderTx(ctx context.Context, fn func(tx ReminderTx) error) error
	}
)

// Repositories bundles one backend's implementations.
type Repositories struct {
	Appointments  AppointmentRepository
	Availability  AvailabilityRepository
	Notifications NotificationRepository
	Users         UserRepository
	Treatments    TreatmentRepository
	UnitOfWork    UnitOfWork
}
