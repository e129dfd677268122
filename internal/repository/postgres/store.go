package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
)

// Store runs multi-statement units of work. Provider transactions take a
// transaction-scoped advisory lock keyed by provider id, so conflict checks
// and writes for one provider never interleave. The appointments exclusion
// constraint backs this up at the storage level.
type Store struct {
	*BaseRepository
}

func NewStore(base *BaseRepository) *Store {
	return &Store{BaseRepository: base}
}

var _ repository.UnitOfWork = (*Store)(nil)

func (s *Store) WithinProviderTx(ctx context.Context, providerID int64, fn func(tx repository.ProviderTx) error) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, providerID); err != nil {
			return fmt.Errorf("failed to lock provider %d: %w", providerID, err)
		}
		return fn(&providerTx{tx: tx})
	})
}

func (s *Store) WithinReminderTx(ctx context.Context, fn func(tx repository.ReminderTx) error) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&reminderTx{tx: tx})
	})
}

type providerTx struct {
	tx *sqlx.Tx
}

func (p *providerTx) HasAppointmentConflict(ctx context.Context, providerID int64, start, end time.Time, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE provider_id = $1
		  AND status <> $2
		  AND start_time < $3
		  AND end_time > $4
		  AND id <> $5
	)`

	var exists bool
	err := p.tx.GetContext(ctx, &exists, query,
		providerID, model.AppointmentStatusCancelled, end, start, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to check appointment conflict: %w", err)
	}
	return exists, nil
}

func (p *providerTx) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	query := `INSERT INTO appointments (
			user_id, provider_id, start_time, end_time, status, notes,
			version, reminder_24h_sent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := p.tx.QueryRowxContext(ctx, query,
		a.UserID, a.ProviderID, a.StartTime, a.EndTime, a.Status, a.Notes,
		a.Version, a.Reminder24hSent, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", mapError(err))
	}
	return nil
}

func (p *providerTx) GetAppointmentForUpdate(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`

	var a model.Appointment
	if err := p.tx.GetContext(ctx, &a, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment %d: %w", id, mapError(err))
	}
	return &a, nil
}

func (p *providerTx) UpdateAppointmentSchedule(ctx context.Context, a *model.Appointment, expectedVersion int) error {
	query := `UPDATE appointments
		SET start_time = $1, end_time = $2, notes = $3, version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version`

	err := p.tx.QueryRowxContext(ctx, query,
		a.StartTime, a.EndTime, a.Notes, a.ID, expectedVersion,
	).Scan(&a.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("appointment %d at version %d: %w", a.ID, expectedVersion, repository.ErrStaleVersion)
	}
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", mapError(err))
	}
	return nil
}

func (p *providerTx) HasWindowOverlap(ctx context.Context, providerID int64, start, end time.Time, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM availability_windows
		WHERE provider_id = $1
		  AND start_time < $2
		  AND end_time > $3
		  AND id <> $4
	)`

	var exists bool
	if err := p.tx.GetContext(ctx, &exists, query, providerID, end, start, excludeID); err != nil {
		return false, fmt.Errorf("failed to check availability overlap: %w", err)
	}
	return exists, nil
}

func (p *providerTx) CreateWindow(ctx context.Context, w *model.AvailabilityWindow) error {
	query := `INSERT INTO availability_windows (provider_id, start_time, end_time)
		VALUES ($1, $2, $3)
		RETURNING id`

	if err := p.tx.QueryRowxContext(ctx, query, w.ProviderID, w.StartTime, w.EndTime).Scan(&w.ID); err != nil {
		return fmt.Errorf("failed to create availability window: %w", mapError(err))
	}
	return nil
}

func (p *providerTx) UpdateWindow(ctx context.Context, w *model.AvailabilityWindow) error {
	query := `UPDATE availability_windows
		SET provider_id = $1, start_time = $2, end_time = $3
		WHERE id = $4`

	res, err := p.tx.ExecContext(ctx, query, w.ProviderID, w.StartTime, w.EndTime, w.ID)
	if err != nil {
		return fmt.Errorf("failed to update availability window: %w", mapError(err))
	}
	return expectOne(res, "availability window")
}

type reminderTx struct {
	tx *sqlx.Tx
}

func (r *reminderTx) LockDueReminder(ctx context.Context, appointmentID int64) (bool, error) {
	query := `SELECT id FROM appointments
		WHERE id = $1
		  AND reminder_24h_sent = FALSE
		  AND status <> $2
		FOR UPDATE SKIP LOCKED`

	var id int64
	err := r.tx.GetContext(ctx, &id, query, appointmentID, model.AppointmentStatusCancelled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock reminder: %w", err)
	}
	return true, nil
}

func (r *reminderTx) CreateNotification(ctx context.Context, n *model.Notification) error {
	return insertNotification(ctx, r.tx, n)
}

func (r *reminderTx) MarkReminderSent(ctx context.Context, appointmentID int64) error {
	res, err := r.tx.ExecContext(ctx,
		`UPDATE appointments SET reminder_24h_sent = TRUE WHERE id = $1`, appointmentID)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return expectOne(res, "appointment")
}

// NewRepositories wires every postgres repository over one pool.
func NewRepositories(db *sqlx.DB) repository.Repositories {
	base := NewBaseRepository(db)
	return repository.Repositories{
		Appointments:  NewAppointmentRepository(base),
		Availability:  NewAvailabilityRepository(base),
		Notifications: NewNotificationRepository(base),
		Users:         NewUserRepository(base),
		Treatments:    NewTreatmentRepository(base),
		UnitOfWork:    NewStore(base),
	}
}
