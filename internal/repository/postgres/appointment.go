package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
)

const appointmentColumns = `id, user_id, provider_id, start_time, end_time, status, notes,
		version, reminder_24h_sent, created_at`

type appointmentRepository struct {
	*BaseRepository
}

func NewAppointmentRepository(base *BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{BaseRepository: base}
}

func (r *appointmentRepository) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment %d: %w", id, mapError(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	var args []interface{}

	if filters != nil {
		if !filters.From.IsZero() {
			args = append(args, filters.From)
			query += fmt.Sprintf(" AND end_time >= $%d", len(args))
		}
		if !filters.To.IsZero() {
			args = append(args, filters.To)
			query += fmt.Sprintf(" AND start_time <= $%d", len(args))
		}
		if filters.ProviderID > 0 {
			args = append(args, filters.ProviderID)
			query += fmt.Sprintf(" AND provider_id = $%d", len(args))
		}
	}
	query += " ORDER BY start_time, id"

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListByUser(ctx context.Context, userID string) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE user_id = $1
		ORDER BY start_time DESC, id DESC`

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list appointments for user: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListActiveOverlapping(ctx context.Context, providerID int64, from, to time.Time) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE provider_id = $1
		  AND status <> $2
		  AND start_time < $3
		  AND end_time > $4
		ORDER BY start_time`

	appointments := []*model.Appointment{}
	err := r.db.SelectContext(ctx, &appointments, query,
		providerID, model.AppointmentStatusCancelled, to, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListDueReminders(ctx context.Context, from, to time.Time) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE status <> $1
		  AND reminder_24h_sent = FALSE
		  AND start_time > $2
		  AND start_time <= $3
		ORDER BY start_time`

	appointments := []*model.Appointment{}
	err := r.db.SelectContext(ctx, &appointments, query,
		model.AppointmentStatusCancelled, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) Cancel(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `UPDATE appointments
		SET status = $1, version = version + 1
		WHERE id = $2
		RETURNING ` + appointmentColumns

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, model.AppointmentStatusCancelled, id); err != nil {
		return nil, fmt.Errorf("failed to cancel appointment %d: %w", id, mapError(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return expectOne(res, "appointment")
}
