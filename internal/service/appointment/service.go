package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
	apperrors "github.com/jwalitptl/dental-scheduler/pkg/errors"
	"github.com/jwalitptl/dental-scheduler/pkg/logger"
	"github.com/jwalitptl/dental-scheduler/pkg/metrics"
)

const (
	SourcePatient = "patient"
	SourceStaff   = "staff"

	msgEndBeforeStart = "end time must be after start time"
	msgInPast         = "cannot book in the past"
	msgAlreadyBooked  = "time already booked"
	msgStale          = "appointment was modified concurrently"
)

// Notifier receives post-commit events. Implementations must not fail the caller.
type Notifier interface {
	AppointmentBooked(ctx context.Context, a *model.Appointment)
	AppointmentAssigned(ctx context.Context, a *model.Appointment)
	AppointmentCancelled(ctx context.Context, a *model.Appointment)
	AppointmentUpdated(ctx context.Context, a *model.Appointment)
}

type UserLookup interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

type Service struct {
	repo     repository.AppointmentRepository
	uow      repository.UnitOfWork
	users    UserLookup
	notifier Notifier
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	uow repository.UnitOfWork,
	users UserLookup,
	notifier Notifier,
	log *logger.Logger,
	m *metrics.Metrics,
	now func() time.Time,
) *Service {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		uow:      uow,
		users:    users,
		notifier: notifier,
		logger:   log,
		metrics:  m,
		now:      now,
	}
}

// Book reserves [start, end) with the provider for the calling patient.
// At most one of any set of concurrent overlapping bookings succeeds.
func (s *Service) Book(ctx context.Context, caller *model.Caller, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if !req.EndTime.After(req.StartTime) {
		s.metrics.Booking(SourcePatient, metrics.OutcomeInvalid)
		return nil, apperrors.Validation(msgEndBeforeStart)
	}
	if req.StartTime.Before(s.now()) {
		s.metrics.Booking(SourcePatient, metrics.OutcomeInvalid)
		return nil, apperrors.Validation(msgInPast)
	}
	if caller == nil || caller.UserID == "" {
		return nil, apperrors.Unauthorized(errors.New("missing caller"))
	}

	a := &model.Appointment{
		UserID:     caller.UserID,
		ProviderID: req.ProviderID,
		StartTime:  req.StartTime.UTC(),
		EndTime:    req.EndTime.UTC(),
		Notes:      s.buildNotes(ctx, caller.UserID, req.Notes),
	}
	if err := s.create(ctx, a, SourcePatient); err != nil {
		return nil, err
	}

	s.notifier.AppointmentBooked(context.WithoutCancel(ctx), a)
	return a, nil
}

// AdminCreate books on behalf of a patient. Staff may enter past appointments.
func (s *Service) AdminCreate(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if !req.EndTime.After(req.StartTime) {
		s.metrics.Booking(SourceStaff, metrics.OutcomeInvalid)
		return nil, apperrors.Validation(msgEndBeforeStart)
	}

	a := &model.Appointment{
		UserID:     req.UserID,
		ProviderID: req.ProviderID,
		StartTime:  req.StartTime.UTC(),
		EndTime:    req.EndTime.UTC(),
		Notes:      s.buildNotes(ctx, req.UserID, req.Notes),
	}
	if err := s.create(ctx, a, SourceStaff); err != nil {
		return nil, err
	}

	s.notifier.AppointmentAssigned(context.WithoutCancel(ctx), a)
	return a, nil
}

// create runs the conflict check and insert under the provider lock.
func (s *Service) create(ctx context.Context, a *model.Appointment, source string) error {
	a.Status = model.AppointmentStatusScheduled
	a.Version = 1
	a.CreatedAt = s.now().UTC()

	err := s.uow.WithinProviderTx(ctx, a.ProviderID, func(tx repository.ProviderTx) error {
		clash, err := tx.HasAppointmentConflict(ctx, a.ProviderID, a.StartTime, a.EndTime, 0)
		if err != nil {
			return err
		}
		if clash {
			return repository.ErrConflict
		}
		return tx.CreateAppointment(ctx, a)
	})
	switch {
	case err == nil:
		s.metrics.Booking(source, metrics.OutcomeBooked)
		s.logger.Info("appointment booked",
			"appointment_id", a.ID, "provider_id", a.ProviderID, "source", source)
		return nil
	case errors.Is(err, repository.ErrConflict):
		s.metrics.Booking(source, metrics.OutcomeConflict)
		return apperrors.Conflict(msgAlreadyBooked, err)
	default:
		s.metrics.Booking(source, metrics.OutcomeError)
		return apperrors.Internal(fmt.Errorf("failed to book appointment: %w", err))
	}
}

// Update moves an appointment. The conflict check ignores the appointment
// itself, and a supplied version must match the stored one.
func (s *Service) Update(ctx context.Context, id int64, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, apperrors.Validation(msgEndBeforeStart)
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	var updated *model.Appointment
	err = s.uow.WithinProviderTx(ctx, existing.ProviderID, func(tx repository.ProviderTx) error {
		current, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}

		expected := current.Version
		if req.Version != nil {
			expected = *req.Version
		}
		if expected != current.Version {
			return repository.ErrStaleVersion
		}

		start, end := req.StartTime.UTC(), req.EndTime.UTC()
		if current.Status != model.AppointmentStatusCancelled {
			clash, err := tx.HasAppointmentConflict(ctx, current.ProviderID, start, end, id)
			if err != nil {
				return err
			}
			if clash {
				return repository.ErrConflict
			}
		}

		current.StartTime, current.EndTime = start, end
		if req.Notes != nil {
			current.Notes = *req.Notes
		}
		if err := tx.UpdateAppointmentSchedule(ctx, current, expected); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.notifier.AppointmentUpdated(context.WithoutCancel(ctx), updated)
	return updated.WithEffectiveStatus(s.now()), nil
}

// Cancel marks the appointment cancelled. Cancelling twice is harmless.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	a, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	s.logger.Info("appointment cancelled", "appointment_id", id)
	s.notifier.AppointmentCancelled(context.WithoutCancel(ctx), a)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return a.WithEffectiveStatus(s.now()), nil
}

// ListAll is the staff view, ordered by start.
func (s *Service) ListAll(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	list, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list appointments: %w", err))
	}
	now := s.now()
	out := make([]*model.Appointment, 0, len(list))
	for _, a := range list {
		out = append(out, a.WithEffectiveStatus(now))
	}
	return out, nil
}

// ListMine returns the caller's appointments, newest first.
func (s *Service) ListMine(ctx context.Context, caller *model.Caller) ([]model.AppointmentSummary, error) {
	if caller == nil || caller.UserID == "" {
		return nil, apperrors.Unauthorized(errors.New("missing caller"))
	}
	list, err := s.repo.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list appointments: %w", err))
	}
	now := s.now()
	out := make([]model.AppointmentSummary, 0, len(list))
	for _, a := range list {
		out = append(out, model.AppointmentSummary{
			ID:        a.ID,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
			Status:    a.EffectiveStatus(now),
			Notes:     a.Notes,
		})
	}
	return out, nil
}

// buildNotes prefixes the free-text note with who the patient is, e.g.
// "Kari Nordmann – cleaning".
func (s *Service) buildNotes(ctx context.Context, userID, raw string) string {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn(err, "failed to look up patient for notes", "user_id", userID)
		}
		u = nil
	}

	who := u.DisplayName(userID)
	if note := strings.TrimSpace(raw); note != "" {
		return who + " – " + note
	}
	return who
}

func mapRepoError(err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("appointment", err)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.Conflict(msgAlreadyBooked, err)
	case errors.Is(err, repository.ErrStaleVersion):
		return apperrors.Conflict(msgStale, err)
	default:
		return apperrors.Internal(err)
	}
}
