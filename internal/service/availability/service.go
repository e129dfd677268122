package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
	apperrors "github.com/jwalitptl/dental-scheduler/pkg/errors"
	"github.com/jwalitptl/dental-scheduler/pkg/interval"
	"github.com/jwalitptl/dental-scheduler/pkg/metrics"
)

const msgWindowExists = "availability window exists"

type Service struct {
	windows      repository.AvailabilityRepository
	appointments repository.AppointmentRepository
	uow          repository.UnitOfWork
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(
	windows repository.AvailabilityRepository,
	appointments repository.AppointmentRepository,
	uow repository.UnitOfWork,
	m *metrics.Metrics,
	now func() time.Time,
) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		windows:      windows,
		appointments: appointments,
		uow:          uow,
		metrics:      m,
		now:          now,
	}
}

// GetAvailableSlots computes bookable slots for a provider: declared windows
// minus non-cancelled appointments, clamped to [max(from, now), to] and sliced
// by duration and step. Slots are synthesized per call and are never
// authoritative; booking re-checks against live data.
func (s *Service) GetAvailableSlots(ctx context.Context, q model.SlotQuery) ([]model.Slot, error) {
	slots := []model.Slot{}

	from := q.From
	if now := s.now(); from.Before(now) {
		from = now
	}
	if !from.Before(q.To) {
		s.metrics.SlotsServed(0)
		return slots, nil
	}

	windows, err := s.windows.ListOverlapping(ctx, q.ProviderID, from, q.To)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to load availability: %w", err))
	}
	if len(windows) == 0 {
		s.metrics.SlotsServed(0)
		return slots, nil
	}

	appointments, err := s.appointments.ListActiveOverlapping(ctx, q.ProviderID, from, q.To)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to load appointments: %w", err))
	}

	bounds := interval.New(from, q.To)
	var free []interval.Interval
	for _, w := range windows {
		clamped := interval.Clamp(w.Interval(), bounds)
		if clamped.Empty() {
			continue
		}

		var busy []interval.Interval
		for _, a := range appointments {
			iv := interval.New(a.StartTime, a.EndTime)
			if interval.Overlaps(iv, clamped) {
				busy = append(busy, iv)
			}
		}
		free = append(free, interval.SubtractIntervals(clamped, busy)...)
	}
	interval.SortByStart(free)
	// Overlapping windows would otherwise yield duplicate slots.
	free = interval.MergeOverlapping(free)

	for i, iv := range interval.SliceIntoSlots(free, q.DurationMinutes, q.StepMinutes) {
		slots = append(slots, model.Slot{
			ID:         i + 1,
			ProviderID: q.ProviderID,
			StartTime:  iv.Start,
			EndTime:    iv.End,
		})
	}

	s.metrics.SlotsServed(len(slots))
	return slots, nil
}

// Window administration

func validateWindow(req *model.AvailabilityWindowRequest) error {
	if !req.EndTime.After(req.StartTime) {
		return apperrors.Validation("end time must be after start time")
	}
	return nil
}

func (s *Service) ListWindows(ctx context.Context, providerID int64, from, to time.Time) ([]*model.AvailabilityWindow, error) {
	windows, err := s.windows.ListWithin(ctx, providerID, from, to)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return windows, nil
}

func (s *Service) GetWindow(ctx context.Context, id int64) (*model.AvailabilityWindow, error) {
	w, err := s.windows.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return w, nil
}

// CreateWindow rejects a window overlapping another window of the same
// provider. The check and insert run under the provider lock.
func (s *Service) CreateWindow(ctx context.Context, req *model.AvailabilityWindowRequest) (*model.AvailabilityWindow, error) {
	if err := validateWindow(req); err != nil {
		return nil, err
	}

	w := &model.AvailabilityWindow{
		ProviderID: req.ProviderID,
		StartTime:  req.StartTime.UTC(),
		EndTime:    req.EndTime.UTC(),
	}
	err := s.uow.WithinProviderTx(ctx, w.ProviderID, func(tx repository.ProviderTx) error {
		overlap, err := tx.HasWindowOverlap(ctx, w.ProviderID, w.StartTime, w.EndTime, 0)
		if err != nil {
			return err
		}
		if overlap {
			return apperrors.Conflict(msgWindowExists, repository.ErrConflict)
		}
		return tx.CreateWindow(ctx, w)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return w, nil
}

func (s *Service) UpdateWindow(ctx context.Context, id int64, req *model.AvailabilityWindowRequest) (*model.AvailabilityWindow, error) {
	if err := validateWindow(req); err != nil {
		return nil, err
	}
	if _, err := s.windows.Get(ctx, id); err != nil {
		return nil, mapRepoError(err)
	}

	w := &model.AvailabilityWindow{
		ID:         id,
		ProviderID: req.ProviderID,
		StartTime:  req.StartTime.UTC(),
		EndTime:    req.EndTime.UTC(),
	}
	err := s.uow.WithinProviderTx(ctx, w.ProviderID, func(tx repository.ProviderTx) error {
		overlap, err := tx.HasWindowOverlap(ctx, w.ProviderID, w.StartTime, w.EndTime, id)
		if err != nil {
			return err
		}
		if overlap {
			return apperrors.Conflict(msgWindowExists, repository.ErrConflict)
		}
		return tx.UpdateWindow(ctx, w)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return w, nil
}

func (s *Service) DeleteWindow(ctx context.Context, id int64) error {
	if err := s.windows.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func mapRepoError(err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("availability window", err)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.Conflict(msgWindowExists, err)
	default:
		return apperrors.Internal(err)
	}
}
