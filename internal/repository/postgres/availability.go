package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
)

const windowColumns = `id, provider_id, start_time, end_time`

type availabilityRepository struct {
	*BaseRepository
}

func NewAvailabilityRepository(base *BaseRepository) repository.AvailabilityRepository {
	return &availabilityRepository{BaseRepository: base}
}

func (r *availabilityRepository) Get(ctx context.Context, id int64) (*model.AvailabilityWindow, error) {
	var w model.AvailabilityWindow
	err := r.db.GetContext(ctx, &w, `SELECT `+windowColumns+` FROM availability_windows WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get availability window %d: %w", id, mapError(err))
	}
	return &w, nil
}

func (r *availabilityRepository) ListOverlapping(ctx context.Context, providerID int64, from, to time.Time) ([]*model.AvailabilityWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM availability_windows
		WHERE provider_id = $1
		  AND start_time < $2
		  AND end_time > $3
		ORDER BY start_time`

	windows := []*model.AvailabilityWindow{}
	if err := r.db.SelectContext(ctx, &windows, query, providerID, to, from); err != nil {
		return nil, fmt.Errorf("failed to list availability windows: %w", err)
	}
	return windows, nil
}

func (r *availabilityRepository) ListWithin(ctx context.Context, providerID int64, from, to time.Time) ([]*model.AvailabilityWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM availability_windows
		WHERE provider_id = $1
		  AND start_time >= $2
		  AND end_time <= $3
		ORDER BY start_time`

	windows := []*model.AvailabilityWindow{}
	if err := r.db.SelectContext(ctx, &windows, query, providerID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list availability windows: %w", err)
	}
	return windows, nil
}

func (r *availabilityRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM availability_windows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability window: %w", err)
	}
	return expectOne(res, "availability window")
}
