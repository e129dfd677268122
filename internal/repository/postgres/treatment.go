package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
)

const treatmentColumns = `id, title, description, duration_minutes, price`

type treatmentRepository struct {
	*BaseRepository
}

func NewTreatmentRepository(base *BaseRepository) repository.TreatmentRepository {
	return &treatmentRepository{BaseRepository: base}
}

func (r *treatmentRepository) Create(ctx context.Context, t *model.Treatment) error {
	query := `INSERT INTO treatments (title, description, duration_minutes, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query, t.Title, t.Description, t.DurationMinutes, t.Price).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create treatment: %w", mapError(err))
	}
	return nil
}

func (r *treatmentRepository) Get(ctx context.Context, id int64) (*model.Treatment, error) {
	var t model.Treatment
	err := r.db.GetContext(ctx, &t, `SELECT `+treatmentColumns+` FROM treatments WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get treatment %d: %w", id, mapError(err))
	}
	return &t, nil
}

func (r *treatmentRepository) Update(ctx context.Context, t *model.Treatment) error {
	query := `UPDATE treatments
		SET title = $1, description = $2, duration_minutes = $3, price = $4
		WHERE id = $5`

	res, err := r.db.ExecContext(ctx, query, t.Title, t.Description, t.DurationMinutes, t.Price, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update treatment: %w", mapError(err))
	}
	return expectOne(res, "treatment")
}

func (r *treatmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM treatments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete treatment: %w", err)
	}
	return expectOne(res, "treatment")
}

func (r *treatmentRepository) List(ctx context.Context) ([]*model.Treatment, error) {
	treatments := []*model.Treatment{}
	if err := r.db.SelectContext(ctx, &treatments, `SELECT `+treatmentColumns+` FROM treatments ORDER BY title, id`); err != nil {
		return nil, fmt.Errorf("failed to list treatments: %w", err)
	}
	return treatments, nil
}
