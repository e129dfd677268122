package treatment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
	apperrors "github.com/jwalitptl/dental-scheduler/pkg/errors"
	"github.com/jwalitptl/dental-scheduler/pkg/validator"
)

type Service struct {
	repo      repository.TreatmentRepository
	validator validator.Validator
}

func NewService(repo repository.TreatmentRepository, v validator.Validator) *Service {
	if v == nil {
		v = validator.New()
	}
	return &Service{repo: repo, validator: v}
}

func (s *Service) List(ctx context.Context) ([]*model.Treatment, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list treatments: %w", err))
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Treatment, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, req *model.TreatmentRequest) (*model.Treatment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	t := fromRequest(0, req)
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create treatment: %w", err))
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, id int64, req *model.TreatmentRequest) (*model.Treatment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	t := fromRequest(id, req)
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, mapRepoError(err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func fromRequest(id int64, req *model.TreatmentRequest) *model.Treatment {
	return &model.Treatment{
		ID:              id,
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
	}
}

func mapRepoError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("treatment", err)
	}
	return apperrors.Internal(err)
}
