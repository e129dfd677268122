package treatment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository/memory"
	apperrors "github.com/jwalitptl/dental-scheduler/pkg/errors"
)

func TestTreatmentLifecycle(t *testing.T) {
	svc := NewService(memory.New().Treatments(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, &model.TreatmentRequest{Title: "Cleaning", DurationMinutes: 30, Price: "900 NOK"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cleaning", got.Title)

	updated, err := svc.Update(ctx, created.ID, &model.TreatmentRequest{Title: "Deep cleaning", DurationMinutes: 60})
	require.NoError(t, err)
	assert.Equal(t, 60, updated.DurationMinutes)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Deep cleaning", list[0].Title)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	assert.True(t, apperrors.IsKind(svc.Delete(ctx, created.ID), apperrors.KindNotFound))
}

func TestTreatmentValidation(t *testing.T) {
	svc := NewService(memory.New().Treatments(), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  model.TreatmentRequest
	}{
		{"missing title", model.TreatmentRequest{DurationMinutes: 30}},
		{"long title", model.TreatmentRequest{Title: strings.Repeat("x", 101)}},
		{"negative duration", model.TreatmentRequest{Title: "Filling", DurationMinutes: -5}},
		{"too long", model.TreatmentRequest{Title: "Filling", DurationMinutes: 481}},
		{"long price", model.TreatmentRequest{Title: "Filling", Price: strings.Repeat("9", 51)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, &tt.req)
			assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
		})
	}

	_, err := svc.Update(ctx, 42, &model.TreatmentRequest{Title: "Filling"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
