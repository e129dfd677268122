package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/jwalitptl/dental-scheduler/pkg/errors"
)

type sample struct {
	Title    string `json:"title" validate:"required,max=5"`
	Duration int    `json:"durationMinutes" validate:"min=0,max=480"`
}

func TestValidate(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&sample{Title: "Scale", Duration: 30}))

	err := v.Validate(&sample{Duration: 30})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.EqualError(t, err, "title is required")

	err = v.Validate(&sample{Title: "Whitening", Duration: 30})
	assert.EqualError(t, err, "title must not exceed 5")

	err = v.Validate(&sample{Title: "Scale", Duration: 600})
	assert.EqualError(t, err, "durationMinutes must not exceed 480")
}

func TestValidateField(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateField("email", "kari@example.com", "email"))
	assert.EqualError(t, v.ValidateField("email", "nope", "email"), "email must be a valid email")
}
