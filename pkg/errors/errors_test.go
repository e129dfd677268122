package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_UnwrapsChain(t *testing.T) {
	base := errors.New("duplicate key")
	err := fmt.Errorf("failed to book: %w", Conflict("time already booked", base))

	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(err, KindValidation))
	assert.ErrorIs(t, err, base)
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestAppError_Message(t *testing.T) {
	assert.Equal(t, "appointment not found", NotFound("appointment", nil).Error())
	assert.Equal(t, "unauthorized: no token", Unauthorized(errors.New("no token")).Error())
	assert.Equal(t, "conflict", KindConflict.String())
}
