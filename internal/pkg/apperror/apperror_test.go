package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAs_WrapsUnknownErrorsAsInternal(t *testing.T) {
	e := As(errors.New("boom"))
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, CodeInternal, e.Code)
	assert.NotContains(t, e.Message, "boom")
}

func TestAs_FindsWrappedAppError(t *testing.T) {
	inner := Conflict(CodeSoldOut, "Sold out")
	wrapped := fmt.Errorf("create booking: %w", inner)

	assert.Same(t, inner, As(wrapped))
	assert.True(t, IsCode(wrapped, CodeSoldOut))
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestTransient_UnwrapsCause(t *testing.T) {
	cause := errors.New("statement timeout")
	e := Transient(cause)
	assert.ErrorIs(t, e, cause)
	assert.Equal(t, CodeTransient, e.Code)
}
