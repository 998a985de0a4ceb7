package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrNoFeasibleSchedule)
	assert.Equal(t, http.StatusUnprocessableEntity, FromError(wrapped).Status)
	assert.Equal(t, ErrInternal.Code, FromError(errors.New("plain")).Code)
	assert.Nil(t, FromError(nil))
}

func TestCloneMatchesByCode(t *testing.T) {
	clone := Clone(ErrInvalidSchedule, "proposal stale")
	assert.Equal(t, "proposal stale", clone.Message)
	assert.True(t, errors.Is(clone, ErrInvalidSchedule))
	assert.False(t, errors.Is(clone, ErrNotFound))

	detailed := WithDetails(ErrInvalidSchedule, []string{"x"})
	assert.Equal(t, []string{"x"}, detailed.Details)
	assert.Nil(t, ErrInvalidSchedule.Details)
}
