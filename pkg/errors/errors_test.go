package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("accept: %w", ErrCapacityReached)

	got := FromError(wrapped)
	assert.Equal(t, "CAPACITY_REACHED", got.Code)
	assert.Equal(t, http.StatusConflict, got.Status)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, "internal server error: boom", got.Error())
	assert.Nil(t, FromError(nil))
}

func TestIsComparesCodes(t *testing.T) {
	clone := Clone(ErrNotFound, "query not found")
	assert.True(t, Is(clone, ErrNotFound))
	assert.True(t, Is(fmt.Errorf("lookup: %w", clone), ErrNotFound))
	assert.False(t, Is(clone, ErrForbidden))
	assert.False(t, Is(errors.New("plain"), ErrNotFound))
	assert.False(t, Is(nil, ErrNotFound))
}

func TestCloneLeavesOriginalUntouched(t *testing.T) {
	clone := Clone(ErrInvalidState, "mentorship already ended")
	assert.Equal(t, "mentorship already ended", clone.Message)
	assert.Equal(t, "request is no longer pending", ErrInvalidState.Message)
}
