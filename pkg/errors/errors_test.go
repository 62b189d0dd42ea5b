package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", Clone(ErrIncompleteClass, "3 students failed"))
	appErr := FromError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, "INCOMPLETE_CLASS", appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "3 students failed", appErr.Message)
}

func TestFromErrorFallsBackToInternal(t *testing.T) {
	appErr := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := Wrap(stderrors.New("locked"), ErrGenerationInProgress.Code, ErrGenerationInProgress.Status, "busy")
	assert.True(t, stderrors.Is(err, ErrGenerationInProgress))
	assert.False(t, stderrors.Is(err, ErrBulletinPublished))
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	detailed := WithDetails(ErrIncompleteClass, []string{"stu-1"})
	assert.Equal(t, []string{"stu-1"}, detailed.Details)
	assert.Nil(t, ErrIncompleteClass.Details)
}
