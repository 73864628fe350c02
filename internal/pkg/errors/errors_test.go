package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "plain",
			err:  NotFound(CodeProjectNotFound, "project not found"),
			want: "PROJECT_NOT_FOUND: project not found",
		},
		{
			name: "wrapped",
			err:  Wrap(fmt.Errorf("disk full"), CodeInternal, "save failed", http.StatusInternalServerError),
			want: "INTERNAL_ERROR: save failed: disk full",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_UnwrapAndAs(t *testing.T) {
	appErr := Wrap(ErrNotFound, CodeNotificationNotFound, "missing", http.StatusNotFound)
	wrapped := fmt.Errorf("handler: %w", appErr)

	assert.True(t, errors.Is(wrapped, ErrNotFound))

	got, ok := IsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeNotificationNotFound, got.Code)

	_, ok = IsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestConstructorsStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NotFound("X", "m"), http.StatusNotFound},
		{BadRequest("X", "m"), http.StatusBadRequest},
		{Unauthorized("X", "m"), http.StatusUnauthorized},
		{Forbidden("X", "m"), http.StatusForbidden},
		{Conflict("X", "m"), http.StatusConflict},
		{Internal("X", "m"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus)
	}
}

func TestValidation(t *testing.T) {
	err := Validation(FieldError{Field: "percentComplete", Code: "range"})
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Equal(t, CodeValidationFailed, err.Code)
	require.Len(t, err.FieldErrors, 1)
	assert.Equal(t, "percentComplete", err.FieldErrors[0].Field)
}

func TestWithHelpersIgnoreEmpty(t *testing.T) {
	err := BadRequest("X", "m").WithParams(nil).WithFieldErrors(nil)
	assert.Nil(t, err.Params)
	assert.Nil(t, err.FieldErrors)

	var nilErr *AppError
	assert.Nil(t, nilErr.WithParams(map[string]any{"a": 1}))
}

func TestFromCode(t *testing.T) {
	assert.Equal(t, http.StatusConflict, FromCode(CodeAlreadyResolved, "done").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, FromCode("SOMETHING_ELSE", "?").HTTPStatus)
}
