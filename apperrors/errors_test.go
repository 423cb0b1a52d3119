package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{Validation("bad title"), http.StatusBadRequest},
		{Authentication("no token"), http.StatusUnauthorized},
		{Forbidden("not yours"), http.StatusForbidden},
		{NotFound("Issue not found"), http.StatusNotFound},
		{Conflict("email taken"), http.StatusConflict},
		{Internal(errors.New("boom"), "insert issue"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("update issue: %w", NotFound("Issue not found"))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsForbidden(err))
	assert.Equal(t, "Issue not found", Message(err))
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause, "count issues")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "count issues: connection reset", err.Error())
	assert.Equal(t, "count issues", Message(err))
}

func TestInvalidCarriesDetails(t *testing.T) {
	err := fmt.Errorf("create issue: %w", Invalid([]FieldError{{Field: "title", Rule: "min", Param: "5"}}))
	assert.True(t, IsValidation(err))
	assert.Equal(t, "Validation failed", Message(err))
	assert.Equal(t, []FieldError{{Field: "title", Rule: "min", Param: "5"}}, DetailsOf(err))
	assert.Nil(t, DetailsOf(NotFound("Issue not found")))
}
