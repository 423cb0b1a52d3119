package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"civicreport-be/apperrors"
	"civicreport-be/repositories"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func failWith(production bool, err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	b := newBase(Options{Production: production})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	b.fail(c, err)
	return w
}

func TestFailMapsKinds(t *testing.T) {
	cases := []struct {
		err  error
		code int
		body string
	}{
		{apperrors.Validation("Bad input"), http.StatusBadRequest, `{"error":"Bad input"}`},
		{apperrors.Authentication("Invalid email or password"), http.StatusUnauthorized, `{"error":"Invalid email or password"}`},
		{apperrors.Forbidden("Nope"), http.StatusForbidden, `{"error":"Nope"}`},
		{apperrors.NotFound("Issue not found"), http.StatusNotFound, `{"error":"Issue not found"}`},
		{apperrors.Conflict("Taken"), http.StatusConflict, `{"error":"Taken"}`},
		{
			apperrors.Invalid([]apperrors.FieldError{{Field: "title", Rule: "min", Param: "5"}}),
			http.StatusBadRequest,
			`{"error":"Validation failed","details":[{"field":"title","rule":"min","param":"5"}]}`,
		},
	}
	for _, tc := range cases {
		w := failWith(true, tc.err)
		assert.Equal(t, tc.code, w.Code)
		assert.JSONEq(t, tc.body, w.Body.String())
	}
}

func TestFailHidesInternalErrorsInProduction(t *testing.T) {
	err := errors.New("connection refused")

	w := failWith(true, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())

	w = failWith(false, err)
	assert.JSONEq(t, `{"error":"connection refused"}`, w.Body.String())
}

func TestPaginate(t *testing.T) {
	p := repositories.NewPage(2, 10, 10)
	assert.Equal(t, pagination{Page: 2, Limit: 10, Total: 21, Pages: 3}, paginate(p, 21))
	assert.Equal(t, int64(0), paginate(p, 0).Pages)
}
