// Package services holds the business rules of the portal: the issue
// lifecycle, notification dispatch, accounts and the staff dashboard.
package services

import (
	"errors"
	"strings"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/models"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role models.Role
}

func (a Actor) IsStaff() bool { return a.Role.IsStaff() }
func (a Actor) IsAdmin() bool { return a.Role.IsAdmin() }

// Clock returns the current time; replaced in tests.
type Clock func() time.Time

var validate = validator.New()

// ValidationError converts validator failures into an apperrors validation
// error listing each field and rule. Other errors pass through unchanged.
func ValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	details := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apperrors.FieldError{
			Field: lowerFirst(fe.Field()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return apperrors.Invalid(details)
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return ValidationError(err)
	}
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

var transitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "civic_issue_transitions_total",
		Help: "Issue status transitions by target status",
	},
	[]string{"status"},
)
