package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/repositories"
	"civicreport-be/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Options carries the settings every controller shares.
type Options struct {
	Log            *zap.Logger
	Production     bool
	Domain         string
	RequestTimeout time.Duration
}

type base struct {
	log        *zap.Logger
	production bool
	timeout    time.Duration
}

func newBase(opts Options) base {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return base{log: log, production: opts.Production, timeout: timeout}
}

func (b base) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), b.timeout)
}

// fail writes err as {"error": message} with the status of its kind. Field
// errors are added as "details". Internal errors are logged and their
// message hidden in production.
func (b base) fail(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	body := gin.H{"error": apperrors.Message(err)}
	if details := apperrors.DetailsOf(err); len(details) > 0 {
		body["details"] = details
	}
	if status >= 500 {
		b.log.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
		body["error"] = err.Error()
		if b.production {
			body["error"] = "Internal Server Error"
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// bind decodes the JSON body into dst and reports a failure to the client.
func (b base) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			b.fail(c, services.ValidationError(err))
		} else {
			b.fail(c, apperrors.Validation("Invalid request body"))
		}
		return false
	}
	return true
}

// page reads page and limit query parameters.
func page(c *gin.Context, defaultSize int) repositories.Page {
	number, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultSize)))
	return repositories.NewPage(number, size, defaultSize)
}

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func paginate(p repositories.Page, total int64) pagination {
	return pagination{Page: p.Number, Limit: p.Size, Total: total, Pages: p.Pages(total)}
}
