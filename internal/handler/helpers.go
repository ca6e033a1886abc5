package handler

import (
	"errors"
	"net/http"
	"reflect"

	"tradecore/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.InvalidInput("invalid JSON body").Wrap(err))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]any)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		e := apperr.InvalidInput("validation failed")
		e.Meta = map[string]any{"fields": fields}
		c.JSON(http.StatusUnprocessableEntity, e)
		return false
	}
	return true
}

// statusByCode maps the business taxonomy onto HTTP statuses.
var statusByCode = map[apperr.Code]int{
	apperr.CodeNotFound:          http.StatusNotFound,
	apperr.CodeForbidden:         http.StatusForbidden,
	apperr.CodeInvalidInput:      http.StatusBadRequest,
	apperr.CodeConflict:          http.StatusConflict,
	apperr.CodeInvalidTransition: http.StatusConflict,
	apperr.CodeUnavailable:       http.StatusServiceUnavailable,
}

// respondError writes the taxonomy error as the response envelope. Unknown
// error types become an opaque 500 — internals never leak to clients.
func respondError(c *gin.Context, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		status, ok := statusByCode[e.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.JSON(status, e)
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, apperr.Unavailable("internal server error"))
}
