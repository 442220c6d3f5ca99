package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// TagDecimalGT0 accepts strictly positive amounts in whole cents
const TagDecimalGT0 = "decimal_gt0"

var validatorOnce sync.Once

// SetupValidator teaches gin's validator about money: fields are reported
// by their JSON (or form) name and decimal.Decimal is checked through its
// string form.
func SetupValidator() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(wireName)
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation(TagDecimalGT0, func(fl validator.FieldLevel) bool {
			if fl.Field().Kind() != reflect.String {
				return false
			}
			d, err := decimal.NewFromString(fl.Field().String())
			return err == nil && d.IsPositive() && valueobject.FitsScale(d)
		})
	})
}

func wireName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return ""
}

// HandleValidationError writes a 400. Binding errors carry one detail per
// field; anything else, such as malformed JSON, is reported as is.
func HandleValidationError(c *gin.Context, err error) {
	requestID := getRequestIDFromContext(c)

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, err.Error(), requestID))
		return
	}
	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID, details))
}

func getRequestIDFromContext(c *gin.Context) string {
	if id := c.GetString(logger.GinRequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}

var fieldMessages = map[string]func(validator.FieldError) string{
	"required":    func(validator.FieldError) string { return "This field is required" },
	TagDecimalGT0: func(validator.FieldError) string { return "Must be greater than zero with at most 2 decimal places" },
	"uuid":        func(validator.FieldError) string { return "Invalid UUID format" },
	"len":         func(fe validator.FieldError) string { return "Must be exactly " + fe.Param() + " characters" },
	"oneof":       func(fe validator.FieldError) string { return "Must be one of: " + fe.Param() },
	"datetime":    func(fe validator.FieldError) string { return "Must be a date in " + fe.Param() + " format" },
	"gte":         func(fe validator.FieldError) string { return "Must be greater than or equal to " + fe.Param() },
	"lte":         func(fe validator.FieldError) string { return "Must be less than or equal to " + fe.Param() },
	"min":         func(fe validator.FieldError) string { return bound("at least", fe) },
	"max":         func(fe validator.FieldError) string { return bound("at most", fe) },
}

// bound phrases min and max, counting characters for strings
func bound(prefix string, fe validator.FieldError) string {
	msg := "Must be " + prefix + " " + fe.Param()
	if fe.Kind() == reflect.String {
		msg += " characters"
	}
	return msg
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Tag()]; ok {
		return msg(fe)
	}
	return "Invalid value"
}
