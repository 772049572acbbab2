package middleware

import (
	"encoding/json"
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var errorMessages = map[string]string{
	"required": "field is required",
	"ymd":      "must be a date in YYYY-MM-DD format",
	"hhmm":     "must be a time in HH:MM format",
	"hhmm_end": "must be a time in HH:MM format, or 24:00",
	"max":      "value is too long",
}

var registerOnce sync.Once

// RegisterValidators installs the ymd, hhmm and hhmm_end tags on gin's
// validator and reports fields by their json names. Safe to call more than
// once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
			_, err := model.ParseDate(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			_, err := model.ParseTimeOfDay(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("hhmm_end", func(fl validator.FieldLevel) bool {
			_, err := model.ParseEndTimeOfDay(fl.Field().String())
			return err == nil
		})
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}

// BindingError converts a ShouldBind failure into a validation AppError. The
// reason code follows the first failing tag so date and time format problems
// keep their specific codes.
func BindingError(err error) *errors.AppError {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		var syntaxErr *json.SyntaxError
		if stderrors.As(err, &syntaxErr) {
			return errors.BadRequest("malformed JSON body", err)
		}
		return errors.BadRequest("invalid request body", err)
	}

	code := errors.CodeInvalidInput
	fields := make([]ValidationError, 0, len(verrs))
	for i, e := range verrs {
		msg := errorMessages[e.Tag()]
		if msg == "" {
			msg = e.Error()
		}
		fields = append(fields, ValidationError{Field: e.Field(), Message: msg})
		if i == 0 {
			switch e.Tag() {
			case "ymd":
				code = errors.CodeInvalidDateFormat
			case "hhmm", "hhmm_end":
				code = errors.CodeInvalidTimeFormat
			}
		}
	}
	return errors.Validation(code, "request validation failed", err).WithDetail("fields", fields)
}
