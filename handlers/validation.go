package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"progress-engine/services"
)

var validate = newValidator()

const notBlankTag = "notblank"

func newValidator() *validator.Validate {
	v := validator.New()

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if str, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(str) != ""
		}
		return false
	})
	return v
}

// completeRequest is the body of POST /user/progress/complete.
type completeRequest struct {
	ActivityType string `json:"activity_type" validate:"required,notblank,max=32"`
	ActivityRef  string `json:"activity_ref" validate:"required,notblank,max=255"`
	Score        *int   `json:"score" validate:"omitempty,min=0,max=100"`
}

// validateStruct turns the first validator failure into a services.ValidationError.
func validateStruct(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &services.ValidationError{Field: fe.Field(), Reason: describe(fe)}
	}
	return &services.ValidationError{Field: "body", Reason: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", notBlankTag:
		return "required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
