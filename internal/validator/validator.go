package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator validates request structs using json field names in its errors
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerBusinessRules()
	return v
}

// Validate returns nil or a non-empty ValidationErrors
func (v *Validator) Validate(s interface{}) error {
	if ve := ToValidationErrors(v.validate.Struct(s)); len(ve) > 0 {
		return ve
	}
	return nil
}

// ToValidationErrors converts a go-playground error into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: getErrorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "identity":
		return "must be a non-blank identity without surrounding whitespace"
	case "display_name":
		return fmt.Sprintf("must be 1-%d characters", MaxDisplayNameLength)
	case "course_title":
		return fmt.Sprintf("must be 1-%d characters", MaxCourseTitleLength)
	case "course_description":
		return fmt.Sprintf("must be at most %d characters", MaxCourseDescriptionLength)
	case "exam_title":
		return fmt.Sprintf("must be 1-%d characters", MaxExamTitleLength)
	case "exam_duration":
		return "must be greater than 0 seconds"
	case "profile_bio":
		return fmt.Sprintf("must be at most %d characters", MaxBioLength)
	case "profile_extra":
		return fmt.Sprintf("must be at most %d characters", MaxExtraLength)
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
