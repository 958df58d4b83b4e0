package validator

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MaxIdentityLength          = 128
	MaxDisplayNameLength       = 100
	MaxBioLength               = 1000
	MaxExtraLength             = 500 // users.extra is varchar(500)
	MaxCourseTitleLength       = 200
	MaxCourseDescriptionLength = 1000
	MaxExamTitleLength         = 200
)

// registerBusinessRules registers the registry's custom validation tags
func (v *Validator) registerBusinessRules() {
	v.validate.RegisterValidation("identity", func(fl validator.FieldLevel) bool {
		return ValidIdentity(fl.Field().String())
	})

	v.validate.RegisterValidation("display_name", func(fl validator.FieldLevel) bool {
		return nonBlankWithin(fl.Field().String(), MaxDisplayNameLength)
	})

	v.validate.RegisterValidation("course_title", func(fl validator.FieldLevel) bool {
		return nonBlankWithin(fl.Field().String(), MaxCourseTitleLength)
	})

	v.validate.RegisterValidation("course_description", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) <= MaxCourseDescriptionLength
	})

	v.validate.RegisterValidation("exam_title", func(fl validator.FieldLevel) bool {
		return nonBlankWithin(fl.Field().String(), MaxExamTitleLength)
	})

	v.validate.RegisterValidation("exam_duration", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() > 0
	})

	v.validate.RegisterValidation("profile_bio", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) <= MaxBioLength
	})

	v.validate.RegisterValidation("profile_extra", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) <= MaxExtraLength
	})
}

// ValidIdentity reports whether s can be used as a caller identity
func ValidIdentity(s string) bool {
	return s != "" && strings.TrimSpace(s) == s && utf8.RuneCountInString(s) <= MaxIdentityLength
}

func nonBlankWithin(s string, max int) bool {
	return strings.TrimSpace(s) != "" && utf8.RuneCountInString(s) <= max
}
