// Package validate checks request payloads at the HTTP boundary and turns
// violations into the apperror validation shape (one entry per bad field).
//
// Rules are declared as `validate:"..."` struct tags on the request DTOs in
// the handler package. Two custom tags are registered on top of the
// built-ins:
//
//	language — membership in the enumerated programming language set
//	username — 3-30 chars of letters, digits, underscore, or hyphen
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nahid/snipvault/internal/apperror"
	"github.com/nahid/snipvault/internal/model"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)

var v = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields under their JSON names — that's what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		return model.ValidLanguage(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	return v
}()

// Struct validates s against its `validate` tags. Returns nil when valid,
// otherwise an apperror carrying every offending field so the caller sees
// all problems in one response.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// validator.InvalidValidationError — a programming error (non-struct
		// argument), not a client problem, but don't panic a request over it.
		return apperror.ValidationFailed("payload", "invalid request payload")
	}

	fields := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperror.FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return apperror.ValidationErrors(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "language":
		return "invalid programming language"
	case "username":
		return "username must be 3-30 characters of letters, numbers, underscores, or hyphens"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
