package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fastygo/ava/domain"
)

// Validator wraps go-playground/validator and reports failures as domain
// validation errors keyed by JSON field name.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseRole(fl.Field().String())
		return ok
	})
	_ = validate.RegisterValidation("localpath", func(fl validator.FieldLevel) bool {
		return IsLocalPath(fl.Field().String())
	})

	return &Validator{validate: validate}
}

// Struct validates s. Failures come back as *domain.Error with code INVALID.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err)
	}
	return domain.NewValidationError(fieldMessages(verrs))
}

func fieldMessages(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "email":
			fields[field] = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			fields[field] = fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		case "gt":
			fields[field] = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		case "url":
			fields[field] = fmt.Sprintf("%s must be a valid URL", field)
		case "role":
			fields[field] = fmt.Sprintf("%s must be admin or tenant", field)
		case "localpath":
			fields[field] = fmt.Sprintf("%s must be a path on this site", field)
		default:
			fields[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return fields
}

// IsLocalPath accepts absolute in-app paths and rejects anything that could
// leave the site, such as "//host" or "/\host".
func IsLocalPath(path string) bool {
	if path == "" || path[0] != '/' {
		return false
	}
	if len(path) > 1 && (path[1] == '/' || path[1] == '\\') {
		return false
	}
	return !strings.ContainsAny(path, "\r\n")
}
