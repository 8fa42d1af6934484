package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
// It registers the "strongpassword", "maxbytes" and "role" tags.
func NewValidator() *echoValidator {
	v := validator.New()
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domain.IsValidRole(fl.Field().String())
	})
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface. Failures are returned as
// *domain.ValidationError so they render as 400.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return domain.NewValidationError("%s", strings.Join(msgs, "; "))
		}
		return domain.NewValidationError("%s", err.Error())
	}
	return nil
}

const minPasswordLength = 12

// IsStrongPassword requires at least 12 characters (runes, not bytes) with an
// upper-case letter, a lower-case letter, a digit and a symbol.
func IsStrongPassword(p string) bool {
	if utf8.RuneCountInString(p) < minPasswordLength {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", field, fe.Param())
	case "alphanum":
		return field + " must contain only letters and digits"
	case "strongpassword":
		return field + " must be at least 12 characters and mix upper-case, lower-case, digits and symbols"
	case "role":
		return fmt.Sprintf("%s must be one of: %s, %s", field, domain.RoleAdmin, domain.RoleUser)
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
