package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-storefront/internal/repository"
)

// Validator adapts go-playground/validator to echo.Validator.  Install it
// with e.Validator = handler.NewValidator().
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate returns a *repository.ValidationError describing the first
// failed rule.
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &repository.ValidationError{Field: fe.Field(), Message: describe(fe)}
	}
	return &repository.ValidationError{Message: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "datetime":
		return fmt.Sprintf("must match %s", fe.Param())
	}
	return "failed " + fe.Tag() + " validation"
}

// bindValid binds the request body into dst and validates it.  Both
// failures are reported as validation errors.
func bindValid(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return &repository.ValidationError{Message: "invalid request body"}
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(dst)
}
