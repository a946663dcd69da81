package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/nutridash/core"
)

// bindAndValidate binds the request body into dest then validates it.
// Malformed bodies are reported as validation errors.
func bindAndValidate(ctx echo.Context, validate *validator.Validate, dest interface{}, name string) error {
	if err := ctx.Bind(dest); err != nil {
		if herr, ok := err.(*echo.HTTPError); ok {
			return core.NewValidationError(errors.Errorf("invalid %s: %v", name, herr.Message))
		}
		return errors.Wrap(err, "binding to "+name)
	}
	return validate.Struct(dest)
}
