package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared by every handler; validator caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateRequest checks the `validate` tags of req and reports the first
// failing field by its JSON name.
func validateRequest(op string, req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		msg := fmt.Sprintf("field %s failed %s", f.Field(), f.Tag())
		if f.Param() != "" {
			msg += "=" + f.Param()
		}
		return WrapKind(op, ErrBadRequest, errors.New(msg))
	}
	return WrapKind(op, ErrBadRequest, err)
}
