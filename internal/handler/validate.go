package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "required"
		case "oneof":
			out[fe.Field()] = "must be one of: " + fe.Param()
		case "max":
			out[fe.Field()] = "at most " + fe.Param() + " characters"
		default:
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}
