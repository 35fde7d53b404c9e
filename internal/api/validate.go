package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

// newValidator returns a validator that reports fields by their JSON name and
// understands the "phone" tag. Numbers without a country code are read in region.
func newValidator(region string) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// RegisterValidation only fails for an empty tag or a baked-in name.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return validPhone(fl.Field().String(), region)
	})
	return v
}

func validPhone(number, region string) bool {
	p, err := libphonenumber.Parse(number, region)
	if err != nil {
		return false
	}
	return libphonenumber.IsValidNumber(p)
}

// validationFields maps each failing field to the tag it failed.
func validationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

// validateRequest runs struct validation and writes a 400 listing the failing
// fields. It reports whether req is valid.
func validateRequest(w http.ResponseWriter, v *validator.Validate, req any) bool {
	err := v.Struct(req)
	if err == nil {
		return true
	}
	jsonResponse(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": validationFields(err),
	})
	return false
}
