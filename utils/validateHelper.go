package utils

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. decimal.Decimal fields validate as float64,
// so tags like `validate:"gte=0"` work on money.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
	return validate
}

// ValidateStruct runs struct tags and converts failures into a *ValidationError.
func ValidateStruct(input any) error {
	if err := Validator().Struct(input); err != nil {
		return ProcessValidationErrors(err)
	}
	return nil
}

func ProcessValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make(map[string]string, len(validationErrors))
	for _, ve := range validationErrors {
		if ve.Param() != "" {
			fields[ve.Field()] = ve.Tag() + "=" + ve.Param()
		} else {
			fields[ve.Field()] = ve.Tag()
		}
	}
	return &ValidationError{Fields: fields}
}
