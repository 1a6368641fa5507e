package services

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	templateKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("templatekey", func(fl validator.FieldLevel) bool {
			return templateKeyPattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// validateStruct runs the validate tags of s and converts failures into a
// *ValidationError keyed by json field path.
func validateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "templatekey":
		return "must be lowercase letters, digits and underscores"
	default:
		return "is invalid"
	}
}

// fieldError builds a single-field validation error.
func fieldError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
