package tools

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/jsonschema-go/jsonschema"
)

var validate = validator.New()

// validateArgs runs the validate tags of an input struct and flattens the
// first failure into a message a client can act on.
func validateArgs(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "min", "gte":
		return fmt.Errorf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Errorf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Errorf("%s is invalid (%s)", field, fe.Tag())
	}
}

// schemaFor infers the input schema for T and lets the caller tighten
// individual properties.
func schemaFor[T any](tighten func(props map[string]*jsonschema.Schema)) *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("tools: schema for %T: %v", *new(T), err))
	}
	if tighten != nil {
		tighten(schema.Properties)
	}
	return schema
}

func bounds(s *jsonschema.Schema, min, max float64) {
	s.Minimum = &min
	s.Maximum = &max
}

func lengths(s *jsonschema.Schema, min, max int) {
	s.MinLength = &min
	s.MaxLength = &max
}

func enum(s *jsonschema.Schema, values ...string) {
	s.Enum = make([]any, len(values))
	for i, v := range values {
		s.Enum[i] = v
	}
}
