package apperr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// The validator reads the same `binding` tags gin does, so request structs
// are checked identically whether they arrive over HTTP or not.
func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(JSONFieldName)
	return v
}

// JSONFieldName reports a struct field by its JSON name in validation errors
func JSONFieldName(f reflect.StructField) string {
	tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if tag == "" || tag == "-" {
		return f.Name
	}
	return tag
}

// Validate checks the binding tags of a request struct
func Validate(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return FromValidation(err)
	}
	return nil
}

// FromValidation turns validator errors into an Invalid error with one
// message per field. Other errors, such as malformed JSON, become a plain
// Invalid error.
func FromValidation(err error) *Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		fields := make(map[string]string, len(errs))
		for _, fe := range errs {
			fields[fe.Field()] = validationMessage(fe)
		}
		return &Error{Kind: Invalid, PublicMsg: "Validation failed", Fields: fields, Err: err}
	}
	return &Error{Kind: Invalid, PublicMsg: "Invalid request body", Err: err}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	}
	return "is invalid"
}
