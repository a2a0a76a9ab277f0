// Package validation turns raw request bodies into validated request
// structs. Struct fields declare their JSON name with the json tag and their
// rules with go-playground/validator tags.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/howjmay/publicator/internal/apperr"
)

const maxBodyBytes = 1 << 20

// Validator decodes and validates request bodies
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the date rule registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return jsonName(f)
	})
	must(v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	}))
	return &Validator{validate: v}
}

// Decode reads a JSON object from body into dst, a pointer to a struct.
// Every unknown key, type mismatch and rule failure is reported in a single
// validation error.
func (v *Validator) Decode(body io.Reader, dst any) error {
	data, err := io.ReadAll(io.LimitReader(body, maxBodyBytes+1))
	if err != nil {
		return apperr.Validation("failed to read request body").Wrap(err)
	}
	if len(data) > maxBodyBytes {
		return apperr.Validation("request body too large")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return apperr.Validation("request body must be a JSON object")
	}

	target := reflect.ValueOf(dst).Elem()
	fields := fieldsByName(target.Type())

	var violations []apperr.Violation
	typeErrors := make(map[string]bool)

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		idx, ok := fields[key]
		if !ok {
			violations = append(violations, apperr.Violation{Field: key, Message: "is not allowed"})
			continue
		}

		field := target.Field(idx)
		if err := json.Unmarshal(raw[key], field.Addr().Interface()); err != nil {
			typeErrors[key] = true
			violations = append(violations, apperr.Violation{Field: key, Message: typeMessage(field.Type(), err)})
		}
	}

	if err := v.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate request: %w", err)
		}
		for _, fe := range fieldErrs {
			if typeErrors[fe.Field()] {
				continue
			}
			violations = append(violations, apperr.Violation{Field: fe.Field(), Message: ruleMessage(fe)})
		}
	}

	if len(violations) > 0 {
		return apperr.Validation("invalid request body", violations...)
	}
	return nil
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("validation: %v", err))
	}
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func fieldsByName(t reflect.Type) map[string]int {
	fields := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if name := jsonName(f); name != "" {
			fields[name] = i
		}
	}
	return fields
}

func typeMessage(t reflect.Type, err error) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var want string
	switch t.Kind() {
	case reflect.String:
		want = "a string"
	case reflect.Int, reflect.Int32, reflect.Int64:
		want = "an integer"
	case reflect.Float32, reflect.Float64:
		want = "a number"
	case reflect.Bool:
		want = "a boolean"
	default:
		return "has an invalid value: " + err.Error()
	}
	return "must be " + want
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + fe.Param()
	case "date":
		return "must be a valid date"
	}
	return "failed rule " + fe.Tag()
}
