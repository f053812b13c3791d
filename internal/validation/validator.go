// Package validation shapes request payloads into per-field error maps.
package validation

import (
	"errors"
	"fmt"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator shared across handlers.
func New() *validatorv10.Validate {
	return validatorv10.New()
}

// FieldErrors runs struct validation and converts failures into a
// field -> message map suitable for returning to the caller. A nil map
// means the payload is valid.
func FieldErrors(v *validatorv10.Validate, payload any) map[string]string {
	err := v.Struct(payload)
	if err == nil {
		return nil
	}

	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fieldName(fe)] = messageFor(fe)
		}
		return out
	}
	out["payload"] = "invalid request payload"
	return out
}

func fieldName(fe validatorv10.FieldError) string {
	// snake_case to match the JSON tags on the request structs.
	var b strings.Builder
	for i, r := range fe.Field() {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	name := b.String()
	if name == "order_i_d" || name == "order_id" {
		return "order_id"
	}
	if name == "tracking_i_d" {
		return "tracking_id"
	}
	return name
}

func messageFor(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "hexadecimal":
		return "must be a hexadecimal identifier"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
