// Package validate wraps go-playground/validator/v10 struct-tag
// validation for request bodies, grounded on the teacher's use of the
// same library for its content/interaction request structs. Gin's own
// binding tags (binding:"required") are not used here deliberately —
// this package validates the canonical request shapes defined in
// pkg/models directly against their `validate:"..."` tags, after JSON
// decoding, so the validation step is explicit and independent of the
// HTTP binding layer.
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New()

// FieldError is one field-level validation failure.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Value string `json:"value,omitempty"`
}

// Struct validates s against its `validate` tags and returns the
// field-level failures, or nil if s is valid.
func Struct(s interface{}) []FieldError {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "_", Tag: "invalid", Value: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field: strings.ToLower(fe.Field()),
			Tag:   fe.Tag(),
			Value: fmt.Sprintf("%v", fe.Value()),
		})
	}
	return out
}
