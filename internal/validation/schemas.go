// Package validation provides JSON-schema envelope validation for the
// two batch endpoints (spec §6), grounded on the teacher's
// internal/validation/schemas.go SchemaValidator shape, trimmed to the
// two envelopes this service actually accepts (`requests[]`/`items[]`
// plus an `options`/`globalSettings` object) and with the schemas
// embedded as string literals rather than loaded from a schema
// directory, since this service ships no external schema files.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const batchRecommendSchema = `{
  "type": "object",
  "required": ["requests"],
  "properties": {
    "requests": {
      "type": "array",
      "minItems": 1,
      "maxItems": 10,
      "items": {
        "type": "object",
        "required": ["sessionId"],
        "properties": {
          "sessionId": {"type": "string"},
          "count": {"type": "integer", "minimum": 1},
          "filters": {"type": "object"}
        }
      }
    },
    "globalSettings": {"type": "object"}
  }
}`

const batchFeedbackSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "minItems": 1,
      "maxItems": 50,
      "items": {
        "type": "object",
        "required": ["session_id", "product_id", "action"],
        "properties": {
          "session_id": {"type": "string"},
          "product_id": {"type": "string"},
          "action": {"type": "string", "enum": ["love", "like", "dislike", "skip", "neutral"]},
          "idempotency_key": {"type": "string"}
        }
      }
    },
    "options": {"type": "object"}
  }
}`

// SchemaValidator holds the compiled envelope schemas for the batch
// endpoints.
type SchemaValidator struct {
	batchRecommend *gojsonschema.Schema
	batchFeedback  *gojsonschema.Schema
}

// NewSchemaValidator compiles the embedded schemas.
func NewSchemaValidator() (*SchemaValidator, error) {
	br, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(batchRecommendSchema))
	if err != nil {
		return nil, fmt.Errorf("compile batch-recommend schema: %w", err)
	}
	bf, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(batchFeedbackSchema))
	if err != nil {
		return nil, fmt.Errorf("compile batch-feedback schema: %w", err)
	}
	return &SchemaValidator{batchRecommend: br, batchFeedback: bf}, nil
}

// Result is the outcome of one schema validation call.
type Result struct {
	Valid  bool
	Errors []string
}

func validateAgainst(schema *gojsonschema.Schema, body []byte) (Result, error) {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return Result{}, err
	}
	if res.Valid() {
		return Result{Valid: true}, nil
	}
	errs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		errs = append(errs, e.String())
	}
	return Result{Valid: false, Errors: errs}, nil
}

// ValidateBatchRecommend checks body against the batch-recommend envelope.
func (sv *SchemaValidator) ValidateBatchRecommend(body []byte) (Result, error) {
	return validateAgainst(sv.batchRecommend, body)
}

// ValidateBatchFeedback checks body against the batch-feedback envelope.
func (sv *SchemaValidator) ValidateBatchFeedback(body []byte) (Result, error) {
	return validateAgainst(sv.batchFeedback, body)
}
