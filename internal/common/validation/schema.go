// Package validation checks request bodies against JSON schemas before they are decoded.
package validation

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	apperrors "gig-marketplace/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// MaxBodyBytes bounds every validated request body.
const MaxBodyBytes = 1 << 20

// Schema is a compiled JSON schema.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// FieldError is one schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// MustCompile compiles src and panics on an invalid schema; schemas are package-level constants.
func MustCompile(name, src string) *Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("validation: compile schema %s: %v", name, err))
	}
	return &Schema{name: name, schema: s}
}

// Validate checks raw JSON and returns an INVALID_ARGUMENT error listing every violation.
func (s *Schema) Validate(raw []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return apperrors.NewInvalidArgumentError("Malformed JSON body", err.Error())
	}
	if result.Valid() {
		return nil
	}

	fieldErrs := make([]FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "(root)" {
			if p, ok := desc.Details()["property"].(string); ok {
				field = p
			}
		}
		fieldErrs = append(fieldErrs, FieldError{Field: field, Message: desc.Description()})
	}
	sort.Slice(fieldErrs, func(i, j int) bool { return fieldErrs[i].Field < fieldErrs[j].Field })

	parts := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		parts[i] = fe.Field + ": " + fe.Message
	}

	return apperrors.NewInvalidArgumentError(
		fmt.Sprintf("Request does not match %s", s.name),
		strings.Join(parts, "; "),
	).WithMetadata("fields", fieldErrs)
}

// Decode reads body, validates it against s and unmarshals it into dst.
func Decode(body io.Reader, s *Schema, dst interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(body, MaxBodyBytes+1))
	if err != nil {
		return apperrors.NewInvalidArgumentError("Unreadable request body", err.Error())
	}
	if len(raw) > MaxBodyBytes {
		return apperrors.NewInvalidArgumentError("Request body too large", fmt.Sprintf("limit is %d bytes", MaxBodyBytes))
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	if err := s.Validate(raw); err != nil {
		return err
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.NewInvalidArgumentError("Malformed JSON body", err.Error())
	}
	return nil
}
