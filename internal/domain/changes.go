package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrImmutableField is returned when a change set names an entity identifier.
var ErrImmutableField = errors.New("field is immutable")

// UnknownFieldError is returned when a change set names a field the entity
// does not expose for mutation.
type UnknownFieldError struct {
	Field string
}

func (e UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// FieldTypeError is returned when a change set value cannot be coerced to the
// field's type.
type FieldTypeError struct {
	Field string
	Want  string
}

func (e FieldTypeError) Error() string {
	return fmt.Sprintf("field %q expects a %s value", e.Field, e.Want)
}

// The helpers below coerce decoded JSON values onto typed fields. JSON
// numbers arrive as float64 (or json.Number when the decoder is configured
// for it), so integer fields accept both.

func stringValue(field string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", FieldTypeError{Field: field, Want: "string"}
	}
	return s, nil
}

func boolValue(field string, value any) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, FieldTypeError{Field: field, Want: "boolean"}
	}
	return b, nil
}

func int64Value(field string, value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		n := int64(v)
		if float64(n) != v {
			return 0, FieldTypeError{Field: field, Want: "integer"}
		}
		return n, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, FieldTypeError{Field: field, Want: "integer"}
		}
		return n, nil
	default:
		return 0, FieldTypeError{Field: field, Want: "integer"}
	}
}

func nullableInt64Value(field string, value any) (*int64, error) {
	if value == nil {
		return nil, nil
	}
	n, err := int64Value(field, value)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
