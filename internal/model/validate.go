package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Add appends a field error.
func (e *ValidationError) Add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Err returns e when it holds errors and nil otherwise.
func (e *ValidationError) Err() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// ValidatePerson checks a Person for constraint violations before it is stored.
// It returns a *ValidationError if any rules fail, or nil if the record is valid.
func ValidatePerson(p *Person) error {
	var ve ValidationError

	if !ValidPINFL(p.PINFL) {
		ve.Add("pinfl", "must be exactly %d digits", PINFLLength)
	}

	for _, f := range []struct {
		field string
		value string
	}{
		{"first_name", p.FirstName},
		{"last_name", p.LastName},
	} {
		v := strings.TrimSpace(f.value)
		if v == "" {
			ve.Add(f.field, "is required")
		} else if len([]rune(v)) > 100 {
			ve.Add(f.field, "must be 100 characters or fewer")
		}
	}

	// Catalog references must be numeric when present.
	for _, ref := range []struct {
		field string
		id    ID
	}{
		{"rank_id", p.RankID},
		{"unit_id", p.UnitID},
		{"position_id", p.PositionID},
	} {
		if ref.id.IsZero() {
			continue
		}
		if _, err := ref.id.Int64(); err != nil {
			ve.Add(ref.field, "invalid value %q", ref.id)
		}
	}
	if p.RankID.IsZero() {
		ve.Add("rank_id", "is required")
	}
	if p.UnitID.IsZero() {
		ve.Add("unit_id", "is required")
	}

	return ve.Err()
}
