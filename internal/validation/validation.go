// Package validation holds the field-level error type shared by domain services.
package validation

import "errors"

// Error reports a single invalid input field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return e.Field + " " + e.Reason
}

// Required returns an Error for a missing field.
func Required(field string) error {
	return &Error{Field: field, Reason: "is required"}
}

// Invalid returns an Error with a custom reason.
func Invalid(field, reason string) error {
	return &Error{Field: field, Reason: reason}
}

// Is reports whether err carries a validation failure.
func Is(err error) bool {
	var v *Error
	return errors.As(err, &v)
}
