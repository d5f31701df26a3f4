package model

import "fmt"

// InvalidInputError reports a malformed or inconsistent request parameter.
// Field names the offending input using its wire name (e.g. "soc_min").
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// invalidf builds an InvalidInputError for the given field.
func invalidf(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
