package cronexpr

import "fmt"

// ParseError describes a malformed field inside a cron expression.
//
// Field is the logical field name ("minute", "day-of-month", ...), Text the
// offending field text as written. A ParseError is a caller configuration
// error; it is never retried.
type ParseError struct {
	Field  string
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cronexpr: invalid %s field %q: %s", e.Field, e.Text, e.Reason)
}

func parseErr(field, text, format string, args ...any) *ParseError {
	return &ParseError{Field: field, Text: text, Reason: fmt.Sprintf(format, args...)}
}
