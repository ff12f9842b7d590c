package gcov

import (
	"errors"
	"fmt"
)

// ErrMalformedDocument is matched by every decoding and validation failure of a coverage document.
var ErrMalformedDocument = errors.New("malformed coverage document")

// MalformedDocumentError describes where a coverage document broke its schema.
type MalformedDocumentError struct {
	Field  string // JSON path of the offending key, e.g. files[1].functions[0].blocks
	Reason string // What is wrong with it
	Err    error  // Underlying decode error, if any
}

// Error implements the error interface.
func (e *MalformedDocumentError) Error() string {
	msg := ErrMalformedDocument.Error()
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports ErrMalformedDocument as a match so callers can use errors.Is.
func (e *MalformedDocumentError) Is(target error) bool {
	return target == ErrMalformedDocument
}

// Unwrap returns the underlying decode error.
func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

func missingKey(field string) error {
	return &MalformedDocumentError{Field: field, Reason: "missing required key"}
}

func invalidValue(field string, format string, args ...any) error {
	return &MalformedDocumentError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
