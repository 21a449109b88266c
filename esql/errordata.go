package esql

import (
	"fmt"
	"strings"
)

// Preprocessing/CLI-usage error codes, per spec.md section 7.
const (
	ErrNone           = 0
	ErrBadInputFile   = 1
	ErrBadOutputFile  = 2
	ErrInputNotExist  = 4
	ErrCopyNotFound   = 10
	ErrCopyCycle      = 11
	ErrSyntaxError    = 12
	ErrUnexpectedEOF  = 13
	ErrDuplicateDecl  = 14
	ErrNoSteps        = 20
	ErrStepFailed     = 21
)

// ErrorData accumulates the outcome of a single preprocessing run: a numeric
// code (0 = success), an ordered list of fatal messages and an ordered list
// of warnings. Warnings never halt the pipeline.
type ErrorData struct {
	Code     int
	Messages []string
	Warnings []string
}

// SetError records a fatal error code and message. Only the first call sets
// Code; subsequent calls append additional messages so a step can report
// more than one problem before returning false.
func (e *ErrorData) SetError(code int, msg string) {
	if e.Code == ErrNone {
		e.Code = code
	}
	e.Messages = append(e.Messages, msg)
}

// SetErrorf is SetError with fmt.Sprintf-style formatting.
func (e *ErrorData) SetErrorf(code int, format string, args ...any) {
	e.SetError(code, fmt.Sprintf(format, args...))
}

// AddWarning records a non-fatal warning; it never changes Code.
func (e *ErrorData) AddWarning(msg string) {
	e.Warnings = append(e.Warnings, msg)
}

// Success reports whether no fatal error has been recorded.
func (e *ErrorData) Success() bool { return e.Code == ErrNone }

// Err returns a single Go error summarizing every recorded message, or nil
// if none were recorded. Intended for callers that only want a `error`, not
// the historical numeric-code contract.
func (e *ErrorData) Err() error {
	if e.Code == ErrNone && len(e.Messages) == 0 {
		return nil
	}
	return fmt.Errorf("preprocessing failed (code %d): %s", e.Code, strings.Join(e.Messages, "; "))
}

// Reset clears all recorded state.
func (e *ErrorData) Reset() {
	e.Code = ErrNone
	e.Messages = nil
	e.Warnings = nil
}
