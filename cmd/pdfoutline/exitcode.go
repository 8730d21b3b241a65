package main

import (
	"errors"

	"github.com/dgallion1/pdfoutline/internal/outline"
)

// Process exit codes.
const (
	exitOK       = 0
	exitInput    = 1
	exitInternal = 2
	exitDeadline = 3
)

// exitError carries an explicit exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// usageError marks bad arguments or flags.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

// exitCode maps an error returned by a command onto the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var xe *exitError
	if errors.As(err, &xe) {
		return xe.code
	}
	var ue usageError
	var ie *outline.InputError
	var ee *outline.ExtractionError
	switch {
	case errors.As(err, &ue), errors.As(err, &ie), errors.As(err, &ee):
		return exitInput
	case errors.Is(err, outline.ErrDeadlineExceeded):
		return exitDeadline
	default:
		return exitInternal
	}
}
