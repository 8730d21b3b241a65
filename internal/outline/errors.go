package outline

import (
	"errors"
	"fmt"
)

// ErrDeadlineExceeded is returned when a document run exceeds its budget.
var ErrDeadlineExceeded = errors.New("deadline exceeded")

// InputReason classifies why a document could not be opened.
type InputReason string

const (
	ReasonMissing      InputReason = "missing"
	ReasonUnreadable   InputReason = "unreadable"
	ReasonEncrypted    InputReason = "encrypted"
	ReasonTooManyPages InputReason = "too_many_pages"
	ReasonUnsupported  InputReason = "unsupported"
)

// InputError means the document was rejected before extraction started.
type InputError struct {
	Path   string
	Reason InputReason
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("input %s: %s", e.Path, e.Reason)
}

func (e *InputError) Unwrap() error { return e.Err }

// ExtractionError means the source failed on a page mid-document.
type ExtractionError struct {
	Page int
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract page %d: %v", e.Page, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// InvariantError reports a violated classifier invariant. It indicates a bug,
// not a property of the input.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "invariant violated: " + e.Msg
}
