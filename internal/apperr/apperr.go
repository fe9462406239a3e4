// Package apperr defines the error taxonomy shared by the wizard, the step
// forms and the submission pipeline. Every failure a user can see is one of
// four kinds; callers switch on the kind with errors.As instead of matching
// message text.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	// KindUnexpected is anything that does not fit the other kinds.
	KindUnexpected Kind = iota
	// KindValidation is a local, field scoped failure fixed by correcting input.
	KindValidation
	// KindPrecondition blocks submission outright (not signed in, missing asset).
	KindPrecondition
	// KindRemote is a failure reported by the object store or the database.
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindRemote:
		return "remote"
	default:
		return "unexpected"
	}
}

// GenericMessage is shown to users for KindUnexpected errors.
const GenericMessage = "An unexpected error occurred"

// Error is the concrete error type for every kind.
type Error struct {
	Kind Kind
	// Field names the input a validation error belongs to.
	Field string
	// Step labels the pipeline stage that failed, e.g. "Logo".
	Step    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a field scoped validation error.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Precondition builds an error that blocks submission.
func Precondition(message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message}
}

// Upload wraps a storage failure for one asset, prefixing the asset label:
// "Logo upload failed: connection reset".
func Upload(step string, err error) *Error {
	return &Error{
		Kind:    KindRemote,
		Step:    step,
		Message: fmt.Sprintf("%s upload failed: %s", step, reason(err)),
		Err:     err,
	}
}

// Insert wraps a failure to write the aggregate record.
func Insert(err error) *Error {
	return &Error{
		Kind:    KindRemote,
		Step:    "Record",
		Message: fmt.Sprintf("Failed to create app: %s", reason(err)),
		Err:     err,
	}
}

// Unexpected wraps err so it is reported with the generic message.
func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Err: err}
}

func reason(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// KindOf reports the kind of err, KindUnexpected when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var list FieldErrors
	if errors.As(err, &list) && len(list) > 0 {
		return KindValidation
	}
	return KindUnexpected
}

// UserMessage returns the text that may be shown to a user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if KindOf(err) == KindUnexpected {
		return GenericMessage
	}
	return err.Error()
}

// FieldErrors collects the validation failures of one form submission.
type FieldErrors []*Error

// Add appends err when it is non-nil. Non validation errors are converted so
// the list only ever holds validation entries.
func (l *FieldErrors) Add(err error) {
	if err == nil {
		return
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == KindValidation {
		*l = append(*l, e)
		return
	}
	*l = append(*l, Validation("", err.Error()))
}

// Err returns nil for an empty list so callers can `return errs.Err()`.
func (l FieldErrors) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// ByField maps field name to its first message.
func (l FieldErrors) ByField() map[string]string {
	out := make(map[string]string, len(l))
	for _, e := range l {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

func (l FieldErrors) Error() string {
	msgs := make([]string, 0, len(l))
	for _, e := range l {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
