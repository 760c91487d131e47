package apperror

import (
	"errors"
	"fmt"
)

// Kind groups failures by how callers are expected to react to them.
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindValidation     Kind = "validation"
	KindStateConflict  Kind = "state_conflict"
	KindBusinessRule   Kind = "business_rule"
	KindInfrastructure Kind = "infrastructure"
)

// Error is a typed failure with a stable machine-readable code.
// Two errors are considered equal by errors.Is when their codes match,
// so sentinels can be returned with a more specific message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(format string, args ...interface{}) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// Internal wraps an unexpected failure as an infrastructure error.
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInfrastructure, Code: CodeInternal, Message: message, Err: err}
}

// As extracts the typed error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err. Untyped errors are infrastructure failures.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInfrastructure
}

// IsExpected reports whether err is a domain outcome rather than a fault.
func IsExpected(err error) bool {
	return err != nil && KindOf(err) != KindInfrastructure
}
