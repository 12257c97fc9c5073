package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrDocumentNotFound is returned by document stores for unknown keys.
var ErrDocumentNotFound = errors.New("document not found")

// ErrorKind classifies failures of the scoring bridge.
type ErrorKind string

const (
	KindInitTimeout          ErrorKind = "init_timeout"
	KindInitNetworkFailure   ErrorKind = "init_network_failure"
	KindInitOtherFailure     ErrorKind = "init_other_failure"
	KindEvalTimeout          ErrorKind = "eval_timeout"
	KindEvalWorkerError      ErrorKind = "eval_worker_error"
	KindEvalProgramInjection ErrorKind = "eval_program_injection"
	KindSerializationFailure ErrorKind = "serialization_failure"
)

// Error is a classified bridge failure carrying one human-readable message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError builds a classified error.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the Err* sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrInitTimeout          = &Error{Kind: KindInitTimeout}
	ErrInitNetworkFailure   = &Error{Kind: KindInitNetworkFailure}
	ErrInitOtherFailure     = &Error{Kind: KindInitOtherFailure}
	ErrEvalTimeout          = &Error{Kind: KindEvalTimeout}
	ErrEvalWorkerError      = &Error{Kind: KindEvalWorkerError}
	ErrEvalProgramInjection = &Error{Kind: KindEvalProgramInjection}
	ErrSerializationFailure = &Error{Kind: KindSerializationFailure}
)

// KindOf extracts the classification of err, or "" when err is not a bridge error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
