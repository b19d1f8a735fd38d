// Package apperr defines the typed error taxonomy shared by every service.
//
// Errors carry a Kind (the broad class the API layer maps to a status) and
// a stable machine-readable Code (the specific cause). Callers branch with
// KindOf or the Is helpers, never by string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller.
type Kind int

const (
	// KindValidation marks malformed input.
	KindValidation Kind = iota + 1
	// KindNotFound marks a missing user, project, member, timer, or entry.
	KindNotFound
	// KindConflict marks a uniqueness or singleton-mutex violation,
	// including the race variant detected at commit time.
	KindConflict
	// KindPrecondition marks a business-rule violation: not a member,
	// sharing disabled, zero contribution, invitation expired or answered.
	KindPrecondition
	// KindContention marks bounded optimistic-commit retries exhausted.
	KindContention
)

// Codes identify the specific cause. Race-variant codes are distinct from
// their fast-path counterparts so callers can tell a pre-checked conflict
// from one detected by the commit itself.
const (
	CodeDuplicateEmail     = "duplicate_email"
	CodeDuplicateEmailRace = "duplicate_email_race"
	CodeTimerRunning       = "timer_running"
	CodeTimerRunningRace   = "timer_running_race"
	CodeNoActiveTimer      = "no_active_timer"
	CodeNotAMember         = "not_a_member"
	CodeSharingDisabled    = "sharing_disabled"
	CodeNoContribution     = "no_contribution"
	CodeInviteExpired      = "invitation_expired"
	CodeInviteAnswered     = "invitation_answered"
	CodeEntryCompleted     = "entry_completed"
	CodeContention         = "contention"
	CodeInvalidInput       = "invalid_input"
	CodeNotAuthorized      = "not_authorized"
)

// Error is a typed service error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind and code.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap builds an error of the given kind and code around a cause.
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Validation builds a KindValidation error.
func Validation(message string) *Error {
	return New(KindValidation, CodeInvalidInput, message)
}

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error {
	return New(KindNotFound, "not_found", message)
}

// Conflict builds a KindConflict error with the given code.
func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

// Precondition builds a KindPrecondition error with the given code.
func Precondition(code, message string) *Error {
	return New(KindPrecondition, code, message)
}

// Contention builds a KindContention error, recording the attempt count.
func Contention(op string, attempts int) *Error {
	return New(KindContention, CodeContention,
		fmt.Sprintf("%s: commit contention after %d attempts", op, attempts))
}

// KindOf returns the error's kind, or 0 for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// CodeOf returns the error's code, or "" for untyped errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a KindConflict error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsPrecondition reports whether err is a KindPrecondition error.
func IsPrecondition(err error) bool { return KindOf(err) == KindPrecondition }

// IsContention reports whether err is a KindContention error.
func IsContention(err error) bool { return KindOf(err) == KindContention }
