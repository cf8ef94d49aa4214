// Package apperr defines the error taxonomy shared by the API client, the
// moderation gate and the debate session.
package apperr

import (
	"errors"
	"strings"
)

// Kind classifies an error for the caller.
type Kind int

const (
	Unknown Kind = iota
	// Validation is a malformed id or input, rejected before the network.
	Validation
	// AuthRequired means there is no usable session.
	AuthRequired
	// Forbidden covers side conflicts, expired edit windows and closed debates.
	Forbidden
	NotFound
	ModerationRejected
	// Network is a transport failure, timeout or unexpected server status.
	Network
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case AuthRequired:
		return "auth required"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not found"
	case ModerationRejected:
		return "moderation rejected"
	case Network:
		return "network"
	default:
		return "unknown"
	}
}

// Error is a classified error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Kind sentinels. errors.Is(err, ErrForbidden) matches any Forbidden error.
var (
	ErrValidation         = &Error{Kind: Validation}
	ErrAuthRequired       = &Error{Kind: AuthRequired}
	ErrForbidden          = &Error{Kind: Forbidden}
	ErrNotFound           = &Error{Kind: NotFound}
	ErrModerationRejected = &Error{Kind: ModerationRejected}
	ErrNetwork            = &Error{Kind: Network}
)

// New returns an error of the given kind with a message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return e.Kind.String()
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the bare sentinel of e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Message returns the user-facing message of the first *Error carrying one,
// falling back to err.Error().
func Message(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if ae, ok := e.(*Error); ok && ae.Msg != "" {
			return ae.Msg
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
