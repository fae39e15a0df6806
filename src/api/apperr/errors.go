// Package apperr defines the error kinds surfaced by the pitch service and
// their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	// KindRateLimited is a conflict on the daily submission counter.
	KindRateLimited
	KindUpstream
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstream:
		return "upstream"
	case KindConfiguration:
		return "configuration"
	default:
		return "internal"
	}
}

// Error carries a kind, a caller-facing message and an optional cause.
type Error struct {
	Kind  Kind
	Msg   string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg == "" {
			return e.Err.Error()
		}
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind and message so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == e.Msg && t.Err == nil
}

var (
	ErrNotFunded          = &Error{Kind: KindConflict, Msg: "not funded"}
	ErrAlreadyClaimed     = &Error{Kind: KindConflict, Msg: "already claimed"}
	ErrAlreadyEvaluated   = &Error{Kind: KindConflict, Msg: "pitch already evaluated"}
	ErrAwaitingAgent      = &Error{Kind: KindConflict, Msg: "awaiting vc reply"}
	ErrAwaitingFounder    = &Error{Kind: KindConflict, Msg: "awaiting founder reply"}
	ErrStaleConversation  = &Error{Kind: KindConflict, Msg: "conversation changed, reload and retry"}
	ErrDailyCap           = &Error{Kind: KindRateLimited, Msg: "Daily pitch limit reached. Try again tomorrow!"}
	ErrPayerNotConfigured = &Error{Kind: KindConfiguration, Msg: "funding system not configured"}
	ErrPitchNotFound      = &Error{Kind: KindNotFound, Msg: "pitch not found"}
	ErrAgentNotFound      = &Error{Kind: KindNotFound, Msg: "vc agent not found"}
)

func Validation(field, msg string) error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Upstream wraps a generation or chain failure.
func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

func Configuration(msg string) error {
	return &Error{Kind: KindConfiguration, Msg: msg}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsConflict(err error) bool {
	k := KindOf(err)
	return k == KindConflict || k == KindRateLimited
}

func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool    { return KindOf(err) == KindValidation }
func IsUpstream(err error) bool      { return KindOf(err) == KindUpstream }
func IsConfiguration(err error) bool { return KindOf(err) == KindConfiguration }

// Status maps an error onto the HTTP status the API responds with.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	case KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing text, hiding internal error details.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindUpstream {
			return e.Msg
		}
		return e.Error()
	}
	return "internal error"
}
