package service

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a failed catalog request.
type Kind int

const (
	// KindInvalidPayload is a missing or malformed required field.
	KindInvalidPayload Kind = iota + 1
	// KindUnknownAction is an absent or unrecognized action.
	KindUnknownAction
	// KindMethodNotAllowed is an HTTP method other than GET, POST or OPTIONS.
	KindMethodNotAllowed
	// KindStorage is any failure reported by the database.
	KindStorage
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindInvalidPayload, KindUnknownAction:
		return http.StatusBadRequest
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	}
	return http.StatusInternalServerError
}

func (k Kind) String() string {
	switch k {
	case KindInvalidPayload:
		return "invalid_payload"
	case KindUnknownAction:
		return "unknown_action"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// Error is returned by ParseRequest and Catalog. Msg is the client-facing
// message; for storage failures it is empty and the wrapped error's text is used.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

var (
	// ErrUnknownAction is returned for a POST body whose action is absent or unrecognized.
	ErrUnknownAction = &Error{Kind: KindUnknownAction, Msg: "unknown action"}
	// ErrMethodNotAllowed is returned for HTTP methods the catalog does not serve.
	ErrMethodNotAllowed = &Error{Kind: KindMethodNotAllowed, Msg: "method not allowed"}
)

func invalidPayload(msg string) *Error {
	return &Error{Kind: KindInvalidPayload, Msg: msg}
}

func storageError(err error) *Error {
	return &Error{Kind: KindStorage, Err: err}
}

// KindOf returns the kind of err. Errors that are not *Error count as storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// Message returns the text a client sees for err. Request errors give their
// Msg; anything else gives the database's own message, or the innermost
// wrapped error, without the operation context added on the way up.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
