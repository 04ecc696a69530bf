// Package apperr classifies service errors so the HTTP layer can answer with
// the right status and a message that is safe to show to the user.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind of failure
type Kind string

const (
	Invalid  Kind = "invalid"
	NotFound Kind = "not_found"
	Conflict Kind = "conflict"
	Internal Kind = "internal"
)

// GenericMessage is shown when a failure carries no message of its own
const GenericMessage = "Something went wrong, please try again"

// Error carries a kind, a public message and the underlying cause
type Error struct {
	Kind      Kind
	PublicMsg string
	Fields    map[string]string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.PublicMsg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.PublicMsg)
}

func (e *Error) Unwrap() error { return e.Err }

func InvalidErr(publicMsg string, fields map[string]string) *Error {
	return &Error{Kind: Invalid, PublicMsg: publicMsg, Fields: fields}
}

// InvalidWrap marks a sentinel validation error as Invalid, keeping it
// reachable through errors.Is.
func InvalidWrap(err error) *Error {
	return &Error{Kind: Invalid, PublicMsg: err.Error(), Err: err}
}

func NotFoundErr(publicMsg string) *Error {
	return &Error{Kind: NotFound, PublicMsg: publicMsg}
}

func ConflictErr(publicMsg string) *Error {
	return &Error{Kind: Conflict, PublicMsg: publicMsg}
}

// Wrap marks err as internal without a public message
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: Internal, Err: err}
}

func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == kind
}

func HTTPStatus(err error) int {
	if ae, ok := As(err); ok {
		switch ae.Kind {
		case Invalid:
			return http.StatusBadRequest
		case NotFound:
			return http.StatusNotFound
		case Conflict:
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message to show for err, falling back to
// GenericMessage.
func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.PublicMsg != "" {
		return ae.PublicMsg
	}
	return GenericMessage
}
