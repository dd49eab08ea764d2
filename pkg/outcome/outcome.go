package outcome

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"postboard/pkg/logger"
)

// Outcome is what every public operation hands back to the transport.
type Outcome struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(msg string, data interface{}) Outcome {
	return Outcome{Status: http.StatusOK, Message: msg, Data: data}
}

func Created(msg string, data interface{}) Outcome {
	return Outcome{Status: http.StatusCreated, Message: msg, Data: data}
}

type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

var statusByKind = map[Kind]int{
	KindInternal:     http.StatusInternalServerError,
	KindBadRequest:   http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
}

func (k Kind) Status() int {
	return statusByKind[k]
}

// Error is a typed failure of an operation. Msg is safe to show to the
// caller, Cause never is.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func BadRequest(msg string) error {
	return &Error{Kind: KindBadRequest, Msg: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

func Conflict(msg string, cause error) error {
	return &Error{Kind: KindConflict, Msg: msg, Cause: cause}
}

func Internal(cause error) error {
	return &Error{Kind: KindInternal, Msg: "Internal server error", Cause: cause}
}

// KindOf reports the kind of err; anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FromError converts a failure into an outcome. Internal causes are logged
// under a fresh correlation id and only the id reaches the caller.
func FromError(ctx context.Context, err error) Outcome {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindInternal, Msg: "Internal server error", Cause: err}
	}

	if e.Kind != KindInternal {
		return Outcome{Status: e.Kind.Status(), Message: e.Msg}
	}

	correlationID := uuid.NewString()
	logger.Log(ctx).Errorw("internal failure",
		"correlationId", correlationID,
		"error", e.Cause,
	)
	return Outcome{
		Status:  http.StatusInternalServerError,
		Message: e.Msg,
		Data:    map[string]string{"correlationId": correlationID},
	}
}
