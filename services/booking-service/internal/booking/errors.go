package booking

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidSessionType = errors.New("invalid session type")
	ErrNotFound           = errors.New("not found")
	ErrSlotUnavailable    = errors.New("time slot not available")
)

// ValidationError carries a caller-facing message and matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError names what was missing and matches ErrNotFound.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(msg string) error {
	return &NotFoundError{Msg: msg}
}

// HTTPStatus maps an error from this package to a response status and message.
// Unknown errors become 500 with a generic message.
func HTTPStatus(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrInvalidSessionType):
		return http.StatusBadRequest, "Invalid session type"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ErrSlotUnavailable):
		return http.StatusConflict, "Time slot not available"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
