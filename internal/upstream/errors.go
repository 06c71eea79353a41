package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx answer from the ticketing API. Message is already
// user-facing; Body keeps the raw payload for callers that need the error
// code inside (the auth bridge does).
type StatusError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	return e.Message
}

// statusMessage maps the statuses the registration endpoint is known to emit
// onto specific user-facing messages; anything else is a generic failure.
func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Solicitud inválida"
	case http.StatusUnauthorized:
		return "Debes iniciar sesión para continuar"
	case http.StatusForbidden:
		return "No tienes permiso para realizar esta acción"
	case http.StatusConflict:
		return "Ya estás inscrito en este evento"
	case http.StatusUnprocessableEntity:
		return "El evento no admite más inscripciones"
	default:
		return "No se pudo completar la operación. Inténtalo de nuevo"
	}
}

func newStatusError(status int, body []byte) *StatusError {
	return &StatusError{
		Status:  status,
		Message: statusMessage(status),
		Body:    body,
	}
}

// retryable reports whether a failed call may be retried: transport errors
// and 5xx answers, never client errors.
func retryable(err error) bool {
	var se *StatusError

	if errors.As(err, &se) {
		return se.Status >= 500
	}

	return true // transport-level failure
}

func wrapTransport(op string, err error) error {
	return fmt.Errorf("upstream %s: %w", op, err)
}
