package app

import (
	"errors"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

var (
	ErrNotFound = ports.ErrNotFound
	ErrConflict = ports.ErrConflict
)

// Codes stables renvoyés à l'API.
const (
	CodeInvalidSchedule = "invalid_schedule"
	CodeNotFound        = "not_found"
	CodeInvalidParams   = "invalid_params"
	CodeSessionClosed   = "session_closed"
)

// CodedError porte un code d'erreur stable jusqu'à la couche HTTP.
//
// Exemples de codes: invalid_schedule, not_found, invalid_params.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

var ErrSessionClosed = &CodedError{Code: CodeSessionClosed, Message: "session closed"}

// ErrorCode classe une erreur du moteur. "" si elle n'est pas connue.
func ErrorCode(err error) string {
	var ce *CodedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ce) && ce.Code != "":
		return ce.Code
	case errors.Is(err, domain.ErrInvalidSchedule):
		return CodeInvalidSchedule
	case errors.Is(err, ports.ErrNotFound):
		return CodeNotFound
	default:
		return ""
	}
}
