package engine

import (
	"errors"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidFormat   = errors.New("invalid format")
	ErrProductNotFound = errors.New("product not found")
)

// InputError is a validation failure detected before any store lookup.
// Message is the caller facing text placed in the result.
type InputError struct {
	Err     error
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Unwrap() error {
	return e.Err
}

func invalidInput(message string) error {
	return &InputError{Err: ErrInvalidInput, Message: message}
}

// ErrorCodeFor maps an error to the result error code.
func ErrorCodeFor(err error) model.ErrorCode {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return model.ErrorCodeProductNotFound
	case errors.Is(err, ErrInvalidFormat):
		return model.ErrorCodeInvalidFormat
	case errors.Is(err, ErrInvalidInput):
		return model.ErrorCodeInvalidInput
	default:
		return model.ErrorCodeCalculationFailed
	}
}
