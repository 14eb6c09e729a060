package errors

import (
	stderrors "errors"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
)

// Error codes used by listlens envelopes.
const (
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeFileNotFound  = "FILE_NOT_FOUND"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeDatabaseError = "DATABASE_ERROR"
)

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return withCorrelation(errors.NewErrorEnvelope(CodeConfigInvalid, message))
}

func NewFileNotFoundError(message string) *errors.ErrorEnvelope {
	return withCorrelation(errors.NewErrorEnvelope(CodeFileNotFound, message))
}

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return withCorrelation(errors.NewErrorEnvelope(CodeInvalidInput, message))
}

func WrapConfigInvalid(err error, message string) *errors.ErrorEnvelope {
	return withWrappedError(NewConfigInvalidError(message), err)
}

func WrapFileNotFound(err error, message string) *errors.ErrorEnvelope {
	return withWrappedError(NewFileNotFoundError(message), err)
}

func WrapInvalidInput(err error, message string) *errors.ErrorEnvelope {
	return withWrappedError(NewInvalidInputError(message), err)
}

func WrapDatabaseError(err error, message string) *errors.ErrorEnvelope {
	return withWrappedError(withCorrelation(errors.NewErrorEnvelope(CodeDatabaseError, message)), err)
}

// AsEnvelope returns the envelope inside err, if any.
func AsEnvelope(err error) (*errors.ErrorEnvelope, bool) {
	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		return envelope, true
	}
	return nil, false
}

// IsConfigError reports whether err is a fatal configuration error.
func IsConfigError(err error) bool {
	envelope, ok := AsEnvelope(err)
	if !ok {
		return false
	}
	switch envelope.Code {
	case CodeConfigInvalid, CodeFileNotFound, CodeInvalidInput:
		return true
	default:
		return false
	}
}

// ExitCodeFor maps an error to a foundry exit code.
func ExitCodeFor(err error) foundry.ExitCode {
	envelope, ok := AsEnvelope(err)
	if !ok {
		return foundry.ExitFailure
	}
	switch envelope.Code {
	case CodeConfigInvalid, CodeInvalidInput:
		return foundry.ExitConfigInvalid
	case CodeFileNotFound:
		return foundry.ExitFileNotFound
	default:
		return foundry.ExitFailure
	}
}

func withCorrelation(envelope *errors.ErrorEnvelope) *errors.ErrorEnvelope {
	return envelope.WithCorrelationID(uuid.New().String())
}

func withWrappedError(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}

	updated, updateErr := envelope.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	})
	if updateErr != nil {
		return envelope
	}
	updated.Original = err
	return updated
}
