package apperr

import (
	"errors"
	"net/http"
)

// Error codes returned in the error_code field of API responses.
const (
	CodeInvalidData          = "INVALID_DATA"
	CodeInvalidType          = "INVALID_TYPE"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeDoubleReport         = "DOUBLE_REPORT"
	CodeMeasureNotFound      = "MEASURE_NOT_FOUND"
	CodeMeasuresNotFound     = "MEASURES_NOT_FOUND"
	CodeConfirmationDup      = "CONFIRMATION_DUPLICATE"
	CodeAPIError             = "API_ERROR"
	CodeServerError          = "SERVER_ERROR"
)

// Error is an API-level failure carrying the HTTP status and error code
// emitted to the client.
type Error struct {
	Status  int
	Code    string
	Message string
}

// New creates an Error with the given status, code and client-facing message.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// From extracts the *Error from err's chain. Failures that do not carry
// a status/code collapse into 500 SERVER_ERROR.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr
	}
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeServerError,
		Message: "Erro interno do servidor",
	}
}
