// Package apperr defines the typed errors surfaced by admin operations.
// Every failure carries a stable code for programmatic handling and an HTTP
// status for the API layer.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Stable error codes. Extend by pattern: SCREAMING_SNAKE, scoped to the
// failing operation.
const (
	CodeInvalidJSON               = "INVALID_JSON"
	CodeYoutubeURLRequired        = "YOUTUBE_URL_REQUIRED"
	CodeInvalidYoutubeURL         = "INVALID_YOUTUBE_URL"
	CodeRequestedByUserIDRequired = "REQUESTED_BY_USER_ID_REQUIRED"
	CodeRequestedByUserIDInvalid  = "REQUESTED_BY_USER_ID_INVALID"
	CodeRequestedByUserIDMismatch = "REQUESTED_BY_USER_ID_MISMATCH"
	CodeRunCreateFailed           = "RUN_CREATE_FAILED"
	CodeOutputsStoreFailed        = "OUTPUTS_STORE_FAILED"
	CodeRunUpdateFailed           = "RUN_UPDATE_FAILED"
	CodeIndexerCallFailed         = "INDEXER_CALL_FAILED"
	CodeMissingEnv                = "MISSING_ENV"
	CodeUnexpectedError           = "UNEXPECTED_ERROR"
	CodeVideoNotFound             = "VIDEO_NOT_FOUND"
	CodeChannelNotFound           = "CHANNEL_NOT_FOUND"
	CodeQuotaExhausted            = "QUOTA_EXHAUSTED"
	CodeVideoIDRequired           = "VIDEO_ID_REQUIRED"
	CodeRunNotFound               = "RUN_NOT_FOUND"
	CodeFixtureNotFound           = "FIXTURE_NOT_FOUND"
	CodeFixtureNameRequired       = "FIXTURE_NAME_REQUIRED"
	CodeOutputsNotFound           = "OUTPUTS_NOT_FOUND"
)

// Error is a typed failure with an HTTP status and a stable code.
type Error struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// New creates a typed error.
// Parameters:
//   - status: HTTP status class for API callers.
//   - code: stable machine-readable code.
//   - message: human-readable message.
// Returns:
//   - *Error: the typed error.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// BadRequest creates a 400-class typed error.
func BadRequest(code, message string) *Error {
	return New(http.StatusBadRequest, code, message)
}

// Internal creates a 500-class typed error.
func Internal(code, message string) *Error {
	return New(http.StatusInternalServerError, code, message)
}

// From extracts the typed error from err, wrapping untyped errors as
// UNEXPECTED_ERROR with a keyword-derived status: authorization-class
// messages map to 403, credential-class to 401, everything else to 500.
func From(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	message := "Unknown error"
	if err != nil {
		message = err.Error()
	}

	status := http.StatusInternalServerError
	if strings.Contains(message, "not an admin") {
		status = http.StatusForbidden
	} else if strings.Contains(message, "Invalid") || strings.Contains(message, "Authorization") {
		status = http.StatusUnauthorized
	}

	return New(status, CodeUnexpectedError, message)
}
