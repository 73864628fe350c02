package errors

import "net/http"

// Codes are stable identifiers; the frontend maps them to translated text.

// Project codes.
const (
	CodeProjectNotFound     = "PROJECT_NOT_FOUND"
	CodeProjectCreateFailed = "PROJECT_CREATE_FAILED"
	CodeProjectUpdateFailed = "PROJECT_UPDATE_FAILED"
)

// Notification codes.
const (
	CodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	CodeNotExtensionRequest  = "NOT_EXTENSION_REQUEST"
	CodeAlreadyResolved      = "EXTENSION_ALREADY_RESOLVED"
	CodeInvalidAction        = "INVALID_ACTION"
)

// Auth codes.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeForbidden          = "FORBIDDEN"
)

// Request codes.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeUnsupportedMedia = "UNSUPPORTED_FORMAT"
)

// Generic codes.
const (
	CodeInternal          = "INTERNAL_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeContractViolation = "OPENAPI_RESPONSE_INVALID"
)

// codeStatus maps codes to their default HTTP status.
var codeStatus = map[string]int{
	CodeProjectNotFound:      http.StatusNotFound,
	CodeNotificationNotFound: http.StatusNotFound,
	CodeNotFound:             http.StatusNotFound,
	CodeNotExtensionRequest:  http.StatusBadRequest,
	CodeInvalidAction:        http.StatusBadRequest,
	CodeValidationFailed:     http.StatusBadRequest,
	CodeInvalidRequest:       http.StatusBadRequest,
	CodeUnsupportedMedia:     http.StatusBadRequest,
	CodeAlreadyResolved:      http.StatusConflict,
	CodeInvalidCredentials:   http.StatusUnauthorized,
	CodeUnauthorized:         http.StatusUnauthorized,
	CodeTokenInvalid:         http.StatusUnauthorized,
	CodeForbidden:            http.StatusForbidden,
}

// StatusForCode returns the default HTTP status for code, 500 when unknown.
func StatusForCode(code string) int {
	if s, ok := codeStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// FromCode creates an AppError with the default status for code.
func FromCode(code, message string) *AppError {
	return New(code, message, StatusForCode(code))
}
