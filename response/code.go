package response

import "net/http"

// Code identifies an error class in the JSON envelope.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeAccountLocked      Code = "ACCOUNT_LOCKED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeTooManyRequests    Code = "TOO_MANY_REQUESTS"
	CodeInternal           Code = "INTERNAL_ERROR"
)

var codeStatus = map[Code]int{
	CodeValidation:         http.StatusBadRequest,
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeInvalidCredentials: http.StatusUnauthorized,
	CodeAccountLocked:      http.StatusForbidden,
	CodeNotFound:           http.StatusNotFound,
	CodeConflict:           http.StatusConflict,
	CodeTooManyRequests:    http.StatusTooManyRequests,
	CodeInternal:           http.StatusInternalServerError,
}

var codeMessage = map[Code]string{
	CodeValidation:         "Invalid request",
	CodeUnauthorized:       "Not authorized",
	CodeInvalidCredentials: "Invalid email or password",
	CodeAccountLocked:      "Account temporarily locked after too many attempts. Try again later.",
	CodeNotFound:           "Not found",
	CodeConflict:           "Conflict",
	CodeTooManyRequests:    "Too many requests. Try again later.",
	CodeInternal:           "Internal server error",
}

// Status returns the HTTP status for c, 500 for unknown codes.
func (c Code) Status() int {
	if status, ok := codeStatus[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Message returns the default caller-facing text for c.
func (c Code) Message() string {
	if msg, ok := codeMessage[c]; ok {
		return msg
	}
	return codeMessage[CodeInternal]
}
