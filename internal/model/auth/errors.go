package auth

import "fmt"

// Provider error codes. This is a closed vocabulary: clients switch over it
// to pick a user-facing message, with a generic fallback for anything else.
const (
	CodeUserNotFound    = "auth/user-not-found"
	CodeWrongPassword   = "auth/wrong-password"
	CodeInvalidEmail    = "auth/invalid-email"
	CodeTooManyRequests = "auth/too-many-requests"
	CodeEmailInUse      = "auth/email-already-in-use"
	CodeWeakPassword    = "auth/weak-password"
)

// AuthError is the identity service's failure type. Message is diagnostic
// text, not localized; localization happens at the presentation layer.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewAuthError builds an AuthError with a formatted message.
func NewAuthError(code, format string, args ...any) *AuthError {
	return &AuthError{Code: code, Message: fmt.Sprintf(format, args...)}
}
