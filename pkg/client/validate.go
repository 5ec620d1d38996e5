package client

import (
	"regexp"
	"strings"
)

const minPasswordLen = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError reports a locally rejected credential form. The message is
// user-facing and names only the first violated rule.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// validateCredentials checks presence first, then email shape, then password
// length. The first violation wins and no request is made.
func validateCredentials(email, password string) *ValidationError {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return &ValidationError{Message: "Vui lòng nhập email và mật khẩu."}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Message: "Email không hợp lệ."}
	}
	if len(password) < minPasswordLen {
		return &ValidationError{Message: "Mật khẩu phải có ít nhất 6 ký tự."}
	}
	return nil
}
