package client

import "context"

// Provider error codes returned by the identity provider.
const (
	CodeUserNotFound    = "auth/user-not-found"
	CodeWrongPassword   = "auth/wrong-password"
	CodeInvalidEmail    = "auth/invalid-email"
	CodeTooManyRequests = "auth/too-many-requests"
	CodeEmailInUse      = "auth/email-already-in-use"
	CodeWeakPassword    = "auth/weak-password"
)

// Success messages for the credential screens to show.
const (
	LoginSuccessMessage    = "Đăng nhập thành công!"
	RegisterSuccessMessage = "Đăng ký thành công! Vui lòng đăng nhập."
)

// ProviderError is a rejection from the identity provider. Error() yields the
// localized, user-facing message for the code; unknown codes fall through to
// the raw provider text so it is never silently discarded.
type ProviderError struct {
	// Code is the machine-readable provider code, empty when the response
	// carried none.
	Code string
	// Raw is the provider's own message text.
	Raw string
}

func (e *ProviderError) Error() string { return localizeAuthError(e.Code, e.Raw) }

// localizeAuthError maps the closed set of provider codes to Vietnamese
// messages shared by the login and registration forms.
func localizeAuthError(code, raw string) string {
	switch code {
	case CodeUserNotFound:
		return "Tài khoản không tồn tại."
	case CodeWrongPassword:
		return "Mật khẩu không đúng."
	case CodeInvalidEmail:
		return "Email không hợp lệ."
	case CodeTooManyRequests:
		return "Quá nhiều lần thử. Vui lòng thử lại sau."
	case CodeEmailInUse:
		return "Email này đã được sử dụng."
	case CodeWeakPassword:
		return "Mật khẩu quá yếu. Cần ít nhất 6 ký tự."
	default:
		return "Lỗi: " + raw
	}
}

// Login validates the credentials locally, then signs in against the backend.
// On success the session token is retained for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	if verr := validateCredentials(email, password); verr != nil {
		return nil, verr
	}

	var session Session
	if _, err := c.postJSON(ctx, "/api/auth/login", credentialForm{Email: email, Password: password}, &session); err != nil {
		return nil, err
	}
	c.setToken(session.ID)
	return &session, nil
}

// Register validates the credentials locally, then creates the account. The
// backend opens a session for the new account and the token is retained.
func (c *Client) Register(ctx context.Context, email, password string) (*Session, error) {
	if verr := validateCredentials(email, password); verr != nil {
		return nil, verr
	}

	var session Session
	if _, err := c.postJSON(ctx, "/api/auth/register", credentialForm{Email: email, Password: password}, &session); err != nil {
		return nil, err
	}
	c.setToken(session.ID)
	return &session, nil
}

// Logout revokes the current session on the backend and drops the token. A
// missing token is a no-op.
func (c *Client) Logout(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}
	_, err := c.postJSON(ctx, "/api/auth/logout", struct{}{}, nil)
	c.setToken("")
	return err
}

type credentialForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
