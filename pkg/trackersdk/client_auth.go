package trackersdk

import (
	"context"
	"net/http"
	"net/url"
)

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	var out Account
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates and stores the returned session. otp may be empty
// unless the account has MFA enabled.
func (c *Client) Login(ctx context.Context, email, password, otp string) (*LoginResponse, error) {
	req := LoginRequest{Email: email, Password: password, OTP: otp}

	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", req, &out, http.StatusOK); err != nil {
		return nil, err
	}

	c.SetSession(Session{
		Token:     out.Token,
		Role:      out.Role,
		Username:  out.Username,
		Email:     out.Email,
		ExpiresAt: out.ExpiresAt,
	})
	return &out, nil
}

// Me returns the logged-in account.
func (c *Client) Me(ctx context.Context) (*Account, error) {
	var out Account
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnrollMFA starts TOTP enrollment and returns the secret.
func (c *Client) EnrollMFA(ctx context.Context) (*MFAEnrollResponse, error) {
	var out MFAEnrollResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/mfa/enroll", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFA confirms enrollment with a code; later logins need an OTP.
func (c *Client) VerifyMFA(ctx context.Context, code string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/mfa/verify", MFACodeRequest{Code: code}, nil, http.StatusNoContent)
}

// DisableMFA turns MFA off. A current code is required.
func (c *Client) DisableMFA(ctx context.Context, code string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/auth/mfa", MFACodeRequest{Code: code}, nil, http.StatusNoContent)
}

// ListUsers returns every account. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]Account, error) {
	var out []Account
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/admin/users", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUser removes an account and its tasks. It returns the number of
// tasks deleted. Admin only.
func (c *Client) DeleteUser(ctx context.Context, email string) (int64, error) {
	var out DeleteUserResponse
	path := "/api/auth/admin/delete-user/" + url.PathEscape(email)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.DeletedTasks, nil
}

// Summary returns the account and task report.
func (c *Client) Summary(ctx context.Context) (*SummaryResponse, error) {
	var out SummaryResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/reports/summary", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
