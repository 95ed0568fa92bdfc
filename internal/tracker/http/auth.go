package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/service"
	"github.com/aussiebroadwan/progressiq/pkg/httpx"
	"github.com/aussiebroadwan/progressiq/pkg/slogx"
	"github.com/aussiebroadwan/progressiq/pkg/trackersdk"
)

// AuthHandler serves signup, login and the caller's own account.
type AuthHandler struct {
	Accounts *service.AccountService
	MFA      *service.MFAService
}

// HandleRegister handles POST /api/auth/register
//
//	@Summary		Register an account
//	@Description	Creates an account. An invite token sets the role and joins the inviting leader's team.
//	@Description	Registering as Admin requires the admin signup key.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		trackersdk.RegisterRequest	true	"Signup form"
//	@Success		201		{object}	trackersdk.Account
//	@Failure		400		{object}	trackersdk.ErrorResponse	"Invalid request"
//	@Failure		403		{object}	trackersdk.ErrorResponse	"Admin signup denied"
//	@Failure		404		{object}	trackersdk.ErrorResponse	"Invite not found or expired"
//	@Failure		409		{object}	trackersdk.ErrorResponse	"Email already registered or invite used"
//	@Failure		429		{object}	trackersdk.ErrorResponse	"Rate limited"
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req trackersdk.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var role domain.Role
	if req.Role != "" {
		parsed, err := domain.ParseRole(req.Role)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		role = parsed
	}

	account, err := h.Accounts.Register(r.Context(), service.RegisterParams{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		Role:        role,
		InviteToken: req.Invite,
		AdminKey:    req.AdminKey,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toAccount(account))
}

// HandleLogin handles POST /api/auth/login
//
//	@Summary		Log in
//	@Description	Exchanges email and password for a bearer token. Accounts with MFA enabled must also send otp.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		trackersdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	trackersdk.LoginResponse
//	@Failure		400		{object}	trackersdk.ErrorResponse	"Invalid request"
//	@Failure		401		{object}	trackersdk.ErrorResponse	"Invalid credentials, one-time code required or invalid"
//	@Failure		429		{object}	trackersdk.ErrorResponse	"Rate limited"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req trackersdk.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.Accounts.Login(r.Context(), req.Email, req.Password, req.OTP)
	if err != nil {
		// A wrong code at login is an authentication failure, not a bad form.
		if errors.Is(err, service.ErrInvalidTOTPCode) {
			httpx.WriteError(w, http.StatusUnauthorized, codeInvalidCode, err.Error())
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, trackersdk.LoginResponse{
		Token:     res.Token,
		Role:      res.Account.Role.String(),
		Username:  res.Account.Username,
		Email:     res.Account.Email,
		ExpiresAt: res.ExpiresAt,
	})
}

// HandleMe handles GET /api/auth/me
//
//	@Summary		Current account
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	trackersdk.Account
//	@Failure		401	{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		404	{object}	trackersdk.ErrorResponse	"Account no longer exists"
//	@Router			/api/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	account, err := h.Accounts.Get(r.Context(), p.AccountID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAccount(account))
}

// HandleMFAEnroll handles POST /api/auth/mfa/enroll
//
//	@Summary		Start TOTP enrollment
//	@Description	Generates a TOTP secret. MFA is enforced once a code is verified.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	trackersdk.MFAEnrollResponse
//	@Failure		401	{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		409	{object}	trackersdk.ErrorResponse	"MFA already enabled"
//	@Router			/api/auth/mfa/enroll [post].
func (h *AuthHandler) HandleMFAEnroll(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	enr, err := h.MFA.Enroll(r.Context(), p.AccountID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, trackersdk.MFAEnrollResponse{
		Secret:     enr.Secret,
		OTPAuthURL: enr.OTPAuthURL,
		Issuer:     enr.Issuer,
		Account:    enr.Account,
	})
}

// HandleMFAVerify handles POST /api/auth/mfa/verify
//
//	@Summary		Enable MFA
//	@Description	Verifies a code against the enrolled secret and enables MFA for future logins.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	trackersdk.MFACodeRequest	true	"TOTP code"
//	@Success		204
//	@Failure		400	{object}	trackersdk.ErrorResponse	"Invalid code"
//	@Failure		401	{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		409	{object}	trackersdk.ErrorResponse	"Not enrolled or already enabled"
//	@Router			/api/auth/mfa/verify [post].
func (h *AuthHandler) HandleMFAVerify(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req trackersdk.MFACodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.MFA.Verify(r.Context(), p.AccountID, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("mfa enabled via api", slog.String("account_id", p.AccountID))
	w.WriteHeader(http.StatusNoContent)
}

// HandleMFADisable handles DELETE /api/auth/mfa
//
//	@Summary		Disable MFA
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	trackersdk.MFACodeRequest	true	"Current TOTP code"
//	@Success		204
//	@Failure		400	{object}	trackersdk.ErrorResponse	"Invalid code"
//	@Failure		401	{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		409	{object}	trackersdk.ErrorResponse	"MFA not enabled"
//	@Router			/api/auth/mfa [delete].
func (h *AuthHandler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req trackersdk.MFACodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.MFA.Disable(r.Context(), p.AccountID, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
