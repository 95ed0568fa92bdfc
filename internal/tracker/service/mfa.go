package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
	"github.com/aussiebroadwan/progressiq/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrInvalidTOTPCode   = errors.New("invalid one-time code")
	ErrMFANotEnrolled    = errors.New("MFA enrollment not started")
	ErrMFANotEnabled     = errors.New("MFA not enabled for this account")
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled for this account")
)

type MFAService struct {
	Store  store.Store
	Issuer string // shown in authenticator apps
}

// Enroll generates a TOTP secret. MFA is not enforced until Verify succeeds;
// enrolling again before that replaces the secret.
func (s *MFAService) Enroll(ctx context.Context, accountID string) (domain.MFAEnrollment, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.MFAEnrollment{}, ErrAccountNotFound
		}
		return domain.MFAEnrollment{}, err
	}
	if account.MFAEnabled() {
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: account.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("generate TOTP key: %w", err)
	}

	if err := s.Store.Accounts().UpdateMFASecret(ctx, accountID, key.Secret()); err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("store MFA secret: %w", err)
	}

	slogx.FromContext(ctx).Info("mfa enrollment started", slog.String("account_id", accountID))
	return domain.MFAEnrollment{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		Issuer:     s.Issuer,
		Account:    account.Email,
	}, nil
}

// Verify checks a code against the enrolled secret and turns MFA on.
func (s *MFAService) Verify(ctx context.Context, accountID, code string) error {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if account.MFAEnabled() {
		return ErrMFAAlreadyEnabled
	}
	if account.MFASecret == nil {
		return ErrMFANotEnrolled
	}
	if !ValidateTOTP(code, account.MFASecret) {
		return ErrInvalidTOTPCode
	}

	if err := s.Store.Accounts().EnableMFA(ctx, accountID, time.Now().UTC()); err != nil {
		return fmt.Errorf("enable MFA: %w", err)
	}

	slogx.FromContext(ctx).Info("mfa enabled", slog.String("account_id", accountID))
	return nil
}

// Disable turns MFA off; a current code is required.
func (s *MFAService) Disable(ctx context.Context, accountID, code string) error {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if !account.MFAEnabled() {
		return ErrMFANotEnabled
	}
	if !ValidateTOTP(code, account.MFASecret) {
		return ErrInvalidTOTPCode
	}

	if err := s.Store.Accounts().DisableMFA(ctx, accountID); err != nil {
		return fmt.Errorf("disable MFA: %w", err)
	}

	slogx.FromContext(ctx).Info("mfa disabled", slog.String("account_id", accountID))
	return nil
}

// ValidateTOTP checks code against secret with the default one-step skew.
func ValidateTOTP(code string, secret *string) bool {
	if secret == nil || *secret == "" {
		return false
	}
	return totp.Validate(strings.TrimSpace(code), *secret)
}
