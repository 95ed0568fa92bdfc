package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/pkg/jwtx"
	"github.com/aussiebroadwan/progressiq/pkg/slogx"
)

// TokenService issues access tokens. There are no refresh tokens; clients
// log in again when the token expires.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Issuer     string
	AccessTTL  time.Duration
}

// IssueAccessToken signs a token for a carrying its role and the scopes
// derived from it.
func (s *TokenService) IssueAccessToken(ctx context.Context, a domain.Account, amr []string) (string, time.Time, error) {
	claims := jwtx.NewAccessClaims(jwtx.AccessClaimsParams{
		Subject:  a.ID,
		Email:    a.Email,
		Username: a.Username,
		Role:     a.Role.String(),
		Scopes:   a.Role.Scopes(),
		AMR:      amr,
		Issuer:   s.Issuer,
		TTL:      s.AccessTTL,
	})

	token, err := s.KeyManager.Signer().Sign(claims)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to sign access token",
			slog.String("account_id", a.ID),
			slog.Any("error", err),
		)
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// PrincipalFromClaims maps verified token claims to the caller identity.
func PrincipalFromClaims(c jwtx.Claims) domain.Principal {
	return domain.Principal{
		AccountID: c.Subject,
		Email:     domain.NormalizeEmail(c.Email),
		Role:      domain.Role(c.Role),
	}
}
