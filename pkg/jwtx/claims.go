package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL matches a working day; the dashboards have no
// refresh flow and send users back to login on expiry.
const DefaultAccessTokenTTL = 24 * time.Hour

// Claims are the access-token claims understood by every handler.
type Claims struct {
	jwt.RegisteredClaims

	// Role is one of Admin, Mentor, Leader, Member.
	Role string `json:"role"`

	// Email is the account's unique key, used for ownership checks.
	Email string `json:"email"`

	Username string `json:"username,omitempty"`

	// Scopes derived from Role at issue time.
	Scopes []string `json:"scopes,omitempty"`

	// Authentication Methods Reference: "pwd", plus "otp" when a TOTP code
	// was supplied at login.
	AMR []string `json:"amr,omitempty"`
}

// AccessClaimsParams collects the inputs for NewAccessClaims.
type AccessClaimsParams struct {
	Subject  string
	Email    string
	Username string
	Role     string
	Scopes   []string
	AMR      []string
	Issuer   string
	Audience []string
	TTL      time.Duration
	Now      time.Time
}

// NewAccessClaims builds claims with iat/nbf/exp/jti filled in.
func NewAccessClaims(p AccessClaimsParams) Claims {
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings(p.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role:     p.Role,
		Email:    p.Email,
		Username: p.Username,
		Scopes:   p.Scopes,
		AMR:      p.AMR,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasScope reports whether the claims grant scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ValidateIssuer checks the issuer; an empty expectation accepts anything.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience requires at least one expected audience to be present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry checks exp and nbf against the current time.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryWithLeeway(0)
}

// ValidateExpiryWithLeeway is ValidateExpiry with a clock-skew allowance.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
