package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/progressiq/pkg/cryptox"
	"github.com/aussiebroadwan/progressiq/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "progressiq-test"

func sampleClaims(ttl time.Duration) jwtx.Claims {
	return jwtx.NewAccessClaims(jwtx.AccessClaimsParams{
		Subject:  "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV",
		Email:    "m@x.com",
		Username: "member",
		Role:     "Member",
		Scopes:   []string{"tasks:submit", "tasks:read_own"},
		AMR:      []string{"pwd"},
		Issuer:   testIssuer,
		Audience: []string{"api"},
		TTL:      ttl,
		Now:      time.Now().UTC(),
	})
}

func TestEdDSASignAndVerify(t *testing.T) {
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA("kid-1", pemKey)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())
	require.Equal(t, "EdDSA", signer.Alg())

	claims := sampleClaims(5 * time.Minute)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	jwks := keys.PublicJWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
	require.Equal(t, "Ed25519", jwks.Keys[0].Crv)

	got, err := jwtx.NewVerifierEdDSA(keys, testIssuer, []string{"api"}).Verify(token)
	require.NoError(t, err)
	require.Equal(t, claims.Subject, got.Subject)
	require.Equal(t, "m@x.com", got.Email)
	require.Equal(t, "Member", got.Role)
	require.ElementsMatch(t, claims.Scopes, got.Scopes)
}

func TestEdDSAVerifyFailures(t *testing.T) {
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("kid-1", pemKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := signer.Sign(sampleClaims(time.Minute))
		require.NoError(t, err)

		_, err = jwtx.NewVerifierEdDSA(keys, "someone-else", nil).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("unknown key", func(t *testing.T) {
		otherPEM, err := cryptox.GenerateEd25519Key()
		require.NoError(t, err)
		other, err := jwtx.NewSignerEdDSA("kid-other", otherPEM)
		require.NoError(t, err)

		token, err := other.Sign(sampleClaims(time.Minute))
		require.NoError(t, err)

		_, err = jwtx.NewVerifierEdDSA(keys, testIssuer, nil).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("expired", func(t *testing.T) {
		claims := sampleClaims(time.Minute)
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = jwtx.NewVerifierEdDSA(keys, testIssuer, nil).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("hmac token rejected", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sampleClaims(time.Minute)).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = jwtx.NewVerifierEdDSA(keys, testIssuer, nil).Verify(token)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := jwtx.NewVerifierEdDSA(keys, testIssuer, nil).Verify("a.b.c")
		require.Error(t, err)
	})
}

func TestKeyManager(t *testing.T) {
	t.Run("requires issuer", func(t *testing.T) {
		_, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{})
		require.Error(t, err)
	})

	t.Run("ephemeral round trip", func(t *testing.T) {
		km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer})
		require.NoError(t, err)
		require.True(t, km.IsReady())

		token, err := km.Signer().Sign(sampleClaims(time.Minute))
		require.NoError(t, err)

		claims, err := km.Verifier().Verify(token)
		require.NoError(t, err)
		require.Equal(t, "m@x.com", claims.Email)
	})

	t.Run("persisted key keeps kid", func(t *testing.T) {
		pemKey, err := cryptox.GenerateEd25519Key()
		require.NoError(t, err)

		a, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, PrivateKeyPEM: pemKey})
		require.NoError(t, err)
		b, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, PrivateKeyPEM: pemKey})
		require.NoError(t, err)

		require.Equal(t, a.Signer().KID(), b.Signer().KID())

		token, err := a.Signer().Sign(sampleClaims(time.Minute))
		require.NoError(t, err)
		_, err = b.Verifier().Verify(token)
		require.NoError(t, err, "a restarted instance must accept tokens from the same key")
	})
}
