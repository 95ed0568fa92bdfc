package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/progressiq/pkg/httpx"
	"github.com/aussiebroadwan/progressiq/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestRecoverer(t *testing.T) {
	h := httpx.Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func newKeyManager(t *testing.T) *jwtx.KeyManager {
	t.Helper()
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "progressiq"})
	require.NoError(t, err)
	return km
}

func mintToken(t *testing.T, km *jwtx.KeyManager, scopes ...string) string {
	t.Helper()
	token, err := km.Signer().Sign(jwtx.NewAccessClaims(jwtx.AccessClaimsParams{
		Subject: "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV",
		Email:   "lead@x.com",
		Role:    "Leader",
		Scopes:  scopes,
		Issuer:  "progressiq",
		TTL:     time.Minute,
	}))
	require.NoError(t, err)
	return token
}

func TestAuthnAndScopes(t *testing.T) {
	km := newKeyManager(t)

	var seen jwtx.Claims
	protected := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = httpx.ClaimsFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}),
		httpx.AuthnMiddleware(km.Verifier()),
		httpx.RequireAnyScope("tasks:write", "tasks:admin"),
	)

	do := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing token", func(t *testing.T) {
		rec := do("")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

		var body httpx.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, "invalid_token", body.Error)
	})

	t.Run("garbage token", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, do("Bearer not-a-jwt").Code)
	})

	t.Run("insufficient scope", func(t *testing.T) {
		rec := do("Bearer " + mintToken(t, km, "tasks:submit"))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
	})

	t.Run("allowed", func(t *testing.T) {
		rec := do("bearer " + mintToken(t, km, "tasks:write"))
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "lead@x.com", seen.Email)
	})
}

func TestRequireAllScopes(t *testing.T) {
	km := newKeyManager(t)
	h := httpx.Chain(okHandler(), httpx.AuthnMiddleware(km.Verifier()), httpx.RequireAllScopes("a", "b"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, km, "a"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, km, "a", "b"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireLiveSubject(t *testing.T) {
	km := newKeyManager(t)
	token := mintToken(t, km, "profile")

	var live bool
	var lookupErr error
	var asked string
	h := httpx.Chain(okHandler(),
		httpx.AuthnMiddleware(km.Verifier()),
		httpx.RequireLiveSubject(func(_ context.Context, sub string) (bool, error) {
			asked = sub
			return live, lookupErr
		}),
	)

	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	live = true
	require.Equal(t, http.StatusOK, serve().Code)
	require.Equal(t, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", asked)

	live = false
	rec := serve()
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "account no longer exists")

	lookupErr = errors.New("db gone")
	require.Equal(t, http.StatusInternalServerError, serve().Code)
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c","extra":1}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	require.NoError(t, httpx.DecodeJSON(req, &dst))
	require.Equal(t, "a@b.c", dst.Email)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
	require.ErrorIs(t, httpx.DecodeJSON(req, &dst), httpx.ErrBadJSON)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`email=a`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.ErrorIs(t, httpx.DecodeJSON(req, &dst), httpx.ErrBadJSON)

	for _, body := range []string{"", " \n"} {
		req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.ContentLength = -1
		err := httpx.DecodeJSON(req, &dst)
		require.ErrorIs(t, err, httpx.ErrEmptyBody)
		require.ErrorIs(t, err, httpx.ErrBadJSON)
	}
}
