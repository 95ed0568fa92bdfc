package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
	"github.com/aussiebroadwan/progressiq/pkg/httpx"
	"github.com/aussiebroadwan/progressiq/pkg/jwtx"
	"github.com/aussiebroadwan/progressiq/pkg/trackersdk"
)

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Always 200 while the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	trackersdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, trackersdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// uploadDir is the part of the blob store readiness cares about.
type uploadDir interface {
	Ping() error
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database, the token signer and the upload directory.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	trackersdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	trackersdk.HealthResponse	"one or more checks failed"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store, keys *jwtx.KeySet, uploads uploadDir) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &trackersdk.HealthChecks{Database: "ok", Signer: "ok", Uploads: "ok"}
		status, code := "ok", http.StatusOK
		degrade := func() { status, code = "degraded", http.StatusServiceUnavailable }

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			degrade()
		}
		if !keys.IsReady() {
			checks.Signer = "error: no keys loaded"
			degrade()
		}
		if uploads != nil {
			if err := uploads.Ping(); err != nil {
				checks.Uploads = "error: " + err.Error()
				degrade()
			}
		}

		httpx.WriteJSON(w, code, trackersdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

// JWKSHandler publishes the token verification keys.
//
//	@Summary		Get JWKS
//	@Description	Ed25519 public keys for verifying access tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	trackersdk.JWKSResponse
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.PublicJWKS())
	}
}
