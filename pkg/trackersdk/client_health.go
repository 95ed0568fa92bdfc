package trackersdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Liveness calls /livez.
func (c *Client) Liveness(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/livez", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readiness calls /readyz. A degraded service returns the decoded checks
// together with an *APIError carrying 503.
func (c *Client) Readiness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", ErrNetwork, err)
	}

	var out HealthResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, parseErrorResponse(resp, body)
	}
	if resp.StatusCode != http.StatusOK {
		return &out, &APIError{StatusCode: resp.StatusCode, Code: out.Status, Description: "service not ready"}
	}
	return &out, nil
}

// JWKS fetches the token verification keys.
func (c *Client) JWKS(ctx context.Context) (*JWKSResponse, error) {
	var out JWKSResponse
	if err := c.doJSON(ctx, http.MethodGet, "/.well-known/jwks.json", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
