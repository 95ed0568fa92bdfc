package trackersdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork wraps failures where no response was received.
	ErrNetwork = errors.New("trackersdk: network error")

	// ErrFileRequired is returned by SubmitWork before any request is sent
	// when no file was selected.
	ErrFileRequired = errors.New("trackersdk: a work file is required")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("trackersdk: %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("trackersdk: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// StatusCode returns the HTTP status carried by an *APIError in err's
// chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// parseErrorResponse builds an *APIError from a non-2xx response body.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        "http_error",
		Description: http.StatusText(resp.StatusCode),
	}
}
