package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/aussiebroadwan/progressiq/internal/tracker/blob"
	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/service"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
	"github.com/aussiebroadwan/progressiq/pkg/httpx"
	"github.com/aussiebroadwan/progressiq/pkg/slogx"
	"github.com/go-playground/validator/v10"
)

// Error codes carried in ErrorResponse.Error.
const (
	codeInvalidRequest     = "invalid_request"
	codeInvalidCredentials = "invalid_credentials"
	codeMFARequired        = "mfa_required"
	codeInvalidCode        = "invalid_code"
	codeInvalidToken       = "invalid_token"
	codeAccessDenied       = "access_denied"
	codeNotFound           = "not_found"
	codeConflict           = "conflict"
	codeTooLarge           = "payload_too_large"
	codeServerError        = "server_error"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and checks its validate tags.
// On failure it writes a 400 and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	log := slogx.FromContext(r.Context())

	if err := httpx.DecodeJSON(r, dst); err != nil {
		log.Warn("failed to parse request", slog.Any("error", err))
		httpx.WriteError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		desc := validationMessage(err)
		log.Warn("request validation failed", slog.String("reason", desc))
		httpx.WriteError(w, http.StatusBadRequest, codeInvalidRequest, desc)
		return false
	}
	return true
}

// decodeOptional is decodeAndValidate for endpoints whose body may be
// omitted. An empty body, chunked or not, leaves dst at its zero value.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	log := slogx.FromContext(r.Context())

	if err := httpx.DecodeJSON(r, dst); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		log.Warn("failed to parse request", slog.Any("error", err))
		httpx.WriteError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		desc := validationMessage(err)
		log.Warn("request validation failed", slog.String("reason", desc))
		httpx.WriteError(w, http.StatusBadRequest, codeInvalidRequest, desc)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		// Drop the struct name prefix: "RegisterRequest.email" -> "email".
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// writeServiceError maps a service, domain or store error to a response.
// Anything unrecognised is logged and returned as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		slogx.FromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		httpx.WriteError(w, status, code, "internal error")
		return
	}
	httpx.WriteError(w, status, code, errorText(err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidAccount),
		errors.Is(err, service.ErrInvalidTask),
		errors.Is(err, service.ErrAssigneeNotMember),
		errors.Is(err, service.ErrFileRequired),
		errors.Is(err, service.ErrInviteEmailMismatch),
		errors.Is(err, domain.ErrInvalidDeadline),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, blob.ErrEmpty),
		errors.Is(err, blob.ErrInvalidName):
		return http.StatusBadRequest, codeInvalidRequest

	case errors.Is(err, service.ErrInvalidTOTPCode):
		return http.StatusBadRequest, codeInvalidCode

	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeInvalidCredentials
	case errors.Is(err, service.ErrMFARequired):
		return http.StatusUnauthorized, codeMFARequired

	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrAccountProtected),
		errors.Is(err, service.ErrAdminSignupDenied),
		errors.Is(err, service.ErrInviteRole):
		return http.StatusForbidden, codeAccessDenied

	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrInviteNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, codeNotFound

	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrStatusConflict),
		errors.Is(err, service.ErrInviteAlreadyUsed),
		errors.Is(err, service.ErrMFANotEnrolled),
		errors.Is(err, service.ErrMFANotEnabled),
		errors.Is(err, service.ErrMFAAlreadyEnabled),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict, codeConflict

	case errors.Is(err, blob.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, codeTooLarge
	}
	return http.StatusInternalServerError, codeServerError
}

// errorText strips package prefixes ("domain: ", "blob: ") from messages
// shown to users.
func errorText(err error) string {
	msg := err.Error()
	for _, p := range []string{"domain: ", "blob: ", "store: "} {
		msg = strings.ReplaceAll(msg, p, "")
	}
	return msg
}
