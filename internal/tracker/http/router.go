package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/blob"
	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/service"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
	"github.com/aussiebroadwan/progressiq/pkg/httpx"
	"github.com/aussiebroadwan/progressiq/pkg/jwtx"
	"github.com/aussiebroadwan/progressiq/pkg/slogx"

	_ "github.com/aussiebroadwan/progressiq/api/progressiq" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:generate swag init -g router.go -d ./,../../../pkg/trackersdk -o ../../../api/progressiq --outputTypes go

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	blobs *blob.Local

	AccountService *service.AccountService
	TaskService    *service.TaskService
	InviteService  *service.InviteService
	ReportService  *service.ReportService
	MFAService     *service.MFAService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	blobs *blob.Local,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		blobs:        blobs,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recoverer,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFA()
	r.registerAdmin()
	r.registerTasks()
	r.registerReports()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			ProgressIQ API
//	@version		0.1.0
//	@description	Role-based task tracking. Leaders assign tasks to members, members submit work,
//	@description	leaders and mentors review it, admins manage accounts.
//	@description
//	@description				Access tokens are EdDSA (Ed25519) JWTs and can be verified with the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/progressiq
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured chains authentication, a scope check and a per-user rate limit.
func (r *Router) secured(h http.Handler, limit httpx.RateLimitConfig, scopes ...string) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireLiveSubject(r.accountExists),
		httpx.RequireAnyScope(scopes...),
		httpx.RateLimitByUser(limit),
	)
}

// accountExists reports whether a token subject still has an account.
func (r *Router) accountExists(ctx context.Context, id string) (bool, error) {
	_, err := r.store.Accounts().GetAccountByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Accounts: r.AccountService, MFA: r.MFAService}

	// Signup and login are the brute-force surface: strict, by IP
	register := httpx.Chain(http.HandlerFunc(h.HandleRegister),
		httpx.RateLimitByIP(httpx.StrictLimit),
	)
	r.Mux.Handle("POST /api/auth/register", register)
	r.Mux.Handle("POST /api/auth/signup", register)

	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET /api/auth/me",
		r.secured(http.HandlerFunc(h.HandleMe), httpx.LenientLimit, domain.ScopeProfile),
	)
}

func (r *Router) registerMFA() {
	h := &AuthHandler{Accounts: r.AccountService, MFA: r.MFAService}

	r.Mux.Handle("POST /api/auth/mfa/enroll",
		r.secured(http.HandlerFunc(h.HandleMFAEnroll), httpx.ModerateLimit, domain.ScopeProfile),
	)
	// Code guessing: strict
	r.Mux.Handle("POST /api/auth/mfa/verify",
		r.secured(http.HandlerFunc(h.HandleMFAVerify), httpx.StrictLimit, domain.ScopeProfile),
	)
	r.Mux.Handle("DELETE /api/auth/mfa",
		r.secured(http.HandlerFunc(h.HandleMFADisable), httpx.StrictLimit, domain.ScopeProfile),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{Accounts: r.AccountService}

	r.Mux.Handle("GET /api/auth/admin/users",
		r.secured(http.HandlerFunc(h.HandleListUsers), httpx.LenientLimit, domain.ScopeAccountsRead),
	)
	r.Mux.Handle("DELETE /api/auth/admin/delete-user/{email}",
		r.secured(http.HandlerFunc(h.HandleDeleteUser), httpx.ModerateLimit, domain.ScopeAccountsWrite),
	)
}

func (r *Router) registerTasks() {
	h := &TaskHandler{
		Tasks:   r.TaskService,
		Invites: r.InviteService,
	}
	if r.blobs != nil {
		h.MaxUploadBytes = r.blobs.MaxBytes()
	}

	// Reads: lenient, the dashboards poll these
	r.Mux.Handle("GET /api/tasks/all",
		r.secured(http.HandlerFunc(h.HandleListAll), httpx.LenientLimit,
			domain.ScopeTasksReadAll),
	)
	r.Mux.Handle("GET /api/tasks/leader/{email}",
		r.secured(http.HandlerFunc(h.HandleListByLeader), httpx.LenientLimit,
			domain.ScopeTasksReadAll, domain.ScopeTasksReadTeam),
	)
	r.Mux.Handle("GET /api/tasks/member/{email}",
		r.secured(http.HandlerFunc(h.HandleListByMember), httpx.LenientLimit,
			domain.ScopeTasksReadAll, domain.ScopeTasksReadTeam, domain.ScopeTasksReadOwn),
	)

	// Mutations: moderate
	r.Mux.Handle("POST /api/tasks/create-multiple",
		r.secured(http.HandlerFunc(h.HandleCreateMultiple), httpx.ModerateLimit, domain.ScopeTasksWrite),
	)
	r.Mux.Handle("POST /api/tasks/assign",
		r.secured(http.HandlerFunc(h.HandleAssign), httpx.ModerateLimit, domain.ScopeTasksWrite),
	)
	r.Mux.Handle("PUT /api/tasks/submit-work/{id}",
		r.secured(http.HandlerFunc(h.HandleSubmitWork), httpx.ModerateLimit, domain.ScopeTasksSubmit),
	)
	r.Mux.Handle("PUT /api/tasks/add-feedback/{id}",
		r.secured(http.HandlerFunc(h.HandleAddFeedback), httpx.ModerateLimit, domain.ScopeTasksReview),
	)
	r.Mux.Handle("PUT /api/tasks/approve/{id}",
		r.secured(http.HandlerFunc(h.HandleApprove), httpx.ModerateLimit, domain.ScopeTasksReview),
	)
	r.Mux.Handle("DELETE /api/tasks/admin/clear-all-tasks",
		r.secured(http.HandlerFunc(h.HandleClearAll), httpx.StrictLimit, domain.ScopeTasksAdmin),
	)
	r.Mux.Handle("DELETE /api/tasks/{id}",
		r.secured(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit,
			domain.ScopeTasksWrite, domain.ScopeTasksAdmin),
	)
	r.Mux.Handle("DELETE /api/tasks/remove-member/{email}",
		r.secured(http.HandlerFunc(h.HandleRemoveMember), httpx.ModerateLimit, domain.ScopeTasksWrite),
	)
	r.Mux.Handle("POST /api/tasks/invite",
		r.secured(http.HandlerFunc(h.HandleInvite), httpx.ModerateLimit, domain.ScopeTasksWrite),
	)
}

func (r *Router) registerReports() {
	h := &ReportHandler{Reports: r.ReportService}

	r.Mux.Handle("GET /api/reports/summary",
		r.secured(http.HandlerFunc(h.HandleSummary), httpx.LenientLimit, domain.ScopeReportsRead),
	)
}

func (r *Router) registerSystem() {
	// Probes may poll often: lenient, by IP
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	var uploads uploadDir
	if r.blobs != nil {
		uploads = r.blobs
	}
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys, uploads),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	if r.blobs != nil {
		r.Mux.Handle("GET "+blob.URLPrefix+"{name}",
			httpx.Chain(r.blobs.Handler(),
				httpx.RateLimitByIP(httpx.PublicLimit),
			),
		)
	}
}
