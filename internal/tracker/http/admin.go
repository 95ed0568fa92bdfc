package http

import (
	"net/http"

	"github.com/aussiebroadwan/progressiq/internal/tracker/service"
	"github.com/aussiebroadwan/progressiq/pkg/httpx"
	"github.com/aussiebroadwan/progressiq/pkg/trackersdk"
)

// AdminHandler serves account administration.
type AdminHandler struct {
	Accounts *service.AccountService
}

// HandleListUsers handles GET /api/auth/admin/users
//
//	@Summary		List accounts
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		trackersdk.Account
//	@Failure		401	{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	trackersdk.ErrorResponse	"Insufficient scope"
//	@Router			/api/auth/admin/users [get].
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Accounts.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAccounts(accounts))
}

// HandleDeleteUser handles DELETE /api/auth/admin/delete-user/{email}
//
//	@Summary		Delete an account
//	@Description	Deletes the account together with every task it is assigned to or leads, the invites it minted
//	@Description	and the uploaded files of those tasks. Admin accounts cannot be deleted.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			email	path		string	true	"Account email"
//	@Success		200		{object}	trackersdk.DeleteUserResponse
//	@Failure		401		{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403		{object}	trackersdk.ErrorResponse	"Insufficient scope or protected account"
//	@Failure		404		{object}	trackersdk.ErrorResponse	"Account not found"
//	@Router			/api/auth/admin/delete-user/{email} [delete].
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	deleted, err := h.Accounts.Delete(r.Context(), p, r.PathValue("email"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, trackersdk.DeleteUserResponse{DeletedTasks: deleted})
}

// ReportHandler serves aggregate reports.
type ReportHandler struct {
	Reports *service.ReportService
}

// HandleSummary handles GET /api/reports/summary
//
//	@Summary		Summary report
//	@Description	Account counts per role and task counts per status with the completion percentage.
//	@Tags			Reports
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	trackersdk.SummaryResponse
//	@Failure		401	{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	trackersdk.ErrorResponse	"Insufficient scope"
//	@Router			/api/reports/summary [get].
func (h *ReportHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Reports.Summary(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	accounts := make(map[string]int, len(sum.Accounts))
	for role, n := range sum.Accounts {
		accounts[role.String()] = n
	}
	httpx.WriteJSON(w, http.StatusOK, trackersdk.SummaryResponse{
		Accounts: accounts,
		Tasks:    toStats(sum.Tasks),
	})
}
