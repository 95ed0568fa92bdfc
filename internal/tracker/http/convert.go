package http

import (
	"net/http"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/service"
	"github.com/aussiebroadwan/progressiq/pkg/httpx"
	"github.com/aussiebroadwan/progressiq/pkg/trackersdk"
)

// principal returns the caller injected by AuthnMiddleware. It writes a 401
// and returns false when there is none.
func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		httpx.WriteError(w, http.StatusUnauthorized, codeInvalidToken, "missing access token")
		return domain.Principal{}, false
	}
	return service.PrincipalFromClaims(claims), true
}

func toAccount(a domain.Account) trackersdk.Account {
	return trackersdk.Account{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		Role:        a.Role.String(),
		LeaderEmail: a.LeaderEmail,
		MFAEnabled:  a.MFAEnabled(),
		CreatedAt:   a.CreatedAt,
	}
}

func toAccounts(in []domain.Account) []trackersdk.Account {
	out := make([]trackersdk.Account, 0, len(in))
	for _, a := range in {
		out = append(out, toAccount(a))
	}
	return out
}

func toTask(t domain.Task) trackersdk.Task {
	return trackersdk.Task{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		LeaderEmail:    t.LeaderEmail,
		AssignedTo:     t.AssignedTo,
		Deadline:       t.Deadline.Format(domain.DeadlineLayout),
		Status:         string(t.Status),
		SubmissionNote: t.SubmissionNote,
		FileURL:        t.FileURL,
		Feedback:       t.Feedback,
		SubmittedAt:    t.SubmittedAt,
		CompletedAt:    t.CompletedAt,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// toTasks never returns nil so empty lists encode as [].
func toTasks(in []domain.Task) []trackersdk.Task {
	out := make([]trackersdk.Task, 0, len(in))
	for _, t := range in {
		out = append(out, toTask(t))
	}
	return out
}

func toNewTask(title, description, assignedTo, deadline string) (domain.NewTask, error) {
	d, err := domain.ParseDeadline(deadline)
	if err != nil {
		return domain.NewTask{}, err
	}
	return domain.NewTask{
		Title:       title,
		Description: description,
		AssignedTo:  domain.NormalizeEmail(assignedTo),
		Deadline:    d,
	}, nil
}

func toStats(s domain.TaskStats) trackersdk.TaskStats {
	return trackersdk.TaskStats{
		Total:           s.Total,
		Active:          s.Active,
		Submitted:       s.Submitted,
		Completed:       s.Completed,
		PercentComplete: s.PercentComplete,
	}
}
