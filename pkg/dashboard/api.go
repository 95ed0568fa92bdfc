package dashboard

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/progressiq/pkg/trackersdk"
)

var (
	// ErrAdminProtected is returned when asked to delete an Admin account.
	// The request is never sent.
	ErrAdminProtected = errors.New("dashboard: admin accounts cannot be deleted")

	// ErrNoIdentity means a role dashboard was built without an email and
	// the client has no logged-in session to take one from.
	ErrNoIdentity = errors.New("dashboard: no email and no session")
)

// API is the part of *trackersdk.Client the dashboards use.
type API interface {
	Session() trackersdk.Session

	ListUsers(ctx context.Context) ([]trackersdk.Account, error)
	DeleteUser(ctx context.Context, email string) (int64, error)

	AllTasks(ctx context.Context) ([]trackersdk.Task, error)
	LeaderTasks(ctx context.Context, leaderEmail string) ([]trackersdk.Task, error)
	MemberTasks(ctx context.Context, memberEmail string) ([]trackersdk.Task, error)

	CreateTasks(ctx context.Context, tasks []trackersdk.NewTask) ([]trackersdk.Task, error)
	AssignTask(ctx context.Context, req trackersdk.AssignTaskRequest) (*trackersdk.Task, error)
	SubmitWork(ctx context.Context, taskID, note string, file *trackersdk.File) (*trackersdk.Task, error)
	AddFeedback(ctx context.Context, taskID, feedback string) (*trackersdk.Task, error)
	ApproveTask(ctx context.Context, taskID string) (*trackersdk.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	ClearAllTasks(ctx context.Context) (int64, error)
	RemoveMember(ctx context.Context, memberEmail string) (int64, error)
	CreateInvite(ctx context.Context, req trackersdk.InviteRequest) (*trackersdk.InviteResponse, error)
}

var _ API = (*trackersdk.Client)(nil)

// identity picks the explicit email, falling back to the session's.
func identity(api API, email string) (string, error) {
	if email != "" {
		return email, nil
	}
	if s := api.Session(); s.Email != "" {
		return s.Email, nil
	}
	return "", ErrNoIdentity
}
