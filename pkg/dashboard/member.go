package dashboard

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/progressiq/pkg/trackersdk"
)

type MemberView struct {
	MemberEmail string
	Tasks       []trackersdk.Task
	Stats       Stats
}

// Member is the member's own dashboard. Email defaults to the logged-in
// user.
type Member struct {
	API   API
	Email string
}

func (d *Member) Load(ctx context.Context) (MemberView, error) {
	return loadMember(ctx, d.API, d.Email)
}

// SubmitWork uploads the work file for a task and reloads. A missing file is
// refused before anything is sent.
func (d *Member) SubmitWork(ctx context.Context, taskID, note string, file *trackersdk.File) (MemberView, error) {
	if file == nil || file.Body == nil {
		return MemberView{}, trackersdk.ErrFileRequired
	}
	if _, err := d.API.SubmitWork(ctx, taskID, note, file); err != nil {
		return MemberView{}, err
	}
	return d.Load(ctx)
}

// MemberDetail is one member's tasks as opened by a leader or mentor.
// Done counts only Completed here.
type MemberDetail struct {
	API         API
	MemberEmail string
}

func (d *MemberDetail) Load(ctx context.Context) (MemberView, error) {
	if d.MemberEmail == "" {
		return MemberView{}, ErrNoIdentity
	}
	return loadMember(ctx, d.API, d.MemberEmail)
}

// Assign gives the member another task. The assignee is always this member.
func (d *MemberDetail) Assign(ctx context.Context, req trackersdk.AssignTaskRequest) (MemberView, error) {
	req.Email = d.MemberEmail
	if _, err := d.API.AssignTask(ctx, req); err != nil {
		return MemberView{}, err
	}
	return d.Load(ctx)
}

func (d *MemberDetail) Feedback(ctx context.Context, taskID, feedback string) (MemberView, error) {
	if _, err := d.API.AddFeedback(ctx, taskID, feedback); err != nil {
		return MemberView{}, err
	}
	return d.Load(ctx)
}

func loadMember(ctx context.Context, api API, email string) (MemberView, error) {
	email, err := identity(api, email)
	if err != nil {
		return MemberView{}, err
	}
	tasks, err := api.MemberTasks(ctx, email)
	if err != nil {
		return MemberView{}, fmt.Errorf("list member tasks: %w", err)
	}
	return MemberView{MemberEmail: email, Tasks: tasks, Stats: CountTasks(tasks)}, nil
}
