package dashboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/aussiebroadwan/progressiq/pkg/trackersdk"
)

// MemberSummary is one team member as seen from the leader's task list.
type MemberSummary struct {
	Email string
	Stats Stats
}

type LeaderView struct {
	LeaderEmail string
	Tasks       []trackersdk.Task // newest first
	Stats       Stats             // Done counts Submitted and Completed
	Members     []MemberSummary   // derived from Tasks, ordered by email
}

// Leader loads and acts on a leader's dashboard. Email defaults to the
// logged-in user.
type Leader struct {
	API   API
	Email string
}

func (d *Leader) Load(ctx context.Context) (LeaderView, error) {
	email, err := identity(d.API, d.Email)
	if err != nil {
		return LeaderView{}, err
	}
	tasks, err := d.API.LeaderTasks(ctx, email)
	if err != nil {
		return LeaderView{}, fmt.Errorf("list leader tasks: %w", err)
	}

	sort.SliceStable(tasks, func(a, b int) bool {
		return tasks[a].CreatedAt.After(tasks[b].CreatedAt)
	})

	return LeaderView{
		LeaderEmail: email,
		Tasks:       tasks,
		Stats:       CountTeamTasks(tasks),
		Members:     membersOf(tasks),
	}, nil
}

// CreateTasks submits the task builder rows as one batch.
func (d *Leader) CreateTasks(ctx context.Context, rows []trackersdk.NewTask) (LeaderView, error) {
	if _, err := d.API.CreateTasks(ctx, rows); err != nil {
		return LeaderView{}, err
	}
	return d.Load(ctx)
}

func (d *Leader) Assign(ctx context.Context, req trackersdk.AssignTaskRequest) (LeaderView, error) {
	if _, err := d.API.AssignTask(ctx, req); err != nil {
		return LeaderView{}, err
	}
	return d.Load(ctx)
}

// RemoveMember drops the member from the team along with their tasks.
func (d *Leader) RemoveMember(ctx context.Context, memberEmail string) (LeaderView, error) {
	if _, err := d.API.RemoveMember(ctx, memberEmail); err != nil {
		return LeaderView{}, err
	}
	return d.Load(ctx)
}

func (d *Leader) DeleteTask(ctx context.Context, taskID string) (LeaderView, error) {
	if err := d.API.DeleteTask(ctx, taskID); err != nil {
		return LeaderView{}, err
	}
	return d.Load(ctx)
}

// Invite mints a signup link. The task list is unchanged so nothing is
// reloaded.
func (d *Leader) Invite(ctx context.Context, req trackersdk.InviteRequest) (*trackersdk.InviteResponse, error) {
	return d.API.CreateInvite(ctx, req)
}

func (d *Leader) Approve(ctx context.Context, taskID string) (LeaderView, error) {
	if _, err := d.API.ApproveTask(ctx, taskID); err != nil {
		return LeaderView{}, err
	}
	return d.Load(ctx)
}

func (d *Leader) Feedback(ctx context.Context, taskID, feedback string) (LeaderView, error) {
	if _, err := d.API.AddFeedback(ctx, taskID, feedback); err != nil {
		return LeaderView{}, err
	}
	return d.Load(ctx)
}

func membersOf(tasks []trackersdk.Task) []MemberSummary {
	byEmail := make(map[string][]trackersdk.Task)
	for _, t := range tasks {
		byEmail[t.AssignedTo] = append(byEmail[t.AssignedTo], t)
	}
	out := make([]MemberSummary, 0, len(byEmail))
	for email, ts := range byEmail {
		out = append(out, MemberSummary{Email: email, Stats: CountTeamTasks(ts)})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Email < out[b].Email })
	return out
}
