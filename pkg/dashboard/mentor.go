package dashboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/aussiebroadwan/progressiq/pkg/trackersdk"
)

// LeaderGroup is one leader's tasks on the mentor dashboard.
type LeaderGroup struct {
	LeaderEmail string
	Tasks       []trackersdk.Task
	Stats       Stats
}

type MentorView struct {
	Tasks    []trackersdk.Task
	Stats    Stats
	ByLeader []LeaderGroup // ordered by leader email
}

// Mentor loads and acts on the mentor dashboard.
type Mentor struct {
	API API
}

func (d *Mentor) Load(ctx context.Context) (MentorView, error) {
	tasks, err := d.API.AllTasks(ctx)
	if err != nil {
		return MentorView{}, fmt.Errorf("list tasks: %w", err)
	}
	return MentorView{
		Tasks:    tasks,
		Stats:    CountTasks(tasks),
		ByLeader: groupByLeader(tasks),
	}, nil
}

func (d *Mentor) Approve(ctx context.Context, taskID string) (MentorView, error) {
	if _, err := d.API.ApproveTask(ctx, taskID); err != nil {
		return MentorView{}, err
	}
	return d.Load(ctx)
}

func (d *Mentor) Feedback(ctx context.Context, taskID, feedback string) (MentorView, error) {
	if _, err := d.API.AddFeedback(ctx, taskID, feedback); err != nil {
		return MentorView{}, err
	}
	return d.Load(ctx)
}

func groupByLeader(tasks []trackersdk.Task) []LeaderGroup {
	idx := make(map[string]int)
	var groups []LeaderGroup
	for _, t := range tasks {
		i, ok := idx[t.LeaderEmail]
		if !ok {
			i = len(groups)
			idx[t.LeaderEmail] = i
			groups = append(groups, LeaderGroup{LeaderEmail: t.LeaderEmail})
		}
		groups[i].Tasks = append(groups[i].Tasks, t)
	}
	for i := range groups {
		groups[i].Stats = CountTasks(groups[i].Tasks)
	}
	sort.Slice(groups, func(a, b int) bool {
		return groups[a].LeaderEmail < groups[b].LeaderEmail
	})
	return groups
}
