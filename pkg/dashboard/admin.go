package dashboard

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/progressiq/pkg/trackersdk"
)

// RoleCounts is the number of accounts per role.
type RoleCounts struct {
	Admins  int
	Mentors int
	Leaders int
	Members int
}

// AdminView is everything on the admin dashboard.
type AdminView struct {
	Users []trackersdk.Account
	Roles RoleCounts

	Tasks []trackersdk.Task
	Stats Stats
}

// Admin loads and acts on the admin dashboard.
type Admin struct {
	API API
}

func (d *Admin) Load(ctx context.Context) (AdminView, error) {
	users, err := d.API.ListUsers(ctx)
	if err != nil {
		return AdminView{}, fmt.Errorf("list users: %w", err)
	}
	tasks, err := d.API.AllTasks(ctx)
	if err != nil {
		return AdminView{}, fmt.Errorf("list tasks: %w", err)
	}

	v := AdminView{Users: users, Tasks: tasks, Stats: CountTasks(tasks)}
	for _, u := range users {
		switch u.Role {
		case trackersdk.RoleAdmin:
			v.Roles.Admins++
		case trackersdk.RoleMentor:
			v.Roles.Mentors++
		case trackersdk.RoleLeader:
			v.Roles.Leaders++
		case trackersdk.RoleMember:
			v.Roles.Members++
		}
	}
	return v, nil
}

// DeleteUser removes a non-admin account and reloads.
func (d *Admin) DeleteUser(ctx context.Context, user trackersdk.Account) (AdminView, error) {
	if user.Role == trackersdk.RoleAdmin {
		return AdminView{}, ErrAdminProtected
	}
	if _, err := d.API.DeleteUser(ctx, user.Email); err != nil {
		return AdminView{}, err
	}
	return d.Load(ctx)
}

// DeleteTask removes one task and reloads.
func (d *Admin) DeleteTask(ctx context.Context, taskID string) (AdminView, error) {
	if err := d.API.DeleteTask(ctx, taskID); err != nil {
		return AdminView{}, err
	}
	return d.Load(ctx)
}

// ResetTasks deletes every task and reloads.
func (d *Admin) ResetTasks(ctx context.Context) (AdminView, error) {
	if _, err := d.API.ClearAllTasks(ctx); err != nil {
		return AdminView{}, err
	}
	return d.Load(ctx)
}
