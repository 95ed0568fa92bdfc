package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/blob"
	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
	"github.com/aussiebroadwan/progressiq/pkg/idx"
	"github.com/aussiebroadwan/progressiq/pkg/slogx"
)

var (
	ErrInvalidTask       = errors.New("invalid task")
	ErrTaskNotFound      = errors.New("task not found")
	ErrAssigneeNotMember = errors.New("assignee must be an existing member")
	ErrForbidden         = errors.New("not allowed for this account")
	ErrFileRequired      = errors.New("a work file is required")
	ErrStatusConflict    = errors.New("task status changed concurrently")
)

type TaskService struct {
	Store store.Store
	Blobs BlobStore
}

// CreateMultiple creates every task or none. All tasks are led by leader
// and start Active.
func (s *TaskService) CreateMultiple(ctx context.Context, leader domain.Principal, in []domain.NewTask) ([]domain.Task, error) {
	log := slogx.FromContext(ctx)

	// 1. Shape checks before touching the store
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no tasks", ErrInvalidTask)
	}
	rows := make([]domain.NewTask, len(in))
	for i, nt := range in {
		nt.Title = strings.TrimSpace(nt.Title)
		nt.Description = strings.TrimSpace(nt.Description)
		nt.AssignedTo = domain.NormalizeEmail(nt.AssignedTo)
		if nt.Title == "" || nt.AssignedTo == "" || nt.Deadline.IsZero() {
			return nil, fmt.Errorf("%w: task %d needs title, assignedTo and deadline", ErrInvalidTask, i+1)
		}
		rows[i] = nt
	}

	now := time.Now().UTC()
	out := make([]domain.Task, 0, len(rows))

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 2. The leader must still exist
		if _, err := tx.Accounts().GetAccountByEmail(ctx, leader.Email); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		// 3. Every assignee must be a member
		checked := make(map[string]bool)
		for _, nt := range rows {
			if checked[nt.AssignedTo] {
				continue
			}
			a, err := tx.Accounts().GetAccountByEmail(ctx, nt.AssignedTo)
			if errors.Is(err, store.ErrNotFound) || (err == nil && a.Role != domain.RoleMember) {
				return fmt.Errorf("%w: %s", ErrAssigneeNotMember, nt.AssignedTo)
			}
			if err != nil {
				return err
			}
			checked[nt.AssignedTo] = true
		}

		// 4. Insert
		for _, nt := range rows {
			t := domain.Task{
				ID:          idx.NewAt(now).String(),
				Title:       nt.Title,
				Description: nt.Description,
				LeaderEmail: leader.Email,
				AssignedTo:  nt.AssignedTo,
				Deadline:    nt.Deadline,
				Status:      domain.StatusActive,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.Tasks().CreateTask(ctx, t); err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		log.Warn("task creation failed",
			slog.String("leader_email", leader.Email),
			slog.Int("count", len(in)),
			slog.Any("error", err),
		)
		return nil, err
	}

	log.Info("tasks created",
		slog.String("leader_email", leader.Email),
		slog.Int("count", len(out)),
	)
	return out, nil
}

// Assign creates a single task.
func (s *TaskService) Assign(ctx context.Context, leader domain.Principal, nt domain.NewTask) (domain.Task, error) {
	tasks, err := s.CreateMultiple(ctx, leader, []domain.NewTask{nt})
	if err != nil {
		return domain.Task{}, err
	}
	return tasks[0], nil
}

func (s *TaskService) ListAll(ctx context.Context) ([]domain.Task, error) {
	return s.Store.Tasks().ListTasks(ctx)
}

// ListByLeader returns a leader's tasks, newest first. Leaders may only
// list their own.
func (s *TaskService) ListByLeader(ctx context.Context, actor domain.Principal, leaderEmail string) ([]domain.Task, error) {
	leaderEmail = domain.NormalizeEmail(leaderEmail)
	if !actor.IsStaff() && actor.Email != leaderEmail {
		return nil, ErrForbidden
	}
	return s.Store.Tasks().ListTasksByLeader(ctx, leaderEmail)
}

// ListByMember returns a member's tasks. Members see only their own and
// leaders see only the ones they lead.
func (s *TaskService) ListByMember(ctx context.Context, actor domain.Principal, memberEmail string) ([]domain.Task, error) {
	memberEmail = domain.NormalizeEmail(memberEmail)
	if actor.Role == domain.RoleMember && actor.Email != memberEmail {
		return nil, ErrForbidden
	}

	tasks, err := s.Store.Tasks().ListTasksByMember(ctx, memberEmail)
	if err != nil {
		return nil, err
	}

	out := tasks[:0]
	for _, t := range tasks {
		if actor.CanView(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// SubmitWork stores the file and moves the task to Submitted. A
// resubmission replaces the previous file.
func (s *TaskService) SubmitWork(ctx context.Context, actor domain.Principal, id, note string, file *Upload) (domain.Task, error) {
	log := slogx.FromContext(ctx)

	// 1. A file is mandatory
	if file == nil || file.Body == nil {
		return domain.Task{}, ErrFileRequired
	}

	// 2. Ownership and lifecycle
	task, err := s.get(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if !actor.CanSubmit(task) {
		return domain.Task{}, ErrForbidden
	}
	if _, err := task.Status.SubmitTransition(); err != nil {
		return domain.Task{}, err
	}

	// 3. Store the file before the row points at it
	obj, err := s.Blobs.Save(ctx, file.Name, file.Body)
	if err != nil {
		if errors.Is(err, blob.ErrEmpty) {
			return domain.Task{}, ErrFileRequired
		}
		return domain.Task{}, err
	}

	// 4. Guarded on the status and file we read. Losing a race to another
	// submission leaves the new file unreferenced, so remove it again.
	err = s.Store.Tasks().UpdateSubmission(ctx, task.ID, task.Status, task.FileURL, strings.TrimSpace(note), obj.URL, time.Now().UTC())
	if err != nil {
		deleteTaskFiles(ctx, s.Blobs, []domain.Task{{ID: task.ID, FileURL: obj.URL}})
		if errors.Is(err, store.ErrConflict) {
			return domain.Task{}, ErrStatusConflict
		}
		return domain.Task{}, err
	}

	// 5. Drop the replaced file
	if task.FileURL != "" {
		deleteTaskFiles(ctx, s.Blobs, []domain.Task{task})
	}

	log.Info("work submitted",
		slog.String("task_id", task.ID),
		slog.String("member_email", actor.Email),
		slog.Int64("size", obj.Size),
	)
	return s.get(ctx, task.ID)
}

// AddFeedback records feedback. A submitted task is completed by it.
func (s *TaskService) AddFeedback(ctx context.Context, actor domain.Principal, id, feedback string) (domain.Task, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return domain.Task{}, fmt.Errorf("%w: feedback is empty", ErrInvalidTask)
	}
	return s.review(ctx, actor, id, &feedback, domain.TaskStatus.FeedbackTransition)
}

// Approve completes a submitted task without changing its feedback.
func (s *TaskService) Approve(ctx context.Context, actor domain.Principal, id string) (domain.Task, error) {
	return s.review(ctx, actor, id, nil, domain.TaskStatus.ApproveTransition)
}

func (s *TaskService) review(
	ctx context.Context,
	actor domain.Principal,
	id string,
	feedback *string,
	transition func(domain.TaskStatus) (domain.TaskStatus, error),
) (domain.Task, error) {
	task, err := s.get(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if !actor.CanReview(task) {
		return domain.Task{}, ErrForbidden
	}

	next, err := transition(task.Status)
	if err != nil {
		return domain.Task{}, err
	}

	err = s.Store.Tasks().UpdateReview(ctx, task.ID, task.Status, next, feedback, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Task{}, ErrStatusConflict
		}
		return domain.Task{}, err
	}

	slogx.FromContext(ctx).Info("task reviewed",
		slog.String("task_id", task.ID),
		slog.String("reviewer", actor.Email),
		slog.String("from", string(task.Status)),
		slog.String("to", string(next)),
	)
	return s.get(ctx, task.ID)
}

// Delete removes one task and its file. Only the task's leader or an Admin
// may do so.
func (s *TaskService) Delete(ctx context.Context, actor domain.Principal, id string) error {
	var task domain.Task

	// The file URL is read in the same transaction as the delete, so a
	// concurrent resubmission either lands first or loses its guard.
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if task, err = tx.Tasks().GetTask(ctx, id); err != nil {
			return err
		}
		if !actor.CanDelete(task) {
			return ErrForbidden
		}
		return tx.Tasks().DeleteTask(ctx, task.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	deleteTaskFiles(ctx, s.Blobs, []domain.Task{task})
	slogx.FromContext(ctx).Info("task deleted",
		slog.String("task_id", task.ID),
		slog.String("actor", actor.Email),
	)
	return nil
}

// ClearAll deletes every task and its files.
func (s *TaskService) ClearAll(ctx context.Context, actor domain.Principal) (int64, error) {
	var (
		removed []domain.Task
		n       int64
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if removed, err = tx.Tasks().ListTasks(ctx); err != nil {
			return err
		}
		n, err = tx.Tasks().DeleteAllTasks(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}

	deleteTaskFiles(ctx, s.Blobs, removed)
	slogx.FromContext(ctx).Warn("all tasks cleared",
		slog.String("actor", actor.Email),
		slog.Int64("deleted", n),
	)
	return n, nil
}

// RemoveMember deletes the leader's tasks for a member and takes the member
// out of the leader's team.
func (s *TaskService) RemoveMember(ctx context.Context, leader domain.Principal, memberEmail string) (int64, error) {
	memberEmail = domain.NormalizeEmail(memberEmail)

	var (
		removed []domain.Task
		n       int64
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		member, err := tx.Accounts().GetAccountByEmail(ctx, memberEmail)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		tasks, err := tx.Tasks().ListTasksByMember(ctx, memberEmail)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if t.LeaderEmail == leader.Email {
				removed = append(removed, t)
			}
		}

		if n, err = tx.Tasks().DeleteTasksForMember(ctx, leader.Email, memberEmail); err != nil {
			return err
		}
		if member.LeaderEmail == leader.Email {
			return tx.Accounts().SetLeaderEmail(ctx, memberEmail, "")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	deleteTaskFiles(ctx, s.Blobs, removed)
	slogx.FromContext(ctx).Info("member removed",
		slog.String("leader_email", leader.Email),
		slog.String("member_email", memberEmail),
		slog.Int64("deleted", n),
	)
	return n, nil
}

func (s *TaskService) get(ctx context.Context, id string) (domain.Task, error) {
	t, err := s.Store.Tasks().GetTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Task{}, ErrTaskNotFound
	}
	return t, err
}
