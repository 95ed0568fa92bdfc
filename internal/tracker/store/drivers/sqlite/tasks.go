package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
)

type tasksRepo struct {
	db dbtx
}

const taskColumns = `id, title, description, leader_email, assigned_to, deadline, status,
	submission_note, file_url, feedback, submitted_at, completed_at, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (domain.Task, error) {
	var (
		t           domain.Task
		deadline    string
		status      string
		submittedAt sql.NullInt64
		completedAt sql.NullInt64
		created     int64
		updated     int64
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.LeaderEmail, &t.AssignedTo, &deadline, &status,
		&t.SubmissionNote, &t.FileURL, &t.Feedback, &submittedAt, &completedAt, &created, &updated); err != nil {
		return domain.Task{}, err
	}

	// Stored dates are always written with DeadlineLayout.
	t.Deadline, _ = time.Parse(domain.DeadlineLayout, deadline)
	t.Status = domain.TaskStatus(status)
	t.SubmittedAt = fromNullMillis(submittedAt)
	t.CompletedAt = fromNullMillis(completedAt)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func (r *tasksRepo) queryTasks(ctx context.Context, where string, args ...any) ([]domain.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *tasksRepo) CreateTask(ctx context.Context, t domain.Task) error {
	if t.Status == "" {
		t.Status = domain.StatusActive
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, leader_email, assigned_to, deadline, status,
			submission_note, file_url, feedback, submitted_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, lower(t.LeaderEmail), lower(t.AssignedTo),
		t.Deadline.Format(domain.DeadlineLayout), string(t.Status),
		t.SubmissionNote, t.FileURL, t.Feedback,
		toNullMillis(t.SubmittedAt), toNullMillis(t.CompletedAt),
		toMillis(t.CreatedAt), toMillis(t.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *tasksRepo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		return domain.Task{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tasksRepo) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return r.queryTasks(ctx, "")
}

func (r *tasksRepo) ListTasksByLeader(ctx context.Context, leaderEmail string) ([]domain.Task, error) {
	return r.queryTasks(ctx, `WHERE leader_email = ?`, lower(leaderEmail))
}

func (r *tasksRepo) ListTasksByMember(ctx context.Context, memberEmail string) ([]domain.Task, error) {
	return r.queryTasks(ctx, `WHERE assigned_to = ?`, lower(memberEmail))
}

func (r *tasksRepo) ListTasksInvolving(ctx context.Context, email string) ([]domain.Task, error) {
	e := lower(email)
	return r.queryTasks(ctx, `WHERE assigned_to = ? OR leader_email = ?`, e, e)
}

func (r *tasksRepo) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[domain.TaskStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *tasksRepo) UpdateSubmission(ctx context.Context, id string, from domain.TaskStatus, prevFileURL, note, fileURL string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, submission_note = ?, file_url = ?, submitted_at = ?, updated_at = ?
		WHERE id = ? AND status = ? AND file_url = ?`,
		string(domain.StatusSubmitted), note, fileURL, toMillis(at), toMillis(at),
		id, string(from), prevFileURL,
	)
	return expectOne(res, err, store.ErrConflict)
}

func (r *tasksRepo) UpdateReview(ctx context.Context, id string, from, to domain.TaskStatus, feedback *string, at time.Time) error {
	var completedAt sql.NullInt64
	if to == domain.StatusCompleted {
		completedAt = sql.NullInt64{Int64: toMillis(at), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?,
		    feedback = COALESCE(?, feedback),
		    completed_at = COALESCE(completed_at, ?),
		    updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), mapOptionalString(feedback), completedAt, toMillis(at),
		id, string(from),
	)
	return expectOne(res, err, store.ErrConflict)
}

func (r *tasksRepo) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return expectOne(res, err, store.ErrNotFound)
}

func (r *tasksRepo) DeleteAllTasks(ctx context.Context) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx, `DELETE FROM tasks`))
}

func (r *tasksRepo) DeleteTasksInvolving(ctx context.Context, email string) (int64, error) {
	e := lower(email)
	return rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE assigned_to = ? OR leader_email = ?`, e, e))
}

func (r *tasksRepo) DeleteTasksForMember(ctx context.Context, leaderEmail, memberEmail string) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE leader_email = ? AND assigned_to = ?`,
		lower(leaderEmail), lower(memberEmail)))
}

func mapOptionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
