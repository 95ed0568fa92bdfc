package service_test

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aussiebroadwan/progressiq/internal/tracker/blob"
	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/service"
	"github.com/stretchr/testify/require"
)

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	leader := f.register(t, "lead@x.com", domain.RoleLeader)
	member := f.register(t, "m@x.com", domain.RoleMember)
	mentor := f.register(t, "mentor@x.com", domain.RoleMentor)

	task, err := f.tasks.Assign(ctx, leader, domain.NewTask{
		Title: "Design doc", AssignedTo: "M@x.com", Deadline: deadline(t),
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, task.Status)
	require.Equal(t, "m@x.com", task.AssignedTo)

	t.Run("member sees it active", func(t *testing.T) {
		tasks, err := f.tasks.ListByMember(ctx, member, member.Email)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		require.Equal(t, domain.StatusActive, tasks[0].Status)
	})

	t.Run("feedback before submission is rejected", func(t *testing.T) {
		_, err := f.tasks.AddFeedback(ctx, leader, task.ID, "hurry up")
		require.ErrorIs(t, err, domain.ErrInvalidTransition)

		_, err = f.tasks.Approve(ctx, leader, task.ID)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("submit requires a file", func(t *testing.T) {
		_, err := f.tasks.SubmitWork(ctx, member, task.ID, "note", nil)
		require.ErrorIs(t, err, service.ErrFileRequired)

		_, err = f.tasks.SubmitWork(ctx, member, task.ID, "note", &service.Upload{Name: "e.txt", Body: strings.NewReader("")})
		require.ErrorIs(t, err, service.ErrFileRequired)
	})

	t.Run("only the assignee submits", func(t *testing.T) {
		_, err := f.tasks.SubmitWork(ctx, leader, task.ID, "", &service.Upload{Name: "x.txt", Body: strings.NewReader("x")})
		require.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("oversized upload", func(t *testing.T) {
		_, err := f.tasks.SubmitWork(ctx, member, task.ID, "", &service.Upload{
			Name: "big.bin", Body: strings.NewReader(strings.Repeat("x", 2048)),
		})
		require.ErrorIs(t, err, blob.ErrTooLarge)
	})

	var firstURL string
	t.Run("submit and resubmit", func(t *testing.T) {
		got, err := f.tasks.SubmitWork(ctx, member, task.ID, " first ", &service.Upload{Name: "v1.pdf", Body: strings.NewReader("v1")})
		require.NoError(t, err)
		require.Equal(t, domain.StatusSubmitted, got.Status)
		require.Equal(t, "first", got.SubmissionNote)
		require.NotNil(t, got.SubmittedAt)
		firstURL = got.FileURL

		got, err = f.tasks.SubmitWork(ctx, member, task.ID, "second", &service.Upload{Name: "v2.pdf", Body: strings.NewReader("v2")})
		require.NoError(t, err)
		require.Equal(t, domain.StatusSubmitted, got.Status)
		require.NotEqual(t, firstURL, got.FileURL)
		require.NoFileExists(t, f.blobDir+"/"+strings.TrimPrefix(firstURL, blob.URLPrefix))
	})

	t.Run("other leaders cannot review", func(t *testing.T) {
		stranger := f.register(t, "lead2@x.com", domain.RoleLeader)
		_, err := f.tasks.Approve(ctx, stranger, task.ID)
		require.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("approve completes", func(t *testing.T) {
		got, err := f.tasks.Approve(ctx, leader, task.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusCompleted, got.Status)
		require.NotNil(t, got.CompletedAt)

		_, err = f.tasks.Approve(ctx, leader, task.ID)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)

		_, err = f.tasks.SubmitWork(ctx, member, task.ID, "", &service.Upload{Name: "v3.pdf", Body: strings.NewReader("v3")})
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("feedback on completed only edits text", func(t *testing.T) {
		got, err := f.tasks.AddFeedback(ctx, mentor, task.ID, "well done")
		require.NoError(t, err)
		require.Equal(t, domain.StatusCompleted, got.Status)
		require.Equal(t, "well done", got.Feedback)
	})

	t.Run("shows in report", func(t *testing.T) {
		sum, err := f.reports.Summary(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, sum.Tasks.Completed)
		require.Equal(t, 100.0, sum.Tasks.PercentComplete)
		require.Equal(t, 2, sum.Accounts[domain.RoleLeader])
		require.Equal(t, 0, sum.Accounts[domain.RoleAdmin])
	})
}

func TestFeedbackCompletesSubmitted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	leader := f.register(t, "lead@x.com", domain.RoleLeader)
	member := f.register(t, "m@x.com", domain.RoleMember)

	task, err := f.tasks.Assign(ctx, leader, domain.NewTask{Title: "t", AssignedTo: member.Email, Deadline: deadline(t)})
	require.NoError(t, err)
	_, err = f.tasks.SubmitWork(ctx, member, task.ID, "", &service.Upload{Name: "a.txt", Body: strings.NewReader("a")})
	require.NoError(t, err)

	got, err := f.tasks.AddFeedback(ctx, leader, task.ID, "good")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, got.Status)

	_, err = f.tasks.AddFeedback(ctx, leader, task.ID, "   ")
	require.ErrorIs(t, err, service.ErrInvalidTask)
}

func TestCreateMultipleIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	leader := f.register(t, "lead@x.com", domain.RoleLeader)
	f.register(t, "m@x.com", domain.RoleMember)
	f.register(t, "mentor@x.com", domain.RoleMentor)

	_, err := f.tasks.CreateMultiple(ctx, leader, []domain.NewTask{
		{Title: "ok", AssignedTo: "m@x.com", Deadline: deadline(t)},
		{Title: "bad", AssignedTo: "ghost@x.com", Deadline: deadline(t)},
	})
	require.ErrorIs(t, err, service.ErrAssigneeNotMember)

	_, err = f.tasks.CreateMultiple(ctx, leader, []domain.NewTask{
		{Title: "not a member", AssignedTo: "mentor@x.com", Deadline: deadline(t)},
	})
	require.ErrorIs(t, err, service.ErrAssigneeNotMember)

	_, err = f.tasks.CreateMultiple(ctx, leader, []domain.NewTask{{Title: "", AssignedTo: "m@x.com", Deadline: deadline(t)}})
	require.ErrorIs(t, err, service.ErrInvalidTask)

	_, err = f.tasks.CreateMultiple(ctx, leader, nil)
	require.ErrorIs(t, err, service.ErrInvalidTask)

	all, err := f.tasks.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all, "no partial batch")

	created, err := f.tasks.CreateMultiple(ctx, leader, []domain.NewTask{
		{Title: "one", AssignedTo: "m@x.com", Deadline: deadline(t)},
		{Title: "two", AssignedTo: "m@x.com", Deadline: deadline(t)},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	listed, err := f.tasks.ListByLeader(ctx, leader, leader.Email)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "two", listed[0].Title, "newest first")
}

func TestListOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	l1 := f.register(t, "l1@x.com", domain.RoleLeader)
	l2 := f.register(t, "l2@x.com", domain.RoleLeader)
	m := f.register(t, "m@x.com", domain.RoleMember)
	m2 := f.register(t, "m2@x.com", domain.RoleMember)
	mentor := f.register(t, "mentor@x.com", domain.RoleMentor)

	_, err := f.tasks.Assign(ctx, l1, domain.NewTask{Title: "a", AssignedTo: m.Email, Deadline: deadline(t)})
	require.NoError(t, err)
	_, err = f.tasks.Assign(ctx, l2, domain.NewTask{Title: "b", AssignedTo: m.Email, Deadline: deadline(t)})
	require.NoError(t, err)

	_, err = f.tasks.ListByLeader(ctx, l1, l2.Email)
	require.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.tasks.ListByMember(ctx, m2, m.Email)
	require.ErrorIs(t, err, service.ErrForbidden)

	got, err := f.tasks.ListByMember(ctx, l1, m.Email)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].Title)

	got, err = f.tasks.ListByMember(ctx, mentor, m.Email)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = f.tasks.ListByLeader(ctx, mentor, l2.Email)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestRemoveMemberAndClearAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	admin := f.register(t, "admin@x.com", domain.RoleAdmin)
	l1 := f.register(t, "l1@x.com", domain.RoleLeader)
	l2 := f.register(t, "l2@x.com", domain.RoleLeader)
	m := f.register(t, "m@x.com", domain.RoleMember)

	require.NoError(t, f.store.Accounts().SetLeaderEmail(ctx, m.Email, l1.Email))

	for _, l := range []domain.Principal{l1, l1, l2} {
		_, err := f.tasks.Assign(ctx, l, domain.NewTask{Title: "t", AssignedTo: m.Email, Deadline: deadline(t)})
		require.NoError(t, err)
	}

	_, err := f.tasks.RemoveMember(ctx, l1, "ghost@x.com")
	require.ErrorIs(t, err, service.ErrAccountNotFound)

	n, err := f.tasks.RemoveMember(ctx, l1, m.Email)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	acc, err := f.store.Accounts().GetAccountByEmail(ctx, m.Email)
	require.NoError(t, err)
	require.Empty(t, acc.LeaderEmail)

	n, err = f.tasks.ClearAll(ctx, admin)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestSubmitConflictCleansUpFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	leader := f.register(t, "lead@x.com", domain.RoleLeader)
	member := f.register(t, "m@x.com", domain.RoleMember)
	task, err := f.tasks.Assign(ctx, leader, domain.NewTask{Title: "t", AssignedTo: member.Email, Deadline: deadline(t)})
	require.NoError(t, err)

	// A blob store that completes the task while the upload is in flight.
	racy := &racingBlobs{Local: f.blobs, onSave: func() {
		_ = f.store.Tasks().UpdateReview(ctx, task.ID, domain.StatusActive, domain.StatusCompleted, nil, task.CreatedAt)
	}}
	svc := &service.TaskService{Store: f.store, Blobs: racy}

	_, err = svc.SubmitWork(ctx, member, task.ID, "", &service.Upload{Name: "a.txt", Body: strings.NewReader("a")})
	require.ErrorIs(t, err, service.ErrStatusConflict)
	require.Len(t, racy.deleted, 1)
}

func TestConcurrentResubmissionKeepsOneFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	leader := f.register(t, "lead@x.com", domain.RoleLeader)
	member := f.register(t, "m@x.com", domain.RoleMember)
	task, err := f.tasks.Assign(ctx, leader, domain.NewTask{Title: "t", AssignedTo: member.Email, Deadline: deadline(t)})
	require.NoError(t, err)

	_, err = f.tasks.SubmitWork(ctx, member, task.ID, "v1", &service.Upload{Name: "v1.txt", Body: strings.NewReader("v1")})
	require.NoError(t, err)

	// Another resubmission lands while this upload is in flight.
	var winner domain.Task
	racy := &racingBlobs{Local: f.blobs, onSave: func() {
		winner, err = f.tasks.SubmitWork(ctx, member, task.ID, "v2", &service.Upload{Name: "v2.txt", Body: strings.NewReader("v2")})
		require.NoError(t, err)
	}}
	svc := &service.TaskService{Store: f.store, Blobs: racy}

	_, err = svc.SubmitWork(ctx, member, task.ID, "v3", &service.Upload{Name: "v3.txt", Body: strings.NewReader("v3")})
	require.ErrorIs(t, err, service.ErrStatusConflict)
	require.Len(t, racy.deleted, 1)

	got, err := f.store.Tasks().GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, winner.FileURL, got.FileURL)

	entries, err := os.ReadDir(f.blobDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the winning upload stays on disk")
	require.Equal(t, strings.TrimPrefix(got.FileURL, blob.URLPrefix), entries[0].Name())
}

func TestCreateMultipleLeavesInputUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	leader := f.register(t, "lead@x.com", domain.RoleLeader)
	f.register(t, "m@x.com", domain.RoleMember)

	in := []domain.NewTask{{Title: "  Draft  ", Description: " notes ", AssignedTo: " M@X.com ", Deadline: deadline(t)}}
	created, err := f.tasks.CreateMultiple(ctx, leader, in)
	require.NoError(t, err)
	require.Len(t, created, 1)

	require.Equal(t, "Draft", created[0].Title)
	require.Equal(t, "notes", created[0].Description)
	require.Equal(t, "m@x.com", created[0].AssignedTo)

	require.Equal(t, "  Draft  ", in[0].Title)
	require.Equal(t, " notes ", in[0].Description)
	require.Equal(t, " M@X.com ", in[0].AssignedTo)
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	leader := f.register(t, "lead@x.com", domain.RoleLeader)
	other := f.register(t, "other@x.com", domain.RoleLeader)
	member := f.register(t, "m@x.com", domain.RoleMember)
	mentor := f.register(t, "mentor@x.com", domain.RoleMentor)
	admin := f.register(t, "admin@x.com", domain.RoleAdmin)

	created, err := f.tasks.CreateMultiple(ctx, leader, []domain.NewTask{
		{Title: "one", AssignedTo: "m@x.com", Deadline: deadline(t)},
		{Title: "two", AssignedTo: "m@x.com", Deadline: deadline(t)},
	})
	require.NoError(t, err)

	submitted, err := f.tasks.SubmitWork(ctx, member, created[0].ID, "", &service.Upload{Name: "w.txt", Body: strings.NewReader("work")})
	require.NoError(t, err)
	path := f.blobDir + "/" + strings.TrimPrefix(submitted.FileURL, blob.URLPrefix)
	require.FileExists(t, path)

	for _, p := range []domain.Principal{other, member, mentor} {
		require.ErrorIs(t, f.tasks.Delete(ctx, p, created[0].ID), service.ErrForbidden, p.Email)
	}

	require.NoError(t, f.tasks.Delete(ctx, leader, created[0].ID))
	require.NoFileExists(t, path)
	require.ErrorIs(t, f.tasks.Delete(ctx, leader, created[0].ID), service.ErrTaskNotFound)

	require.NoError(t, f.tasks.Delete(ctx, admin, created[1].ID))

	all, err := f.tasks.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

type racingBlobs struct {
	*blob.Local
	onSave  func()
	deleted []string
}

func (r *racingBlobs) Save(ctx context.Context, name string, body io.Reader) (blob.Object, error) {
	obj, err := r.Local.Save(ctx, name, body)
	if err == nil {
		r.onSave()
	}
	return obj, err
}

func (r *racingBlobs) Delete(ctx context.Context, fileURL string) error {
	r.deleted = append(r.deleted, fileURL)
	return r.Local.Delete(ctx, fileURL)
}
