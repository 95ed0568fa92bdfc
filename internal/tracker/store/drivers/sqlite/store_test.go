package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store/drivers/sqlite"
	"github.com/aussiebroadwan/progressiq/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(sqlite.DSN(":memory:"))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedAccount(t *testing.T, s store.Store, email string, role domain.Role) domain.Account {
	t.Helper()
	a := domain.Account{
		ID:           idx.New().String(),
		Username:     email,
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
	}
	require.NoError(t, s.Accounts().CreateAccount(context.Background(), a))
	return a
}

func seedTask(t *testing.T, s store.Store, leader, member string, created time.Time) domain.Task {
	t.Helper()
	task := domain.Task{
		ID:          idx.NewAt(created).String(),
		Title:       "task " + created.Format(time.RFC3339Nano),
		LeaderEmail: leader,
		AssignedTo:  member,
		Deadline:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:   created,
	}
	require.NoError(t, s.Tasks().CreateTask(context.Background(), task))
	return task
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a := seedAccount(t, s, "Lead@X.com", domain.RoleLeader)

	t.Run("email is case-insensitive key", func(t *testing.T) {
		got, err := s.Accounts().GetAccountByEmail(ctx, "lead@x.com")
		require.NoError(t, err)
		require.Equal(t, a.ID, got.ID)
		require.Equal(t, "lead@x.com", got.Email)
		require.Equal(t, domain.RoleLeader, got.Role)
		require.False(t, got.MFAEnabled())
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := s.Accounts().CreateAccount(ctx, domain.Account{
			ID: idx.New().String(), Username: "x", Email: "LEAD@x.com", PasswordHash: "h", Role: domain.RoleMember,
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("role check constraint", func(t *testing.T) {
		err := s.Accounts().CreateAccount(ctx, domain.Account{
			ID: idx.New().String(), Username: "x", Email: "owner@x.com", PasswordHash: "h", Role: "Owner",
		})
		require.Error(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Accounts().GetAccountByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, s.Accounts().DeleteAccount(ctx, "missing@x.com"), store.ErrNotFound)
	})

	t.Run("team membership", func(t *testing.T) {
		seedAccount(t, s, "m1@x.com", domain.RoleMember)
		seedAccount(t, s, "m2@x.com", domain.RoleMember)
		require.NoError(t, s.Accounts().SetLeaderEmail(ctx, "m1@x.com", "lead@x.com"))
		require.NoError(t, s.Accounts().SetLeaderEmail(ctx, "m2@x.com", "lead@x.com"))

		m, err := s.Accounts().GetAccountByEmail(ctx, "m1@x.com")
		require.NoError(t, err)
		require.Equal(t, "lead@x.com", m.LeaderEmail)

		n, err := s.Accounts().ClearTeam(ctx, "lead@x.com")
		require.NoError(t, err)
		require.EqualValues(t, 2, n)
	})

	t.Run("count by role", func(t *testing.T) {
		counts, err := s.Accounts().CountByRole(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, counts[domain.RoleLeader])
		require.Equal(t, 2, counts[domain.RoleMember])
		require.Zero(t, counts[domain.RoleAdmin])
	})

	t.Run("mfa lifecycle", func(t *testing.T) {
		require.ErrorIs(t, s.Accounts().EnableMFA(ctx, a.ID, time.Now()), store.ErrNotFound, "needs a secret first")

		require.NoError(t, s.Accounts().UpdateMFASecret(ctx, a.ID, "JBSWY3DPEHPK3PXP"))
		require.NoError(t, s.Accounts().EnableMFA(ctx, a.ID, time.Now()))

		got, err := s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		require.True(t, got.MFAEnabled())
		require.Equal(t, "JBSWY3DPEHPK3PXP", *got.MFASecret)

		require.NoError(t, s.Accounts().DisableMFA(ctx, a.ID))
		got, err = s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		require.False(t, got.MFAEnabled())
		require.Nil(t, got.MFASecret)
	})
}

func TestTasks(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	seedAccount(t, s, "lead@x.com", domain.RoleLeader)
	seedAccount(t, s, "lead2@x.com", domain.RoleLeader)
	seedAccount(t, s, "m@x.com", domain.RoleMember)

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	older := seedTask(t, s, "lead@x.com", "m@x.com", base)
	newer := seedTask(t, s, "lead@x.com", "m@x.com", base.Add(time.Hour))
	other := seedTask(t, s, "lead2@x.com", "m@x.com", base.Add(2*time.Hour))

	t.Run("assignee must exist", func(t *testing.T) {
		err := s.Tasks().CreateTask(ctx, domain.Task{
			ID: idx.New().String(), Title: "x", LeaderEmail: "lead@x.com", AssignedTo: "ghost@x.com",
			Deadline: base,
		})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		got, err := s.Tasks().GetTask(ctx, older.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusActive, got.Status)
		require.Equal(t, "2025-01-01", got.Deadline.Format(domain.DeadlineLayout))
		require.True(t, got.CreatedAt.Equal(base))
		require.Nil(t, got.SubmittedAt)
	})

	t.Run("leader list newest first", func(t *testing.T) {
		got, err := s.Tasks().ListTasksByLeader(ctx, "LEAD@x.com")
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, newer.ID, got[0].ID)
		require.Equal(t, older.ID, got[1].ID)
	})

	t.Run("member and involving", func(t *testing.T) {
		got, err := s.Tasks().ListTasksByMember(ctx, "m@x.com")
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, other.ID, got[0].ID)

		got, err = s.Tasks().ListTasksInvolving(ctx, "lead2@x.com")
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("guarded submission", func(t *testing.T) {
		at := base.Add(3 * time.Hour)
		require.NoError(t, s.Tasks().UpdateSubmission(ctx, older.ID, domain.StatusActive, "", "done", "/uploads/a.pdf", at))

		err := s.Tasks().UpdateSubmission(ctx, older.ID, domain.StatusActive, "", "again", "/uploads/b.pdf", at)
		require.ErrorIs(t, err, store.ErrConflict)

		// Two resubmissions that both read a.pdf: only the first lands
		require.NoError(t, s.Tasks().UpdateSubmission(ctx, older.ID, domain.StatusSubmitted, "/uploads/a.pdf", "done", "/uploads/c.pdf", at))
		err = s.Tasks().UpdateSubmission(ctx, older.ID, domain.StatusSubmitted, "/uploads/a.pdf", "late", "/uploads/d.pdf", at)
		require.ErrorIs(t, err, store.ErrConflict)
		require.NoError(t, s.Tasks().UpdateSubmission(ctx, older.ID, domain.StatusSubmitted, "/uploads/c.pdf", "done", "/uploads/a.pdf", at))

		got, err := s.Tasks().GetTask(ctx, older.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusSubmitted, got.Status)
		require.Equal(t, "/uploads/a.pdf", got.FileURL)
		require.NotNil(t, got.SubmittedAt)
	})

	t.Run("review keeps feedback when nil", func(t *testing.T) {
		at := base.Add(4 * time.Hour)
		fb := "nice"
		require.NoError(t, s.Tasks().UpdateReview(ctx, older.ID, domain.StatusSubmitted, domain.StatusCompleted, &fb, at))
		require.NoError(t, s.Tasks().UpdateReview(ctx, older.ID, domain.StatusCompleted, domain.StatusCompleted, nil, at.Add(time.Hour)))

		got, err := s.Tasks().GetTask(ctx, older.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusCompleted, got.Status)
		require.Equal(t, "nice", got.Feedback)
		require.True(t, got.CompletedAt.Equal(at), "completed_at keeps the first completion")

		err = s.Tasks().UpdateReview(ctx, newer.ID, domain.StatusSubmitted, domain.StatusCompleted, nil, at)
		require.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("count by status", func(t *testing.T) {
		counts, err := s.Tasks().CountByStatus(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, counts[domain.StatusActive])
		require.Equal(t, 1, counts[domain.StatusCompleted])
	})

	t.Run("deletes", func(t *testing.T) {
		n, err := s.Tasks().DeleteTasksForMember(ctx, "lead2@x.com", "m@x.com")
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		require.NoError(t, s.Tasks().DeleteTask(ctx, newer.ID))
		require.ErrorIs(t, s.Tasks().DeleteTask(ctx, newer.ID), store.ErrNotFound)
		_, err = s.Tasks().GetTask(ctx, newer.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		n, err = s.Tasks().DeleteAllTasks(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})
}

func TestDeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	seedAccount(t, s, "lead@x.com", domain.RoleLeader)
	seedAccount(t, s, "m@x.com", domain.RoleMember)
	seedTask(t, s, "lead@x.com", "m@x.com", time.Now())

	require.NoError(t, s.Invites().CreateInvite(ctx, domain.Invite{
		ID: idx.New().String(), TokenHash: "h1", LeaderEmail: "lead@x.com",
		Role: domain.RoleMember, ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, s.Accounts().DeleteAccount(ctx, "m@x.com"))

	tasks, err := s.Tasks().ListTasks(ctx)
	require.NoError(t, err)
	require.Empty(t, tasks)

	require.NoError(t, s.Accounts().DeleteAccount(ctx, "lead@x.com"))
	_, err = s.Invites().GetInviteByTokenHash(ctx, "h1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInvites(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedAccount(t, s, "lead@x.com", domain.RoleLeader)

	now := time.Now()
	live := domain.Invite{
		ID: idx.New().String(), TokenHash: "live", LeaderEmail: "lead@x.com",
		Email: "New@x.com", Role: domain.RoleMember, ExpiresAt: now.Add(time.Hour),
	}
	expired := domain.Invite{
		ID: idx.New().String(), TokenHash: "expired", LeaderEmail: "lead@x.com",
		Role: domain.RoleMember, ExpiresAt: now.Add(-time.Hour),
	}
	require.NoError(t, s.Invites().CreateInvite(ctx, live))
	require.NoError(t, s.Invites().CreateInvite(ctx, expired))

	got, err := s.Invites().GetInviteByTokenHash(ctx, "live")
	require.NoError(t, err)
	require.Equal(t, "new@x.com", got.Email)
	require.True(t, got.Usable(now))

	require.NoError(t, s.Invites().MarkInviteUsed(ctx, live.ID, "new@x.com"))
	require.ErrorIs(t, s.Invites().MarkInviteUsed(ctx, live.ID, "other@x.com"), store.ErrConflict)

	got, err = s.Invites().GetInviteByTokenHash(ctx, "live")
	require.NoError(t, err)
	require.True(t, got.Used)
	require.Equal(t, "new@x.com", got.UsedBy)

	n, err := s.Invites().DeleteExpiredInvites(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.Invites().DeleteInvitesByLeader(ctx, "lead@x.com")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Accounts().CreateAccount(ctx, domain.Account{
			ID: idx.New().String(), Username: "a", Email: "a@x.com", PasswordHash: "h", Role: domain.RoleMember,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Accounts().GetAccountByEmail(ctx, "a@x.com")
	require.ErrorIs(t, err, store.ErrNotFound, "rolled back")

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Accounts().CreateAccount(ctx, domain.Account{
			ID: idx.New().String(), Username: "a", Email: "a@x.com", PasswordHash: "h", Role: domain.RoleMember,
		})
	})
	require.NoError(t, err)

	_, err = s.Accounts().GetAccountByEmail(ctx, "a@x.com")
	require.NoError(t, err)
}
