package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned when a guarded update matched no row because
	// the record changed underneath it (status moved, invite already used).
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Sub-repositories are reached
// through methods so a Tx can hand out the same repos bound to the
// transaction.
type Store interface {
	Accounts() Accounts
	Tasks() Tasks
	Invites() Invites

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Inside fn use only the tx argument; the
	// sqlite driver holds a single connection.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// CreateAccount inserts a. Duplicate emails return ErrAlreadyExists.
	CreateAccount(ctx context.Context, a domain.Account) error

	GetAccountByID(ctx context.Context, id string) (domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// ListAccounts returns every account, oldest first.
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// CountByRole returns the number of accounts per role. Roles with no
	// accounts are absent from the map.
	CountByRole(ctx context.Context) (map[domain.Role]int, error)

	// DeleteAccount removes the account by email. Tasks and invites that
	// reference it cascade in the schema.
	DeleteAccount(ctx context.Context, email string) error

	// SetLeaderEmail binds an account to a leader's team; empty clears it.
	SetLeaderEmail(ctx context.Context, email, leaderEmail string) error

	// ClearTeam detaches every member of leaderEmail's team.
	ClearTeam(ctx context.Context, leaderEmail string) (int64, error)

	UpdateMFASecret(ctx context.Context, id, secret string) error
	EnableMFA(ctx context.Context, id string, at time.Time) error
	DisableMFA(ctx context.Context, id string) error
}

type Tasks interface {
	CreateTask(ctx context.Context, t domain.Task) error
	GetTask(ctx context.Context, id string) (domain.Task, error)

	// List queries return newest first.
	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListTasksByLeader(ctx context.Context, leaderEmail string) ([]domain.Task, error)
	ListTasksByMember(ctx context.Context, memberEmail string) ([]domain.Task, error)

	// ListTasksInvolving returns tasks assigned to or led by email.
	ListTasksInvolving(ctx context.Context, email string) ([]domain.Task, error)

	// CountByStatus returns the number of tasks per status.
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error)

	// UpdateSubmission records a submission if the task is still in status
	// from and still points at prevFileURL, returning ErrConflict otherwise.
	UpdateSubmission(ctx context.Context, id string, from domain.TaskStatus, prevFileURL, note, fileURL string, at time.Time) error

	// UpdateReview sets status and feedback if the task is still in status
	// from. A nil feedback leaves the stored text unchanged.
	UpdateReview(ctx context.Context, id string, from, to domain.TaskStatus, feedback *string, at time.Time) error

	// DeleteTask returns ErrNotFound when no such task exists.
	DeleteTask(ctx context.Context, id string) error
	DeleteAllTasks(ctx context.Context) (int64, error)
	DeleteTasksInvolving(ctx context.Context, email string) (int64, error)
	DeleteTasksForMember(ctx context.Context, leaderEmail, memberEmail string) (int64, error)
}

type Invites interface {
	// CreateInvite stores an invite; TokenHash is the token's fingerprint.
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetInviteByTokenHash returns the invite whether or not it is usable.
	GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error)

	// MarkInviteUsed flips used once; a second call returns ErrConflict.
	MarkInviteUsed(ctx context.Context, id, usedBy string) error

	DeleteInvitesByLeader(ctx context.Context, leaderEmail string) (int64, error)
	DeleteExpiredInvites(ctx context.Context, now time.Time) (int64, error)
}
