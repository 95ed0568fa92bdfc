package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, username, email, password_hash, role, leader_email,
	mfa_secret, mfa_enabled_at, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var (
		a            domain.Account
		role         string
		leader       sql.NullString
		secret       sql.NullString
		mfaEnabledAt sql.NullInt64
		created      int64
		updated      int64
	)
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role, &leader,
		&secret, &mfaEnabledAt, &created, &updated); err != nil {
		return domain.Account{}, err
	}

	a.Role = domain.Role(role)
	a.LeaderEmail = mapNullString(leader)
	a.MFASecret = mapNullStringPtr(secret)
	a.MFAEnabledAt = fromNullMillis(mfaEnabledAt)
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, role, leader_email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, lower(a.Email), a.PasswordHash, string(a.Role),
		mapStringNull(lower(a.LeaderEmail)), toMillis(a.CreatedAt), toMillis(a.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, lower(email))
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *accountsRepo) CountByRole(ctx context.Context) (map[domain.Role]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM accounts GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.Role]int)
	for rows.Next() {
		var (
			role string
			n    int
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[domain.Role(role)] = n
	}
	return out, rows.Err()
}

func (r *accountsRepo) DeleteAccount(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE email = ?`, lower(email))
	return expectOne(res, err, store.ErrNotFound)
}

func (r *accountsRepo) SetLeaderEmail(ctx context.Context, email, leaderEmail string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET leader_email = ?, updated_at = ? WHERE email = ?`,
		mapStringNull(lower(leaderEmail)), toMillis(time.Now()), lower(email),
	)
	return expectOne(res, err, store.ErrNotFound)
}

func (r *accountsRepo) ClearTeam(ctx context.Context, leaderEmail string) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx,
		`UPDATE accounts SET leader_email = NULL, updated_at = ? WHERE leader_email = ?`,
		toMillis(time.Now()), lower(leaderEmail),
	))
}

func (r *accountsRepo) UpdateMFASecret(ctx context.Context, id, secret string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET mfa_secret = ?, updated_at = ? WHERE id = ?`,
		mapStringNull(secret), toMillis(time.Now()), id,
	)
	return expectOne(res, err, store.ErrNotFound)
}

func (r *accountsRepo) EnableMFA(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET mfa_enabled_at = ?, updated_at = ? WHERE id = ? AND mfa_secret IS NOT NULL`,
		toMillis(at), toMillis(at), id,
	)
	return expectOne(res, err, store.ErrNotFound)
}

func (r *accountsRepo) DisableMFA(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET mfa_secret = NULL, mfa_enabled_at = NULL, updated_at = ? WHERE id = ?`,
		toMillis(time.Now()), id,
	)
	return expectOne(res, err, store.ErrNotFound)
}
