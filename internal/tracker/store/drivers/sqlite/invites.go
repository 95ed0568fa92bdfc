package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
)

type invitesRepo struct {
	db dbtx
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invites (id, token_hash, leader_email, email, role, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.TokenHash, lower(inv.LeaderEmail), lower(inv.Email), string(inv.Role),
		toMillis(inv.ExpiresAt), toMillis(inv.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *invitesRepo) GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error) {
	var (
		inv     domain.Invite
		role    string
		expires int64
		usedBy  sql.NullString
		created int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, token_hash, leader_email, email, role, expires_at, used, used_by, created_at
		FROM invites WHERE token_hash = ?`, hash,
	).Scan(&inv.ID, &inv.TokenHash, &inv.LeaderEmail, &inv.Email, &role, &expires, &inv.Used, &usedBy, &created)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}

	inv.Role = domain.Role(role)
	inv.ExpiresAt = fromMillis(expires)
	inv.UsedBy = mapNullString(usedBy)
	inv.CreatedAt = fromMillis(created)
	return inv, nil
}

func (r *invitesRepo) MarkInviteUsed(ctx context.Context, id, usedBy string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invites SET used = 1, used_by = ? WHERE id = ? AND used = 0`,
		mapStringNull(lower(usedBy)), id,
	)
	return expectOne(res, err, store.ErrConflict)
}

func (r *invitesRepo) DeleteInvitesByLeader(ctx context.Context, leaderEmail string) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM invites WHERE leader_email = ?`, lower(leaderEmail)))
}

func (r *invitesRepo) DeleteExpiredInvites(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM invites WHERE expires_at <= ?`, toMillis(now)))
}
