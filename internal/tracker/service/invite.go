package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
	"github.com/aussiebroadwan/progressiq/pkg/cryptox"
	"github.com/aussiebroadwan/progressiq/pkg/idx"
	"github.com/aussiebroadwan/progressiq/pkg/slogx"
)

// DefaultInviteTTL is one week.
const DefaultInviteTTL = 7 * 24 * time.Hour

var (
	ErrInviteNotFound    = errors.New("invite not found or expired")
	ErrInviteAlreadyUsed = errors.New("invite has already been used")
	ErrInviteRole        = errors.New("leaders can only invite members")
)

type InviteService struct {
	Store store.Store

	// BaseURL is the dashboard origin the signup link points at.
	BaseURL string
	TTL     time.Duration
}

// Mint creates a single-use invite into leader's team. email optionally
// restricts who may redeem it.
func (s *InviteService) Mint(ctx context.Context, leader domain.Principal, email string, role domain.Role) (domain.MintedInvite, error) {
	log := slogx.FromContext(ctx)

	// 1. Only member invites exist
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleMember {
		return domain.MintedInvite{}, ErrInviteRole
	}

	// 2. Random token; only its fingerprint is stored
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invite token", slog.Any("error", err))
		return domain.MintedInvite{}, err
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}
	now := time.Now().UTC()

	invite := domain.Invite{
		ID:          idx.New().String(),
		TokenHash:   cryptox.FingerprintToken(token),
		LeaderEmail: leader.Email,
		Email:       domain.NormalizeEmail(email),
		Role:        role,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}

	// 3. Persist
	if err := s.Store.Invites().CreateInvite(ctx, invite); err != nil {
		log.Error("failed to create invite",
			slog.String("invite_id", invite.ID),
			slog.Any("error", err),
		)
		return domain.MintedInvite{}, err
	}

	log.Info("invite created",
		slog.String("invite_id", invite.ID),
		slog.String("leader_email", invite.LeaderEmail),
		slog.String("email", invite.Email),
		slog.Time("expires_at", invite.ExpiresAt),
	)

	return domain.MintedInvite{
		Link:      s.link(role, token, invite.Email),
		Token:     token,
		ExpiresAt: invite.ExpiresAt,
	}, nil
}

// link renders <base>/signup?role=..&invite=..[&email=..].
func (s *InviteService) link(role domain.Role, token, email string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(s.BaseURL, "/"))
	b.WriteString("/signup?role=")
	b.WriteString(url.QueryEscape(role.String()))
	b.WriteString("&invite=")
	b.WriteString(url.QueryEscape(token))
	if email != "" {
		b.WriteString("&email=")
		b.WriteString(url.QueryEscape(email))
	}
	return b.String()
}

// Redeem looks up a usable invite inside tx. The caller marks it used once
// the account exists.
func (s *InviteService) Redeem(ctx context.Context, tx store.Tx, token string) (domain.Invite, error) {
	log := slogx.FromContext(ctx)

	inv, err := tx.Invites().GetInviteByTokenHash(ctx, cryptox.FingerprintToken(strings.TrimSpace(token)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("redeem with unknown invite token")
			return domain.Invite{}, ErrInviteNotFound
		}
		return domain.Invite{}, err
	}

	if inv.Used {
		log.Warn("redeem with used invite",
			slog.String("invite_id", inv.ID),
			slog.String("used_by", inv.UsedBy),
		)
		return domain.Invite{}, ErrInviteAlreadyUsed
	}
	if !inv.Usable(time.Now()) {
		return domain.Invite{}, ErrInviteNotFound
	}
	return inv, nil
}

func (s *InviteService) markUsed(ctx context.Context, tx store.Tx, inv domain.Invite, usedBy string) error {
	err := tx.Invites().MarkInviteUsed(ctx, inv.ID, usedBy)
	if errors.Is(err, store.ErrConflict) {
		return ErrInviteAlreadyUsed
	}
	return err
}
