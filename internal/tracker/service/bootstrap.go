package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
	"github.com/aussiebroadwan/progressiq/pkg/cryptox"
	"github.com/aussiebroadwan/progressiq/pkg/idx"
	"github.com/aussiebroadwan/progressiq/pkg/slogx"
)

var ErrBootstrapConflict = errors.New("bootstrap email belongs to a non-admin account")

type BootstrapService struct {
	Store store.Store
}

// EnsureAdmin creates the configured Admin account if it does not exist.
// It reports whether an account was created.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, email, username, password string) (bool, error) {
	log := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}

	// 1. Already there
	existing, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err == nil {
		if existing.Role != domain.RoleAdmin {
			log.Error("bootstrap admin email is taken by another role",
				slog.String("email", email),
				slog.String("role", existing.Role.String()),
			)
			return false, ErrBootstrapConflict
		}
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	// 2. Create it
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(username) == "" {
		username, _, _ = strings.Cut(email, "@")
	}

	admin := domain.Account{
		ID:           idx.New().String(),
		Username:     strings.TrimSpace(username),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Store.Accounts().CreateAccount(ctx, admin); err != nil {
		return false, err
	}

	log.Info("bootstrap admin created",
		slog.String("account_id", admin.ID),
		slog.String("email", email),
	)
	return true, nil
}
