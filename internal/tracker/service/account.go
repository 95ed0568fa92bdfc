package service

import (
	"context"
	"crypto/subtle"
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

var (
	ErrInvalidAccount      = errors.New("username, email and password are required")
	ErrEmailTaken          = errors.New("email already registered")
	ErrAdminSignupDenied   = errors.New("admin signup requires a valid admin key")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrMFARequired         = errors.New("one-time code required")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountProtected    = errors.New("admin accounts cannot be deleted")
	ErrInviteEmailMismatch = errors.New("invite was issued for a different email")
)

type AccountService struct {
	Store   store.Store
	Blobs   BlobStore
	Tokens  *TokenService
	Invites *InviteService

	// AdminSignupKey gates self-registration as Admin. Empty disables it.
	AdminSignupKey string
}

// RegisterParams is the signup form. Role defaults to Member; an invite
// overrides it.
type RegisterParams struct {
	Username    string
	Email       string
	Password    string
	Role        domain.Role
	InviteToken string
	AdminKey    string
}

// LoginResult is what the dashboards keep in their session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   domain.Account
}

// Register creates an account. With an invite token the invite is redeemed
// in the same transaction and the account joins the inviting leader's team.
func (s *AccountService) Register(ctx context.Context, p RegisterParams) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	// 1. Normalise and validate input
	p.Username = strings.TrimSpace(p.Username)
	p.Email = domain.NormalizeEmail(p.Email)
	if p.Username == "" || p.Email == "" || p.Password == "" {
		return domain.Account{}, ErrInvalidAccount
	}
	if p.Role == "" {
		p.Role = domain.RoleMember
	}
	if !p.Role.Valid() {
		return domain.Account{}, domain.ErrInvalidRole
	}

	// 2. Admins need the signup key unless an invite decides the role
	if p.Role == domain.RoleAdmin && p.InviteToken == "" && !s.adminKeyOK(p.AdminKey) {
		log.Warn("admin signup rejected", slog.String("email", p.Email))
		return domain.Account{}, ErrAdminSignupDenied
	}

	// 3. Hash the password outside the transaction
	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.Account{}, err
	}

	account := domain.Account{
		ID:           idx.New().String(),
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: hash,
		Role:         p.Role,
		CreatedAt:    time.Now().UTC(),
	}

	// 4. Create the account and redeem the invite atomically
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var inv domain.Invite
		if p.InviteToken != "" {
			if inv, err = s.Invites.Redeem(ctx, tx, p.InviteToken); err != nil {
				return err
			}
			if inv.Email != "" && inv.Email != p.Email {
				return ErrInviteEmailMismatch
			}
			account.Role = inv.Role
			account.LeaderEmail = inv.LeaderEmail
		}

		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}

		if inv.ID != "" {
			return s.Invites.markUsed(ctx, tx, inv, account.Email)
		}
		return nil
	})
	if err != nil {
		log.Warn("registration failed",
			slog.String("email", p.Email),
			slog.Any("error", err),
		)
		return domain.Account{}, err
	}

	log.Info("account registered",
		slog.String("account_id", account.ID),
		slog.String("email", account.Email),
		slog.String("role", account.Role.String()),
		slog.String("leader_email", account.LeaderEmail),
	)
	account.UpdatedAt = account.CreatedAt
	return account, nil
}

func (s *AccountService) adminKeyOK(provided string) bool {
	if s.AdminSignupKey == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.AdminSignupKey)) == 1
}

// Login checks the password, and the TOTP code when MFA is enabled, then
// issues an access token.
func (s *AccountService) Login(ctx context.Context, email, password, otp string) (LoginResult, error) {
	log := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("login for unknown email", slog.String("email", email))
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := cryptox.VerifyPassword(password, account.PasswordHash); err != nil {
		log.Info("login with bad password", slog.String("account_id", account.ID))
		return LoginResult{}, ErrInvalidCredentials
	}

	amr := []string{"pwd"}
	if account.MFAEnabled() {
		if strings.TrimSpace(otp) == "" {
			return LoginResult{}, ErrMFARequired
		}
		if !ValidateTOTP(otp, account.MFASecret) {
			log.Info("login with bad one-time code", slog.String("account_id", account.ID))
			return LoginResult{}, ErrInvalidTOTPCode
		}
		amr = append(amr, "otp")
	}

	token, exp, err := s.Tokens.IssueAccessToken(ctx, account, amr)
	if err != nil {
		return LoginResult{}, err
	}

	log.Info("login succeeded",
		slog.String("account_id", account.ID),
		slog.String("role", account.Role.String()),
	)
	return LoginResult{Token: token, ExpiresAt: exp, Account: account}, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (domain.Account, error) {
	a, err := s.Store.Accounts().GetAccountByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrAccountNotFound
	}
	return a, err
}

func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	return s.Store.Accounts().ListAccounts(ctx)
}

// Delete removes an account with everything that references it and returns
// the number of tasks removed. Uploaded files go after the commit.
func (s *AccountService) Delete(ctx context.Context, actor domain.Principal, email string) (int64, error) {
	log := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	var (
		removed []domain.Task
		deleted int64
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 1. The target must exist and must not be an Admin
		target, err := tx.Accounts().GetAccountByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		if target.Role == domain.RoleAdmin {
			return ErrAccountProtected
		}

		// 2. Tasks assigned to or led by the account
		if removed, err = tx.Tasks().ListTasksInvolving(ctx, email); err != nil {
			return err
		}
		if deleted, err = tx.Tasks().DeleteTasksInvolving(ctx, email); err != nil {
			return err
		}

		// 3. Invites minted by the account and its team membership
		if _, err := tx.Invites().DeleteInvitesByLeader(ctx, email); err != nil {
			return err
		}
		if _, err := tx.Accounts().ClearTeam(ctx, email); err != nil {
			return err
		}

		// 4. The account itself
		return tx.Accounts().DeleteAccount(ctx, email)
	})
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) && !errors.Is(err, ErrAccountProtected) {
			log.Error("failed to delete account", slog.String("email", email), slog.Any("error", err))
		}
		return 0, err
	}

	deleteTaskFiles(ctx, s.Blobs, removed)

	log.Info("account deleted",
		slog.String("email", email),
		slog.String("deleted_by", actor.Email),
		slog.Int64("deleted_tasks", deleted),
	)
	return deleted, nil
}
