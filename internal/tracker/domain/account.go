package domain

import (
	"strings"
	"time"
)

type Account struct {
	ID           string
	Username     string
	Email        string // unique, lower case
	PasswordHash string // argon2id PHC string
	Role         Role
	LeaderEmail  string     // team joined through an invite; empty when none
	MFASecret    *string    // base32 TOTP secret, set on enroll
	MFAEnabledAt *time.Time // nil until the first code is verified
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a Account) MFAEnabled() bool { return a.MFAEnabledAt != nil }

// NormalizeEmail trims and lower-cases an address. Emails are the natural
// key for accounts and task ownership so every boundary normalises them.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
