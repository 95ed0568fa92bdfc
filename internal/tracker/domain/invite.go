package domain

import "time"

// Invite lets a leader onboard a member into their team. Only the SHA-256
// fingerprint of the token is stored.
type Invite struct {
	ID          string
	TokenHash   string
	LeaderEmail string
	Email       string // optional invitee; empty accepts any address
	Role        Role
	ExpiresAt   time.Time
	Used        bool
	UsedBy      string
	CreatedAt   time.Time
}

func (i Invite) Usable(now time.Time) bool {
	return !i.Used && now.Before(i.ExpiresAt)
}

// MintedInvite is returned once to the leader.
type MintedInvite struct {
	Link      string
	Token     string
	ExpiresAt time.Time
}
