package domain

import (
	"errors"
	"strings"
)

// Role is fixed when an account is created.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleMentor Role = "Mentor"
	RoleLeader Role = "Leader"
	RoleMember Role = "Member"
)

// Scopes carried in access tokens and checked by the router.
const (
	ScopeAccountsRead  = "accounts:read"
	ScopeAccountsWrite = "accounts:write"
	ScopeTasksReadAll  = "tasks:read_all"
	ScopeTasksReadTeam = "tasks:read_team"
	ScopeTasksReadOwn  = "tasks:read_own"
	ScopeTasksWrite    = "tasks:write"
	ScopeTasksReview   = "tasks:review"
	ScopeTasksSubmit   = "tasks:submit"
	ScopeTasksAdmin    = "tasks:admin"
	ScopeReportsRead   = "reports:read"
	ScopeProfile       = "profile"
)

var ErrInvalidRole = errors.New("domain: invalid role")

var roleScopes = map[Role][]string{
	RoleAdmin: {
		ScopeAccountsRead, ScopeAccountsWrite,
		ScopeTasksReadAll, ScopeTasksAdmin,
		ScopeReportsRead, ScopeProfile,
	},
	RoleMentor: {
		ScopeTasksReadAll, ScopeTasksReview,
		ScopeReportsRead, ScopeProfile,
	},
	RoleLeader: {
		ScopeTasksWrite, ScopeTasksReview,
		ScopeTasksReadTeam, ScopeProfile,
	},
	RoleMember: {
		ScopeTasksSubmit, ScopeTasksReadOwn, ScopeProfile,
	},
}

// Roles lists every role in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleMentor, RoleLeader, RoleMember}
}

// ParseRole accepts a role name in any case and returns its canonical form.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles() {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, nil
		}
	}
	return "", ErrInvalidRole
}

func (r Role) Valid() bool {
	_, ok := roleScopes[r]
	return ok
}

// Scopes returns a copy of the scopes granted to r.
func (r Role) Scopes() []string {
	s := roleScopes[r]
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func (r Role) String() string { return string(r) }
