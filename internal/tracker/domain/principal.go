package domain

// Principal is the authenticated caller as seen by services.
type Principal struct {
	AccountID string
	Email     string
	Role      Role
}

func (p Principal) IsStaff() bool {
	return p.Role == RoleAdmin || p.Role == RoleMentor
}

// CanView reports whether p may read t.
func (p Principal) CanView(t Task) bool {
	switch p.Role {
	case RoleAdmin, RoleMentor:
		return true
	case RoleLeader:
		return t.LeaderEmail == p.Email
	case RoleMember:
		return t.AssignedTo == p.Email
	}
	return false
}

// CanReview reports whether p may give feedback on or approve t.
func (p Principal) CanReview(t Task) bool {
	switch p.Role {
	case RoleMentor:
		return true
	case RoleLeader:
		return t.LeaderEmail == p.Email
	}
	return false
}

// CanDelete reports whether p may delete t: its own leader, or an Admin.
func (p Principal) CanDelete(t Task) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleLeader:
		return t.LeaderEmail == p.Email
	}
	return false
}

// CanSubmit reports whether p may submit work for t.
func (p Principal) CanSubmit(t Task) bool {
	return p.Role == RoleMember && t.AssignedTo == p.Email
}
