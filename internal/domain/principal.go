package domain

// Principal is the authenticated caller of a request. A nil *Principal is anonymous.
type Principal struct {
	ID       int64
	Username string
	Roles    []Role
}

// HasRole reports whether the principal holds role r. Safe on a nil receiver.
func (p *Principal) HasRole(r Role) bool {
	if p == nil {
		return false
	}
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// PrincipalOf derives the principal a token for c should carry.
func PrincipalOf(c Customer) *Principal {
	roles := make([]Role, len(c.Roles))
	copy(roles, c.Roles)
	return &Principal{ID: c.ID, Username: c.Email, Roles: roles}
}
