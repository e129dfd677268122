package model

// Role is one of the closed set of roles carried in access tokens.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleProvider Role = "Provider"
	RolePatient  Role = "Patient"
)

// ParseRole accepts the known role names and reports whether s was one of them.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleProvider, RolePatient:
		return Role(s), true
	}
	return "", false
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID string
	Email  string
	Roles  []Role
}

func (c *Caller) HasAnyRole(roles ...Role) bool {
	if c == nil {
		return false
	}
	for _, have := range c.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}
