package entity

type Role string

const (
	RoleTeacher    Role = "teacher"
	RoleParent     Role = "parent"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
	RoleUser       Role = "user"
)

// Identity is a verified caller. Role is resolved once by the identity layer
// and never re-derived from token claims further down.
type Identity struct {
	UID  string `json:"uid"`
	Role Role   `json:"role"`
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// ParseRole maps a raw claim value onto a known role. Unknown values become RoleUser.
func ParseRole(raw string) Role {
	switch Role(raw) {
	case RoleTeacher, RoleParent, RoleAdmin, RoleSuperAdmin:
		return Role(raw)
	default:
		return RoleUser
	}
}
