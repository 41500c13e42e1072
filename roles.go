package auth

// UserRole is a closed two-variant enum. The role is decided once at account
// creation (see bootstrapRole) and an existing admin can never be re-targeted
// by the role-change operation.
type UserRole string

const (
	// RoleUser is the default role for every new account.
	RoleUser UserRole = "user"
	// RoleAdmin grants access to the admin surface.
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{RoleUser, RoleAdmin}
}

// bootstrapRole decides the role for a brand-new account. A configured
// bootstrap address that matches the normalized email promotes the account to
// admin; this is evaluated exactly once, at creation time.
func bootstrapRole(email, bootstrapAdminEmail string) UserRole {
	if bootstrapAdminEmail != "" && NormalizeEmail(email) == NormalizeEmail(bootstrapAdminEmail) {
		return RoleAdmin
	}
	return RoleUser
}
