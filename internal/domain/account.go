package domain

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AdminUsername is the reserved superuser account. It is seeded at first
// startup and always treated as RoleAdmin regardless of the stored role.
const AdminUsername = "admin"

// Account is one registered user, keyed by username.
type Account struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	Email        string `json:"email"`
}

// EffectiveRole applies the identity-based override for the reserved admin
// account.
func (a Account) EffectiveRole() string {
	if a.Username == AdminUsername {
		return RoleAdmin
	}
	if a.Role == "" {
		return RoleUser
	}
	return a.Role
}

// Principal is the authenticated caller identity carried through a request.
type Principal struct {
	Username string
	Role     string
}

// IsAdmin reports whether the principal may call admin routes.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Username == AdminUsername
}
