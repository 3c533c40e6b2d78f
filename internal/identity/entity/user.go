package entity

import "time"

// Role is the authorization level carried in the session token.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// String returns the role as stored in the directory.
func (r Role) String() string {
	return string(r)
}

// RoleFromString maps a stored value back to a Role, defaulting to member.
func RoleFromString(s string) Role {
	if s == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleMember
}

// Directory field names for partial updates.
const (
	FieldPassword  = "password"
	FieldFullName  = "full_name"
	FieldAvatarURL = "avatar_url"
)

// User is a verified account in the user directory. Email is the natural key.
type User struct {
	Email     string
	FullName  string
	Role      Role
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAuthInfo is the credential view of a user, read only at login.
type UserAuthInfo struct {
	Email    string
	FullName string
	Role     Role
	Password string
}

// PendingRegistration is the payload parked with a verification code until
// the email is proven. It is the only place an account exists before
// verification.
type PendingRegistration struct {
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Password  string `json:"password"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
}
