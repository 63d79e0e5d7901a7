package domain

import "time"

// Role is the access level attached to a user record.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// MaxUsernameLength matches the width of the users.username column.
const MaxUsernameLength = 255

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User models a stored account. PasswordHash never leaves the service layer;
// use Public to build the externally visible shape.
type User struct {
	ID           int64     `json:"-"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is a User with the identifier and password hash stripped.
// The numeric ID is withheld because it leaks the size of the user base.
type PublicUser struct {
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips sensitive fields.
func (u *User) Public() PublicUser {
	return PublicUser{
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

// SortOrder orders user listings by creation sequence.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)
