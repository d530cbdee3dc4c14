package models

import "time"

// Role is the access level of a platform user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// User is a moderator or admin account. Submitters and voters are
// anonymous and never have accounts.
type User struct {
	ID        string    `json:"id"`
	Kind      DocKind   `json:"kind"`
	Email     string    `json:"email"`
	Password  string    `json:"passwordHash"`
	FullName  string    `json:"fullName"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserPublic is the safe projection of a user (no password hash).
type UserPublic struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic strips credential fields.
func (u *User) ToPublic() UserPublic {
	return UserPublic{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role, CreatedAt: u.CreatedAt}
}
