package models

import "time"

// Role labels stored with each user.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a user account in the system.
type User struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"fullName"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasRole reports whether the user carries the given bare role label.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID       int64    `json:"id"`
	FullName string   `json:"fullName"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// ToResponse strips everything the client must not see.
func (u *User) ToResponse() UserResponse {
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)
	return UserResponse{
		ID:       u.ID,
		FullName: u.FullName,
		Username: u.Username,
		Email:    u.Email,
		Roles:    roles,
	}
}
