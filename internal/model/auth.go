package model

import "time"

// Role is the authority granted to an identity.
type Role string

// RoleAdmin is the only role handed out at registration.
const RoleAdmin Role = "ADMIN"

type RegisterRequest struct {
	FirstName string `json:"firstname" binding:"required"`
	LastName  string `json:"lastname" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
}

type AuthenticateRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Authorities lists the authority names held by the user.
func (u *User) Authorities() []string {
	if u.Role == "" {
		return nil
	}
	return []string{string(u.Role)}
}
