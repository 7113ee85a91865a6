package model

import "time"

// DefaultRole is assigned to operators registered without an explicit role.
const DefaultRole = "Manager"

// User is an operator allowed to sign in to the dashboard.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity is the authenticated caller of a request.
type Identity struct {
	Subject string
	Role    string
}
