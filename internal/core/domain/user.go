package domain

import "time"

// User models a registered account. Roles holds role identifiers in the
// order they were assigned.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SigninResult is returned by a successful signin.
type SigninResult struct {
	ID          string
	Username    string
	Email       string
	Roles       []string
	AccessToken string
}
