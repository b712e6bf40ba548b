package auth

import "time"

// User is an account that can sign in. PasswordHash is a bcrypt hash;
// inactive users are refused at login.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
