package models

import "time"

type UserStatus string

const (
	UserPendingApproval UserStatus = "pending_approval"
	UserApproved        UserStatus = "approved"
)

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Don't expose in JSON
	IsAdmin      bool       `json:"is_admin"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// RegistrationInput is the data captured by the registration form.
// It only lives for the duration of the form session.
type RegistrationInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
