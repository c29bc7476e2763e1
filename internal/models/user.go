package models

import "time"

type User struct {
	ID           ID        `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PetPost is only the origin of a "contact this owner" action here.
type PetPost struct {
	ID     ID `json:"id"`
	UserID ID `json:"user_id"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   ID     `json:"user_id"`
}

// Session is the current user as established at login. The messaging
// core receives it explicitly instead of reading ambient storage.
type Session struct {
	UserID   ID
	Username string
	Token    string
}

// Authenticated reports whether the session names a user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != 0
}
