package model

import "time"

// Session is a server-side authenticated browsing context. A row exists
// only after a successful login; the user reference is copied from the
// user record at creation time so logout-from-all-devices never has to
// re-derive credentials.
type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
