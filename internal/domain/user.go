package domain

import "time"

// User is a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity is what an authenticated connection or request acts as.
type Identity struct {
	ID       int64
	Username string
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username}
}
