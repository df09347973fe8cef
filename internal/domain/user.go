package domain

import "time"

// User is an employee account allowed to enter queues or, when IsAdmin is set,
// to manage code freezes.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Team         string
	IsAdmin      bool
	CreatedAt    time.Time
}
