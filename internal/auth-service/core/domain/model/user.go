package model

import "time"

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
