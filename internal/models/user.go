package models

import (
	"time"
)

type User struct {
	ID             int64
	CreatedAt      time.Time
	Username       string
	Email          string
	FirstName      string
	LastName       string
	Role           Role
	HashedPassword string
}
