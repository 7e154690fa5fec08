package models

import (
	"strconv"
	"time"
)

type User struct {
	ID             int64
	CreatedAt      time.Time
	Username       string
	HashedPassword string
}

// Identity is the token subject of the user
func (u User) Identity() string {
	return strconv.FormatInt(u.ID, 10)
}
