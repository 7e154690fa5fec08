package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// RevokedToken is a blocklist entry.
// A JTI present in the blocklist is revoked whether or not the token itself is still valid.
type RevokedToken struct {
	ID        uuid.UUID
	JTI       string
	TokenType string
	UserID    int64
	ExpiresAt time.Time // expiration of the underlying token
	RevokedAt time.Time
}

type IssuedToken struct {
	Value     string
	JTI       string
	ExpiresAt time.Time
}

// Token pair issued on login
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
