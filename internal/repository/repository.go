package repository

import (
	"context"
	"time"

	"github.com/projpool/projpool/internal/models"
)

// Storage groups repositories that share one connection or transaction
type Storage interface {
	User() UserRepo
	Blocklist() BlocklistRepo

	// Run fn in transaction; commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, username string, hashedPassword string) (models.User, error)

	// Get user by it's id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)

	// Delete user
	// If user not found must return apperrors.ErrUserNotFound
	DeleteUser(ctx context.Context, userID int64) error
}

// Revoked tokens repository
type BlocklistRepo interface {
	// Add token to blocklist
	// Adding the same JTI twice is not an error, the first record is kept
	Add(ctx context.Context, token models.RevokedToken) error

	// Whether the JTI is in blocklist
	Contains(ctx context.Context, jti string) (bool, error)

	// Delete records for tokens expired before 'now'
	// Returns the number of deleted records
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
