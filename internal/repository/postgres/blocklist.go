package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/projpool/projpool/internal/models"
)

type BlocklistRepo struct {
	DB DBTX
}

const addRevokedToken = `-- name: AddRevokedToken
INSERT INTO token_blocklist (id, jti, token_type, user_id, expires_at, revoked_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (jti) DO NOTHING
`

// Add token to blocklist
// Re-adding the same jti keeps the original record
func (r *BlocklistRepo) Add(ctx context.Context, token models.RevokedToken) error {
	_, err := r.DB.Exec(ctx, addRevokedToken,
		token.ID, token.JTI, token.TokenType, token.UserID, token.ExpiresAt, token.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const containsRevokedToken = `-- name: ContainsRevokedToken
SELECT EXISTS (SELECT 1 FROM token_blocklist WHERE jti = $1)
`

func (r *BlocklistRepo) Contains(ctx context.Context, jti string) (bool, error) {
	rows, _ := r.DB.Query(ctx, containsRevokedToken, jti)
	found, err := pgx.CollectOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

const deleteExpiredRevokedTokens = `-- name: DeleteExpiredRevokedTokens
DELETE FROM token_blocklist
WHERE expires_at < $1
`

// Delete records which tokens expired anyway
// Revocations for still valid tokens are kept
func (r *BlocklistRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredRevokedTokens, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}
