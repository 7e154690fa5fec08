package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/projpool/projpool/internal/apperrors"
	"github.com/projpool/projpool/internal/models"
	"github.com/projpool/projpool/internal/repository"
	"github.com/projpool/projpool/internal/service/auth/jwtmanager"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type TokenIssuer interface {
	CreateAccessToken(identity string, fresh bool) (models.IssuedToken, error)
	CreateRefreshToken(identity string) (models.IssuedToken, error)

	// Parse token checking signature and expiration
	Decode(value string) (*jwtmanager.Claims, error)
}

type Config struct {
	// Hasher to user during user registration or login process
	// BcryptHasher if not set
	Hasher PasswordHasher
}

type Service struct {
	tokens  TokenIssuer
	hasher  PasswordHasher
	storage repository.Storage

	// Replaced in tests
	now func() time.Time
}

func NewService(cfg Config, tokens TokenIssuer, storage repository.Storage) (*Service, error) {
	if tokens == nil || storage == nil {
		return nil, errors.New("token issuer and storage must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	return &Service{
		tokens:  tokens,
		hasher:  hasher,
		storage: storage,
		now:     time.Now,
	}, nil
}

func (s *Service) Register(ctx context.Context, username string, password string) (models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	user, err := s.storage.User().CreateUser(ctx, username, hash)
	if err != nil {
		return models.User{}, fmt.Errorf("error while creating user. Err: %w", err)
	}

	return user, nil
}

// Login returns fresh access token and refresh token
func (s *Service) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	user, err := s.storage.User().GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		// Spend the same time as for existing user
		_ = s.hasher.Compare(dummyHash, password)
		return models.TokenPair{}, apperrors.ErrInvalidCredentials
	case err != nil:
		return models.TokenPair{}, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.TokenPair{}, apperrors.ErrInvalidCredentials
	}

	access, err := s.tokens.CreateAccessToken(user.Identity(), true)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := s.tokens.CreateRefreshToken(user.Identity())
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh issues not fresh access token for the refresh token owner
func (s *Service) Refresh(ctx context.Context, claims *jwtmanager.Claims) (models.IssuedToken, error) {
	userID, err := userIDFromClaims(claims)
	if err != nil {
		return models.IssuedToken{}, err
	}

	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return models.IssuedToken{}, err
	}

	return s.tokens.CreateAccessToken(user.Identity(), false)
}

// Logout revokes the presented token.
// Refresh token of the same user, if given, is revoked in the same transaction:
// either both tokens are in blocklist or none.
// Returns apperrors.ErrInvalidRefreshToken if refresh token is broken or belongs to other user.
func (s *Service) Logout(ctx context.Context, claims *jwtmanager.Claims, refreshToken string) error {
	revoke := []*jwtmanager.Claims{claims}

	if refreshToken != "" {
		refresh, err := s.refreshClaims(claims, refreshToken)
		if err != nil {
			return err
		}
		if refresh != nil {
			revoke = append(revoke, refresh)
		}
	}

	return s.storage.InTx(ctx, func(tx repository.Storage) error {
		for _, c := range revoke {
			if err := s.revoke(ctx, tx.Blocklist(), c); err != nil {
				return err
			}
		}
		return nil
	})
}

// Claims of refresh token issued for the same identity as access token.
// Expired refresh token is unusable already, nil claims are returned for it.
func (s *Service) refreshClaims(access *jwtmanager.Claims, refreshToken string) (*jwtmanager.Claims, error) {
	claims, err := s.tokens.Decode(refreshToken)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidRefreshToken, err)
	}

	if claims.Type != models.TokenTypeRefresh || claims.Identity() != access.Identity() {
		return nil, apperrors.ErrInvalidRefreshToken
	}
	return claims, nil
}

// Revoke adds token to blocklist until it expires
func (s *Service) Revoke(ctx context.Context, claims *jwtmanager.Claims) error {
	return s.revoke(ctx, s.storage.Blocklist(), claims)
}

func (s *Service) revoke(ctx context.Context, blocklist repository.BlocklistRepo, claims *jwtmanager.Claims) error {
	userID, err := userIDFromClaims(claims)
	if err != nil {
		return err
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return errors.New("token has no jti or expiration")
	}

	err = blocklist.Add(ctx, models.RevokedToken{
		ID:        uuid.New(),
		JTI:       claims.ID,
		TokenType: claims.Type,
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("error while revoking token. Err: %w", err)
	}

	return nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}

func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	return s.storage.User().DeleteUser(ctx, userID)
}

func userIDFromClaims(claims *jwtmanager.Claims) (int64, error) {
	if claims == nil {
		return 0, errors.New("claims must not be nil")
	}

	id, err := strconv.ParseInt(claims.Identity(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token subject is not user id. Err: %w", err)
	}
	return id, nil
}
